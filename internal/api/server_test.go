package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"msgkit/internal/bus"
	"msgkit/internal/config"
	"msgkit/internal/dispatch"
	"msgkit/internal/metrics"
	"msgkit/internal/outbox"
	"msgkit/internal/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smsBody = `{"to":"+15551112222","channelList":[{"channel":"SMS","content":{"text":"hello"}}]}`

type testEnv struct {
	router  http.Handler
	store   *outbox.Store
	metrics *metrics.RequestMetrics
}

func newTestEnv(t *testing.T, apiKey string) testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	contract, err := wire.NewContract()
	require.NoError(t, err)

	events := bus.NewEventBus(logger, 0)
	m := metrics.NewRequestMetrics()
	m.Subscribe(events)

	d := dispatch.New(contract, store, events, logger)
	opts := Options{
		APIKey:       apiKey,
		MaxBodyBytes: 4096,
		MetricsPath:  "/metrics",
		Defaults:     config.DefaultsConfig{From: "+15553334444", ApplicationID: "app-1"},
		Events:       events,
		Logger:       logger,
	}
	return testEnv{router: NewServer(opts, d, store, m).Router(), store: store, metrics: m}
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestValidate_Valid(t *testing.T) {
	env := newTestEnv(t, "")
	w := do(t, env.router, http.MethodPost, "/v1/requests/validate", smsBody)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())
}

func TestValidate_ReportsFindings(t *testing.T) {
	env := newTestEnv(t, "")
	body := `{"to":"+15551112222","channelList":[{"channel":"SMS","content":{"text":"` + strings.Repeat("x", 2049) + `"}}]}`
	w := do(t, env.router, http.MethodPost, "/v1/requests/validate", body)

	require.Equal(t, http.StatusOK, w.Code)
	var resp validateResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "length_exceeded", string(resp.Errors[0].Kind))
	assert.Equal(t, "channelList[0].content", resp.Errors[0].Path)
	assert.Equal(t, int64(1), env.metrics.Rejected("length_exceeded").Value())
}

func TestValidate_Malformed(t *testing.T) {
	env := newTestEnv(t, "")
	w := do(t, env.router, http.MethodPost, "/v1/requests/validate", `{"to": [`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRender_JSONAndYAML(t *testing.T) {
	env := newTestEnv(t, "")
	want := `{"to":"+15551112222","channelList":[{"from":"+15553334444","applicationId":"app-1","channel":"SMS","content":{"text":"hello"}}]}`

	w := do(t, env.router, http.MethodPost, "/v1/requests/render", smsBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, want, w.Body.String())

	yamlBody := "to: \"+15551112222\"\nchannelList:\n  - channel: SMS\n    content:\n      text: hello\n"
	w = do(t, env.router, http.MethodPost, "/v1/requests/render", yamlBody, "Content-Type", "application/yaml")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, want, w.Body.String())
	assert.Equal(t, int64(2), env.metrics.Rendered.Value())
}

func TestRender_ValidationIs422(t *testing.T) {
	env := newTestEnv(t, "")
	w := do(t, env.router, http.MethodPost, "/v1/requests/render", `{"to":"+15551112222","channelList":[]}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp errorResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "empty_collection", resp.Error)
}

func TestBodyErrors_SameOnEveryRoute(t *testing.T) {
	env := newTestEnv(t, "")
	tooLarge := `{"to":"` + strings.Repeat("1", 5000) + `"}`

	for _, path := range []string{"/v1/requests/validate", "/v1/requests/render", "/v1/requests"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, env.router, http.MethodPost, path, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "empty request body")

			w = do(t, env.router, http.MethodPost, path, tooLarge)
			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		})
	}
}

func TestSubmitAndReadOutbox(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.router, http.MethodPost, "/v1/requests", smsBody)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var created submitResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "pending", string(created.Status))
	assert.Equal(t, []string{"SMS"}, created.Channels)

	w = do(t, env.router, http.MethodGet, "/v1/outbox/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, created.ID, view["id"])
	payload, ok := view["payload"].(map[string]any)
	require.True(t, ok, "payload is inlined JSON")
	assert.Equal(t, "+15551112222", payload["to"])

	w = do(t, env.router, http.MethodGet, "/v1/outbox?status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = do(t, env.router, http.MethodGet, "/v1/outbox?status=published", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, int64(1), env.metrics.Enqueued.Value())
}

func TestOutbox_BadQueryAndMissing(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, http.StatusBadRequest, do(t, env.router, http.MethodGet, "/v1/outbox?status=lost", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, env.router, http.MethodGet, "/v1/outbox?limit=0", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodGet, "/v1/outbox/nope", "").Code)
}

func TestAPIKey(t *testing.T) {
	env := newTestEnv(t, "secret-key")

	assert.Equal(t, http.StatusUnauthorized, do(t, env.router, http.MethodPost, "/v1/requests/validate", smsBody).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, env.router, http.MethodPost, "/v1/requests/validate", smsBody, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK,
		do(t, env.router, http.MethodPost, "/v1/requests/validate", smsBody, "Authorization", "Bearer secret-key").Code)
	assert.Equal(t, http.StatusOK,
		do(t, env.router, http.MethodPost, "/v1/requests/validate", smsBody, "X-API-Key", "secret-key").Code)

	// health and metrics stay open
	assert.Equal(t, http.StatusOK, do(t, env.router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, env.router, http.MethodGet, "/metrics", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, "")
	do(t, env.router, http.MethodPost, "/v1/requests", smsBody)

	w := do(t, env.router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","outbox":{"pending":1,"published":0}}`, w.Body.String())

	w = do(t, env.router, http.MethodGet, "/metrics", "")
	assert.Contains(t, w.Body.String(), "msgkit_outbox_enqueued_total 1")
	assert.Contains(t, w.Body.String(), `msgkit_channel_items_total{channel="SMS"} 1`)
}

func TestSubmit_OutboxDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := dispatch.New(nil, nil, nil, logger)
	router := NewServer(Options{Logger: logger, Defaults: config.DefaultsConfig{From: "+1", ApplicationID: "a"}}, d, nil, nil).Router()

	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodPost, "/v1/requests", smsBody).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/v1/outbox", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/metrics", "").Code)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Metrics.Enabled = false
	opts := OptionsFromConfig(cfg, nil)
	assert.Equal(t, "127.0.0.1", opts.Host)
	assert.Empty(t, opts.MetricsPath)
	assert.Equal(t, "127.0.0.1:8080", NewServer(opts, nil, nil, nil).Addr())
}

func TestEvents_ReplayByType(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPost, "/v1/requests/render", smsBody).Code)
	tooLong := `{"to":"+15551112222","channelList":[{"channel":"SMS","content":{"text":"` + strings.Repeat("x", 2049) + `"}}]}`
	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPost, "/v1/requests/validate", tooLong).Code)

	w := do(t, env.router, http.MethodGet, "/v1/events?type="+bus.EventRequestRendered, "")
	require.Equal(t, http.StatusOK, w.Code)
	var events []struct {
		Type    string         `json:"type"`
		Source  string         `json:"source"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, bus.EventRequestRendered, events[0].Type)
	assert.Equal(t, []any{"SMS"}, events[0].Payload["channels"])

	w = do(t, env.router, http.MethodGet, "/v1/events", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Len(t, events, 2)
}

func TestEvents_BadSince(t *testing.T) {
	env := newTestEnv(t, "")
	w := do(t, env.router, http.MethodGet, "/v1/events?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
