package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"msgkit/internal/dispatch"
	"msgkit/internal/domain"
	"msgkit/internal/loader"
	"msgkit/internal/model"
	"msgkit/internal/outbox"

	"github.com/go-chi/chi/v5"
)

// finding is one validation failure in a response body.
type finding struct {
	Kind    domain.ErrorKind `json:"kind"`
	Path    string           `json:"path,omitempty"`
	Object  string           `json:"object,omitempty"`
	Fields  []string         `json:"fields,omitempty"`
	Message string           `json:"message,omitempty"`
}

type validateResp struct {
	Valid  bool      `json:"valid"`
	Errors []finding `json:"errors,omitempty"`
}

type errorResp struct {
	Error  string    `json:"error"`
	Errors []finding `json:"errors,omitempty"`
}

type submitResp struct {
	ID       string              `json:"id"`
	Status   domain.OutboxStatus `json:"status"`
	Channels []string            `json:"channels"`
}

// recordView shows a record with its payload inlined as JSON.
type recordView struct {
	domain.OutboxRecord
	Payload json.RawMessage `json:"payload,omitempty"`
}

func findings(err error) []finding {
	var out []finding
	for _, ve := range domain.Flatten(err) {
		out = append(out, finding{Kind: ve.Kind, Path: ve.Path, Object: ve.Object, Fields: ve.Fields, Message: ve.Message})
	}
	return out
}

// readBody reads the request body, mapping an oversized body to 413 and an
// empty one to 400. On failure it writes the response and returns false.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "cannot read request body", http.StatusBadRequest)
		return nil, false
	}
	if len(body) == 0 {
		jsonError(w, "empty request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// parseBody reads a JSON or YAML request document. On failure it writes the
// response itself and returns nil.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) *model.Request {
	body, ok := readBody(w, r)
	if !ok {
		return nil
	}
	req, err := loader.Parse(body, s.opts.Defaults)
	if err != nil {
		s.writeRequestError(w, err)
		return nil
	}
	return req
}

// writeRequestError maps validation failures to 422 and anything else to 400.
func (s *Server) writeRequestError(w http.ResponseWriter, err error) {
	if domain.IsValidation(err) {
		s.dispatcher.Observe(err)
		jsonOK(w, http.StatusUnprocessableEntity, errorResp{Error: string(domain.KindOf(err)), Errors: findings(err)})
		return
	}
	jsonError(w, err.Error(), http.StatusBadRequest)
}

// handleValidate is POST /v1/requests/validate. A document that parses but
// breaks a rule is still a 200 with valid=false.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	req, err := loader.Parse(body, s.opts.Defaults)
	if err == nil {
		err = s.dispatcher.Validate(req)
	} else if domain.IsValidation(err) {
		s.dispatcher.Observe(err)
	}
	switch {
	case err == nil:
		jsonOK(w, http.StatusOK, validateResp{Valid: true})
	case domain.IsValidation(err):
		jsonOK(w, http.StatusOK, validateResp{Valid: false, Errors: findings(err)})
	default:
		jsonError(w, err.Error(), http.StatusBadRequest)
	}
}

// handleRender is POST /v1/requests/render.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req := s.parseBody(w, r)
	if req == nil {
		return
	}
	out, err := s.dispatcher.Render(req)
	if err != nil {
		s.writeRequestError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// handleSubmit is POST /v1/requests.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req := s.parseBody(w, r)
	if req == nil {
		return
	}
	rec, err := s.dispatcher.Submit(r.Context(), req)
	switch {
	case errors.Is(err, dispatch.ErrOutboxDisabled):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case domain.IsValidation(err):
		s.writeRequestError(w, err)
		return
	case err != nil:
		s.logger.Error("submit failed", "err", err)
		jsonError(w, "cannot enqueue request", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusAccepted, submitResp{ID: rec.ID, Status: rec.Status, Channels: rec.Channels})
}

// handleListOutbox is GET /v1/outbox?status=&limit=.
func (s *Server) handleListOutbox(w http.ResponseWriter, r *http.Request) {
	if s.outbox == nil {
		jsonError(w, dispatch.ErrOutboxDisabled.Error(), http.StatusServiceUnavailable)
		return
	}
	status := domain.OutboxStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.OutboxPending, domain.OutboxPublished:
	default:
		jsonError(w, "status must be pending or published", http.StatusBadRequest)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.outbox.List(r.Context(), status, limit)
	if err != nil {
		s.logger.Error("list outbox failed", "err", err)
		jsonError(w, "cannot list outbox", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []domain.OutboxRecord{}
	}
	jsonOK(w, http.StatusOK, records)
}

// handleGetOutbox is GET /v1/outbox/{id}.
func (s *Server) handleGetOutbox(w http.ResponseWriter, r *http.Request) {
	if s.outbox == nil {
		jsonError(w, dispatch.ErrOutboxDisabled.Error(), http.StatusServiceUnavailable)
		return
	}
	rec, err := s.outbox.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, outbox.ErrNotFound) {
		jsonError(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get outbox record failed", "err", err)
		jsonError(w, "cannot read outbox", http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusOK, recordView{OutboxRecord: *rec, Payload: rec.Payload})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.outbox != nil {
		counts, err := s.outbox.Counts(r.Context())
		if err != nil {
			jsonOK(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
			return
		}
		resp["outbox"] = counts
	}
	jsonOK(w, http.StatusOK, resp)
}

// --- helpers ---

type eventView struct {
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// handleEvents replays recent bus events: ?type= (default all), ?since= (RFC 3339).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("type")
	if eventType == "" {
		eventType = "*"
	}
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonError(w, "since must be an RFC 3339 time", http.StatusBadRequest)
			return
		}
		since = t
	}

	events := s.opts.Events.Replay(eventType, since)
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{Type: e.Type, Source: e.Source, Payload: e.Payload, Timestamp: e.Timestamp})
	}
	jsonOK(w, http.StatusOK, out)
}

func jsonOK(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonOK(w, status, errorResp{Error: msg})
}
