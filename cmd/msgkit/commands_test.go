package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"msgkit/internal/config"
	"msgkit/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	os.Exit(m.Run())
}

func TestDefinitionPaths_Args(t *testing.T) {
	paths, err := definitionPaths("/does/not/matter", []string{"b.yaml", "a.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.yaml", "a.yaml"}, paths)
}

func TestDefinitionPaths_Directory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"welcome.yaml", "alert.yml", "promo.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	paths, err := definitionPaths(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "alert.yml"),
		filepath.Join(dir, "promo.json"),
		filepath.Join(dir, "welcome.yaml"),
	}, paths)
}

func TestDefinitionPaths_MissingDir(t *testing.T) {
	_, err := definitionPaths(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestPrintFindings(t *testing.T) {
	var buf bytes.Buffer
	err := domain.Join(
		domain.NewValidationError(domain.KindMissingRequiredField, "to", "to is required"),
		domain.NewValidationError(domain.KindLengthExceeded, "text", "text is too long"),
	)
	printFindings(&buf, err)

	out := buf.String()
	assert.Contains(t, out, "["+string(domain.KindMissingRequiredField)+"]")
	assert.Contains(t, out, "["+string(domain.KindLengthExceeded)+"]")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestServicePath(t *testing.T) {
	p, err := servicePath("/home/u", "darwin")
	require.NoError(t, err)
	assert.Equal(t, "/home/u/Library/LaunchAgents/com.msgkit.serve.plist", p)

	p, err = servicePath("/home/u", "linux")
	require.NoError(t, err)
	assert.Equal(t, "/home/u/.config/systemd/user/msgkit.service", p)

	_, err = servicePath("/home/u", "plan9")
	assert.Error(t, err)
}

func TestRenderService(t *testing.T) {
	unit := renderService(systemdTemplate, "/usr/local/bin/msgkit", "/etc/msgkit.json", "")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/msgkit serve --config /etc/msgkit.json")
	assert.NotContains(t, unit, "{{")

	plist := renderService(launchdTemplate, "/bin/msgkit", "/c.json", "/logs")
	assert.Contains(t, plist, "<string>com.msgkit.serve</string>")
	assert.Contains(t, plist, "<string>/logs/msgkit.log</string>")
	assert.Contains(t, plist, "<string>/logs/msgkit-error.log</string>")
	assert.NotContains(t, plist, "{{")
}

func TestCheckPort(t *testing.T) {
	assert.NoError(t, checkPort("127.0.0.1:0"))
}

func TestConfigList_Flat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.Defaults()
	cfg.API.APIKey = "sk-0123456789abcdef"
	require.NoError(t, config.Save(path, cfg))
	configPath = path
	t.Cleanup(func() { configPath = "" })

	var out bytes.Buffer
	cmd := configCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"list", "--flat"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Contains(t, lines, "broker.url = ")
	assert.Contains(t, lines, "api.apiKey = sk-0****cdef")
	assert.True(t, sort.StringsAreSorted(lines))
}
