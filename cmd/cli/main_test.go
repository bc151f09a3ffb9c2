package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/runboard/runs"
	"github.com/nomis52/runboard/server/config"
)

func TestParseFilters(t *testing.T) {
	filters, err := parseFilters([]string{"verdict=AC", "username=omegaup"})
	require.NoError(t, err)
	assert.Equal(t, runs.Filters{runs.FilterVerdict: "AC", runs.FilterUsername: "omegaup"}, filters)

	_, err = parseFilters([]string{"verdict"})
	assert.Error(t, err)

	_, err = parseFilters([]string{"colour=red"})
	assert.ErrorIs(t, err, runs.ErrUnknownFilterKey)
}

func TestFindStore(t *testing.T) {
	cfg := &config.ServerConfig{Stores: []config.StoreConfig{{Name: "all"}, {Name: "mine"}}}

	s, err := findStore(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "all", s.Name)

	s, err = findStore(cfg, "mine")
	require.NoError(t, err)
	assert.Equal(t, "mine", s.Name)

	_, err = findStore(cfg, "other")
	assert.Error(t, err)
}

func writeConfig(t *testing.T, upstream string) string {
	t.Helper()
	content := fmt.Sprintf(`logging:
  level: error
stores:
  - name: all
    upstream: %s
    page_size: 2
    empty_filters: true
  - name: mine
    upstream: %s
`, upstream, upstream)
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadCommand(t *testing.T) {
	var gotFilters map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filters map[string]any `json:"filters"`
			Offset  int            `json:"offset"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotFilters = req.Filters
		page := []runs.Run{{"guid": fmt.Sprintf("g%d", req.Offset)}, {"guid": fmt.Sprintf("g%d", req.Offset+1)}}
		_ = json.NewEncoder(w).Encode(map[string]any{"runs": page, "total": 10})
	}))
	defer upstream.Close()

	out, err := execute(t, "load", "-c", writeConfig(t, upstream.URL), "--store", "mine", "--pages", "2", "--filter", "verdict=AC")
	require.NoError(t, err)

	var snap runs.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "mine", snap.Name)
	assert.Len(t, snap.Runs, 4)
	assert.Equal(t, 10, snap.Pagination.TotalRuns)
	assert.Equal(t, 4, snap.Pagination.Offset)
	assert.Equal(t, map[string]any{"verdict": "AC"}, gotFilters)
}

func TestValidateAndVersionCommands(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")

	out, err := execute(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration validation successful")

	_, err = execute(t, "validate")
	assert.ErrorContains(t, err, "config flag")

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "runboard cli dev")
}
