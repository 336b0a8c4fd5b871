package fifolink

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func consoleRequest(t testing.TB, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestConsoleToken(t *testing.T) {
	fl, _ := newLink(t, false)
	con := &Console{Token: "secret"}
	handler := con.Handler(fl.Stream())

	for _, path := range []string{"/status/token/wrong", "/read/token/wrong"} {
		rec := consoleRequest(t, handler, http.MethodGet, path, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := consoleRequest(t, handler, http.MethodPost, "/write/token/wrong", "x")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConsoleStatus(t *testing.T) {
	fl, bridge := newLink(t, false)
	con := &Console{Token: "secret"}
	handler := con.Handler(fl.Stream())

	bridge.Feed('x')
	rec := consoleRequest(t, handler, http.MethodGet, "/status/token/secret", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got consoleStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.KeyPressed)
	require.Equal(t, StatsSnapshot{}, got.Stats)
	require.NotEmpty(t, got.Platform)
}

func TestConsoleReadWrite(t *testing.T) {
	fl, bridge := newLink(t, false)
	con := &Console{Token: "secret"}
	handler := con.Handler(fl.Stream())

	rec := consoleRequest(t, handler, http.MethodPost, "/write/token/secret", "ping")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var written map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &written))
	require.Equal(t, 4, written["written"])
	require.Equal(t, "ping", string(bridge.Drain()))

	bridge.Feed([]byte("pong")...)
	rec = consoleRequest(t, handler, http.MethodGet, "/read/token/secret", "")
	require.Equal(t, "pong", rec.Body.String())

	rec = consoleRequest(t, handler, http.MethodGet, "/read/token/secret", "")
	require.Empty(t, rec.Body.String())
}

func TestConsoleWriteTxFull(t *testing.T) {
	fl, bridge := newLink(t, false)
	bridge.BufferSize = 2
	fl.Stream().WriteTimeout = 5 * time.Millisecond

	con := &Console{Token: "secret"}
	rec := consoleRequest(t, con.Handler(fl.Stream()), http.MethodPost, "/write/token/secret", "abc")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "ab", string(bridge.Drain()))
}
