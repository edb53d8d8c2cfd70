package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwise1/gunaso/config"
	"github.com/bwise1/gunaso/internal/forwarding"
	"github.com/bwise1/gunaso/util/values"
	"github.com/stretchr/testify/require"
)

type testResponse struct {
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func newTestAPI(t *testing.T) *API {
	t.Helper()
	engine, err := forwarding.Default()
	require.NoError(t, err)

	return &API{
		Config: &config.Config{
			JwtSecret:          "access-secret",
			JwtExpires:         "15m",
			RefreshSecret:      "refresh-secret",
			RefreshExpiry:      "24h",
			CORSAllowedOrigins: []string{"*"},
			PublicBaseURL:      "https://gunaso.test",
			MaxEvidenceBytes:   1 << 20,
			MaxEvidenceFiles:   5,
			SubmitRateLimit:    2,
			SubmitRateWindow:   "1h",
			AuthRateLimit:      5,
			AuthRateWindow:     "15m",
		},
		Forwarding: engine,
	}
}

// do sends a request through the full router with tracing headers set.
func do(t *testing.T, api *API, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(values.HeaderRequestSource, "test")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	api.setUpServerHandler().ServeHTTP(rec, req)

	var resp testResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
