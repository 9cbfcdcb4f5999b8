package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano2zit/internal/convert"
	"nano2zit/internal/llm"
	"nano2zit/internal/logging"
)

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) Generate(_ context.Context, _ llm.Request) (llm.Completion, error) {
	if g.err != nil {
		return llm.Completion{}, g.err
	}
	return llm.Completion{Text: g.text, Provider: "stub", Model: "stub-1", Usage: json.RawMessage(`{"in":3}`)}, nil
}

func newTestServer(gen *stubGenerator) http.Handler {
	s := &server{
		conv:           convert.New(convert.Options{Generator: gen, MaxInputChars: 200}),
		runtime:        llm.Runtime{Provider: "stub", Model: "stub-1"},
		requestTimeout: time.Second,
		logger:         logging.Discard(),
	}
	static := fstest.MapFS{"index.html": {Data: []byte("<html>ok</html>")}}
	return s.routes(http.FileServer(http.FS(static)))
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("content-type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestConvertStatus(t *testing.T) {
	h := newTestServer(&stubGenerator{})

	rec, out := do(t, h, http.MethodGet, "/api/convert", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "stub", out["provider"])
	assert.Equal(t, "stub-1", out["model"])
	assert.Equal(t, "v3-balanced", out["default_prompt_profile"])
	assert.Len(t, out["prompt_profiles"], 3)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestConvertSuccess(t *testing.T) {
	h := newTestServer(&stubGenerator{text: "<SFW>\nCalm portrait.\n</SFW>\n<NSFW>\nBolder portrait.\n</NSFW>"})

	rec, out := do(t, h, http.MethodPost, "/api/convert", `{"input_json":"{\"subject\":\"portrait\"}","prompt_version":"v3-strict"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Calm portrait.", out["sfw"])
	assert.Equal(t, "Bolder portrait.", out["nsfw"])
	assert.Equal(t, "stub", out["provider"])
	assert.Equal(t, "v3-strict", out["prompt_version"])
	assert.Equal(t, map[string]any{"in": float64(3)}, out["usage"])
}

func TestConvertErrors(t *testing.T) {
	cases := []struct {
		name   string
		gen    *stubGenerator
		body   string
		status int
		check  func(t *testing.T, out map[string]any)
	}{
		{
			name:   "missing input",
			gen:    &stubGenerator{},
			body:   `{}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "input_json is required", out["error"])
			},
		},
		{
			name:   "bad body",
			gen:    &stubGenerator{},
			body:   `{"input_json":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "too long",
			gen:    &stubGenerator{},
			body:   `{"input_json":"{\"a\":\"` + strings.Repeat("x", 300) + `\"}"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "input_json exceeds 200 characters", out["error"])
			},
		},
		{
			name:   "unknown profile",
			gen:    &stubGenerator{},
			body:   `{"input_json":"{}","prompt_version":"v9"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "Unknown prompt_version: v9", out["error"])
				assert.Equal(t, []any{"v3-strict", "v3-balanced", "v3-rich"}, out["valid_prompt_versions"])
			},
		},
		{
			name:   "unparseable",
			gen:    &stubGenerator{text: "garbled"},
			body:   `{"input_json":"{}"}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "garbled", out["preview"])
				assert.Equal(t, "stub", out["provider"])
			},
		},
		{
			name:   "generator failure",
			gen:    &stubGenerator{err: errors.New("upstream down")},
			body:   `{"input_json":"{}"}`,
			status: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := do(t, newTestServer(tc.gen), http.MethodPost, "/api/convert", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, out["error"])
			if tc.check != nil {
				tc.check(t, out)
			}
		})
	}
}

func TestConvertMethods(t *testing.T) {
	h := newTestServer(&stubGenerator{})

	rec, _ := do(t, h, http.MethodOptions, "/api/convert", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/api/convert", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/hints", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHints(t *testing.T) {
	h := newTestServer(&stubGenerator{})

	rec, out := do(t, h, http.MethodPost, "/api/hints", `{"input_json":"{\"negative_prompt\":\"blurry, watermark\"}"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["has_constraint_hints"])
	assert.Contains(t, out["directives"], "- blurry, watermark")
}

func TestRequestIDPassthrough(t *testing.T) {
	h := newTestServer(&stubGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), "<html>ok</html>")
}
