package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlcshim/pkg/types"
)

type mockService struct {
	models    []types.ModelInfo
	status    types.StatusResponse
	ready     bool
	admitErr  error
	streamErr error
	frames    []string

	mu       sync.Mutex
	prompts  []string
	released int
	ctxSeen  context.Context
}

func (m *mockService) ListModels() []types.ModelInfo { return append([]types.ModelInfo(nil), m.models...) }
func (m *mockService) Status() types.StatusResponse  { return m.status }
func (m *mockService) Ready() bool                   { return m.ready }

func (m *mockService) Admit(ctx context.Context) (func(), error) {
	if m.admitErr != nil {
		return func() {}, m.admitErr
	}
	return func() {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
	}, nil
}

func (m *mockService) StreamChat(ctx context.Context, prompt string, w io.Writer, flush func()) error {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.ctxSeen = ctx
	m.mu.Unlock()
	for _, f := range m.frames {
		if _, err := io.WriteString(w, "data: "+f+"\n\n"); err != nil {
			return err
		}
		if flush != nil {
			flush()
		}
	}
	return m.streamErr
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.ModelInfo{{ID: "MLC_LLM_Model", Object: "model"}}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"data":[{"id":"MLC_LLM_Model","object":"model"}]}`, w.Body.String())
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{Model: "m", TimeoutSeconds: 1200}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body types.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1200, body.TimeoutSeconds)
	assert.Equal(t, "m", body.Model)
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestReadyz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{ready: true}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	NewMux(&mockService{ready: false}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "cli unavailable")
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(&mockService{})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `mlcshim_http_requests_total{method="GET",path="/healthz",status="200"}`)
}

func TestChat_StreamsFrames(t *testing.T) {
	svc := &mockService{frames: []string{`{"x":1}`, "[DONE]"}}
	w := postChat(t, NewMux(svc), `{"model":"ignored","messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hello there"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "data: {\"x\":1}\n\ndata: [DONE]\n\n", w.Body.String())
	assert.True(t, w.Flushed)
	assert.Equal(t, []string{"hello there"}, svc.prompts)
	assert.Equal(t, 1, svc.released)
}

func TestChat_ContentParts(t *testing.T) {
	svc := &mockService{frames: []string{"[DONE]"}}
	w := postChat(t, NewMux(svc), `{"messages":[{"role":"user","content":[{"type":"text","text":"one "},{"type":"image_url"},{"type":"text","text":"two"}]}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"one two"}, svc.prompts)
}

func TestChat_UnsupportedMediaType(t *testing.T) {
	svc := &mockService{}
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"messages":[]}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Empty(t, svc.prompts)
}

func TestChat_BadRequests(t *testing.T) {
	cases := map[string]struct {
		body string
		msg  string
	}{
		"invalid json":     {`{"messages":`, "invalid JSON body"},
		"empty messages":   {`{"messages":[]}`, "messages must not be empty"},
		"missing messages": {`{"model":"x"}`, "messages must not be empty"},
		"bad content":      {`{"messages":[{"role":"user","content":42}]}`, "invalid JSON body"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &mockService{}
			w := postChat(t, NewMux(svc), tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			var er types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er))
			assert.Equal(t, tc.msg, er.Error)
			assert.Equal(t, http.StatusBadRequest, er.Code)
			assert.Empty(t, svc.prompts)
		})
	}
}

func TestChat_BodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(64)
	defer SetMaxBodyBytes(0)
	svc := &mockService{}
	w := postChat(t, NewMux(svc), fmt.Sprintf(`{"messages":[{"role":"user","content":%q}]}`, strings.Repeat("a", 200)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too large")
}

func TestChat_TooBusy(t *testing.T) {
	svc := &mockService{admitErr: mockHTTPError{msg: "too busy", code: http.StatusTooManyRequests}}
	w := postChat(t, NewMux(svc), `{"messages":[{"role":"user","content":"x"}]}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Empty(t, svc.prompts)
}

func TestChat_AdmitUnknownError(t *testing.T) {
	svc := &mockService{admitErr: errors.New("boom")}
	w := postChat(t, NewMux(svc), `{"messages":[{"role":"user","content":"x"}]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestChat_StreamErrorKeepsFrames(t *testing.T) {
	svc := &mockService{frames: []string{`{"error":"Process killed after 1s timeout."}`}, streamErr: errors.New("timeout")}
	w := postChat(t, NewMux(svc), `{"messages":[{"role":"user","content":"x"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data: {\"error\":\"Process killed after 1s timeout.\"}\n\n", w.Body.String())
	assert.Equal(t, 1, svc.released)
}

func TestChat_StreamContextReleased(t *testing.T) {
	svc := &mockService{frames: []string{"[DONE]"}}
	w := postChat(t, NewMux(svc), `{"messages":[{"role":"user","content":"x"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	// handler returned, so its joined context is released
	require.NotNil(t, svc.ctxSeen)
	select {
	case <-svc.ctxSeen.Done():
	case <-time.After(time.Second):
		t.Fatal("stream context not released after handler returned")
	}
}

func TestChat_ShutdownCancelsStream(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)

	started := make(chan struct{})
	svc := &blockingService{started: started}
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- postChat(t, NewMux(svc), `{"messages":[{"role":"user","content":"x"}]}`) }()
	<-started
	cancel()
	select {
	case w := <-done:
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after base context cancel")
	}
}

// blockingService streams nothing until its context ends.
type blockingService struct {
	mockService
	started chan struct{}
}

func (b *blockingService) StreamChat(ctx context.Context, prompt string, w io.Writer, flush func()) error {
	close(b.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestJoinContexts(t *testing.T) {
	a, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	b := context.Background()
	ctx, cancel := joinContexts(a, b)
	defer cancel()
	cancelA()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("joined context not canceled")
	}
}

func TestCORS(t *testing.T) {
	SetCORSOptions(true, []string{"http://app.local"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	assert.Equal(t, "http://app.local", w.Header().Get("Access-Control-Allow-Origin"))

	origins, methods, headers := corsSettings()
	assert.Equal(t, []string{"http://app.local"}, origins)
	assert.Contains(t, methods, "POST")
	assert.Contains(t, headers, "Content-Type")
}

func TestSetMaxBodyBytes_ResetsOnNonPositive(t *testing.T) {
	SetMaxBodyBytes(10)
	assert.Equal(t, int64(10), maxBodyBytes)
	SetMaxBodyBytes(-1)
	assert.Equal(t, defaultMaxBodyBytes, maxBodyBytes)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusTeapot, statusFor(fmt.Errorf("wrapped: %w", mockHTTPError{code: http.StatusTeapot})))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("x")))
}
