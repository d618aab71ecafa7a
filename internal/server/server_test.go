package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shouni/vibe-wallpaper/internal/config"
	"github.com/shouni/vibe-wallpaper/internal/metrics"
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mocks ---

type mockImages struct {
	mu      sync.Mutex
	release chan struct{}
	err     error
}

func (m *mockImages) GenerateImages(ctx context.Context, prompt string, ar domain.AspectRatio) ([]domain.GeneratedImage, error) {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	images := make([]domain.GeneratedImage, domain.BatchSize)
	for i := range images {
		images[i] = domain.NewGeneratedImage([]byte{0xFF, 0xD8, 0xFF, byte(i)}, "image/jpeg")
	}
	return images, nil
}

type mockRemixer struct{}

func (mockRemixer) GenerateRemixPrompt(ctx context.Context, original string, img domain.GeneratedImage) (string, error) {
	return "a misty neon alley", nil
}

// --- Helpers ---

type testEnv struct {
	srv    *Server
	images *mockImages
	orch   *session.Orchestrator
	reg    *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	images := &mockImages{}
	reg := prometheus.NewRegistry()
	m := metrics.New("vibewall", reg)
	orch, err := session.New(images, mockRemixer{}, session.WithRecorder(m))
	require.NoError(t, err)
	srv, err := New(config.ServerConfig{Address: ":0"}, orch, WithMetrics(m, reg))
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, images: images, orch: orch, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) stateView {
	t.Helper()
	var v stateView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var v errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v.Error
}

// --- Tests ---

func TestNew_RequiresOrchestrator(t *testing.T) {
	_, err := New(config.ServerConfig{}, nil)
	assert.Error(t, err)
}

func TestStaticRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Robo AI - Wallpaper Generator")

	w = env.do(t, "GET", "/healthz", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(t, "GET", "/api/aspect-ratios", "")
	var ratios []aspectRatioView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ratios))
	require.Len(t, ratios, 5)
	assert.Equal(t, aspectRatioView{Value: "9:16", Label: "9:16 (Phone)"}, ratios[0])

	w = env.do(t, "GET", "/api/help", "")
	var help helpView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &help))
	assert.Equal(t, "How It Works", help.Title)
	assert.Len(t, help.Steps, 4)
}

func TestGetState_Default(t *testing.T) {
	env := newTestEnv(t)
	v := decodeState(t, env.do(t, "GET", "/api/state", ""))

	assert.Equal(t, "Rainy cyberpunk lo-fi", v.Prompt)
	assert.Equal(t, "9:16", v.AspectRatio)
	assert.Equal(t, "idle", v.Phase)
	assert.Empty(t, v.Images)
	assert.Equal(t, domain.EmptyPlaceholder, v.Placeholder)
}

func TestGenerate(t *testing.T) {
	t.Run("wait=true で 4 枚返すのだ", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, "POST", "/api/generate?wait=true", `{"prompt":"Rainy cyberpunk lo-fi","aspectRatio":"16:9"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		v := decodeState(t, w)
		assert.Len(t, v.Images, 4)
		assert.Equal(t, "16:9", v.AspectRatio)
		assert.Nil(t, v.Error)
		assert.True(t, strings.HasPrefix(v.Images[0].DataURL, "data:image/jpeg;base64,"))
	})

	t.Run("本文なしならフォームの値で 202", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, "POST", "/api/generate", "")
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("クォータ超過は 429 とヘルプリンク", func(t *testing.T) {
		env := newTestEnv(t)
		env.images.err = domain.NewError(domain.KindQuotaExceeded, domain.MsgQuotaExceeded, nil)

		w := env.do(t, "POST", "/api/generate?wait=true", `{"prompt":"vibe"}`)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "QuotaExceeded", body.Code)
		assert.Contains(t, body.Message, domain.QuotaMarker)

		v := decodeState(t, env.do(t, "GET", "/api/state", ""))
		require.NotNil(t, v.Error)
		assert.True(t, v.Error.Quota)
		assert.Equal(t, domain.ErrorHeadline, v.Error.Headline)
		assert.Len(t, v.Error.HelpLinks, 2)
		assert.Empty(t, v.Placeholder)
	})

	t.Run("失敗の種別ごとのステータス", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{domain.NewError(domain.KindEmptyResult, domain.MsgEmptyResult, nil), http.StatusUnprocessableEntity},
			{domain.NewError(domain.KindServiceUnavailable, domain.MsgImageServiceFailed, nil), http.StatusBadGateway},
			{domain.ErrEmptyPrompt, http.StatusBadRequest},
		}
		for _, tt := range tests {
			env := newTestEnv(t)
			env.images.err = tt.err
			w := env.do(t, "POST", "/api/generate?wait=true", "")
			assert.Equal(t, tt.want, w.Code)
		}
	})

	t.Run("入力エラー", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, "POST", "/api/generate", `{"prompt":"   "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "EMPTY_PROMPT", decodeError(t, w).Code)

		w = env.do(t, "POST", "/api/generate", `{"aspectRatio":"21:9"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_ASPECT_RATIO", decodeError(t, w).Code)

		w = env.do(t, "POST", "/api/generate", `{not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("生成中は 409", func(t *testing.T) {
		env := newTestEnv(t)
		env.images.release = make(chan struct{})

		w := env.do(t, "POST", "/api/generate", "")
		require.Equal(t, http.StatusAccepted, w.Code)
		v := decodeState(t, w)
		assert.True(t, v.IsGenerating)
		assert.Equal(t, session.StatusGenerating, v.Status)

		w = env.do(t, "POST", "/api/generate", "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "BUSY", decodeError(t, w).Code)

		w = env.do(t, "PUT", "/api/prompt", `{"prompt":"x"}`)
		assert.Equal(t, http.StatusConflict, w.Code)

		close(env.images.release)
		require.Eventually(t, func() bool { return !env.orch.State().IsGenerating }, 2*time.Second, 10*time.Millisecond)
	})
}

func TestFormEdits(t *testing.T) {
	env := newTestEnv(t)

	v := decodeState(t, env.do(t, "PUT", "/api/prompt", `{"prompt":"sunset synthwave"}`))
	assert.Equal(t, "sunset synthwave", v.Prompt)

	v = decodeState(t, env.do(t, "PUT", "/api/aspect-ratio", `{"aspectRatio":"1:1"}`))
	assert.Equal(t, "1:1", v.AspectRatio)

	w := env.do(t, "PUT", "/api/aspect-ratio", `{"aspectRatio":"2:1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewRemixDownload(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/remix", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_SELECTION", decodeError(t, w).Code)

	w = env.do(t, "GET", "/api/download", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	v := decodeState(t, env.do(t, "POST", "/api/generate?wait=true", ""))
	require.Len(t, v.Images, 4)

	w = env.do(t, "POST", "/api/images/unknown/select", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "IMAGE_NOT_FOUND", decodeError(t, w).Code)

	sel := decodeState(t, env.do(t, "POST", "/api/images/"+v.Images[2].ID+"/select", ""))
	require.NotNil(t, sel.Selected)
	assert.Equal(t, v.Images[2].ID, sel.Selected.ID)

	closed := decodeState(t, env.do(t, "DELETE", "/api/preview", ""))
	assert.Nil(t, closed.Selected)
	assert.Len(t, closed.Images, 4)

	env.do(t, "POST", "/api/images/"+v.Images[1].ID+"/select", "")
	w = env.do(t, "GET", "/api/download", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=Rainy_cyberpunk_lo-f_wallpaper.jpeg`, w.Header().Get("Content-Disposition"))

	w = env.do(t, "POST", "/api/remix?wait=true", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	remixed := decodeState(t, w)
	assert.Equal(t, "a misty neon alley", remixed.Prompt)
	assert.Len(t, remixed.Images, 4)
	assert.Nil(t, remixed.Selected)
	assert.False(t, remixed.IsRemixing)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/generate?wait=true", "")

	w := env.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vibewall_http_requests_total")
	assert.Contains(t, w.Body.String(), `vibewall_generation_calls_total{op="generate",outcome="success"} 1`)
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	next := func() stateView {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				var v stateView
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &v))
				return v
			}
		}
	}

	first := next()
	assert.Equal(t, "idle", first.Phase)

	require.NoError(t, env.orch.SetPrompt("neon rain"))
	assert.Equal(t, "neon rain", next().Prompt)
}
