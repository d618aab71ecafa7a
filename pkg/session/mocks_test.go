package session

import (
	"context"
	"sync"
	"time"

	"github.com/shouni/vibe-wallpaper/pkg/domain"
)

// --- Mocks ---

type generateCall struct {
	Prompt      string
	AspectRatio domain.AspectRatio
}

type mockImageGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	// release が nil でなければ閉じられるまで応答を保留するのだ
	release      chan struct{}
	generateFunc func(ctx context.Context, prompt string, ar domain.AspectRatio) ([]domain.GeneratedImage, error)
}

func (m *mockImageGenerator) GenerateImages(ctx context.Context, prompt string, ar domain.AspectRatio) ([]domain.GeneratedImage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, generateCall{Prompt: prompt, AspectRatio: ar})
	m.mu.Unlock()
	if m.release != nil {
		<-m.release
	}
	if m.generateFunc != nil {
		return m.generateFunc(ctx, prompt, ar)
	}
	return batch(domain.BatchSize), nil
}

func (m *mockImageGenerator) Calls() []generateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generateCall(nil), m.calls...)
}

type mockRemixPrompter struct {
	mu          sync.Mutex
	calls       int
	lastPrompt  string
	lastImageID string
	remixFunc   func(ctx context.Context, original string, img domain.GeneratedImage) (string, error)
}

func (m *mockRemixPrompter) GenerateRemixPrompt(ctx context.Context, original string, img domain.GeneratedImage) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastPrompt, m.lastImageID = original, img.ID
	m.mu.Unlock()
	if m.remixFunc != nil {
		return m.remixFunc(ctx, original, img)
	}
	return "a misty neon alley", nil
}

type observedCall struct {
	Op      string
	Outcome string
}

type mockRecorder struct {
	mu       sync.Mutex
	calls    []observedCall
	inFlight []bool
}

func (m *mockRecorder) ObserveCall(op, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, observedCall{Op: op, Outcome: outcome})
}

func (m *mockRecorder) SetInFlight(busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = append(m.inFlight, busy)
}

// --- Fixtures ---

func batch(n int) []domain.GeneratedImage {
	images := make([]domain.GeneratedImage, n)
	for i := range images {
		images[i] = domain.NewGeneratedImage([]byte{0xFF, 0xD8, 0xFF, byte(i)}, "image/jpeg")
	}
	return images
}
