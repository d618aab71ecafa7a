package generator

import (
	"context"
	"errors"
	"io"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

type mockImagenModel struct {
	calls        int
	lastModel    string
	lastPrompt   string
	lastConfig   *genai.GenerateImagesConfig
	generateFunc func(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

func (m *mockImagenModel) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	m.calls++
	m.lastModel, m.lastPrompt, m.lastConfig = model, prompt, cfg
	if m.generateFunc != nil {
		return m.generateFunc(ctx, model, prompt, cfg)
	}
	return imagesResponse(4), nil
}

type mockPartsModel struct {
	calls     int
	lastModel string
	lastParts []*genai.Part
	// generateFunc が nil の場合は固定テキストを返すのだ
	generateFunc func(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

func (m *mockPartsModel) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.calls++
	m.lastModel, m.lastParts = model, parts
	if m.generateFunc != nil {
		return m.generateFunc(ctx, model, parts, opts)
	}
	return textResponse("a misty neon alley"), nil
}

type mockHTTPClient struct {
	calls int
	data  []byte
	err   error
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	return m.data, m.err
}

type mockReader struct {
	lastPath string
	openFunc func(ctx context.Context, uri string) (io.ReadCloser, error)
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	m.lastPath = uri
	if m.openFunc != nil {
		return m.openFunc(ctx, uri)
	}
	return nil, errors.New("not implemented")
}

func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	return nil
}

// --- Fixtures ---

func imagesResponse(n int) *genai.GenerateImagesResponse {
	resp := &genai.GenerateImagesResponse{}
	for i := 0; i < n; i++ {
		resp.GeneratedImages = append(resp.GeneratedImages, &genai.GeneratedImage{
			Image: &genai.Image{ImageBytes: []byte{0xFF, 0xD8, byte(i)}, MIMEType: "image/jpeg"},
		})
	}
	return resp
}

func textResponse(texts ...string) *gemini.Response {
	parts := make([]*genai.Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, &genai.Part{Text: t})
	}
	return &gemini.Response{
		RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
		},
	}
}
