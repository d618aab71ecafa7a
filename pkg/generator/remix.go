package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/vibe-wallpaper/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// DefaultTextModel はリミックス用プロンプトを作るマルチモーダルモデルです。
const DefaultTextModel = "gemini-2.5-flash"

const remixInstructionTemplate = `Based on the user's vibe "%s" and the provided image, create a new, more detailed and evocative text prompt for an AI image generator to create similar but unique variations. The prompt should be a single paragraph, focusing on visual details. Do not add any conversational text, just the prompt itself.`

// GeminiRemixer は画像と元のプロンプトから、次の生成に使うプロンプトを Gemini に作らせます。
type GeminiRemixer struct {
	aiClient PartsModel
	model    string
	breaker  *gobreaker.CircuitBreaker[any]
}

// NewGeminiRemixer は GeminiRemixer を初期化します。breaker は nil を許容します。
func NewGeminiRemixer(aiClient PartsModel, model string, breaker *gobreaker.CircuitBreaker[any]) (*GeminiRemixer, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (PartsModel) is required")
	}
	if model == "" {
		model = DefaultTextModel
	}
	return &GeminiRemixer{
		aiClient: aiClient,
		model:    model,
		breaker:  breaker,
	}, nil
}

// GenerateRemixPrompt は画像パーツと指示文を 1 回だけ送信し、返ってきたテキストをトリムして返します。
// 不正な画像はリモート呼び出しの前に InvalidImageEncoding で失敗します。
func (r *GeminiRemixer) GenerateRemixPrompt(ctx context.Context, originalPrompt string, source domain.GeneratedImage) (string, error) {
	if err := source.Validate(); err != nil {
		return "", err
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: source.MimeType, Data: source.Data}},
		{Text: fmt.Sprintf(remixInstructionTemplate, originalPrompt)},
	}

	slog.InfoContext(ctx, "リミックス用プロンプトを Gemini にリクエストします", "model", r.model, "image_bytes", len(source.Data))
	resp, err := execute(r.breaker, func() (*gemini.Response, error) {
		return r.aiClient.GenerateWithParts(ctx, r.model, parts, gemini.GenerateOptions{})
	})
	if err != nil {
		slog.ErrorContext(ctx, "リミックス用プロンプトの生成に失敗しました", "model", r.model, "error", err)
		return "", classify(err, domain.MsgRemixServiceFailed)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", domain.NewError(domain.KindServiceUnavailable, domain.MsgRemixServiceFailed, fmt.Errorf("no text returned by model"))
	}
	return text, nil
}

// extractText は最初の候補からテキストパーツを連結します。
func extractText(resp *gemini.Response) string {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return ""
	}
	candidate := resp.RawResponse.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
