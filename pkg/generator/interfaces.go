package generator

import (
	"context"

	"github.com/shouni/vibe-wallpaper/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// ImageGenerator はテキストから壁紙画像のバッチを生成する窓口です。
type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompt string, aspectRatio domain.AspectRatio) ([]domain.GeneratedImage, error)
}

// RemixPrompter は生成済み画像と元のプロンプトから新しいプロンプトを作る窓口です。
type RemixPrompter interface {
	GenerateRemixPrompt(ctx context.Context, originalPrompt string, source domain.GeneratedImage) (string, error)
}

// ImagenModel は genai.Models のうち Imagen 呼び出しに必要な部分です。
type ImagenModel interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// PartsModel は gemini.GenerativeModel のうちマルチモーダル生成に必要な部分です。
type PartsModel interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// HTTPClient は、HTTPリクエストを実行し、URLからデータを取得するためのインターフェースです。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}
