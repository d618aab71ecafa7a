package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/vibe-wallpaper/pkg/domain"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

const (
	// DefaultImageModel は壁紙生成に使う Imagen モデルです。
	DefaultImageModel = "imagen-4.0-generate-001"
	// wallpaperStyleSuffix は画質を寄せるためにユーザープロンプトへ付け足す固定の修飾語です。
	wallpaperStyleSuffix = ", phone wallpaper, high resolution, stunning, beautiful, 8k"
)

// ImagenGenerator は Imagen を使って 4 枚ずつ壁紙を生成します。
type ImagenGenerator struct {
	models  ImagenModel
	model   string
	breaker *gobreaker.CircuitBreaker[any]
}

// NewImagenGenerator は依存関係を注入して ImagenGenerator を初期化します。breaker は nil を許容します。
func NewImagenGenerator(models ImagenModel, model string, breaker *gobreaker.CircuitBreaker[any]) (*ImagenGenerator, error) {
	if models == nil {
		return nil, fmt.Errorf("models (ImagenModel) is required")
	}
	if model == "" {
		model = DefaultImageModel
	}
	return &ImagenGenerator{
		models:  models,
		model:   model,
		breaker: breaker,
	}, nil
}

// GenerateImages は prompt に固定の修飾語を付けて Imagen に 1 回だけリクエストします。リトライは行いません。
func (g *ImagenGenerator) GenerateImages(ctx context.Context, prompt string, aspectRatio domain.AspectRatio) ([]domain.GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	if !aspectRatio.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAspectRatio, aspectRatio)
	}

	cfg := &genai.GenerateImagesConfig{
		NumberOfImages: domain.BatchSize,
		OutputMIMEType: domain.DefaultMimeType,
		AspectRatio:    string(aspectRatio),
	}

	slog.InfoContext(ctx, "Imagen に画像生成をリクエストします", "model", g.model, "aspect_ratio", aspectRatio)
	resp, err := execute(g.breaker, func() (*genai.GenerateImagesResponse, error) {
		return g.models.GenerateImages(ctx, g.model, prompt+wallpaperStyleSuffix, cfg)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Imagen での画像生成に失敗しました", "model", g.model, "error", err)
		return nil, classify(err, domain.MsgImageServiceFailed)
	}

	images := toGeneratedImages(resp)
	if len(images) == 0 {
		return nil, domain.NewError(domain.KindEmptyResult, domain.MsgEmptyResult, nil)
	}
	slog.InfoContext(ctx, "画像生成が完了しました", "count", len(images))
	return images, nil
}

// toGeneratedImages はバイト列を持つ画像だけを GeneratedImage に変換します。
// 安全フィルターで除外された候補はバイト列を持たないため、ここで落ちます。
func toGeneratedImages(resp *genai.GenerateImagesResponse) []domain.GeneratedImage {
	if resp == nil {
		return nil
	}
	images := make([]domain.GeneratedImage, 0, len(resp.GeneratedImages))
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, domain.NewGeneratedImage(gi.Image.ImageBytes, gi.Image.MIMEType))
	}
	return images
}
