package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"

	"github.com/shouni/vibe-wallpaper/internal/config"
	"github.com/shouni/vibe-wallpaper/internal/logger"
	"github.com/shouni/vibe-wallpaper/internal/metrics"
	"github.com/shouni/vibe-wallpaper/internal/output"
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/generator"
)

// SourceLoader はリミックス元の画像を読み込みます。
type SourceLoader interface {
	Load(ctx context.Context, source string) (domain.GeneratedImage, error)
}

// Deps はコマンドが使う外部依存の組です。
type Deps struct {
	Images   generator.ImageGenerator
	Remixer  generator.RemixPrompter
	Sources  SourceLoader
	Writer   remoteio.OutputWriter
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// DepsBuilder は設定から Deps を組み立てます。
type DepsBuilder func(ctx context.Context, cfg *config.Config) (*Deps, error)

// BuildDeps は Gemini API のクライアントとブレーカーを実体で組み立てます。
func BuildDeps(ctx context.Context, cfg *config.Config) (*Deps, error) {
	slog.Debug("Gemini クライアントを初期化します", logger.Secret("api_key", cfg.Gemini.APIKey))
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini クライアントの初期化に失敗しました: %w", err)
	}

	imageBreaker := generator.NewBreaker(breakerConfig("imagen", cfg.Breaker))
	images, err := generator.NewImagenGenerator(client.Models, cfg.Gemini.ImageModel, imageBreaker)
	if err != nil {
		return nil, err
	}

	parts, err := generator.NewContentParts(client.Models)
	if err != nil {
		return nil, err
	}
	remixBreaker := generator.NewBreaker(breakerConfig("remix", cfg.Breaker))
	remixer, err := generator.NewGeminiRemixer(parts, cfg.Gemini.TextModel, remixBreaker)
	if err != nil {
		return nil, err
	}

	sources, err := generator.NewSourceLoader(
		httpkit.New(cfg.Fetch.Timeout),
		remoteio.NewUniversalInputReader(nil, nil),
	)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	return &Deps{
		Images:   images,
		Remixer:  remixer,
		Sources:  sources,
		Writer:   output.NewWriter(),
		Metrics:  metrics.New("", reg),
		Registry: reg,
	}, nil
}

func breakerConfig(name string, c config.BreakerConfig) generator.BreakerConfig {
	bc := generator.DefaultBreakerConfig(name)
	if c.FailureThreshold > 0 {
		bc.FailureThreshold = c.FailureThreshold
	}
	if c.Timeout > 0 {
		bc.Timeout = c.Timeout
	}
	return bc
}
