package generator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/imgutil"
)

const (
	UseImageCompression     = true
	ImageCompressionQuality = 85
)

// SourceLoader は現在のバッチ以外からリミックス元の画像を読み込みます。
// data URL、http(s) URL、それ以外はローカルパスや gs:// などとして reader に渡します。
type SourceLoader struct {
	httpClient HTTPClient
	reader     remoteio.InputReader
}

// NewSourceLoader は SourceLoader を初期化します。
func NewSourceLoader(httpClient HTTPClient, reader remoteio.InputReader) (*SourceLoader, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	return &SourceLoader{
		httpClient: httpClient,
		reader:     reader,
	}, nil
}

// Load は source を解決して GeneratedImage に変換します。
func (l *SourceLoader) Load(ctx context.Context, source string) (domain.GeneratedImage, error) {
	source = strings.TrimSpace(source)
	switch {
	case strings.HasPrefix(source, "data:"):
		return domain.ParseDataURL(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		data, err := l.fetch(ctx, source)
		if err != nil {
			return domain.GeneratedImage{}, err
		}
		return l.toImage(data)
	default:
		data, err := l.read(ctx, source)
		if err != nil {
			return domain.GeneratedImage{}, fmt.Errorf("リミックス元ファイルの読み込みに失敗しました: %w", err)
		}
		return l.toImage(data)
	}
}

func (l *SourceLoader) read(ctx context.Context, path string) ([]byte, error) {
	rc, err := l.reader.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (l *SourceLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if safe, err := IsSafeURL(rawURL); err != nil || !safe {
		return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
	}
	data, err := l.httpClient.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("リミックス元画像のダウンロードに失敗しました: %w", err)
	}
	return data, nil
}

// toImage は画像であることを確認し、必要なら JPEG に再圧縮してから GeneratedImage にします。
func (l *SourceLoader) toImage(data []byte) (domain.GeneratedImage, error) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return domain.GeneratedImage{}, domain.NewError(domain.KindInvalidImageEncoding, "Invalid image data",
			fmt.Errorf("detected mime type: %s", mimeType))
	}
	if UseImageCompression && mimeType != domain.DefaultMimeType {
		if compressed, err := imgutil.CompressToJPEG(data, ImageCompressionQuality); err == nil {
			return domain.NewGeneratedImage(compressed, domain.DefaultMimeType), nil
		}
	}
	return domain.NewGeneratedImage(data, mimeType), nil
}
