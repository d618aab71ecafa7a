// Package output は生成した壁紙を remoteio.OutputWriter 経由で書き出します。
package output

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/vibe-wallpaper/pkg/domain"
)

// NewWriter はローカル、gs://、s3:// を振り分ける既定の Writer を返します。
// クラウドのクライアントは注入しないので、リモート先への書き込みはエラーになるのだ。
func NewWriter() remoteio.OutputWriter {
	return remoteio.NewUniversalIOWriter(nil, nil)
}

// Path は dir と name をつなぎます。リモート URI はスラッシュで結合します。
func Path(dir, name string) string {
	if remoteio.IsRemoteURI(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

// Write は data を dir/name に JPEG として書き出し、書き出し先を返します。
func Write(ctx context.Context, w remoteio.OutputWriter, dir, name string, data []byte) (string, error) {
	if w == nil {
		return "", fmt.Errorf("writer is required")
	}
	path := Path(dir, name)
	if err := w.Write(ctx, path, bytes.NewReader(data), domain.DefaultMimeType); err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました: %w", err)
	}
	return path, nil
}
