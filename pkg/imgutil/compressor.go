package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

// DefaultQuality はエクスポート時の JPEG 品質です。
const DefaultQuality = 90

// CompressToJPEG は画像データ（PNG, GIF, JPEG等）をJPEG形式に圧縮します。
// image.Decodeがサポートするフォーマットに対応しています。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EnsureJPEG は JPEG 以外のデータだけを再エンコードします。JPEG はそのまま返すのだ。
func EnsureJPEG(data []byte, mimeType string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	if mimeType == "image/jpeg" || mimeType == "image/jpg" {
		return data, nil
	}
	out, err := CompressToJPEG(data, DefaultQuality)
	if err != nil {
		return nil, fmt.Errorf("JPEG への変換に失敗しました (%s): %w", mimeType, err)
	}
	return out, nil
}

// Dimensions は画像の幅と高さをデコードせずに返します。
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
