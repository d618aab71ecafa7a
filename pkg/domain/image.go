package domain

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// BatchSize は 1 回の生成で要求する画像枚数です。
	BatchSize = 4
	// DefaultMimeType は生成画像の出力フォーマットです。
	DefaultMimeType = "image/jpeg"
	// DefaultPrompt はセッション開始時のプロンプトです。
	DefaultPrompt = "Rainy cyberpunk lo-fi"
)

var dataURLPattern = regexp.MustCompile(`^data:(.+);base64,(.*)$`)

// GeneratedImage は生成済みの画像データです。内部構造は持たず、表示可能なバイト列として扱います。
type GeneratedImage struct {
	ID       string
	MimeType string
	Data     []byte
}

// NewGeneratedImage は ID を採番して GeneratedImage を生成します。
// mimeType が空の場合は DefaultMimeType を使います。
func NewGeneratedImage(data []byte, mimeType string) GeneratedImage {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return GeneratedImage{
		ID:       uuid.NewString(),
		MimeType: mimeType,
		Data:     data,
	}
}

// DataURL は data:<mime>;base64,<payload> 形式の文字列を返します。
func (img GeneratedImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data))
}

// Validate はリモート送信前の最低限の検証です。
func (img GeneratedImage) Validate() error {
	if !strings.Contains(img.MimeType, "/") {
		return NewError(KindInvalidImageEncoding, "Invalid data URL format", fmt.Errorf("missing mime type: %q", img.MimeType))
	}
	if len(img.Data) == 0 {
		return NewError(KindInvalidImageEncoding, "Invalid data URL format", fmt.Errorf("empty image payload"))
	}
	return nil
}

// ParseDataURL は data URL を MIME タイプとバイナリに分解します。
func ParseDataURL(s string) (GeneratedImage, error) {
	m := dataURLPattern.FindStringSubmatch(s)
	if len(m) != 3 {
		return GeneratedImage{}, NewError(KindInvalidImageEncoding, "Invalid data URL format", nil)
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return GeneratedImage{}, NewError(KindInvalidImageEncoding, "Invalid data URL format", err)
	}
	img := NewGeneratedImage(data, m[1])
	if err := img.Validate(); err != nil {
		return GeneratedImage{}, err
	}
	return img, nil
}
