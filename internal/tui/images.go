package tui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"
)

// Protocol は端末へ画像をインライン表示する方式です。
type Protocol string

const (
	ProtocolNone  Protocol = "none"
	ProtocolKitty Protocol = "kitty"
	ProtocolITerm Protocol = "iterm"
)

// ParseProtocol は設定値を Protocol に変換します。空文字や "auto" は環境変数から推測します。
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DetectProtocol(os.Getenv), nil
	case string(ProtocolKitty):
		return ProtocolKitty, nil
	case string(ProtocolITerm), "iterm2":
		return ProtocolITerm, nil
	case string(ProtocolNone):
		return ProtocolNone, nil
	}
	return ProtocolNone, fmt.Errorf("unknown display protocol %q (must be one of: auto, kitty, iterm, none)", s)
}

// DetectProtocol は端末の種類からインライン画像の方式を推測します。
func DetectProtocol(getenv func(string) string) Protocol {
	switch {
	case getenv("KITTY_WINDOW_ID") != "", strings.Contains(getenv("TERM"), "kitty"):
		return ProtocolKitty
	case getenv("TERM_PROGRAM") == "iTerm.app", getenv("TERM_PROGRAM") == "WezTerm", getenv("LC_TERMINAL") == "iTerm2":
		return ProtocolITerm
	}
	return ProtocolNone
}

// renderInline は data を指定方式のエスケープシーケンスに変換します。
// ProtocolNone や変換に失敗した場合は空文字を返します。
func renderInline(p Protocol, data []byte) string {
	switch p {
	case ProtocolKitty:
		pngData, err := toPNG(data)
		if err != nil {
			return ""
		}
		return displayKittyImage(pngData)
	case ProtocolITerm:
		return displayITermImage(data)
	}
	return ""
}

// displayKittyImage は kitty graphics protocol で PNG を送ります。f=100 は PNG を意味します。
func displayKittyImage(pngData []byte) string {
	encoded := base64.StdEncoding.EncodeToString(pngData)
	return fmt.Sprintf("\033_Ga=T,f=100;%s\033\\", encoded)
}

func displayITermImage(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("\033]1337;File=inline=1;size=%d;width=auto;height=auto:%s\a\n", len(data), encoded)
}

func toPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("画像のデコードに失敗しました: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("PNGエンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}
