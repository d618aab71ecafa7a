package domain

import (
	"fmt"
	"slices"
	"strings"
)

// AspectRatio は生成画像の縦横比です。
type AspectRatio string

const (
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
	AspectSquare    AspectRatio = "1:1"
	AspectClassic   AspectRatio = "4:3"
	AspectTall      AspectRatio = "3:4"

	DefaultAspectRatio = AspectPortrait
)

// 入力検証の失敗です。種別はどちらも InvalidInput で、API を呼ぶ前に返します。
var (
	ErrInvalidAspectRatio = &Error{Kind: KindInvalidInput, Message: "invalid aspect ratio"}
	ErrEmptyPrompt        = &Error{Kind: KindInvalidInput, Message: "prompt must not be empty"}
)

var aspectRatios = []AspectRatio{AspectPortrait, AspectLandscape, AspectSquare, AspectClassic, AspectTall}

// AspectRatios は選択可能な縦横比を表示順で返します。
func AspectRatios() []AspectRatio {
	return slices.Clone(aspectRatios)
}

// ParseAspectRatio は文字列を AspectRatio に変換します。
func ParseAspectRatio(s string) (AspectRatio, error) {
	ar := AspectRatio(strings.TrimSpace(s))
	if !ar.Valid() {
		return "", fmt.Errorf("%w: %q (must be one of: %s)", ErrInvalidAspectRatio, s, joinRatios())
	}
	return ar, nil
}

// Valid は列挙値に含まれるかを返します。
func (a AspectRatio) Valid() bool {
	return slices.Contains(aspectRatios, a)
}

// Label は UI 用の表示名です。
func (a AspectRatio) Label() string {
	if a == AspectPortrait {
		return string(a) + " (Phone)"
	}
	return string(a)
}

func (a AspectRatio) String() string { return string(a) }

func joinRatios() string {
	s := make([]string, len(aspectRatios))
	for i, a := range aspectRatios {
		s[i] = string(a)
	}
	return strings.Join(s, ", ")
}
