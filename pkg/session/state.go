package session

import (
	"slices"

	"github.com/shouni/vibe-wallpaper/pkg/domain"
)

// Phase は State から導出される表示上のフェーズです。
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseGenerating Phase = "generating"
	PhaseRemixing   Phase = "remixing"
	PhaseError      Phase = "error"
)

const (
	StatusGenerating = "Generating your vibe..."
	StatusRemixing   = "Remixing your vibe..."
)

const (
	// PrefixGenerate は生成失敗時のメッセージの先頭に付きます。
	PrefixGenerate = "Failed to generate images."
	// PrefixRemix はリミックス用プロンプトの生成失敗時に付きます。
	PrefixRemix = "Failed to remix images."
)

// State はセッションに 1 つだけ存在するアプリケーション状態です。
// 変更は Reduce を通してのみ行われます。
type State struct {
	Prompt       string
	AspectRatio  domain.AspectRatio
	Images       []domain.GeneratedImage
	IsGenerating bool
	IsRemixing   bool
	Error        *domain.Failure
	// Selected はプレビュー中の画像のスナップショットです。
	Selected *domain.GeneratedImage
}

// NewState はセッション開始時の状態を返します。
func NewState() State {
	return State{
		Prompt:      domain.DefaultPrompt,
		AspectRatio: domain.DefaultAspectRatio,
	}
}

// Phase は現在のフェーズを返します。
func (s State) Phase() Phase {
	switch {
	case s.IsRemixing:
		return PhaseRemixing
	case s.IsGenerating:
		return PhaseGenerating
	case s.Error != nil:
		return PhaseError
	default:
		return PhaseIdle
	}
}

// Status はローディング中に表示する文言です。アイドル時は空文字です。
func (s State) Status() string {
	switch s.Phase() {
	case PhaseRemixing:
		return StatusRemixing
	case PhaseGenerating:
		return StatusGenerating
	default:
		return ""
	}
}

// FindImage は現在のバッチから id の画像を探します。
func (s State) FindImage(id string) (domain.GeneratedImage, bool) {
	for _, img := range s.Images {
		if img.ID == id {
			return img, true
		}
	}
	return domain.GeneratedImage{}, false
}

// Clone は呼び出し側が安全に保持できるコピーを返します。画像のバイト列は共有されます。
func (s State) Clone() State {
	out := s
	out.Images = slices.Clone(s.Images)
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	if s.Selected != nil {
		img := *s.Selected
		out.Selected = &img
	}
	return out
}

// sameAs は通知が必要な差分があるかを判定するための比較です。
func (s State) sameAs(o State) bool {
	if s.Prompt != o.Prompt || s.AspectRatio != o.AspectRatio ||
		s.IsGenerating != o.IsGenerating || s.IsRemixing != o.IsRemixing {
		return false
	}
	if (s.Error == nil) != (o.Error == nil) || (s.Error != nil && *s.Error != *o.Error) {
		return false
	}
	if (s.Selected == nil) != (o.Selected == nil) || (s.Selected != nil && s.Selected.ID != o.Selected.ID) {
		return false
	}
	return slices.EqualFunc(s.Images, o.Images, func(a, b domain.GeneratedImage) bool { return a.ID == b.ID })
}
