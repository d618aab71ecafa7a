package session

import (
	"strings"

	"github.com/shouni/vibe-wallpaper/pkg/domain"
)

// Event は State を遷移させる入力です。利用者の操作とリモート呼び出しの完了の両方を表します。
type Event interface{ isEvent() }

type (
	PromptChanged      struct{ Prompt string }
	AspectRatioChanged struct{ AspectRatio domain.AspectRatio }
	Submitted          struct {
		Prompt      string
		AspectRatio domain.AspectRatio
	}
	ImageSelected  struct{ ID string }
	PreviewClosed  struct{}
	RemixRequested struct{}

	GenerationSucceeded struct{ Images []domain.GeneratedImage }
	GenerationFailed    struct{ Err error }
	RemixPromptReady    struct {
		Prompt      string
		AspectRatio domain.AspectRatio
	}
	RemixFailed struct{ Err error }
)

func (PromptChanged) isEvent()       {}
func (AspectRatioChanged) isEvent()  {}
func (Submitted) isEvent()           {}
func (ImageSelected) isEvent()       {}
func (PreviewClosed) isEvent()       {}
func (RemixRequested) isEvent()      {}
func (GenerationSucceeded) isEvent() {}
func (GenerationFailed) isEvent()    {}
func (RemixPromptReady) isEvent()    {}
func (RemixFailed) isEvent()         {}

// Effect は遷移の結果として実行すべきリモート呼び出しです。値は遷移時点のスナップショットです。
type Effect interface{ isEffect() }

// GenerateEffect は画像生成を要求します。
type GenerateEffect struct {
	Prompt      string
	AspectRatio domain.AspectRatio
}

// RefineEffect はリミックス用プロンプトの生成を要求します。
type RefineEffect struct {
	Prompt      string
	Image       domain.GeneratedImage
	AspectRatio domain.AspectRatio
}

func (GenerateEffect) isEffect() {}
func (RefineEffect) isEffect()   {}

// Reduce は純粋な遷移関数です。I/O は行わず、ガードに失敗した入力では s をそのまま返します。
func Reduce(s State, ev Event) (State, Effect) {
	switch e := ev.(type) {
	case PromptChanged:
		if s.IsGenerating {
			return s, nil
		}
		s.Prompt = e.Prompt
		return s, nil

	case AspectRatioChanged:
		if s.IsGenerating || !e.AspectRatio.Valid() {
			return s, nil
		}
		s.AspectRatio = e.AspectRatio
		return s, nil

	case Submitted:
		if s.IsGenerating || strings.TrimSpace(e.Prompt) == "" || !e.AspectRatio.Valid() {
			return s, nil
		}
		s.Prompt = e.Prompt
		s.AspectRatio = e.AspectRatio
		s.Error = nil
		s.Images = nil
		s.IsGenerating = true
		return s, GenerateEffect{Prompt: e.Prompt, AspectRatio: e.AspectRatio}

	case ImageSelected:
		if s.IsGenerating {
			return s, nil
		}
		img, ok := s.FindImage(e.ID)
		if !ok {
			return s, nil
		}
		s.Selected = &img
		return s, nil

	case PreviewClosed:
		s.Selected = nil
		return s, nil

	case RemixRequested:
		if s.Selected == nil || s.IsGenerating {
			return s, nil
		}
		source := *s.Selected
		s.Selected = nil
		s.Error = nil
		s.IsGenerating = true
		s.IsRemixing = true
		return s, RefineEffect{Prompt: s.Prompt, Image: source, AspectRatio: s.AspectRatio}

	case RemixPromptReady:
		if !s.IsRemixing {
			return s, nil
		}
		s.Prompt = e.Prompt
		s.Error = nil
		s.Images = nil
		return s, GenerateEffect{Prompt: e.Prompt, AspectRatio: e.AspectRatio}

	case GenerationSucceeded:
		if !s.IsGenerating {
			return s, nil
		}
		if len(e.Images) == 0 {
			return fail(s, PrefixGenerate, domain.NewError(domain.KindEmptyResult, domain.MsgEmptyResult, nil)), nil
		}
		s.Images = e.Images
		s.Error = nil
		s.IsGenerating = false
		s.IsRemixing = false
		return s, nil

	case GenerationFailed:
		if !s.IsGenerating {
			return s, nil
		}
		return fail(s, PrefixGenerate, e.Err), nil

	case RemixFailed:
		if !s.IsGenerating {
			return s, nil
		}
		return fail(s, PrefixRemix, e.Err), nil
	}
	return s, nil
}

func fail(s State, prefix string, err error) State {
	s.Error = domain.NewFailure(prefix, err)
	s.Images = nil
	s.IsGenerating = false
	s.IsRemixing = false
	return s
}
