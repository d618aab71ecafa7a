package server

import (
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/imgutil"
	"github.com/shouni/vibe-wallpaper/pkg/session"
)

type imageView struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
	DataURL  string `json:"dataUrl"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

type failureView struct {
	Headline  string            `json:"headline"`
	Kind      domain.ErrorKind  `json:"kind"`
	Message   string            `json:"message"`
	Quota     bool              `json:"quota"`
	HelpTitle string            `json:"helpTitle,omitempty"`
	HelpBody  string            `json:"helpBody,omitempty"`
	HelpLinks []domain.HelpLink `json:"helpLinks,omitempty"`
}

type stateView struct {
	Prompt       string       `json:"prompt"`
	AspectRatio  string       `json:"aspectRatio"`
	Phase        string       `json:"phase"`
	Status       string       `json:"status,omitempty"`
	IsGenerating bool         `json:"isGenerating"`
	IsRemixing   bool         `json:"isRemixing"`
	Images       []imageView  `json:"images"`
	Selected     *imageView   `json:"selected,omitempty"`
	Error        *failureView `json:"error,omitempty"`
	Placeholder  string       `json:"placeholder,omitempty"`
}

type aspectRatioView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type helpView struct {
	Title      string            `json:"title"`
	Steps      []domain.HelpStep `json:"steps"`
	QuotaLinks []domain.HelpLink `json:"quotaLinks"`
}

func newImageView(img domain.GeneratedImage) imageView {
	v := imageView{ID: img.ID, MimeType: img.MimeType, DataURL: img.DataURL()}
	if w, h, err := imgutil.Dimensions(img.Data); err == nil {
		v.Width, v.Height = w, h
	}
	return v
}

func newStateView(s session.State) stateView {
	v := stateView{
		Prompt:       s.Prompt,
		AspectRatio:  string(s.AspectRatio),
		Phase:        string(s.Phase()),
		Status:       s.Status(),
		IsGenerating: s.IsGenerating,
		IsRemixing:   s.IsRemixing,
		Images:       make([]imageView, 0, len(s.Images)),
	}
	for _, img := range s.Images {
		v.Images = append(v.Images, newImageView(img))
	}
	if s.Selected != nil {
		sel := newImageView(*s.Selected)
		v.Selected = &sel
	}
	if s.Error != nil {
		f := &failureView{
			Headline: domain.ErrorHeadline,
			Kind:     s.Error.Kind,
			Message:  s.Error.Message,
			Quota:    s.Error.IsQuota(),
		}
		if f.Quota {
			f.HelpTitle = domain.QuotaHelpTitle
			f.HelpBody = domain.QuotaHelpBody
			f.HelpLinks = domain.QuotaHelpLinks()
		}
		v.Error = f
	}
	if !s.IsGenerating && len(s.Images) == 0 && s.Error == nil {
		v.Placeholder = domain.EmptyPlaceholder
	}
	return v
}
