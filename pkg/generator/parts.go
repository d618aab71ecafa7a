package generator

import (
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// ContentModel は genai.Models のうちテキスト生成に必要な部分です。
type ContentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ContentParts は ContentModel を PartsModel として使えるようにするアダプターです。
// gemini.NewClient は失敗時に再送するので、リミックスでは使わずに 1 回だけ GenerateContent を呼ぶのだ。
type ContentParts struct {
	models ContentModel
}

// NewContentParts は ContentParts を初期化します。
func NewContentParts(models ContentModel) (*ContentParts, error) {
	if models == nil {
		return nil, fmt.Errorf("models (ContentModel) is required")
	}
	return &ContentParts{models: models}, nil
}

// GenerateWithParts は parts を 1 つのユーザーターンとして送信します。
func (c *ContentParts) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	contents := []*genai.Content{{Role: string(genai.RoleUser), Parts: parts}}
	resp, err := c.models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}
