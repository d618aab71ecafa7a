package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAspectRatio(t *testing.T) {
	for _, ar := range AspectRatios() {
		t.Run("valid/"+string(ar), func(t *testing.T) {
			got, err := ParseAspectRatio(string(ar))
			require.NoError(t, err)
			assert.Equal(t, ar, got)
		})
	}

	t.Run("5種類以外は不正な入力として扱うのだ", func(t *testing.T) {
		for _, s := range []string{"", "21:9", "9x16", "portrait"} {
			_, err := ParseAspectRatio(s)
			assert.ErrorIs(t, err, ErrInvalidAspectRatio, s)
		}
	})

	t.Run("選択肢は5つでスマホ向けが先頭", func(t *testing.T) {
		ars := AspectRatios()
		assert.Len(t, ars, 5)
		assert.Equal(t, DefaultAspectRatio, ars[0])
		assert.Equal(t, "9:16 (Phone)", ars[0].Label())
		assert.Equal(t, "1:1", AspectSquare.Label())
	})
}

func TestGeneratedImage_DataURL(t *testing.T) {
	t.Run("DataURL と ParseDataURL で同じ中身に戻るのだ", func(t *testing.T) {
		img := NewGeneratedImage([]byte{0xFF, 0xD8, 0xFF}, "")
		assert.Equal(t, DefaultMimeType, img.MimeType)
		assert.NotEmpty(t, img.ID)
		assert.True(t, strings.HasPrefix(img.DataURL(), "data:image/jpeg;base64,"))

		parsed, err := ParseDataURL(img.DataURL())
		require.NoError(t, err)
		assert.Equal(t, img.MimeType, parsed.MimeType)
		assert.Equal(t, img.Data, parsed.Data)
	})

	t.Run("不正な data URL は InvalidImageEncoding", func(t *testing.T) {
		cases := []string{
			"https://example.com/img.png",
			"data:image/png,rawbytes",
			"data:image/png;base64,!!!not-base64!!!",
			"data:image/png;base64,",
		}
		for _, c := range cases {
			_, err := ParseDataURL(c)
			assert.ErrorIs(t, err, ErrInvalidImageEncoding, c)
			assert.Equal(t, KindInvalidImageEncoding, KindOf(err))
		}
	})

	t.Run("Validate は MIME とペイロードを要求する", func(t *testing.T) {
		assert.Error(t, GeneratedImage{Data: []byte("x")}.Validate())
		assert.Error(t, GeneratedImage{MimeType: "image/png"}.Validate())
		assert.NoError(t, GeneratedImage{MimeType: "image/png", Data: []byte("x")}.Validate())
	})
}

func TestError_Kinds(t *testing.T) {
	cause := errors.New("rpc error")
	err := fmt.Errorf("wrapped: %w", NewError(KindQuotaExceeded, MsgQuotaExceeded, cause))

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.NotErrorIs(t, err, ErrServiceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindQuotaExceeded, KindOf(err))
	assert.Equal(t, KindServiceUnavailable, KindOf(errors.New("plain")))
}

func TestError_InvalidInput(t *testing.T) {
	_, err := ParseAspectRatio("2:1")

	assert.ErrorIs(t, err, ErrInvalidAspectRatio)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrEmptyPrompt, "メッセージで見分けるのだ")
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, KindInvalidInput, KindOf(ErrEmptyPrompt))
	assert.Equal(t, "prompt must not be empty", ErrEmptyPrompt.Error())
	assert.Equal(t, KindInvalidInput, NewFailure("Failed to generate images.", ErrEmptyPrompt).Kind)
}

func TestNewFailure(t *testing.T) {
	t.Run("prefix と種別メッセージを連結する", func(t *testing.T) {
		f := NewFailure("Failed to generate images.", NewError(KindEmptyResult, MsgEmptyResult, nil))
		assert.Equal(t, KindEmptyResult, f.Kind)
		assert.Equal(t, "Failed to generate images. "+MsgEmptyResult, f.Message)
		assert.False(t, f.IsQuota())
	})

	t.Run("クォータ超過はマーカー文字列で判別できるのだ", func(t *testing.T) {
		f := NewFailure("Failed to remix images.", NewError(KindQuotaExceeded, MsgQuotaExceeded, nil))
		assert.True(t, f.IsQuota())
		assert.Contains(t, f.Message, QuotaMarker)
	})

	t.Run("nil の Failure はクォータではない", func(t *testing.T) {
		var f *Failure
		assert.False(t, f.IsQuota())
	})
}

func TestHelpContent(t *testing.T) {
	steps := HelpSteps()
	assert.Len(t, steps, 4)
	assert.Equal(t, "Describe Your Vibe", steps[0].Title)

	steps[0].Title = "mutated"
	assert.Equal(t, "Describe Your Vibe", HelpSteps()[0].Title, "コピーを返すのだ")

	links := QuotaHelpLinks()
	assert.Equal(t, "https://ai.google.dev/gemini-api/docs/billing", links[0].URL)
	assert.Equal(t, "https://ai.dev/usage?tab=rate-limit", links[1].URL)
}
