package generator

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"google.golang.org/genai"
)

const statusResourceExhausted = "RESOURCE_EXHAUSTED"

// isQuotaError はクォータ・レート制限による失敗かを判定します。
// SDK の APIError を優先し、ラップされて型が失われた場合は文字列で判定します。
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == statusResourceExhausted {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, statusResourceExhausted) || strings.Contains(msg, "429")
}

// classify は通信エラーを domain.Error に正規化します。分類済みのエラーはそのまま返します。
// ブレーカー開放 (gobreaker.ErrOpenState) もここで ServiceUnavailable になります。
func classify(err error, fallbackMessage string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if isQuotaError(err) {
		return domain.NewError(domain.KindQuotaExceeded, domain.MsgQuotaExceeded, err)
	}
	return domain.NewError(domain.KindServiceUnavailable, fallbackMessage, err)
}
