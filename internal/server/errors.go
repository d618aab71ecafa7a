package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/session"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// errorMapping maps domain errors to HTTP status codes.
type errorMapping struct {
	Err    error
	Status int
	Code   string
}

var errorMappings = []errorMapping{
	{session.ErrBusy, http.StatusConflict, "BUSY"},
	{session.ErrNoSelection, http.StatusNotFound, "NO_SELECTION"},
	{session.ErrImageNotFound, http.StatusNotFound, "IMAGE_NOT_FOUND"},
	{domain.ErrEmptyPrompt, http.StatusBadRequest, "EMPTY_PROMPT"},
	{domain.ErrInvalidAspectRatio, http.StatusBadRequest, "INVALID_ASPECT_RATIO"},
	{domain.ErrQuotaExceeded, http.StatusTooManyRequests, string(domain.KindQuotaExceeded)},
	{domain.ErrEmptyResult, http.StatusUnprocessableEntity, string(domain.KindEmptyResult)},
	{domain.ErrInvalidImageEncoding, http.StatusBadRequest, string(domain.KindInvalidImageEncoding)},
	{domain.ErrInvalidInput, http.StatusBadRequest, string(domain.KindInvalidInput)},
	{domain.ErrServiceUnavailable, http.StatusBadGateway, string(domain.KindServiceUnavailable)},
}

// statusForKind は失敗の種別を HTTP ステータスに変換します。
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.KindEmptyResult:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidImageEncoding, domain.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// handleError は err を対応表に従って返します。対応が無ければ 500 です。
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)
	for _, m := range errorMappings {
		if errors.Is(err, m.Err) {
			respondError(c, m.Status, m.Code, err.Error())
			return
		}
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// respondFailure は State に残った失敗をエラーとして返します。
func respondFailure(c *gin.Context, f *domain.Failure) {
	respondError(c, statusForKind(f.Kind), string(f.Kind), f.Message)
}
