package domain

import (
	"errors"
	"strings"
)

// ErrorKind は利用者に提示する失敗の分類です。
type ErrorKind string

const (
	KindEmptyResult          ErrorKind = "EmptyResult"
	KindQuotaExceeded        ErrorKind = "QuotaExceeded"
	KindInvalidImageEncoding ErrorKind = "InvalidImageEncoding"
	KindServiceUnavailable   ErrorKind = "ServiceUnavailable"
	KindInvalidInput         ErrorKind = "InvalidInput"
)

// QuotaMarker はクォータ超過メッセージに必ず含まれる文字列です。
// プレゼンテーション層はこれを見て課金・レート制限のヘルプを表示します。
const QuotaMarker = "Quota exceeded"

const (
	MsgEmptyResult        = "No images were generated. The prompt may have been blocked."
	MsgQuotaExceeded      = QuotaMarker + ". Please check your plan and billing details, or try again later."
	MsgImageServiceFailed = "Failed to communicate with the image generation service."
	MsgRemixServiceFailed = "Failed to generate a new prompt for remixing."
)

// 種別の比較用センチネル。errors.Is(err, domain.ErrQuotaExceeded) のように使います。
var (
	ErrEmptyResult          = &Error{Kind: KindEmptyResult}
	ErrQuotaExceeded        = &Error{Kind: KindQuotaExceeded}
	ErrInvalidImageEncoding = &Error{Kind: KindInvalidImageEncoding}
	ErrServiceUnavailable   = &Error{Kind: KindServiceUnavailable}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
)

// Error は種別付きのエラーです。Error() は利用者向けメッセージのみを返し、原因は Unwrap で辿れます。
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError は Error を生成します。
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is は同じ種別のセンチネルと一致します。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf は err の種別を返します。分類できないものは ServiceUnavailable です。
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindServiceUnavailable
}

// Failure は AppState に保持される失敗表示です。
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// IsQuota はクォータ関連のヘルプを出すべきかを返します。
func (f *Failure) IsQuota() bool {
	if f == nil {
		return false
	}
	return f.Kind == KindQuotaExceeded || strings.Contains(f.Message, QuotaMarker)
}

// NewFailure は err を分類し、prefix を付けた表示用メッセージを組み立てます。
func NewFailure(prefix string, err error) *Failure {
	msg := "An unknown error occurred."
	if err != nil {
		msg = err.Error()
	}
	if prefix != "" {
		msg = prefix + " " + msg
	}
	return &Failure{Kind: KindOf(err), Message: msg}
}
