// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, item, system
	Action   string // ユーザー向け対処方法
	Field    string // 検証エラーの対象フィールド（該当する場合のみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// DuplicateTitleMessage は同一オーナー内でタイトルが重複した場合のメッセージ。
const DuplicateTitleMessage = "duplicate title for this owner"

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
		Field:    field,
	}
}

// NewInvalidChoiceError は列挙値として定義されていない値が指定された場合のエラーを生成する。
func NewInvalidChoiceError(field, value string) *APIError {
	return NewValidationError(field, fmt.Sprintf("無効な値です: %q", value))
}

// NewDuplicateTitleError は同一オーナー・同一種別でタイトルが重複した場合のエラーを生成する。
func NewDuplicateTitleError() *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  DuplicateTitleMessage,
		Category: "validation",
		Action:   "別のタイトルを指定してください。",
		Field:    "title",
	}
}

// NewUnauthorizedError は未認証での書き込み操作に対するエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は所有者以外による書き込み操作に対するエラーを生成する。
func NewForbiddenError(kind Kind, id string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この%sを変更する権限がありません: %s", kind, id),
		Category: "auth",
		Action:   "変更できるのは作成したユーザーのみです。",
	}
}

// NewNotFoundError は指定IDの項目が存在しない場合のエラーを生成する。
func NewNotFoundError(kind Kind, id string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %s", kind, id),
		Category: "item",
		Action:   "IDを確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの解析に失敗しました: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidFilterError は一覧フィルタに未対応のフィールドが指定された場合のエラーを生成する。
func NewInvalidFilterError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("このフィールドでは絞り込めません: %s", field),
		Category: "validation",
		Action:   "対応しているフィルタ項目を指定してください。",
		Field:    field,
	}
}

// NewInternalError は内部エラーの統一レスポンス用エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// IsCode はerrがAPIErrorで、指定コードを持つかどうかを返す。
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
