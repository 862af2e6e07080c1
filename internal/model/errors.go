// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, memory, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUsernameTooShort   = "USERNAME_TOO_SHORT"
	ErrCodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	ErrCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeUnknownOperation   = "UNKNOWN_OPERATION"
	ErrCodeInvalidArguments   = "INVALID_ARGUMENTS"
)

// NewUsernameTooShortError はユーザー名が短すぎる場合のエラーを生成する。
func NewUsernameTooShortError(minLen int) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTooShort,
		Message:  fmt.Sprintf("ユーザー名は%d文字以上で入力してください。", minLen),
		Category: "validation",
		Action:   "より長いユーザー名を指定してください。",
	}
}

// NewPasswordTooShortError はパスワードが短すぎる場合のエラーを生成する。
func NewPasswordTooShortError(minLen int) *APIError {
	return &APIError{
		Code:     ErrCodePasswordTooShort,
		Message:  fmt.Sprintf("パスワードは%d文字以上で入力してください。", minLen),
		Category: "validation",
		Action:   "より長いパスワードを指定してください。",
	}
}

// NewDuplicateUsernameError はユーザー名が既に登録済みの場合のエラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("ユーザー名は既に使用されています: %s", username),
		Category: "conflict",
		Action:   "別のユーザー名で登録してください。",
	}
}

// NewInvalidCredentialsError は認証情報が一致しない場合のエラーを生成する。
// ユーザー名の存在有無を区別しない単一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}

// NewUnauthenticatedError はセッショントークンが無効または期限切れの場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "セッションが無効または期限切れです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnknownOperationError は未定義のメモリ操作が指定された場合のエラーを生成する。
func NewUnknownOperationError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownOperation,
		Message:  fmt.Sprintf("未定義の操作です: %s", name),
		Category: "validation",
		Action:   "操作カタログに列挙されている操作名を指定してください。",
	}
}

// NewInvalidArgumentsError は操作引数の形式が不正な場合のエラーを生成する。
func NewInvalidArgumentsError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArguments,
		Message:  fmt.Sprintf("操作引数が不正です: %s", reason),
		Category: "validation",
		Action:   "引数の形式を確認してください。",
	}
}
