// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーの認証情報を表す。
// PasswordHashは一方向ハッシュであり、平文パスワードは保持しない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Session はユーザーのログインセッションを表す。
// Tokenは暗号的に安全な乱数から生成される推測不能な文字列。
type Session struct {
	Token     string
	UserID    string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired はセッションが基準時刻において期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
