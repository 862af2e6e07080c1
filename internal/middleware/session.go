// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kawamura/memgraph/internal/model"
)

// bodyTokenLimit はトークン抽出のために読むリクエストボディの上限バイト数。
const bodyTokenLimit = 1 << 20

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey   = contextKey("user_id")
	usernameContextKey = contextKey("username")
)

// SessionResolver はトークン検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。無効または期限切れのトークンにはnilを返す。
type SessionResolver interface {
	Validate(ctx context.Context, token string) (*model.Session, error)
}

// TokenFromRequest はリクエストからセッショントークンを取り出す。
// 優先順位: Authorizationヘッダー（Bearer） > session_tokenクエリパラメータ >
// JSONボディのsession_tokenフィールド。ボディは読み出し後に復元するため、
// 後続のハンドラーは通常どおりデコードできる。
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			return token
		}
	}

	if token := r.URL.Query().Get("session_token"); token != "" {
		return token
	}

	return tokenFromBody(r)
}

// tokenFromBody はJSONボディからsession_tokenフィールドを読み取る。
// ボディが無い、JSONでない、フィールドが無い場合は空文字列を返す。
func tokenFromBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, bodyTokenLimit))
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var payload struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.SessionToken
}

// NewSessionMiddleware はリクエストからトークンを読み取り有効性を検証する
// ミドルウェアを返す。認証済みユーザーIDとユーザー名をリクエストコンテキストに
// 注入する。未認証リクエストには401の統一エラーレスポンスを返す。
func NewSessionMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			session, err := resolver.Validate(r.Context(), token)
			if err != nil {
				slog.Error("failed to validate session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			ctx := ContextWithIdentity(r.Context(), session.UserID, session.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// UsernameFromContext はリクエストコンテキストからユーザー名を取得する。
func UsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameContextKey).(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// ContextWithIdentity はコンテキストに認証済みの識別情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, userID)
	return context.WithValue(ctx, usernameContextKey, username)
}
