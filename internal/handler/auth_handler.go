// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kawamura/memgraph/internal/middleware"
	"github.com/kawamura/memgraph/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Validate(ctx context.Context, token string) (*model.Session, error)
	Logout(ctx context.Context, token string) (bool, error)
}

// AuthMetrics は認証の成否を記録するインターフェース。nilの場合は記録しない。
type AuthMetrics interface {
	RecordAuthSuccess(operation string)
	RecordAuthFailure(operation string)
}

// AuthHandler はユーザー登録・ログイン・セッション管理のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
	}
}

// credentialRequest は登録・ログインリクエストのボディ。
type credentialRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// logoutRequest はログアウトリクエストのボディ。
type logoutRequest struct {
	SessionToken string `json:"session_token"`
}

// Register は新規ユーザー登録を処理する。
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.recordFailure("register")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentsError("malformed JSON body"))
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.recordFailure("register")
		handleServiceError(w, err)
		return
	}

	h.recordSuccess("register")
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "user registered",
		"user_id": user.ID,
	})
}

// Login は認証情報を検証しセッショントークンを発行する。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.recordFailure("login")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentsError("malformed JSON body"))
		return
	}

	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.recordFailure("login")
		handleServiceError(w, err)
		return
	}

	h.recordSuccess("login")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "login successful",
		"session_token": session.Token,
		"user_id":       session.UserID,
		"expires_at":    session.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout はセッションを破棄する。
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentsError("malformed JSON body"))
		return
	}

	existed, err := h.service.Logout(r.Context(), req.SessionToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	message := "logged out"
	if !existed {
		message = "session not found"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

// Validate はトークンの有効性を確認する。
// セッションミドルウェアの統一エラーではなく、無効時も{valid:false}の形で返す。
// GET /api/validate
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolveSession(w, r)
	if err != nil {
		return
	}
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"username": session.Username,
		"user_id":  session.UserID,
	})
}

// SetUser はトークンに紐づくユーザー識別情報を返す。
// MCPクライアントが操作対象ユーザーを解決するために使用する。
// GET|POST /api/set_user
func (h *AuthHandler) SetUser(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolveSession(w, r)
	if err != nil {
		return
	}
	if session == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user_id":  session.UserID,
		"username": session.Username,
		"message":  "current user set",
	})
}

// resolveSession はリクエストからトークンを取り出し検証する。
// 内部エラー時はレスポンスを書き込み、非nilのエラーを返す。
func (h *AuthHandler) resolveSession(w http.ResponseWriter, r *http.Request) (*model.Session, error) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		return nil, nil
	}

	session, err := h.service.Validate(r.Context(), token)
	if err != nil {
		slog.Error("failed to validate session",
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return nil, err
	}
	return session, nil
}

func (h *AuthHandler) recordSuccess(operation string) {
	if h.metrics != nil {
		h.metrics.RecordAuthSuccess(operation)
	}
}

func (h *AuthHandler) recordFailure(operation string) {
	if h.metrics != nil {
		h.metrics.RecordAuthFailure(operation)
	}
}

// --- ヘルパー関数 ---

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusCodeForCategory(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
