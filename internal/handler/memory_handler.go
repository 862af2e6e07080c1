package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kawamura/memgraph/internal/graph"
	"github.com/kawamura/memgraph/internal/middleware"
	"github.com/kawamura/memgraph/internal/model"
)

// MemoryDispatcherInterface はメモリハンドラーが必要とするディスパッチインターフェース。
type MemoryDispatcherInterface interface {
	Call(ctx context.Context, userID, name string, arguments map[string]any) (any, error)
	Tools() []graph.ToolInfo
}

// GraphReader はエクスポートに必要なグラフ読み取りインターフェース。
type GraphReader interface {
	ReadGraph(ctx context.Context, userID string) (*graph.ReadGraphResult, error)
}

// UserFinder はエクスポートに必要なユーザー検索インターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// ToolMetrics はツール呼び出しの回数とレイテンシを記録するインターフェース。
// nilの場合は記録しない。
type ToolMetrics interface {
	RecordToolCall(tool string)
	RecordToolError(tool string)
	RecordToolLatency(duration time.Duration)
}

// MemoryHandler はナレッジグラフ操作のHTTPハンドラー。
type MemoryHandler struct {
	dispatcher MemoryDispatcherInterface
	reader     GraphReader
	users      UserFinder
	metrics    ToolMetrics
}

// NewMemoryHandler はMemoryHandlerを生成する。
func NewMemoryHandler(dispatcher MemoryDispatcherInterface, reader GraphReader, users UserFinder, metrics ToolMetrics) *MemoryHandler {
	return &MemoryHandler{
		dispatcher: dispatcher,
		reader:     reader,
		users:      users,
		metrics:    metrics,
	}
}

// callRequest はメモリ操作呼び出しリクエストのボディ。
type callRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Call は名前指定のグラフ操作を実行する。
// POST /api/memory/call
func (h *MemoryHandler) Call(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentsError("malformed JSON body"))
		return
	}
	if req.Name == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentsError("name is required"))
		return
	}

	start := time.Now()
	result, err := h.dispatcher.Call(r.Context(), userID, req.Name, req.Arguments)
	h.recordCall(req.Name, time.Since(start), err)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

// Tools は操作カタログを返す。
// GET /api/memory/tools
func (h *MemoryHandler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": h.dispatcher.Tools(),
	})
}

// Export は認証済みユーザーの資格情報メタデータとパーティション全体を返す。
// パスワードハッシュは含めない。
// GET /api/export
func (h *MemoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	snapshot, err := h.reader.ReadGraph(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	account := map[string]any{
		"user_id":    user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLogin != nil {
		account["last_login"] = user.LastLogin.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":     account,
		"memory":      snapshot.Graph,
		"exported_at": time.Now().Format(time.RFC3339),
	})
}

func (h *MemoryHandler) recordCall(tool string, elapsed time.Duration, err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordToolCall(tool)
	h.metrics.RecordToolLatency(elapsed)
	if err != nil {
		h.metrics.RecordToolError(tool)
	}
}
