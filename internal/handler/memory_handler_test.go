package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kawamura/memgraph/internal/graph"
	"github.com/kawamura/memgraph/internal/middleware"
	"github.com/kawamura/memgraph/internal/model"
)

type mockDispatcher struct {
	callFn  func(ctx context.Context, userID, name string, arguments map[string]any) (any, error)
	toolsFn func() []graph.ToolInfo
}

func (m *mockDispatcher) Call(ctx context.Context, userID, name string, arguments map[string]any) (any, error) {
	return m.callFn(ctx, userID, name, arguments)
}

func (m *mockDispatcher) Tools() []graph.ToolInfo {
	if m.toolsFn != nil {
		return m.toolsFn()
	}
	return nil
}

var _ MemoryDispatcherInterface = (*mockDispatcher)(nil)

type mockGraphReader struct {
	readFn func(ctx context.Context, userID string) (*graph.ReadGraphResult, error)
}

func (m *mockGraphReader) ReadGraph(ctx context.Context, userID string) (*graph.ReadGraphResult, error) {
	return m.readFn(ctx, userID)
}

var _ GraphReader = (*mockGraphReader)(nil)

type mockUserFinder struct {
	findFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findFn(ctx, id)
}

var _ UserFinder = (*mockUserFinder)(nil)

func authedPost(target, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	return r.WithContext(middleware.ContextWithIdentity(context.Background(), "user-1", "alice"))
}

func TestMemoryCall_DispatchesToNamedOperation(t *testing.T) {
	var gotUserID, gotName string
	dispatcher := &mockDispatcher{
		callFn: func(_ context.Context, userID, name string, arguments map[string]any) (any, error) {
			gotUserID = userID
			gotName = name
			if arguments["query"] != "alice" {
				t.Errorf("arguments[query] = %v, want alice", arguments["query"])
			}
			return &graph.SearchNodesResult{Matches: 0, Results: map[string]*model.Entity{}}, nil
		},
	}
	h := NewMemoryHandler(dispatcher, nil, nil, nil)

	w := httptest.NewRecorder()
	h.Call(w, authedPost("/api/memory/call", `{"name":"search_nodes","arguments":{"query":"alice"}}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", gotUserID)
	}
	if gotName != "search_nodes" {
		t.Errorf("name = %q, want search_nodes", gotName)
	}
	body := decodeBody(t, w)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if _, ok := body["result"]; !ok {
		t.Error("response should contain result")
	}
}

func TestMemoryCall_UnauthenticatedContext401(t *testing.T) {
	h := NewMemoryHandler(&mockDispatcher{}, nil, nil, nil)

	r := httptest.NewRequest(http.MethodPost, "/api/memory/call", strings.NewReader(`{"name":"read_graph"}`))
	w := httptest.NewRecorder()
	h.Call(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMemoryCall_UnknownOperation400(t *testing.T) {
	dispatcher := &mockDispatcher{
		callFn: func(_ context.Context, _, name string, _ map[string]any) (any, error) {
			return nil, model.NewUnknownOperationError(name)
		},
	}
	h := NewMemoryHandler(dispatcher, nil, nil, nil)

	w := httptest.NewRecorder()
	h.Call(w, authedPost("/api/memory/call", `{"name":"no_such_op"}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeBody(t, w)
	if body["code"] != "UNKNOWN_OPERATION" {
		t.Errorf("code = %v, want UNKNOWN_OPERATION", body["code"])
	}
}

func TestMemoryCall_MissingName400(t *testing.T) {
	h := NewMemoryHandler(&mockDispatcher{}, nil, nil, nil)

	w := httptest.NewRecorder()
	h.Call(w, authedPost("/api/memory/call", `{"arguments":{}}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMemoryCall_MalformedJSON400(t *testing.T) {
	h := NewMemoryHandler(&mockDispatcher{}, nil, nil, nil)

	w := httptest.NewRecorder()
	h.Call(w, authedPost("/api/memory/call", "not json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMemoryTools_ReturnsCatalog(t *testing.T) {
	dispatcher := &mockDispatcher{
		toolsFn: func() []graph.ToolInfo {
			return []graph.ToolInfo{
				{Name: "read_graph", Description: "Read the graph."},
			}
		},
	}
	h := NewMemoryHandler(dispatcher, nil, nil, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/memory/tools", nil)
	w := httptest.NewRecorder()
	h.Tools(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "read_graph") {
		t.Errorf("body = %s, want tool catalog with read_graph", w.Body.String())
	}
}

func TestExport_ReturnsAccountAndSnapshotWithoutHash(t *testing.T) {
	lastLogin := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	users := &mockUserFinder{
		findFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:           id,
				Username:     "alice",
				PasswordHash: "$2a$10$secret",
				CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				LastLogin:    &lastLogin,
			}, nil
		},
	}
	reader := &mockGraphReader{
		readFn: func(_ context.Context, _ string) (*graph.ReadGraphResult, error) {
			e := model.NewEntity("person")
			e.AddObservation("looking for a job")
			g := model.Graph{"alice_job": e}
			return &graph.ReadGraphResult{EntityCount: 1, Graph: g}, nil
		},
	}
	h := NewMemoryHandler(&mockDispatcher{}, reader, users, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	r = r.WithContext(middleware.ContextWithIdentity(context.Background(), "user-1", "alice"))
	w := httptest.NewRecorder()
	h.Export(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	bodyStr := w.Body.String()
	if strings.Contains(bodyStr, "$2a$10$secret") {
		t.Error("export must not contain the password hash")
	}

	body := decodeBody(t, w)
	account, ok := body["account"].(map[string]any)
	if !ok {
		t.Fatalf("account missing in export: %v", body)
	}
	if account["username"] != "alice" || account["user_id"] != "user-1" {
		t.Errorf("account = %v, want alice/user-1", account)
	}
	if account["last_login"] != "2026-02-01T09:00:00Z" {
		t.Errorf("last_login = %v, want 2026-02-01T09:00:00Z", account["last_login"])
	}
	if _, ok := body["memory"]; !ok {
		t.Error("export should contain the memory snapshot")
	}
	if body["exported_at"] == nil {
		t.Error("export should contain exported_at")
	}
}

func TestExport_UnauthenticatedContext401(t *testing.T) {
	h := NewMemoryHandler(&mockDispatcher{}, nil, nil, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	w := httptest.NewRecorder()
	h.Export(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
