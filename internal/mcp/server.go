// Package mcp はナレッジグラフ操作をMCPツールとして公開するstdioサーバーを提供する。
// 単一オペレーター向けのシェルであり、操作対象ユーザーは環境変数で設定された
// ユーザー名から起動後の最初のツール呼び出し時に解決する。
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kawamura/memgraph/internal/graph"
	"github.com/kawamura/memgraph/internal/model"
)

// UserResolver はユーザー名からユーザーを解決するインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserResolver interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Server はグラフツールを公開するMCPサーバー。
type Server struct {
	svc      *graph.Service
	users    UserResolver
	username string

	mu     sync.Mutex
	userID string // 解決済みユーザーID。初回のツール呼び出しでキャッシュする。

	server *mcp.Server
}

// NewServer は新しいMCPサーバーを生成する。
// usernameは操作対象パーティションの持ち主のユーザー名。
func NewServer(svc *graph.Service, users UserResolver, username, version string) *Server {
	s := &Server{
		svc:      svc,
		users:    users,
		username: username,
	}

	impl := &mcp.Implementation{
		Name:    "memgraph",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run はstdio上でMCPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// resolveUserID は設定されたユーザー名をユーザーIDに解決する。結果はキャッシュする。
func (s *Server) resolveUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID != "" {
		return s.userID, nil
	}
	if s.username == "" {
		return "", fmt.Errorf("no memory user configured: set MEMORY_USER")
	}

	user, err := s.users.FindByUsername(ctx, s.username)
	if err != nil {
		return "", fmt.Errorf("failed to resolve memory user: %w", err)
	}
	if user == nil {
		return "", fmt.Errorf("memory user %q is not registered", s.username)
	}

	s.userID = user.ID
	return s.userID, nil
}

// registerTools は全グラフツールをMCPサーバーに登録する。
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_entities",
		Description: "Create or update named entities in the knowledge graph. Existing entities get their type overwritten and new observations appended.",
	}, s.handleCreateEntities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_relations",
		Description: "Create directed typed relations between existing entities. Relations whose endpoints are missing are skipped and reported.",
	}, s.handleCreateRelations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_observations",
		Description: "Append observation strings to existing entities. Duplicates and unknown entities are skipped and reported.",
	}, s.handleAddObservations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_entities",
		Description: "Delete entities by name. Relations pointing at a deleted entity are removed as well.",
	}, s.handleDeleteEntities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_observations",
		Description: "Remove observation strings from entities by exact match.",
	}, s.handleDeleteObservations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_relations",
		Description: "Remove relations by exact (from, to, relationType) match.",
	}, s.handleDeleteRelations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "read_graph",
		Description: "Read the full knowledge graph of the configured user.",
	}, s.handleReadGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_nodes",
		Description: "Case-insensitive substring search over entity names, types and observations. Returns full matching entities.",
	}, s.handleSearchNodes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "open_nodes",
		Description: "Fetch entities by exact name. Missing names are reported, not errors.",
	}, s.handleOpenNodes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_user_message",
		Description: "Store a free-text message as user/message entities when it passes the relevance filter. Irrelevant messages are skipped.",
	}, s.handleProcessUserMessage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_job_recommendations",
		Description: "Derive job-search suggestions from the user's stored observations. Type: resume, interview, skills or general.",
	}, s.handleGetJobRecommendations)
}

// CreateEntitiesArgs はcreate_entitiesの入力。
type CreateEntitiesArgs struct {
	Entities []graph.EntityInput `json:"entities" jsonschema:"Entities to create, each with name, entityType and observations"`
}

func (s *Server) handleCreateEntities(ctx context.Context, req *mcp.CallToolRequest, args CreateEntitiesArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.CreateEntities(ctx, userID, args.Entities)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// CreateRelationsArgs はcreate_relationsとdelete_relationsの入力。
type CreateRelationsArgs struct {
	Relations []graph.RelationInput `json:"relations" jsonschema:"Relations, each with from, to and relationType"`
}

func (s *Server) handleCreateRelations(ctx context.Context, req *mcp.CallToolRequest, args CreateRelationsArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.CreateRelations(ctx, userID, args.Relations)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// AddObservationsArgs はadd_observationsの入力。
type AddObservationsArgs struct {
	Observations []graph.ObservationInput `json:"observations" jsonschema:"Observations to append, each with entityName and contents"`
}

func (s *Server) handleAddObservations(ctx context.Context, req *mcp.CallToolRequest, args AddObservationsArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.AddObservations(ctx, userID, args.Observations)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// DeleteEntitiesArgs はdelete_entitiesの入力。
type DeleteEntitiesArgs struct {
	EntityNames []string `json:"entityNames" jsonschema:"Names of the entities to delete"`
}

func (s *Server) handleDeleteEntities(ctx context.Context, req *mcp.CallToolRequest, args DeleteEntitiesArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.DeleteEntities(ctx, userID, args.EntityNames)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// DeleteObservationsArgs はdelete_observationsの入力。
type DeleteObservationsArgs struct {
	Deletions []graph.DeleteObservationInput `json:"deletions" jsonschema:"Deletions, each with entityName and observations to remove"`
}

func (s *Server) handleDeleteObservations(ctx context.Context, req *mcp.CallToolRequest, args DeleteObservationsArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.DeleteObservations(ctx, userID, args.Deletions)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) handleDeleteRelations(ctx context.Context, req *mcp.CallToolRequest, args CreateRelationsArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.DeleteRelations(ctx, userID, args.Relations)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// ReadGraphArgs はread_graphの入力。引数は不要。
type ReadGraphArgs struct{}

func (s *Server) handleReadGraph(ctx context.Context, req *mcp.CallToolRequest, args ReadGraphArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.ReadGraph(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// SearchNodesArgs はsearch_nodesの入力。
type SearchNodesArgs struct {
	Query string `json:"query" jsonschema:"Substring to search for in names, types and observations (case-insensitive)"`
}

func (s *Server) handleSearchNodes(ctx context.Context, req *mcp.CallToolRequest, args SearchNodesArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.SearchNodes(ctx, userID, args.Query)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// OpenNodesArgs はopen_nodesの入力。
type OpenNodesArgs struct {
	Names []string `json:"names" jsonschema:"Exact entity names to fetch"`
}

func (s *Server) handleOpenNodes(ctx context.Context, req *mcp.CallToolRequest, args OpenNodesArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.OpenNodes(ctx, userID, args.Names)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// ProcessUserMessageArgs はprocess_user_messageの入力。
type ProcessUserMessageArgs struct {
	Message string `json:"message" jsonschema:"Free-text message to store when relevant"`
}

func (s *Server) handleProcessUserMessage(ctx context.Context, req *mcp.CallToolRequest, args ProcessUserMessageArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.ProcessUserMessage(ctx, userID, args.Message)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// GetJobRecommendationsArgs はget_job_recommendationsの入力。
type GetJobRecommendationsArgs struct {
	Type string `json:"type,omitempty" jsonschema:"Recommendation type: resume, interview, skills or general (default: general)"`
}

func (s *Server) handleGetJobRecommendations(ctx context.Context, req *mcp.CallToolRequest, args GetJobRecommendationsArgs) (*mcp.CallToolResult, any, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.svc.GetJobRecommendations(ctx, userID, args.Type)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}
