package graph

import (
	"context"
	"encoding/json"

	"github.com/kawamura/memgraph/internal/model"
)

// ToolInfo は操作カタログの1項目。
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Dispatcher は名前指定によるグラフ操作のディスパッチを提供する。
// HTTPシェルはこの層を通して操作を呼び出す。引数はJSONマッピングで受け取り、
// 各操作の型付き入力へデコードする。
type Dispatcher struct {
	svc *Service
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Tools は操作カタログを返す。
func (d *Dispatcher) Tools() []ToolInfo {
	return []ToolInfo{
		{Name: "create_entities", Description: "Create or update named entities with type and observations."},
		{Name: "create_relations", Description: "Create directed typed relations between existing entities."},
		{Name: "add_observations", Description: "Append observation strings to existing entities."},
		{Name: "delete_entities", Description: "Delete entities and cascade-remove inbound relations."},
		{Name: "delete_observations", Description: "Remove observation strings by exact match."},
		{Name: "delete_relations", Description: "Remove relations by exact (from, to, relationType) match."},
		{Name: "read_graph", Description: "Read the full knowledge graph of the current user."},
		{Name: "search_nodes", Description: "Case-insensitive substring search over names, types and observations."},
		{Name: "open_nodes", Description: "Fetch entities by exact name; misses are reported, not errors."},
		{Name: "process_user_message", Description: "Store a free-text message when it passes the relevance filter."},
		{Name: "get_job_recommendations", Description: "Derive job-search suggestions from stored observations (type: resume|interview|skills|general)."},
	}
}

type createEntitiesArgs struct {
	Entities []EntityInput `json:"entities"`
}

type createRelationsArgs struct {
	Relations []RelationInput `json:"relations"`
}

type addObservationsArgs struct {
	Observations []ObservationInput `json:"observations"`
}

type deleteEntitiesArgs struct {
	EntityNames []string `json:"entityNames"`
}

type deleteObservationsArgs struct {
	Deletions []DeleteObservationInput `json:"deletions"`
}

type searchNodesArgs struct {
	Query string `json:"query"`
}

type openNodesArgs struct {
	Names []string `json:"names"`
}

type processMessageArgs struct {
	Message string `json:"message"`
}

type recommendationsArgs struct {
	Type string `json:"type"`
}

// Call は名前で指定された操作を実行する。
// 未知の操作名と引数形式の不一致は検証エラーとして返す。
func (d *Dispatcher) Call(ctx context.Context, userID, name string, arguments map[string]any) (any, error) {
	switch name {
	case "create_entities":
		var args createEntitiesArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.CreateEntities(ctx, userID, args.Entities)

	case "create_relations":
		var args createRelationsArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.CreateRelations(ctx, userID, args.Relations)

	case "add_observations":
		var args addObservationsArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.AddObservations(ctx, userID, args.Observations)

	case "delete_entities":
		var args deleteEntitiesArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.DeleteEntities(ctx, userID, args.EntityNames)

	case "delete_observations":
		var args deleteObservationsArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.DeleteObservations(ctx, userID, args.Deletions)

	case "delete_relations":
		var args createRelationsArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.DeleteRelations(ctx, userID, args.Relations)

	case "read_graph":
		return d.svc.ReadGraph(ctx, userID)

	case "search_nodes":
		var args searchNodesArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.SearchNodes(ctx, userID, args.Query)

	case "open_nodes":
		var args openNodesArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.OpenNodes(ctx, userID, args.Names)

	case "process_user_message":
		var args processMessageArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.ProcessUserMessage(ctx, userID, args.Message)

	case "get_job_recommendations":
		var args recommendationsArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		return d.svc.GetJobRecommendations(ctx, userID, args.Type)

	default:
		return nil, model.NewUnknownOperationError(name)
	}
}

// decodeArgs はJSONマッピングを型付き引数へデコードする。
func decodeArgs(arguments map[string]any, v any) error {
	data, err := json.Marshal(arguments)
	if err != nil {
		return model.NewInvalidArgumentsError(err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return model.NewInvalidArgumentsError(err.Error())
	}
	return nil
}
