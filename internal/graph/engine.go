package graph

import (
	"context"
	"strings"

	"github.com/kawamura/memgraph/internal/model"
	"github.com/kawamura/memgraph/internal/relevance"
	"github.com/kawamura/memgraph/internal/security"
)

// バッチ操作のスキップ・未検出理由。ワイヤフォーマットの一部であり変更しない。
const (
	ReasonEntityMissing      = "entity missing"
	ReasonAlreadyExists      = "already exists"
	ReasonObservationExists  = "observation already exists"
	ReasonObservationMissing = "observation missing"
	ReasonRelationMissing    = "relation missing"
)

// EntityInput はcreate_entitiesの1項目。
type EntityInput struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Observations []string `json:"observations"`
}

// CreateEntitiesResult はcreate_entitiesの結果。
type CreateEntitiesResult struct {
	Created []string `json:"created"`
	Count   int      `json:"count"`
}

// RelationInput は関係を指定する1項目。
type RelationInput struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"relationType"`
}

// SkippedRelation は処理されなかった関係と理由。
type SkippedRelation struct {
	RelationInput
	Reason string `json:"reason"`
}

// CreateRelationsResult はcreate_relationsの結果。
type CreateRelationsResult struct {
	Created []RelationInput   `json:"created"`
	Skipped []SkippedRelation `json:"skipped"`
}

// ObservationInput は観測の追加・削除結果の1項目。
type ObservationInput struct {
	EntityName string   `json:"entityName"`
	Contents   []string `json:"contents"`
}

// SkippedObservation は処理されなかった観測と理由。
// エンティティ自体が無い場合はContentが空になる。
type SkippedObservation struct {
	EntityName string `json:"entityName"`
	Content    string `json:"content,omitempty"`
	Reason     string `json:"reason"`
}

// AddObservationsResult はadd_observationsの結果。
type AddObservationsResult struct {
	Added   []ObservationInput   `json:"added"`
	Skipped []SkippedObservation `json:"skipped"`
}

// DeleteEntitiesResult はdelete_entitiesの結果。
type DeleteEntitiesResult struct {
	Deleted  []string `json:"deleted"`
	NotFound []string `json:"not_found"`
}

// DeleteObservationInput はdelete_observationsの1項目。
type DeleteObservationInput struct {
	EntityName   string   `json:"entityName"`
	Observations []string `json:"observations"`
}

// DeleteObservationsResult はdelete_observationsの結果。
type DeleteObservationsResult struct {
	Deleted  []ObservationInput   `json:"deleted"`
	NotFound []SkippedObservation `json:"not_found"`
}

// DeleteRelationsResult はdelete_relationsの結果。
type DeleteRelationsResult struct {
	Deleted  []RelationInput   `json:"deleted"`
	NotFound []SkippedRelation `json:"not_found"`
}

// ReadGraphResult はread_graphの結果。
type ReadGraphResult struct {
	EntityCount int         `json:"entity_count"`
	Graph       model.Graph `json:"graph"`
}

// SearchNodesResult はsearch_nodesの結果。一致ノードの全内容を返す。
type SearchNodesResult struct {
	Matches int                      `json:"matches"`
	Results map[string]*model.Entity `json:"results"`
}

// OpenNodesResult はopen_nodesの結果。未検出の名前は報告のみでエラーにしない。
type OpenNodesResult struct {
	Found    int                      `json:"found"`
	NotFound []string                 `json:"not_found"`
	Results  map[string]*model.Entity `json:"results"`
}

// Service はグラフストアエンジン。解決済みユーザーのパーティションに対する
// CRUD操作を提供する。各変更操作は完了時に暗黙のフラッシュを伴う。
type Service struct {
	parts     *Manager
	filter    relevance.Predicate
	sanitizer security.ObservationSanitizer
	now       func() int64 // メッセージエンティティ名のタイムスタンプ供給。テストで差し替える。
}

// NewService はServiceを生成する。
func NewService(parts *Manager, filter relevance.Predicate, sanitizer security.ObservationSanitizer) *Service {
	return &Service{
		parts:     parts,
		filter:    filter,
		sanitizer: sanitizer,
		now:       unixNow,
	}
}

// CreateEntities はエンティティを作成または更新する。
// 名前か型を欠く項目は黙ってスキップする。既存名は型を上書きし観測を追記する。
// 観測はサニタイズと関連性フィルタを通過したものだけが保持される。
func (s *Service) CreateEntities(ctx context.Context, userID string, entities []EntityInput) (*CreateEntitiesResult, error) {
	result := &CreateEntitiesResult{Created: []string{}}

	err := s.parts.Update(ctx, userID, func(g model.Graph) error {
		for _, in := range entities {
			if in.Name == "" || in.Type == "" {
				continue
			}

			entity, exists := g[in.Name]
			if !exists {
				entity = model.NewEntity(in.Type)
				g[in.Name] = entity
			} else {
				entity.Type = in.Type
			}

			for _, raw := range in.Observations {
				obs := s.sanitizer.Sanitize(raw)
				if obs == "" || !s.filter.IsRelevant(obs) {
					continue
				}
				entity.AddObservation(obs)
			}

			result.Created = append(result.Created, in.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Count = len(result.Created)
	return result, nil
}

// CreateRelations は関係を作成する。両端のエンティティが存在しない関係と
// 既存の(to, relationType)を持つ関係はスキップとして報告する。
// 同一の関係は繰り返し呼び出しをまたいでも二重には作られない（冪等）。
func (s *Service) CreateRelations(ctx context.Context, userID string, relations []RelationInput) (*CreateRelationsResult, error) {
	result := &CreateRelationsResult{
		Created: []RelationInput{},
		Skipped: []SkippedRelation{},
	}

	err := s.parts.Update(ctx, userID, func(g model.Graph) error {
		for _, in := range relations {
			from, fromOK := g[in.From]
			_, toOK := g[in.To]
			if !fromOK || !toOK {
				result.Skipped = append(result.Skipped, SkippedRelation{RelationInput: in, Reason: ReasonEntityMissing})
				continue
			}

			if !from.Relations.Add(model.Relation{To: in.To, Type: in.Type}) {
				result.Skipped = append(result.Skipped, SkippedRelation{RelationInput: in, Reason: ReasonAlreadyExists})
				continue
			}

			result.Created = append(result.Created, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddObservations は既存エンティティへ観測を追記する。
// エンティティ不在と観測重複は理由付きでスキップとして報告する。追記順は入力順を保持する。
func (s *Service) AddObservations(ctx context.Context, userID string, observations []ObservationInput) (*AddObservationsResult, error) {
	result := &AddObservationsResult{
		Added:   []ObservationInput{},
		Skipped: []SkippedObservation{},
	}

	err := s.parts.Update(ctx, userID, func(g model.Graph) error {
		for _, in := range observations {
			entity, ok := g[in.EntityName]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedObservation{EntityName: in.EntityName, Reason: ReasonEntityMissing})
				continue
			}

			added := []string{}
			for _, raw := range in.Contents {
				obs := s.sanitizer.Sanitize(raw)
				if obs == "" {
					continue
				}
				if !entity.AddObservation(obs) {
					result.Skipped = append(result.Skipped, SkippedObservation{EntityName: in.EntityName, Content: obs, Reason: ReasonObservationExists})
					continue
				}
				added = append(added, obs)
			}
			if len(added) > 0 {
				result.Added = append(result.Added, ObservationInput{EntityName: in.EntityName, Contents: added})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteEntities はエンティティを削除する。削除された各名前について、
// パーティション内の残り全エンティティからその名前を指す関係を取り除く
// （カスケード削除。ぶら下がり関係を残さない）。
func (s *Service) DeleteEntities(ctx context.Context, userID string, names []string) (*DeleteEntitiesResult, error) {
	result := &DeleteEntitiesResult{
		Deleted:  []string{},
		NotFound: []string{},
	}

	err := s.parts.Update(ctx, userID, func(g model.Graph) error {
		for _, name := range names {
			if _, ok := g[name]; !ok {
				result.NotFound = append(result.NotFound, name)
				continue
			}

			delete(g, name)
			for _, entity := range g {
				for rel := range entity.Relations {
					if rel.To == name {
						entity.Relations.Remove(rel)
					}
				}
			}

			result.Deleted = append(result.Deleted, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteObservations は観測を完全一致で削除する。
// エンティティ不在と観測不在は別の理由として報告する。
func (s *Service) DeleteObservations(ctx context.Context, userID string, deletions []DeleteObservationInput) (*DeleteObservationsResult, error) {
	result := &DeleteObservationsResult{
		Deleted:  []ObservationInput{},
		NotFound: []SkippedObservation{},
	}

	err := s.parts.Update(ctx, userID, func(g model.Graph) error {
		for _, in := range deletions {
			entity, ok := g[in.EntityName]
			if !ok {
				result.NotFound = append(result.NotFound, SkippedObservation{EntityName: in.EntityName, Reason: ReasonEntityMissing})
				continue
			}

			deleted := []string{}
			for _, obs := range in.Observations {
				if !entity.RemoveObservation(obs) {
					result.NotFound = append(result.NotFound, SkippedObservation{EntityName: in.EntityName, Content: obs, Reason: ReasonObservationMissing})
					continue
				}
				deleted = append(deleted, obs)
			}
			if len(deleted) > 0 {
				result.Deleted = append(result.Deleted, ObservationInput{EntityName: in.EntityName, Contents: deleted})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteRelations は関係を完全三つ組一致で削除する。
// 関係集合に重複は無いため、一致する関係は高々1つ。
func (s *Service) DeleteRelations(ctx context.Context, userID string, relations []RelationInput) (*DeleteRelationsResult, error) {
	result := &DeleteRelationsResult{
		Deleted:  []RelationInput{},
		NotFound: []SkippedRelation{},
	}

	err := s.parts.Update(ctx, userID, func(g model.Graph) error {
		for _, in := range relations {
			entity, ok := g[in.From]
			if !ok {
				result.NotFound = append(result.NotFound, SkippedRelation{RelationInput: in, Reason: ReasonEntityMissing})
				continue
			}

			if !entity.Relations.Remove(model.Relation{To: in.To, Type: in.Type}) {
				result.NotFound = append(result.NotFound, SkippedRelation{RelationInput: in, Reason: ReasonRelationMissing})
				continue
			}

			result.Deleted = append(result.Deleted, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReadGraph は常駐パーティションの完全なスナップショットを返す。読み取り専用。
func (s *Service) ReadGraph(ctx context.Context, userID string) (*ReadGraphResult, error) {
	result := &ReadGraphResult{}

	err := s.parts.View(ctx, userID, func(g model.Graph) error {
		result.Graph = copyGraph(g)
		result.EntityCount = len(g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchNodes はエンティティ名、型、観測のいずれかに対する
// 大文字小文字を区別しない部分一致検索を行い、一致ノードの全内容を返す。
func (s *Service) SearchNodes(ctx context.Context, userID, query string) (*SearchNodesResult, error) {
	result := &SearchNodesResult{Results: map[string]*model.Entity{}}
	needle := strings.ToLower(query)

	err := s.parts.View(ctx, userID, func(g model.Graph) error {
		for name, entity := range g {
			if entityMatches(name, entity, needle) {
				result.Results[name] = copyEntity(entity)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Matches = len(result.Results)
	return result, nil
}

// OpenNodes は名前の完全一致による一括取得を行う。
// 見つからない名前はエラーにせず報告のみ行う。
func (s *Service) OpenNodes(ctx context.Context, userID string, names []string) (*OpenNodesResult, error) {
	result := &OpenNodesResult{
		NotFound: []string{},
		Results:  map[string]*model.Entity{},
	}

	err := s.parts.View(ctx, userID, func(g model.Graph) error {
		for _, name := range names {
			entity, ok := g[name]
			if !ok {
				result.NotFound = append(result.NotFound, name)
				continue
			}
			result.Results[name] = copyEntity(entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Found = len(result.Results)
	return result, nil
}

// entityMatches はノードが検索語に一致するかを判定する。
func entityMatches(name string, entity *model.Entity, needle string) bool {
	if strings.Contains(strings.ToLower(name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(entity.Type), needle) {
		return true
	}
	for _, obs := range entity.Observations {
		if strings.Contains(strings.ToLower(obs), needle) {
			return true
		}
	}
	return false
}

// copyEntity はロック外へ返すためのノードの深いコピーを作る。
func copyEntity(entity *model.Entity) *model.Entity {
	out := &model.Entity{
		Type:         entity.Type,
		Observations: make([]string, len(entity.Observations)),
		Relations:    make(model.RelationSet, len(entity.Relations)),
	}
	copy(out.Observations, entity.Observations)
	for rel := range entity.Relations {
		out.Relations[rel] = struct{}{}
	}
	return out
}

// copyGraph はロック外へ返すためのパーティションの深いコピーを作る。
func copyGraph(g model.Graph) model.Graph {
	out := make(model.Graph, len(g))
	for name, entity := range g {
		out[name] = copyEntity(entity)
	}
	return out
}
