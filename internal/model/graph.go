// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"sort"
)

// Relation はエンティティ間の有向型付きエッジを表す。
// 始点エンティティは暗黙であり、(To, Type)の組が始点ごとの一意キーとなる。
type Relation struct {
	To   string `json:"to"`
	Type string `json:"type"`
}

// RelationSet は(To, Type)をキーとする関係の集合。
// 重複チェックをO(1)にするためセットとして保持し、
// JSON上は従来通りの配列として永続化する。
type RelationSet map[Relation]struct{}

// Add は関係を追加する。既に存在した場合はfalseを返す。
func (rs RelationSet) Add(r Relation) bool {
	if _, ok := rs[r]; ok {
		return false
	}
	rs[r] = struct{}{}
	return true
}

// Has は関係が存在するかどうかを返す。
func (rs RelationSet) Has(r Relation) bool {
	_, ok := rs[r]
	return ok
}

// Remove は関係を削除する。存在しなかった場合はfalseを返す。
func (rs RelationSet) Remove(r Relation) bool {
	if _, ok := rs[r]; !ok {
		return false
	}
	delete(rs, r)
	return true
}

// Sorted は(To, Type)順にソートした関係のスライスを返す。
// 永続化とAPIレスポンスの出力を決定的にするために使用する。
func (rs RelationSet) Sorted() []Relation {
	out := make([]Relation, 0, len(rs))
	for r := range rs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// MarshalJSON はセットを配列としてシリアライズする。
func (rs RelationSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.Sorted())
}

// UnmarshalJSON は配列からセットを復元する。重複エントリは畳み込まれる。
func (rs *RelationSet) UnmarshalJSON(data []byte) error {
	var list []Relation
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	set := make(RelationSet, len(list))
	for _, r := range list {
		set[r] = struct{}{}
	}
	*rs = set
	return nil
}

// Entity はナレッジグラフのノードを表す。
// Observationsは追記順を保持し、同一文字列の重複を許さない。
type Entity struct {
	Type         string      `json:"type"`
	Observations []string    `json:"observations"`
	Relations    RelationSet `json:"relations"`
}

// NewEntity は空の観測と関係を持つエンティティを生成する。
func NewEntity(entityType string) *Entity {
	return &Entity{
		Type:         entityType,
		Observations: []string{},
		Relations:    make(RelationSet),
	}
}

// HasObservation は観測文字列が既に記録されているかを返す。完全一致判定。
func (e *Entity) HasObservation(content string) bool {
	for _, obs := range e.Observations {
		if obs == content {
			return true
		}
	}
	return false
}

// AddObservation は観測を末尾に追記する。既出の場合はfalseを返す。
func (e *Entity) AddObservation(content string) bool {
	if e.HasObservation(content) {
		return false
	}
	e.Observations = append(e.Observations, content)
	return true
}

// RemoveObservation は観測を完全一致で削除する。存在しなかった場合はfalseを返す。
func (e *Entity) RemoveObservation(content string) bool {
	for i, obs := range e.Observations {
		if obs == content {
			e.Observations = append(e.Observations[:i], e.Observations[i+1:]...)
			return true
		}
	}
	return false
}

// Graph は1ユーザーのグラフパーティションを表す。
// エンティティ名からノードへのマッピングで、名前はパーティション内で一意。
type Graph map[string]*Entity
