// Package graph はユーザーごとのナレッジグラフパーティションとそのCRUD操作を提供する。
package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/kawamura/memgraph/internal/model"
	"github.com/kawamura/memgraph/internal/repository"
)

// FlushRecorder はパーティション書き込みのメトリクス記録インターフェース。
type FlushRecorder interface {
	RecordPartitionFlush()
}

// partition は1ユーザー分の常駐パーティション。
// ミューテックスで同一ユーザーに対する操作を直列化する。
type partition struct {
	mu     sync.Mutex
	graph  model.Graph
	loaded bool
}

// Manager はパーティションの常駐キャッシュを管理する。
// 初回アクセス時に永続ストレージから遅延読み込みし、
// 変更操作の完了ごとにパーティション全体を書き戻す（ライトスルー）。
// 常駐パーティションの追い出しは行わない。
type Manager struct {
	repo    repository.GraphRepository
	metrics FlushRecorder // nil可

	mu    sync.Mutex
	parts map[string]*partition
}

// NewManager はManagerを生成する。metricsはnilでもよい。
func NewManager(repo repository.GraphRepository, metrics FlushRecorder) *Manager {
	return &Manager{
		repo:    repo,
		metrics: metrics,
		parts:   make(map[string]*partition),
	}
}

// Update は指定ユーザーのパーティションを排他的に取得してfnを適用し、
// 成功時にパーティション全体を永続ストレージへ書き戻す。
// 異なるユーザーの操作は並行に進行できる。
func (m *Manager) Update(ctx context.Context, userID string, fn func(model.Graph) error) error {
	p := m.acquire(userID)
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := m.ensureLoaded(ctx, userID, p); err != nil {
		return err
	}

	if err := fn(p.graph); err != nil {
		return err
	}

	if err := m.repo.Save(ctx, userID, p.graph); err != nil {
		return fmt.Errorf("failed to flush partition: %w", err)
	}
	if m.metrics != nil {
		m.metrics.RecordPartitionFlush()
	}
	return nil
}

// View は指定ユーザーのパーティションを排他的に取得してfnを適用する。
// 書き戻しは行わない。fn内でグラフを変更してはならない。
func (m *Manager) View(ctx context.Context, userID string, fn func(model.Graph) error) error {
	p := m.acquire(userID)
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := m.ensureLoaded(ctx, userID, p); err != nil {
		return err
	}
	return fn(p.graph)
}

// ResidentCount は常駐しているパーティション数を返す。テストおよびメトリクス用。
func (m *Manager) ResidentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.parts)
}

// acquire はユーザーのパーティションエントリを取得または作成する。
func (m *Manager) acquire(userID string) *partition {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.parts[userID]
	if !ok {
		p = &partition{}
		m.parts[userID] = p
	}
	return p
}

// ensureLoaded は未読込のパーティションを永続ストレージから読み込む。
// ファイルが存在しない場合は空のパーティションとなる。
// 呼び出し側がp.muを保持していること。
func (m *Manager) ensureLoaded(ctx context.Context, userID string, p *partition) error {
	if p.loaded {
		return nil
	}
	graph, err := m.repo.Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load partition: %w", err)
	}
	p.graph = graph
	p.loaded = true
	return nil
}
