package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kawamura/memgraph/internal/model"
)

const graphFileName = "knowledge_graph.json"

// FileGraphRepo はJSONファイルを使用したグラフパーティションリポジトリ。
// ユーザーIDごとに memory/<user_id>/knowledge_graph.json を保存先とする。
// パーティション単位の排他はパーティションマネージャが担うため、
// このリポジトリ自体はロックを持たない。
type FileGraphRepo struct {
	baseDir string
}

// NewFileGraphRepo はFileGraphRepoを生成する。
// dataDir直下のmemoryディレクトリをパーティションのルートとする。
func NewFileGraphRepo(dataDir string) *FileGraphRepo {
	return &FileGraphRepo{baseDir: filepath.Join(dataDir, "memory")}
}

// Load は指定ユーザーのパーティションを読み込む。
// ファイルが存在しない場合は空のグラフを返す。
func (r *FileGraphRepo) Load(ctx context.Context, userID string) (model.Graph, error) {
	graph := make(model.Graph)
	if _, err := readJSONFile(r.graphPath(userID), &graph); err != nil {
		return nil, err
	}

	// 復元されたノードの欠損フィールドを正規化する
	for _, entity := range graph {
		if entity.Observations == nil {
			entity.Observations = []string{}
		}
		if entity.Relations == nil {
			entity.Relations = make(model.RelationSet)
		}
	}
	return graph, nil
}

// Save はパーティション全体を書き込み、以前の内容を上書きする。
func (r *FileGraphRepo) Save(ctx context.Context, userID string, graph model.Graph) error {
	return writeJSONFile(r.graphPath(userID), graph)
}

// Provision はユーザーのパーティションディレクトリを作成する。冪等。
func (r *FileGraphRepo) Provision(ctx context.Context, userID string) error {
	dir := filepath.Join(r.baseDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to provision partition directory %s: %w", dir, err)
	}
	return nil
}

func (r *FileGraphRepo) graphPath(userID string) string {
	return filepath.Join(r.baseDir, userID, graphFileName)
}

// compile-time interface check
var _ GraphRepository = (*FileGraphRepo)(nil)
