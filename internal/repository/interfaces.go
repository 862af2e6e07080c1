// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/kawamura/memgraph/internal/model"
)

// UserRepository は認証情報の永続化インターフェース。
type UserRepository interface {
	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名の一意性は呼び出し側が保証する。
	Create(ctx context.Context, user *model.User) error

	// UpdateLastLogin は最終ログイン時刻を更新する。
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
// 期限切れ判定は行わず、記録の保存と削除のみを担当する。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
	// 期限切れのセッションもそのまま返す。期限判定はサービス層の責務。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteByToken は指定トークンのセッションを削除する。
	// レコードが存在したかどうかを返す。
	DeleteByToken(ctx context.Context, token string) (bool, error)

	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// GraphRepository はグラフパーティションの永続化インターフェース。
// ユーザーIDごとに1ディレクトリ、その中の1ファイルにパーティション全体を保存する。
type GraphRepository interface {
	// Load は指定ユーザーのパーティションを読み込む。
	// ファイルが存在しない場合は空のグラフを返す（エラーにしない）。
	Load(ctx context.Context, userID string) (model.Graph, error)

	// Save はパーティション全体を書き込み、以前の内容を上書きする。
	Save(ctx context.Context, userID string, graph model.Graph) error

	// Provision はユーザーのパーティションディレクトリを作成する。
	// 登録時に空のパーティションを用意するために使用する。冪等。
	Provision(ctx context.Context, userID string) error
}
