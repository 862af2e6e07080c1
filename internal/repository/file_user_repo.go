package repository

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/kawamura/memgraph/internal/model"
)

// userRecord はusers.jsonに保存する1ユーザー分のレコード。
// ファイル全体はユーザー名をキーとするマッピング。
type userRecord struct {
	UserID       string     `json:"user_id"`
	PasswordHash string     `json:"password_hash"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

// FileUserRepo はJSONファイルを使用したユーザーリポジトリ。
// 全レコードを読み込み、変更し、ファイル全体を書き戻す。
// ミューテックスで読み書きサイクルを直列化する。
type FileUserRepo struct {
	path string
	mu   sync.Mutex
}

// NewFileUserRepo はFileUserRepoを生成する。
// dataDir直下のusers.jsonを保存先とする。
func NewFileUserRepo(dataDir string) *FileUserRepo {
	return &FileUserRepo{path: filepath.Join(dataDir, "users.json")}
}

// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
func (r *FileUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}

	rec, ok := users[username]
	if !ok {
		return nil, nil
	}
	return toUser(username, rec), nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *FileUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}

	for username, rec := range users {
		if rec.UserID == id {
			return toUser(username, rec), nil
		}
	}
	return nil, nil
}

// Create はユーザーを作成する。
func (r *FileUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}

	users[user.Username] = userRecord{
		UserID:       user.ID,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		LastLogin:    user.LastLogin,
	}

	return writeJSONFile(r.path, users)
}

// UpdateLastLogin は最終ログイン時刻を更新する。
// ユーザーが存在しない場合は何もしない。
func (r *FileUserRepo) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}

	rec, ok := users[username]
	if !ok {
		return nil
	}
	rec.LastLogin = &at
	users[username] = rec

	return writeJSONFile(r.path, users)
}

// load はusers.jsonを読み込む。ファイルが存在しない場合は空のマッピングを返す。
func (r *FileUserRepo) load() (map[string]userRecord, error) {
	users := make(map[string]userRecord)
	if _, err := readJSONFile(r.path, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func toUser(username string, rec userRecord) *model.User {
	return &model.User{
		ID:           rec.UserID,
		Username:     username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
		LastLogin:    rec.LastLogin,
	}
}

// compile-time interface check
var _ UserRepository = (*FileUserRepo)(nil)
