package repository

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/kawamura/memgraph/internal/model"
)

// sessionRecord はsessions.jsonに保存する1セッション分のレコード。
// ファイル全体はトークンをキーとするマッピング。
type sessionRecord struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileSessionRepo はJSONファイルを使用したセッションリポジトリ。
type FileSessionRepo struct {
	path string
	mu   sync.Mutex
}

// NewFileSessionRepo はFileSessionRepoを生成する。
// dataDir直下のsessions.jsonを保存先とする。
func NewFileSessionRepo(dataDir string) *FileSessionRepo {
	return &FileSessionRepo{path: filepath.Join(dataDir, "sessions.json")}
}

// Create はセッションを作成する。
func (r *FileSessionRepo) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load()
	if err != nil {
		return err
	}

	sessions[session.Token] = sessionRecord{
		UserID:    session.UserID,
		Username:  session.Username,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}

	return writeJSONFile(r.path, sessions)
}

// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
// 期限切れ判定は行わない。
func (r *FileSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load()
	if err != nil {
		return nil, err
	}

	rec, ok := sessions[token]
	if !ok {
		return nil, nil
	}
	return &model.Session{
		Token:     token,
		UserID:    rec.UserID,
		Username:  rec.Username,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// DeleteByToken は指定トークンのセッションを削除する。レコードが存在したかどうかを返す。
func (r *FileSessionRepo) DeleteByToken(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load()
	if err != nil {
		return false, err
	}

	if _, ok := sessions[token]; !ok {
		return false, nil
	}
	delete(sessions, token)

	if err := writeJSONFile(r.path, sessions); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
func (r *FileSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load()
	if err != nil {
		return 0, err
	}

	removed := 0
	for token, rec := range sessions {
		if now.After(rec.ExpiresAt) {
			delete(sessions, token)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	if err := writeJSONFile(r.path, sessions); err != nil {
		return 0, err
	}
	return removed, nil
}

// load はsessions.jsonを読み込む。ファイルが存在しない場合は空のマッピングを返す。
func (r *FileSessionRepo) load() (map[string]sessionRecord, error) {
	sessions := make(map[string]sessionRecord)
	if _, err := readJSONFile(r.path, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// compile-time interface check
var _ SessionRepository = (*FileSessionRepo)(nil)
