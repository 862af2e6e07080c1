// Package auth はユーザー登録、ログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kawamura/memgraph/internal/model"
	"github.com/kawamura/memgraph/internal/repository"
)

const (
	// MinUsernameLen はユーザー名の最小文字数。
	MinUsernameLen = 3
	// MinPasswordLen はパスワードの最小文字数。
	MinPasswordLen = 6
	// DefaultSessionTTL はセッションの既定有効期間。
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// PartitionProvisioner は登録時の空パーティション作成に必要なインターフェース。
// repository.GraphRepositoryの部分集合として定義する。
type PartitionProvisioner interface {
	Provision(ctx context.Context, userID string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL time.Duration // セッション有効期間。ゼロ値の場合はDefaultSessionTTL。
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	provisioner PartitionProvisioner
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	provisioner PartitionProvisioner,
	config ServiceConfig,
) *Service {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		provisioner: provisioner,
		config:      config,
	}
}

// Register は新規ユーザーを登録する。
// ユーザー名3文字未満、パスワード6文字未満、ユーザー名重複は拒否する。
// 成功時はパーティションディレクトリを用意する。失敗時に副作用は残さない。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	// 最小長はバイト数ではなく文字数で判定する（マルチバイトのユーザー名を考慮）
	if utf8.RuneCountInString(username) < MinUsernameLen {
		return nil, model.NewUsernameTooShortError(MinUsernameLen)
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return nil, model.NewPasswordTooShortError(MinPasswordLen)
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUsernameError(username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.provisioner.Provision(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to provision partition: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return user, nil
}

// Login は認証情報を検証し、セッションを発行する。
// ユーザー名の不存在とパスワード不一致は区別せず、同一の認証エラーを返す。
// 成功時は最終ログイン時刻を更新する。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := s.userRepo.UpdateLastLogin(ctx, username, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return session, nil
}

// Validate はトークンを検証し、有効なセッションを返す。
// トークンが未知または期限切れの場合はnilを返す。
// 検証中に見つかった期限切れレコードは削除する（遅延失効）。
func (s *Service) Validate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if session.Expired(time.Now()) {
		if _, err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		slog.Info("expired session removed on validation",
			slog.String("user_id", session.UserID),
		)
		return nil, nil
	}

	return session, nil
}

// Logout はセッションを破棄する。レコードが存在したかどうかを返す。
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	existed, err := s.sessionRepo.DeleteByToken(ctx, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}

	if existed {
		slog.Info("user logged out")
	}
	return existed, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
