// Package auth はTwitch OAuth認証フローとセッショントークン管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/gamedex/internal/model"
	"github.com/hitoshi/gamedex/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Username       string
	Email          string
	AvatarURL      string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 現在はTwitchのみだが、将来的に複数IdPに対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	userRepo repository.UserRepository
	tokens   TokenService
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, userRepo repository.UserRepository, tokens TokenService) *Service {
	return &Service{
		oauth:    oauth,
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッショントークンを発行する。
// ユーザーの検索と作成はtwitch_idのUNIQUE制約に基づくUPSERTで単一文として行うため、
// 同一ユーザーの同時コールバックでも重複レコードは発生しない。
// 既存ユーザーの場合はusername、email、avatar_urlが最新のTwitch情報に更新される。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.User, string, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. twitch_idでUPSERT（未登録なら作成、登録済みならプロフィール更新）
	now := time.Now()
	candidate := &model.User{
		ID:        uuid.New().String(),
		TwitchID:  userInfo.ProviderUserID,
		Username:  userInfo.Username,
		Email:     userInfo.Email,
		AvatarURL: userInfo.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	user, err := s.userRepo.UpsertByTwitchID(ctx, candidate)
	if err != nil {
		return nil, "", fmt.Errorf("failed to upsert user: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("twitch_id", user.TwitchID),
		slog.String("username", user.Username),
	)

	// 3. セッショントークンを発行
	token, err := s.tokens.Mint(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint session token: %w", err)
	}

	return user, token, nil
}

// GetCurrentUser はユーザーIDから現在のユーザーを取得する。
// セッショントークンの検証はミドルウェアで行われ、ここには検証済みのIDが渡される。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// GenerateState はCSRF対策用のランダムなstate値を生成する。
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
