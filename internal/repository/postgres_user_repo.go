package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gamedex/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, twitch_id, username, email, avatar_url, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.TwitchID, &user.Username, &user.Email, &user.AvatarURL,
		&user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	return user, nil
}

// UpsertByTwitchID はtwitch_idをキーにユーザーをUPSERTする。
// find-or-createを単一のINSERT文で行うため、同一Twitchアカウントの
// 同時初回ログインでも重複ユーザーは作成されない。
// 既存ユーザーの場合はプロフィール（username, email, avatar_url）を
// Twitchの最新値で更新し、created_atは維持される。
func (r *PostgresUserRepo) UpsertByTwitchID(ctx context.Context, candidate *model.User) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, twitch_id, username, email, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (twitch_id) DO UPDATE SET
		     username   = EXCLUDED.username,
		     email      = EXCLUDED.email,
		     avatar_url = EXCLUDED.avatar_url,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, twitch_id, username, email, avatar_url, created_at, updated_at`,
		candidate.ID, candidate.TwitchID, candidate.Username, candidate.Email,
		candidate.AvatarURL, candidate.CreatedAt, candidate.UpdatedAt,
	).Scan(&user.ID, &user.TwitchID, &user.Username, &user.Email, &user.AvatarURL,
		&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("ユーザーのUPSERTに失敗しました: %w", err)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
