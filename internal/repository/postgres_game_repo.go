package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/gamedex/internal/model"
)

// PostgresGameRepo はPostgreSQLを使用したゲームリポジトリ。
type PostgresGameRepo struct {
	db *sql.DB
}

// NewPostgresGameRepo はPostgresGameRepoを生成する。
func NewPostgresGameRepo(db *sql.DB) *PostgresGameRepo {
	return &PostgresGameRepo{db: db}
}

// gameColumns はgamesテーブルのSELECT対象カラム。
const gameColumns = `id, source, external_id, name, summary, rating, rating_raw,
	rating_scale, release_date, platforms, genres, cover_url, created_at`

// FindByID は指定IDのゲームを取得する。見つからない場合はnilを返す。
func (r *PostgresGameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`,
		id,
	)

	game, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ゲームの取得に失敗しました: %w", err)
	}

	return game, nil
}

// List はフィルタ条件に一致するゲームをcreated_at降順で取得する。
// 絞り込み条件はすべてWHERE句として構築し、SQL側で適用する。
//   - Query: nameの部分一致（大文字小文字を区別しない）
//   - Source: 取得元の完全一致
//   - MinRating: 正規化済みrating（0〜5）の下限。rating未設定の行は除外される。
func (r *PostgresGameRepo) List(ctx context.Context, filter model.GameListFilter) ([]*model.Game, error) {
	var conditions []string
	var args []interface{}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, string(filter.Source))
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}
	if filter.MinRating != nil {
		args = append(args, *filter.MinRating)
		conditions = append(conditions, fmt.Sprintf("rating IS NOT NULL AND rating >= $%d", len(args)))
	}

	query := `SELECT ` + gameColumns + ` FROM games`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ゲーム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("ゲーム行の読み取りに失敗しました: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム一覧の走査に失敗しました: %w", err)
	}

	return games, nil
}

// InsertBatch はゲームを単一トランザクションで一括挿入し、挿入件数を返す。
// 1件でも失敗した場合はロールバックし、部分的な挿入は残さない。
// 空スライスの場合はトランザクションを開始せず0を返す。
func (r *PostgresGameRepo) InsertBatch(ctx context.Context, games []*model.Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO games (id, source, external_id, name, summary, rating, rating_raw,
		                    rating_scale, release_date, platforms, genres, cover_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return 0, fmt.Errorf("INSERT文の準備に失敗しました: %w", err)
	}
	defer stmt.Close()

	for _, game := range games {
		_, err := stmt.ExecContext(ctx,
			game.ID, string(game.Source), game.ExternalID, game.Name, game.Summary,
			game.Rating, game.RatingRaw, game.RatingScale, game.ReleaseDate,
			pq.Array(game.Platforms), pq.Array(game.Genres), game.CoverURL, game.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("ゲームの挿入に失敗しました (external_id=%s): %w", game.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return len(games), nil
}

// DeleteByID は指定IDのゲームを削除する。
// 対象が存在しない場合はErrNotFoundを返す。
func (r *PostgresGameRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM games WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ゲームの削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("game %s: %w", id, ErrNotFound)
	}

	return nil
}

// rowScanner はsql.Rowとsql.Rowsの両方を受けるためのインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanGame は1行分のゲームレコードを読み取る。
// nullable列（rating, rating_raw, release_date）はsql.Null型で受けてから変換する。
func scanGame(row rowScanner) (*model.Game, error) {
	game := &model.Game{}
	var source string
	var rating, ratingRaw sql.NullFloat64
	var releaseDate sql.NullTime
	var platforms, genres pq.StringArray

	err := row.Scan(
		&game.ID, &source, &game.ExternalID, &game.Name, &game.Summary,
		&rating, &ratingRaw, &game.RatingScale, &releaseDate,
		&platforms, &genres, &game.CoverURL, &game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	game.Source = model.GameSource(source)
	if rating.Valid {
		game.Rating = &rating.Float64
	}
	if ratingRaw.Valid {
		game.RatingRaw = &ratingRaw.Float64
	}
	if releaseDate.Valid {
		game.ReleaseDate = &releaseDate.Time
	}
	game.Platforms = []string(platforms)
	game.Genres = []string(genres)

	return game, nil
}

// compile-time interface check
var _ GameRepository = (*PostgresGameRepo)(nil)
