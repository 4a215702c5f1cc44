// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/gamedex/internal/model"
)

// ErrNotFound は対象レコードが存在しない場合に返されるエラー。
// errors.Isで判定できるよう、全リポジトリ実装で共通の番兵として使用する。
var ErrNotFound = errors.New("record not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// UpsertByTwitchID はtwitch_idをキーにユーザーをUPSERTする。
	// 未登録なら候補レコードをそのまま作成し、登録済みなら
	// username、email、avatar_url、updated_atを更新する。
	// いずれの場合も永続化された最新のレコードを返す。
	// twitch_idのUNIQUE制約により、同時実行でも重複レコードは発生しない。
	UpsertByTwitchID(ctx context.Context, candidate *model.User) (*model.User, error)
}

// GameRepository はゲームカタログの永続化インターフェース。
type GameRepository interface {
	// FindByID は指定IDのゲームを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Game, error)

	// List はフィルタ条件に一致するゲームをcreated_at降順で取得する。
	// 絞り込みはすべてSQL側で行い、アプリケーション側での後処理は不要。
	List(ctx context.Context, filter model.GameListFilter) ([]*model.Game, error)

	// InsertBatch はゲームを単一トランザクションで一括挿入し、挿入件数を返す。
	// 1件でも失敗した場合は全件ロールバックされ、0件が挿入される。
	InsertBatch(ctx context.Context, games []*model.Game) (int, error)

	// DeleteByID は指定IDのゲームを削除する。
	// 対象が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error
}
