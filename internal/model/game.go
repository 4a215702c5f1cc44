// Package model はドメインモデルを定義する。
package model

import "time"

// GameSource はゲームの取得元カタログプロバイダーを表す。
type GameSource string

const (
	// GameSourceIGDB はIGDB（Twitch）カタログを表す。
	GameSourceIGDB GameSource = "igdb"
	// GameSourceRAWG はRAWGカタログを表す。
	GameSourceRAWG GameSource = "rawg"
)

// IsValid はGameSourceが定義済みの値かどうかを判定する。
func (s GameSource) IsValid() bool {
	return s == GameSourceIGDB || s == GameSourceRAWG
}

// 評価値の元スケール。プロバイダーごとに異なる。
const (
	// RatingScale100 は0〜100スケール（IGDB）。
	RatingScale100 = 100
	// RatingScale5 は0〜5スケール（RAWG）。
	RatingScale5 = 5
)

// Game は外部カタログから取得した正規化済みのゲームレコードを表す。
// (Source, ExternalID) の組は本来一意だが、一意制約は設けない——
// populateを繰り返すと重複が入り得る（仕様上の許容）。
type Game struct {
	ID          string
	Source      GameSource
	ExternalID  string
	Name        string
	Summary     string   // サニタイズ済み
	Rating      *float64 // 共通0〜5スケールに正規化済み。評価なしはnil
	RatingRaw   *float64 // プロバイダーの生の評価値
	RatingScale int      // RatingRawのスケール（RatingScale100 | RatingScale5）
	ReleaseDate *time.Time
	Platforms   []string
	Genres      []string
	CoverURL    string
	CreatedAt   time.Time
}

// NormalizeRating は生の評価値を共通の0〜5スケールに変換する。
// 0〜100スケールは20で割る（84 → 4.2）。0〜5スケールはそのまま返す。
// 未知のスケールは0〜5とみなす。
func NormalizeRating(raw float64, scale int) float64 {
	if scale == RatingScale100 {
		return raw / 20.0
	}
	return raw
}

// GameListFilter はゲーム一覧取得のフィルタ条件を表す。
// ゼロ値のフィールドは条件として適用されない。
type GameListFilter struct {
	// Query はゲーム名の部分一致検索（大文字小文字を区別しない）。
	Query string
	// Source は取得元プロバイダーの完全一致。空文字は全プロバイダー。
	Source GameSource
	// MinRating は正規化済み評価（0〜5）の下限。
	// 指定時は評価なし（Rating IS NULL）のゲームを除外する。
	MinRating *float64
	// Limit は最大取得件数。0以下の場合はデフォルト値が適用される。
	Limit int
}
