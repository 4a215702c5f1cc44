// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Twitchの安定ID（TwitchID）で一意に識別され、初回ログイン時に自動作成される。
// プロフィール項目（Username, Email, AvatarURL）はログインのたびにTwitch側の値で上書きされる。
type User struct {
	ID        string
	TwitchID  string
	Username  string
	Email     string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}
