// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeGameNotFound        = "GAME_NOT_FOUND"
	ErrCodeUpstreamFetchFailed = "UPSTREAM_FETCH_FAILED"
	ErrCodeInvalidSource       = "INVALID_SOURCE"
	ErrCodeInvalidLimit        = "INVALID_LIMIT"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は未認証エラーを生成する。
// トークンの不正と期限切れを区別しない（情報漏えい防止のため詳細は含めない）。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewGameNotFoundError はゲーム未検出エラーを生成する。
func NewGameNotFoundError(gameID string) *APIError {
	return &APIError{
		Code:     ErrCodeGameNotFound,
		Message:  fmt.Sprintf("指定されたゲームが見つかりません: %s", gameID),
		Category: "catalog",
		Action:   "ゲームIDを確認してください。",
	}
}

// NewUpstreamFetchFailedError はカタログプロバイダーからの取得失敗エラーを生成する。
// 片方のプロバイダーが失敗した場合も集約してこのエラーになる（部分結果は返さない）。
func NewUpstreamFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFetchFailed,
		Message:  fmt.Sprintf("カタログプロバイダーからの取得に失敗しました: %s", reason),
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidSourceError は無効なプロバイダー指定エラーを生成する。
func NewInvalidSourceError(source string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSource,
		Message:  fmt.Sprintf("無効なプロバイダーです: %s", source),
		Category: "validation",
		Action:   "source には igdb または rawg を指定してください。",
	}
}

// NewInvalidLimitError は無効な件数指定エラーを生成する。
func NewInvalidLimitError(limit string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLimit,
		Message:  fmt.Sprintf("無効な件数指定です: %s", limit),
		Category: "validation",
		Action:   "limit には正の整数を指定してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
