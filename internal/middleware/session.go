// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/gamedex/internal/auth"
	"github.com/hitoshi/gamedex/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "auth_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// usernameContextKey はリクエストコンテキストにユーザー名を格納するためのキー。
var usernameContextKey = contextKey("username")

// NewSessionMiddleware はHTTP Only CookieからセッショントークンJWTを読み取り、
// 署名と有効期限を検証するミドルウェアを返す。
// 検証済みのユーザーIDとユーザー名をリクエストコンテキストに注入する。
// 未認証リクエストには401を統一エラーフォーマットで返す。
// トークンの形式不正と期限切れはレスポンス上では区別しない。
func NewSessionMiddleware(tokens auth.TokenService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからトークンを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			// 2. トークンを検証
			claims, err := tokens.Verify(cookie.Value)
			if err != nil {
				slog.Debug("session token rejected",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			// 3. 検証済みクレームをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, claims.UserID)
			ctx = context.WithValue(ctx, usernameContextKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// UsernameFromContext はリクエストコンテキストからユーザー名を取得する。
func UsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameContextKey).(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// ContextWithUser はコンテキストにユーザーIDとユーザー名を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, userID)
	return context.WithValue(ctx, usernameContextKey, username)
}
