package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims はセッショントークンに含まれるクレーム。
type SessionClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService はセッショントークンの発行と検証のインターフェースを定義する。
// トークンはHS256で署名されたJWTで、HTTP-only Cookieとしてクライアントに渡される。
type TokenService interface {
	// Mint はユーザー情報からセッショントークンを発行する。
	Mint(userID, username string) (string, error)
	// Verify はトークン文字列を検証し、クレームを返す。
	// 署名不正、期限切れ、形式不正の場合はエラーを返す。
	Verify(tokenString string) (*SessionClaims, error)
}

// tokenService はTokenServiceの実装。
type tokenService struct {
	secret []byte
	maxAge time.Duration
}

// NewTokenService はTokenServiceの新しいインスタンスを生成する。
// maxAgeはトークンの有効期間（通常は7日間）。
func NewTokenService(secret string, maxAge time.Duration) *tokenService {
	return &tokenService{
		secret: []byte(secret),
		maxAge: maxAge,
	}
}

// Mint はユーザー情報からセッショントークンを発行する。
func (s *tokenService) Mint(userID, username string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify はトークン文字列を検証し、クレームを返す。
// HMAC以外の署名方式（alg none攻撃等）は拒否する。
func (s *tokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session token")
	}
	if claims.UserID == "" {
		return nil, errors.New("missing user ID in session token")
	}

	return claims, nil
}

// compile-time interface check
var _ TokenService = (*tokenService)(nil)
