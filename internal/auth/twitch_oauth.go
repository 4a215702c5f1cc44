package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultTwitchAuthURL  = "https://id.twitch.tv/oauth2/authorize"
	defaultTwitchTokenURL = "https://id.twitch.tv/oauth2/token"
	defaultTwitchUsersURL = "https://api.twitch.tv/helix/users"
)

// TwitchOAuthConfig はTwitch OAuthプロバイダーの設定。
type TwitchOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
	UsersURL string
}

// TwitchOAuthProvider はTwitch OAuth 2.0による認証を提供する。
type TwitchOAuthProvider struct {
	config     TwitchOAuthConfig
	httpClient *http.Client
}

// NewTwitchOAuthProvider はTwitchOAuthProviderを生成する。
// httpClientにはSSRF防止付きクライアントを渡すこと。
func NewTwitchOAuthProvider(config TwitchOAuthConfig, httpClient *http.Client) *TwitchOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultTwitchAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTwitchTokenURL
	}
	if config.UsersURL == "" {
		config.UsersURL = defaultTwitchUsersURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TwitchOAuthProvider{config: config, httpClient: httpClient}
}

// GetLoginURL はTwitch OAuthの認証URLを生成する。
// スコープにはuser:read:email（メールアドレス取得）を含む。
func (p *TwitchOAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"user:read:email"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// twitchTokenResponse はTwitchのトークンエンドポイントのレスポンス。
type twitchTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// twitchUsersResponse はHelix Users APIのレスポンス。
// 認証済みトークンでクエリパラメータなしで呼び出すと、
// トークンの所有者1件がdataに含まれる。
type twitchUsersResponse struct {
	Data []twitchUser `json:"data"`
}

// twitchUser はHelix Users APIが返すユーザー情報。
type twitchUser struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profile_image_url"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *TwitchOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	// 1. 認可コードをアクセストークンに交換
	tokenResp, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// 2. アクセストークンでユーザー情報を取得
	user, err := p.fetchUser(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	username := user.DisplayName
	if username == "" {
		username = user.Login
	}

	return &OAuthUserInfo{
		ProviderUserID: user.ID,
		Username:       username,
		Email:          user.Email,
		AvatarURL:      user.ProfileImageURL,
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *TwitchOAuthProvider) exchangeToken(ctx context.Context, code string) (*twitchTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp twitchTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, nil
}

// fetchUser はアクセストークンでHelix Users APIからユーザー情報を取得する。
// HelixはAuthorizationヘッダーに加えてClient-Idヘッダーを必須とする。
func (p *TwitchOAuthProvider) fetchUser(ctx context.Context, accessToken string) (*twitchUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UsersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Client-Id", p.config.ClientID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var usersResp twitchUsersResponse
	if err := json.Unmarshal(body, &usersResp); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if len(usersResp.Data) == 0 {
		return nil, fmt.Errorf("empty data in user info response")
	}
	if usersResp.Data[0].ID == "" {
		return nil, fmt.Errorf("empty user ID in user info response")
	}

	return &usersResp.Data[0], nil
}

// compile-time interface check
var _ OAuthProvider = (*TwitchOAuthProvider)(nil)
