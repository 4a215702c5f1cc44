// Package igdb はIGDB APIからのゲーム情報取得を提供する。
// IGDBはTwitchのclient credentialsトークンで認証するため、
// トークンの取得と有効期限付きキャッシュも本パッケージが担当する。
package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/gamedex/internal/model"
)

const (
	// defaultTokenURL はTwitchのclient credentialsトークンエンドポイント。
	defaultTokenURL = "https://id.twitch.tv/oauth2/token"
	// tokenExpirySlack はトークン期限の安全マージン。
	// 期限ぎりぎりのトークンで後続リクエストが失敗しないよう、early refreshする。
	tokenExpirySlack = 60 * time.Second
	// fetchPoolSize はAPIから取得する候補件数。この中からlimit件をランダムに選ぶ。
	fetchPoolSize = 100
	// minRatingFilter はIGDB側で絞り込む評価の下限（100点満点）。
	minRatingFilter = 70
)

// Client はIGDB APIのクライアント。
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	clientID     string
	clientSecret string
	apiURL       string
	tokenURL     string // テスト用にエンドポイントを差し替え可能

	// アクセストークンのキャッシュ。
	// 期限内は再利用し、期限切れ（スラック込み）で再取得する。
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient はClientの新しいインスタンスを生成する。
// clientID/clientSecretはTwitchアプリケーションの認証情報で、
// OAuthログインと同じものを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, clientID, clientSecret, apiURL string) *Client {
	return &Client{
		httpClient:   httpClient,
		logger:       logger,
		clientID:     clientID,
		clientSecret: clientSecret,
		apiURL:       strings.TrimSuffix(apiURL, "/"),
		tokenURL:     defaultTokenURL,
	}
}

// Source は取得元の識別子を返す。
func (c *Client) Source() model.GameSource {
	return model.GameSourceIGDB
}

// igdbGame はIGDB APIのゲームレスポンス。
type igdbGame struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Summary          string     `json:"summary"`
	Rating           *float64   `json:"rating"`
	FirstReleaseDate int64      `json:"first_release_date"`
	Platforms        []igdbName `json:"platforms"`
	Genres           []igdbName `json:"genres"`
	Cover            *igdbCover `json:"cover"`
}

type igdbName struct {
	Name string `json:"name"`
}

type igdbCover struct {
	ImageID string `json:"image_id"`
}

// tokenResponse はTwitchのトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// FetchGames は評価の高いゲームを最大100件取得し、その中からlimit件を
// ランダムに選んで返す。呼び出すたびに異なる組み合わせが返る。
// 返されるゲームのIDとCreatedAtは未設定で、保存時に呼び出し元が付与する。
func (c *Client) FetchGames(ctx context.Context, limit int) ([]*model.Game, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limitは正の値である必要があります: %d", limit)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("IGDBトークンの取得に失敗しました: %w", err)
	}

	// APIcalypseクエリ: 評価付きかつ70点超のゲームを100件取得する
	query := fmt.Sprintf(
		"fields name, summary, rating, first_release_date, platforms.name, genres.name, cover.image_id; where rating != null & rating > %d; limit %d;",
		minRatingFilter, fetchPoolSize,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/games", strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("IGDB APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("IGDB APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("IGDB APIがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}

	var igdbGames []igdbGame
	if err := json.Unmarshal(body, &igdbGames); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	// 候補からlimit件をランダムに選ぶ
	rand.Shuffle(len(igdbGames), func(i, j int) {
		igdbGames[i], igdbGames[j] = igdbGames[j], igdbGames[i]
	})
	if len(igdbGames) > limit {
		igdbGames = igdbGames[:limit]
	}

	games := make([]*model.Game, 0, len(igdbGames))
	for _, g := range igdbGames {
		games = append(games, c.toGame(g))
	}

	c.logger.Info("IGDBからゲームを取得しました", slog.Int("count", len(games)))
	return games, nil
}

// toGame はIGDBのレスポンスをドメインモデルに変換する。
// ratingは100点満点のため、保存前に5点満点へ正規化する。
func (c *Client) toGame(g igdbGame) *model.Game {
	game := &model.Game{
		Source:      model.GameSourceIGDB,
		ExternalID:  strconv.FormatInt(g.ID, 10),
		Name:        g.Name,
		Summary:     g.Summary,
		RatingScale: model.RatingScale100,
	}

	if g.Rating != nil {
		normalized := model.NormalizeRating(*g.Rating, model.RatingScale100)
		game.Rating = &normalized
		game.RatingRaw = g.Rating
	}
	if g.FirstReleaseDate > 0 {
		released := time.Unix(g.FirstReleaseDate, 0).UTC()
		game.ReleaseDate = &released
	}
	for _, p := range g.Platforms {
		game.Platforms = append(game.Platforms, p.Name)
	}
	for _, gn := range g.Genres {
		game.Genres = append(game.Genres, gn.Name)
	}
	if g.Cover != nil && g.Cover.ImageID != "" {
		game.CoverURL = fmt.Sprintf("https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg", g.Cover.ImageID)
	}

	return game
}

// accessToken はキャッシュされたアクセストークンを返す。
// 未取得または期限切れ（スラック込み）の場合はclient credentialsフローで再取得する。
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.token, nil
	}

	params := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("トークンリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("トークンリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("トークンレスポンスの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("トークンエンドポイントがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("トークンレスポンスのパースに失敗しました: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("トークンレスポンスにaccess_tokenが含まれていません")
	}

	c.token = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	c.logger.Info("IGDBアクセストークンを更新しました",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.token, nil
}
