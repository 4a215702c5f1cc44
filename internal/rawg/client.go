// Package rawg はRAWG APIからのゲーム情報取得を提供する。
package rawg

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
	"time"

	"github.com/hitoshi/gamedex/internal/model"
)

const (
	// fetchPageSize はAPIから取得する候補件数。この中からlimit件をランダムに選ぶ。
	fetchPageSize = 40
	// releaseDateLayout はRAWGのreleasedフィールドの日付形式。
	releaseDateLayout = "2006-01-02"
)

// Client はRAWG APIのクライアント。
// APIキーによる認証で、トークン管理は不要。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	apiURL     string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey, apiURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		apiURL:     strings.TrimSuffix(apiURL, "/"),
	}
}

// Source は取得元の識別子を返す。
func (c *Client) Source() model.GameSource {
	return model.GameSourceRAWG
}

// rawgListResponse はRAWGのゲーム一覧レスポンス。
type rawgListResponse struct {
	Results []rawgGame `json:"results"`
}

// rawgGame はRAWG APIのゲームレスポンス。
type rawgGame struct {
	ID              int64          `json:"id"`
	Slug            string         `json:"slug"`
	Name            string         `json:"name"`
	DescriptionRaw  string         `json:"description_raw"`
	Rating          *float64       `json:"rating"`
	Released        string         `json:"released"`
	Platforms       []rawgPlatform `json:"platforms"`
	Genres          []rawgName     `json:"genres"`
	BackgroundImage string         `json:"background_image"`
}

type rawgPlatform struct {
	Platform rawgName `json:"platform"`
}

type rawgName struct {
	Name string `json:"name"`
}

// FetchGames は評価の高い順にゲームを40件取得し、その中からlimit件を
// ランダムに選んで返す。呼び出すたびに異なる組み合わせが返る。
// 返されるゲームのIDとCreatedAtは未設定で、保存時に呼び出し元が付与する。
func (c *Client) FetchGames(ctx context.Context, limit int) ([]*model.Game, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limitは正の値である必要があります: %d", limit)
	}

	params := url.Values{
		"key":       {c.apiKey},
		"page_size": {strconv.Itoa(fetchPageSize)},
		"ordering":  {"-rating"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/games?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("RAWG APIの呼び出しに失敗しました",
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
		c.logger.Error("RAWG APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("RAWG APIがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}

	var listResp rawgListResponse
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	results := listResp.Results
	rand.Shuffle(len(results), func(i, j int) {
		results[i], results[j] = results[j], results[i]
	})
	if len(results) > limit {
		results = results[:limit]
	}

	games := make([]*model.Game, 0, len(results))
	for _, g := range results {
		games = append(games, c.toGame(g))
	}

	c.logger.Info("RAWGからゲームを取得しました", slog.Int("count", len(games)))
	return games, nil
}

// toGame はRAWGのレスポンスをドメインモデルに変換する。
// RAWGのratingは元々5点満点のため、正規化しても値は変わらない。
// 一覧APIはdescription_rawを返さないことがあり、その場合はslugで補完する。
func (c *Client) toGame(g rawgGame) *model.Game {
	summary := g.DescriptionRaw
	if summary == "" {
		summary = g.Slug
	}

	game := &model.Game{
		Source:      model.GameSourceRAWG,
		ExternalID:  strconv.FormatInt(g.ID, 10),
		Name:        g.Name,
		Summary:     summary,
		RatingScale: model.RatingScale5,
		CoverURL:    g.BackgroundImage,
	}

	if g.Rating != nil {
		normalized := model.NormalizeRating(*g.Rating, model.RatingScale5)
		game.Rating = &normalized
		game.RatingRaw = g.Rating
	}
	if g.Released != "" {
		if released, err := time.Parse(releaseDateLayout, g.Released); err == nil {
			game.ReleaseDate = &released
		} else {
			c.logger.Warn("RAWGのリリース日のパースに失敗しました",
				slog.String("released", g.Released),
				slog.String("game", g.Name),
			)
		}
	}
	for _, p := range g.Platforms {
		game.Platforms = append(game.Platforms, p.Platform.Name)
	}
	for _, gn := range g.Genres {
		game.Genres = append(game.Genres, gn.Name)
	}

	return game
}
