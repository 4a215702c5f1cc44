package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gamedex/internal/middleware"
	"github.com/hitoshi/gamedex/internal/model"
	"github.com/hitoshi/gamedex/internal/repository"
)

// GameServiceInterface はゲームハンドラーが必要とするサービスインターフェース。
type GameServiceInterface interface {
	// List はフィルタ条件に合致するゲームを新着順で返す。
	List(ctx context.Context, filter model.GameListFilter) ([]*model.Game, error)
	// Populate は全プロバイダーから並行取得して一括挿入し、挿入件数を返す。
	Populate(ctx context.Context, limitPerSource int) (int, error)
	// Delete はIDでゲームを削除する。
	Delete(ctx context.Context, id string) error
}

// GameHandler はゲームカタログのHTTPハンドラー。
type GameHandler struct {
	service GameServiceInterface
	// limit_per_sourceクエリパラメータ省略時に使用するプロバイダーあたりの取得件数
	defaultLimitPerSource int
}

// NewGameHandler はGameHandlerを生成する。
func NewGameHandler(service GameServiceInterface, defaultLimitPerSource int) *GameHandler {
	return &GameHandler{
		service:               service,
		defaultLimitPerSource: defaultLimitPerSource,
	}
}

// gameResponse はゲーム情報のAPIレスポンス。
type gameResponse struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	ExternalID  string   `json:"external_id"`
	Name        string   `json:"name"`
	Summary     string   `json:"summary"`
	Rating      *float64 `json:"rating"`
	RatingRaw   *float64 `json:"rating_raw"`
	RatingScale int      `json:"rating_scale"`
	ReleaseDate *string  `json:"release_date"`
	Platforms   []string `json:"platforms"`
	Genres      []string `json:"genres"`
	CoverURL    string   `json:"cover_url"`
	CreatedAt   string   `json:"created_at"`
}

// gameListResponse はゲーム一覧のAPIレスポンス。
type gameListResponse struct {
	Games []gameResponse `json:"games"`
	Count int            `json:"count"`
}

// populateResponse はカタログ更新のAPIレスポンス。
type populateResponse struct {
	Count int `json:"count"`
}

// ListGames はゲーム一覧を返す。
// GET /api/games?limit=N&q=xxx&source=igdb&min_rating=4.0
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r)
	if !ok {
		return
	}

	games, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := gameListResponse{
		Games: make([]gameResponse, len(games)),
		Count: len(games),
	}
	for i, g := range games {
		resp.Games[i] = toGameResponse(g)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// PopulateGames は外部カタログからゲームを取得してDBに一括挿入する。
// GET /api/games/populate?limit_per_source=N
func (h *GameHandler) PopulateGames(w http.ResponseWriter, r *http.Request) {
	limitPerSource := h.defaultLimitPerSource
	if raw := r.URL.Query().Get("limit_per_source"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidLimitError(raw))
			return
		}
		limitPerSource = n
	}

	count, err := h.service.Populate(r.Context(), limitPerSource)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(populateResponse{Count: count})
}

// DeleteGame はゲームを削除する。
// DELETE /api/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), gameID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewGameNotFoundError(gameID))
			return
		}
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// parseListFilter はクエリパラメータからGameListFilterを組み立てる。
// 不正な値の場合はエラーレスポンスを書き込み、okにfalseを返す。
func parseListFilter(w http.ResponseWriter, r *http.Request) (model.GameListFilter, bool) {
	var filter model.GameListFilter

	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidLimitError(raw))
			return filter, false
		}
		filter.Limit = n
	}

	filter.Query = q.Get("q")

	if raw := q.Get("source"); raw != "" {
		source := model.GameSource(raw)
		if !source.IsValid() {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidSourceError(raw))
			return filter, false
		}
		filter.Source = source
	}

	if raw := q.Get("min_rating"); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil || minRating < 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_MIN_RATING",
				Message:  "min_ratingの値が不正です。",
				Category: "validation",
				Action:   "0以上の数値を指定してください。",
			})
			return filter, false
		}
		filter.MinRating = &minRating
	}

	return filter, true
}

// toGameResponse はmodel.GameからAPIレスポンスに変換する。
func toGameResponse(g *model.Game) gameResponse {
	resp := gameResponse{
		ID:          g.ID,
		Source:      string(g.Source),
		ExternalID:  g.ExternalID,
		Name:        g.Name,
		Summary:     g.Summary,
		Rating:      g.Rating,
		RatingRaw:   g.RatingRaw,
		RatingScale: g.RatingScale,
		Platforms:   g.Platforms,
		Genres:      g.Genres,
		CoverURL:    g.CoverURL,
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
	if g.ReleaseDate != nil {
		d := g.ReleaseDate.Format("2006-01-02")
		resp.ReleaseDate = &d
	}
	return resp
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeGameNotFound:
		return http.StatusNotFound
	case model.ErrCodeUpstreamFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeInvalidSource, model.ErrCodeInvalidLimit:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
