// Package catalog はゲームカタログのビジネスロジックを提供する。
// 外部プロバイダー（IGDB、RAWG）からの並行取得と一括保存、
// 一覧取得、削除を含む。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/gamedex/internal/metrics"
	"github.com/hitoshi/gamedex/internal/model"
	"github.com/hitoshi/gamedex/internal/repository"
	"github.com/hitoshi/gamedex/internal/security"
)

const (
	// DefaultListLimit は一覧取得のデフォルト件数。
	DefaultListLimit = 50
	// MaxListLimit は一覧取得の最大件数。
	MaxListLimit = 200
	// DefaultPopulateLimit はプロバイダーごとのデフォルト取得件数。
	DefaultPopulateLimit = 20
)

// ProviderClient は外部ゲームAPIクライアントのインターフェース。
// igdb.Clientとrawg.Clientが実装する。
type ProviderClient interface {
	// Source は取得元の識別子を返す。
	Source() model.GameSource
	// FetchGames は最大limit件のゲームを取得する。
	FetchGames(ctx context.Context, limit int) ([]*model.Game, error)
}

// Service はゲームカタログに関するビジネスロジックを提供する。
type Service struct {
	providers []ProviderClient
	gameRepo  repository.GameRepository
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	providers []ProviderClient,
	gameRepo repository.GameRepository,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		providers: providers,
		gameRepo:  gameRepo,
		sanitizer: sanitizer,
		metrics:   collector,
	}
}

// List はフィルタ条件に一致するゲームを新着順で取得する。
// Limitが未指定（0以下）の場合はDefaultListLimit、上限超過の場合はMaxListLimitに丸める。
func (s *Service) List(ctx context.Context, filter model.GameListFilter) ([]*model.Game, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}

	games, err := s.gameRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// Populate は全プロバイダーからゲームを並行取得し、一括保存する。
// limitPerSourceが0以下の場合はDefaultPopulateLimitを使用する。
//
// いずれかのプロバイダーが失敗した場合は全体を失敗とし、1件も保存しない。
// 保存は単一トランザクションで行うため、部分的な挿入は発生しない。
// 成功時は挿入件数を返す。
func (s *Service) Populate(ctx context.Context, limitPerSource int) (int, error) {
	if limitPerSource <= 0 {
		limitPerSource = DefaultPopulateLimit
	}

	// 各プロバイダーを並行実行する。最初のエラーで他をキャンセルする。
	g, gctx := errgroup.WithContext(ctx)
	results := make([][]*model.Game, len(s.providers))

	for i, provider := range s.providers {
		i, provider := i, provider
		g.Go(func() error {
			source := string(provider.Source())
			start := time.Now()

			games, err := provider.FetchGames(gctx, limitPerSource)
			s.metrics.RecordProviderLatency(source, time.Since(start))
			if err != nil {
				s.metrics.RecordProviderFailure(source, "fetch")
				return fmt.Errorf("provider %s: %w", source, err)
			}

			s.metrics.RecordProviderSuccess(source)
			results[i] = games
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("catalog fetch failed", slog.String("error", err.Error()))
		return 0, model.NewUpstreamFetchFailedError(err.Error())
	}

	// 保存前の仕上げ: ID・作成日時の付与とあらすじのサニタイズ
	now := time.Now()
	var all []*model.Game
	for _, games := range results {
		for _, game := range games {
			game.ID = uuid.New().String()
			game.Summary = s.sanitizer.SanitizeText(game.Summary)
			game.CreatedAt = now
			all = append(all, game)
		}
	}

	count, err := s.gameRepo.InsertBatch(ctx, all)
	if err != nil {
		return 0, fmt.Errorf("failed to insert games: %w", err)
	}

	s.metrics.RecordGamesInserted(count)
	slog.Info("catalog populated",
		slog.Int("count", count),
		slog.Int("limit_per_source", limitPerSource),
	)

	return count, nil
}

// Delete は指定IDのゲームを削除する。
// 対象が存在しない場合はrepository.ErrNotFoundを透過する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.gameRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	slog.Info("game deleted", slog.String("game_id", id))
	return nil
}
