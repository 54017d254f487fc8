package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
)

// RatingPoints - глобальные дельты рейтинга.
type RatingPoints struct {
	Win     int
	Draw    int
	Loss    int
	Initial int
}

func DefaultRatingPoints() RatingPoints {
	return RatingPoints{Win: 3, Draw: 1, Loss: -5, Initial: 100}
}

// ApplyOutcome returns the rating record after one more match with the given outcome.
// Live confirmations and full recalculation both go through here.
func ApplyOutcome(prior models.RatingRecord, outcome models.Outcome, pts RatingPoints) models.RatingRecord {
	next := prior
	next.MatchesPlayed++
	switch outcome {
	case models.OutcomeWin:
		next.Wins++
		next.Rating += pts.Win
		if prior.CurrentStreak >= 0 {
			next.CurrentStreak = prior.CurrentStreak + 1
		} else {
			next.CurrentStreak = 1
		}
	case models.OutcomeLoss:
		next.Losses++
		next.Rating += pts.Loss
		if prior.CurrentStreak <= 0 {
			next.CurrentStreak = prior.CurrentStreak - 1
		} else {
			next.CurrentStreak = -1
		}
	default:
		next.Draws++
		next.Rating += pts.Draw
		next.CurrentStreak = 0
	}
	return next
}

type RatingService interface {
	// ApplyMatch updates both players for a newly confirmed match inside exec's transaction.
	ApplyMatch(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error
	// RecalculateAll resets every rating and replays all confirmed matches. Returns the replayed count.
	RecalculateAll(ctx context.Context) (int, error)
	TopPlayers(ctx context.Context, limit int) ([]*models.User, error)
	AllRanked(ctx context.Context) ([]*models.User, error)
	Points() RatingPoints
}

type ratingService struct {
	tx        repositories.Transactor
	userRepo  repositories.UserRepository
	matchRepo repositories.MatchRepository
	points    RatingPoints
	metrics   *Metrics
	logger    *slog.Logger
}

func NewRatingService(
	tx repositories.Transactor,
	userRepo repositories.UserRepository,
	matchRepo repositories.MatchRepository,
	points RatingPoints,
	metrics *Metrics,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		tx:        tx,
		userRepo:  userRepo,
		matchRepo: matchRepo,
		points:    points,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *ratingService) Points() RatingPoints {
	return s.points
}

func (s *ratingService) ApplyMatch(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	if !m.HasScore() {
		return fmt.Errorf("match %d has no score to rate", m.ID)
	}
	if err := s.userRepo.LockRatings(ctx, exec, false); err != nil {
		return fmt.Errorf("failed to acquire rating lock: %w", err)
	}
	for _, uid := range uniqueSortedIDs(m.Player1ID, m.Player2ID) {
		u, err := s.userRepo.GetByID(ctx, exec, uid, true)
		if err != nil {
			return fmt.Errorf("rating for user %d: %w", uid, handleRepositoryError(err))
		}
		scored, conceded := m.GoalsFor(uid)
		next := ApplyOutcome(u.RatingRecord, models.OutcomeFor(scored, conceded), s.points)
		if err := s.userRepo.UpdateRating(ctx, exec, uid, next); err != nil {
			return fmt.Errorf("failed to update rating for user %d: %w", uid, err)
		}
	}
	return nil
}

func (s *ratingService) RecalculateAll(ctx context.Context) (int, error) {
	replayed := 0
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.userRepo.LockRatings(ctx, exec, true); err != nil {
			return fmt.Errorf("failed to acquire rating lock: %w", err)
		}
		if err := s.userRepo.ResetRatings(ctx, exec, s.points.Initial); err != nil {
			return fmt.Errorf("failed to reset ratings: %w", err)
		}
		matches, err := s.matchRepo.List(ctx, exec, repositories.MatchFilter{
			Statuses: []models.MatchStatus{models.MatchConfirmed},
			Order:    repositories.OrderByConfirmation,
		})
		if err != nil {
			return fmt.Errorf("failed to load confirmed matches: %w", err)
		}

		records := make(map[int64]models.RatingRecord)
		for _, m := range matches {
			if !m.HasScore() {
				continue
			}
			for _, uid := range []int64{m.Player1ID, m.Player2ID} {
				rec, ok := records[uid]
				if !ok {
					rec = models.RatingRecord{Rating: s.points.Initial}
				}
				scored, conceded := m.GoalsFor(uid)
				records[uid] = ApplyOutcome(rec, models.OutcomeFor(scored, conceded), s.points)
			}
			replayed++
		}

		ids := make([]int64, 0, len(records))
		for uid := range records {
			ids = append(ids, uid)
		}
		for _, uid := range uniqueSortedIDs(ids...) {
			if err := s.userRepo.UpdateRating(ctx, exec, uid, records[uid]); err != nil {
				return fmt.Errorf("failed to store rating for user %d: %w", uid, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.RatingRecalculated()
	s.logger.InfoContext(ctx, "ratings recalculated", slog.Int("matches", replayed))
	return replayed, nil
}

func (s *ratingService) TopPlayers(ctx context.Context, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.userRepo.ListRanked(ctx, nil, limit)
}

func (s *ratingService) AllRanked(ctx context.Context) ([]*models.User, error) {
	return s.userRepo.ListRanked(ctx, nil, 0)
}
