package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
)

const minMatchesForWinRate = 3

// ExtractRecords derives tournament achievements from participant stats (registration
// order) and confirmed matches (confirmation order). Ties go to the first participant encountered.
func ExtractRecords(tournamentID int, participants []*models.Participant, matches []*models.Match) []*models.TournamentRecord {
	var out []*models.TournamentRecord
	add := func(t models.RecordType, userID int64, value float64, desc string) {
		out = append(out, &models.TournamentRecord{
			TournamentID: tournamentID,
			RecordType:   t,
			UserID:       userID,
			Value:        value,
			Description:  desc,
		})
	}

	var topScorer, bestDefense, bestRate, mostDraws *models.Participant
	var bestRateValue float64
	for _, p := range participants {
		if topScorer == nil || p.GoalsFor > topScorer.GoalsFor {
			topScorer = p
		}
		if p.MatchesPlayed > 0 && (bestDefense == nil || p.GoalsAgainst < bestDefense.GoalsAgainst) {
			bestDefense = p
		}
		if p.MatchesPlayed >= minMatchesForWinRate {
			rate := float64(p.Wins) / float64(p.MatchesPlayed) * 100
			if bestRate == nil || rate > bestRateValue {
				bestRate, bestRateValue = p, rate
			}
		}
		if mostDraws == nil || p.Draws > mostDraws.Draws {
			mostDraws = p
		}
	}

	if topScorer != nil && topScorer.GoalsFor > 0 {
		add(models.RecordTopScorer, topScorer.UserID, float64(topScorer.GoalsFor),
			fmt.Sprintf("%d goals scored", topScorer.GoalsFor))
	}
	if bestDefense != nil {
		add(models.RecordBestDefense, bestDefense.UserID, float64(bestDefense.GoalsAgainst),
			fmt.Sprintf("%d goals conceded in %d matches", bestDefense.GoalsAgainst, bestDefense.MatchesPlayed))
	}
	if bestRate != nil && bestRateValue > 0 {
		add(models.RecordBestWinRate, bestRate.UserID, bestRateValue,
			fmt.Sprintf("%.1f%% wins in %d matches", bestRateValue, bestRate.MatchesPlayed))
	}
	if mostDraws != nil && mostDraws.Draws > 0 {
		add(models.RecordMostDraws, mostDraws.UserID, float64(mostDraws.Draws),
			fmt.Sprintf("%d draws", mostDraws.Draws))
	}

	var defeat *models.Match
	defeatMargin := 0
	streaks := make(map[int64]int)
	var streakHolder int64
	bestStreak := 0
	for _, m := range matches {
		if !m.HasScore() {
			continue
		}
		s1, s2 := *m.Player1Score, *m.Player2Score
		margin := s1 - s2
		if margin < 0 {
			margin = -margin
		}
		if margin > defeatMargin {
			defeat, defeatMargin = m, margin
		}

		switch models.OutcomeFor(s1, s2) {
		case models.OutcomeWin:
			streaks[m.Player1ID]++
			streaks[m.Player2ID] = 0
			if streaks[m.Player1ID] > bestStreak {
				bestStreak, streakHolder = streaks[m.Player1ID], m.Player1ID
			}
		case models.OutcomeLoss:
			streaks[m.Player2ID]++
			streaks[m.Player1ID] = 0
			if streaks[m.Player2ID] > bestStreak {
				bestStreak, streakHolder = streaks[m.Player2ID], m.Player2ID
			}
		default:
			streaks[m.Player1ID] = 0
			streaks[m.Player2ID] = 0
		}
	}

	if defeat != nil {
		loser := defeat.Player1ID
		if *defeat.Player1Score > *defeat.Player2Score {
			loser = defeat.Player2ID
		}
		scored, conceded := defeat.GoalsFor(loser)
		add(models.RecordBiggestDefeat, loser, float64(defeatMargin),
			fmt.Sprintf("lost %d:%d in round %d", scored, conceded, defeat.RoundNumber))
	}
	if bestStreak >= 2 {
		add(models.RecordBestWinStreak, streakHolder, float64(bestStreak),
			fmt.Sprintf("%d wins in a row", bestStreak))
	}

	return out
}

type RecordsService interface {
	// Rebuild replaces the tournament's records inside exec's transaction.
	Rebuild(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.TournamentRecord, error)
	Calculate(ctx context.Context, tournamentID int) ([]*models.TournamentRecord, error)
	// RecalculateFinished rebuilds records of every finished tournament. Returns how many were processed.
	RecalculateFinished(ctx context.Context) (int, error)
	List(ctx context.Context, tournamentID int) ([]*models.TournamentRecord, error)
}

type recordsService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	recordRepo      repositories.RecordRepository
	logger          *slog.Logger
}

func NewRecordsService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	recordRepo repositories.RecordRepository,
	logger *slog.Logger,
) RecordsService {
	return &recordsService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		recordRepo:      recordRepo,
		logger:          logger,
	}
}

func (s *recordsService) Rebuild(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.TournamentRecord, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	matches, err := s.matchRepo.List(ctx, exec, repositories.MatchFilter{
		TournamentID: &tournamentID,
		Statuses:     []models.MatchStatus{models.MatchConfirmed},
		Order:        repositories.OrderByConfirmation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed matches: %w", err)
	}

	records := ExtractRecords(tournamentID, participants, matches)
	if err := s.recordRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to clear old records: %w", err)
	}
	if err := s.recordRepo.BatchCreate(ctx, exec, records); err != nil {
		return nil, fmt.Errorf("failed to store records: %w", err)
	}
	return records, nil
}

func (s *recordsService) Calculate(ctx context.Context, tournamentID int) ([]*models.TournamentRecord, error) {
	var records []*models.TournamentRecord
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID); err != nil {
			return handleRepositoryError(err)
		}
		var err error
		records, err = s.Rebuild(ctx, exec, tournamentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *recordsService) RecalculateFinished(ctx context.Context) (int, error) {
	tournaments, err := s.tournamentRepo.List(ctx, nil, []models.TournamentStatus{models.StatusFinished})
	if err != nil {
		return 0, fmt.Errorf("failed to list finished tournaments: %w", err)
	}
	for _, t := range tournaments {
		if _, err := s.Calculate(ctx, t.ID); err != nil {
			return 0, fmt.Errorf("records for tournament %d: %w", t.ID, err)
		}
	}
	s.logger.InfoContext(ctx, "tournament records recalculated", slog.Int("tournaments", len(tournaments)))
	return len(tournaments), nil
}

func (s *recordsService) List(ctx context.Context, tournamentID int) ([]*models.TournamentRecord, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.recordRepo.ListByTournament(ctx, nil, tournamentID)
}
