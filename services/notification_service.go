package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tleague/brackets"
	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
	"github.com/Dosada05/tleague/utils"
)

// Notifier доставляет личное сообщение пользователю.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// EventPublisher рассылает события в комнату турнира.
type EventPublisher interface {
	BroadcastToRoom(room string, message any) int
}

// NotificationService formats and sends player and admin messages.
// Delivery is best-effort: failures are logged and counted, never returned.
type NotificationService interface {
	MatchReported(ctx context.Context, m *models.Match)
	MatchConfirmed(ctx context.Context, m *models.Match)
	MatchDisputed(ctx context.Context, m *models.Match, disputedBy int64)
	DisputeResolved(ctx context.Context, m *models.Match)
	MatchTechnical(ctx context.Context, m *models.Match)
	// DeadlineSet notifies each player once and returns how many were reached.
	DeadlineSet(ctx context.Context, tournamentID, round int, deadline time.Time, matches []*models.Match) int
	DeadlineApproaching(ctx context.Context, m *models.Match, hoursLeft int) int
	Publish(tournamentID int, eventType string, payload any)
}

type notificationService struct {
	notifier Notifier
	events   EventPublisher
	userRepo repositories.UserRepository
	adminIDs []int64
	zone     utils.DisplayZone
	metrics  *Metrics
	logger   *slog.Logger
}

func NewNotificationService(
	notifier Notifier,
	events EventPublisher,
	userRepo repositories.UserRepository,
	adminIDs []int64,
	zone utils.DisplayZone,
	metrics *Metrics,
	logger *slog.Logger,
) NotificationService {
	return &notificationService{
		notifier: notifier,
		events:   events,
		userRepo: userRepo,
		adminIDs: adminIDs,
		zone:     zone,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *notificationService) send(ctx context.Context, userID int64, text string) bool {
	if s.notifier == nil {
		return false
	}
	if err := s.notifier.Notify(ctx, userID, text); err != nil {
		s.metrics.NotificationFailed()
		s.logger.WarnContext(ctx, "notification not delivered", slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}
	return true
}

// names resolves display names; unknown users fall back to their id.
func (s *notificationService) names(ctx context.Context, ids ...int64) map[int64]string {
	out := make(map[int64]string, len(ids))
	users, err := s.userRepo.ListByIDs(ctx, nil, uniqueSortedIDs(ids...))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load user names for notification", slog.Any("error", err))
	}
	for _, u := range users {
		out[u.ID] = u.DisplayName()
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = (&models.User{ID: id}).DisplayName()
		}
	}
	return out
}

func (s *notificationService) scoreLine(names map[int64]string, m *models.Match) string {
	return fmt.Sprintf("%s %s %s", names[m.Player1ID], m.ScoreText(), names[m.Player2ID])
}

func (s *notificationService) MatchReported(ctx context.Context, m *models.Match) {
	if m.ReportedBy == nil {
		return
	}
	opponent, ok := m.OpponentOf(*m.ReportedBy)
	if !ok {
		return
	}
	names := s.names(ctx, m.Player1ID, m.Player2ID)
	text := fmt.Sprintf("%s reported the result of round %d: %s. Confirm or dispute it (match #%d).",
		names[*m.ReportedBy], m.RoundNumber, s.scoreLine(names, m), m.ID)
	s.send(ctx, opponent, text)
	s.Publish(m.TournamentID, brackets.EventMatchReported, m)
}

func (s *notificationService) MatchConfirmed(ctx context.Context, m *models.Match) {
	names := s.names(ctx, m.Player1ID, m.Player2ID)
	text := fmt.Sprintf("Result confirmed (round %d): %s.", m.RoundNumber, s.scoreLine(names, m))
	s.send(ctx, m.Player1ID, text)
	s.send(ctx, m.Player2ID, text)
	s.Publish(m.TournamentID, brackets.EventMatchConfirmed, m)
}

func (s *notificationService) MatchDisputed(ctx context.Context, m *models.Match, disputedBy int64) {
	names := s.names(ctx, m.Player1ID, m.Player2ID, disputedBy)
	text := fmt.Sprintf("Match #%d (round %d) disputed by %s: %s. Resolve it with the final score.",
		m.ID, m.RoundNumber, names[disputedBy], s.scoreLine(names, m))
	for _, adminID := range s.adminIDs {
		s.send(ctx, adminID, text)
	}
	if m.ReportedBy != nil {
		s.send(ctx, *m.ReportedBy, fmt.Sprintf("Your result for match #%d was disputed. An administrator will review it.", m.ID))
	}
	s.Publish(m.TournamentID, brackets.EventMatchDisputed, m)
}

func (s *notificationService) DisputeResolved(ctx context.Context, m *models.Match) {
	names := s.names(ctx, m.Player1ID, m.Player2ID)
	text := fmt.Sprintf("Dispute resolved by an administrator (round %d): %s.", m.RoundNumber, s.scoreLine(names, m))
	s.send(ctx, m.Player1ID, text)
	s.send(ctx, m.Player2ID, text)
	s.Publish(m.TournamentID, brackets.EventMatchConfirmed, m)
}

func (s *notificationService) MatchTechnical(ctx context.Context, m *models.Match) {
	names := s.names(ctx, m.Player1ID, m.Player2ID)
	for _, uid := range []int64{m.Player1ID, m.Player2ID} {
		opponent, _ := m.OpponentOf(uid)
		s.send(ctx, uid, fmt.Sprintf(
			"Match #%d against %s was not reported before the deadline and is recorded as a technical result 0:0.",
			m.ID, names[opponent]))
	}
	s.Publish(m.TournamentID, brackets.EventMatchTechnical, m)
}

func (s *notificationService) DeadlineSet(ctx context.Context, tournamentID, round int, deadline time.Time, matches []*models.Match) int {
	text := fmt.Sprintf("Deadline for round %d: %s (%s). Play your match and report the score before it.",
		round, s.zone.Format(deadline), s.zone.Location().String())

	notified := 0
	seen := make(map[int64]bool)
	for _, m := range matches {
		for _, uid := range []int64{m.Player1ID, m.Player2ID} {
			if seen[uid] {
				continue
			}
			seen[uid] = true
			if s.send(ctx, uid, text) {
				notified++
			}
		}
	}
	s.Publish(tournamentID, brackets.EventDeadlineSet, map[string]any{"round": round, "deadline": deadline.UTC()})
	return notified
}

func (s *notificationService) DeadlineApproaching(ctx context.Context, m *models.Match, hoursLeft int) int {
	if m.Deadline == nil {
		return 0
	}
	names := s.names(ctx, m.Player1ID, m.Player2ID)
	notified := 0
	for _, uid := range []int64{m.Player1ID, m.Player2ID} {
		opponent, _ := m.OpponentOf(uid)
		text := fmt.Sprintf("%d h left to play match #%d against %s (deadline %s).",
			hoursLeft, m.ID, names[opponent], s.zone.Format(*m.Deadline))
		if s.send(ctx, uid, text) {
			notified++
		}
	}
	return notified
}

func (s *notificationService) Publish(tournamentID int, eventType string, payload any) {
	if s.events == nil {
		return
	}
	room := brackets.TournamentRoom(tournamentID)
	s.events.BroadcastToRoom(room, brackets.Message{Type: eventType, Payload: payload, RoomID: room})
}
