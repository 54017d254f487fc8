package models

import "time"

// MatchStatus представляет состояние матча в жизненном цикле отчёта о результате.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchPending   MatchStatus = "pending"
	MatchConfirmed MatchStatus = "confirmed"
	MatchDisputed  MatchStatus = "disputed"
	MatchTechnical MatchStatus = "technical"
)

// Terminal statuses accept no further transitions.
func (s MatchStatus) Terminal() bool {
	return s == MatchConfirmed || s == MatchTechnical
}

// Outcome is the result of a match from one player's perspective.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeDraw Outcome = "draw"
	OutcomeLoss Outcome = "loss"
)

// OutcomeFor сравнивает забитые и пропущенные голы.
func OutcomeFor(goalsFor, goalsAgainst int) Outcome {
	switch {
	case goalsFor > goalsAgainst:
		return OutcomeWin
	case goalsFor < goalsAgainst:
		return OutcomeLoss
	default:
		return OutcomeDraw
	}
}

type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	RoundNumber  int         `json:"round_number" db:"round_number"`
	Player1ID    int64       `json:"player1_id" db:"player1_id"`
	Player2ID    int64       `json:"player2_id" db:"player2_id"`
	Player1Score *int        `json:"player1_score,omitempty" db:"player1_score"`
	Player2Score *int        `json:"player2_score,omitempty" db:"player2_score"`
	Status       MatchStatus `json:"status" db:"status"`
	Deadline     *time.Time  `json:"deadline,omitempty" db:"deadline"`
	DeadlineSet  bool        `json:"deadline_set" db:"deadline_set"`
	PlayedAt     *time.Time  `json:"played_at,omitempty" db:"played_at"`
	ConfirmedAt  *time.Time  `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ReportedBy   *int64      `json:"reported_by,omitempty" db:"reported_by"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

func (m *Match) HasPlayer(userID int64) bool {
	return m.Player1ID == userID || m.Player2ID == userID
}

// OpponentOf returns the other participant. ok is false when userID does not play in the match.
func (m *Match) OpponentOf(userID int64) (int64, bool) {
	switch userID {
	case m.Player1ID:
		return m.Player2ID, true
	case m.Player2ID:
		return m.Player1ID, true
	}
	return 0, false
}

// HasScore - оба счёта выставлены.
func (m *Match) HasScore() bool {
	return m.Player1Score != nil && m.Player2Score != nil
}

// GoalsFor returns (scored, conceded) from userID's side.
func (m *Match) GoalsFor(userID int64) (int, int) {
	if !m.HasScore() {
		return 0, 0
	}
	if userID == m.Player2ID {
		return *m.Player2Score, *m.Player1Score
	}
	return *m.Player1Score, *m.Player2Score
}

// ScoreText formats the score as "p1:p2", or "-:-" before a report.
func (m *Match) ScoreText() string {
	if !m.HasScore() {
		return "-:-"
	}
	return itoa(*m.Player1Score) + ":" + itoa(*m.Player2Score)
}
