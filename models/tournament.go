package models

import "time"

// TournamentFormat определяет алгоритм генерации расписания.
type TournamentFormat string

const (
	FormatRoundRobin   TournamentFormat = "round_robin"
	FormatPlayoff      TournamentFormat = "playoff"
	FormatSwiss        TournamentFormat = "swiss"
	FormatGroupPlayoff TournamentFormat = "group_playoff"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatRoundRobin, FormatPlayoff, FormatSwiss, FormatGroupPlayoff:
		return true
	}
	return false
}

// TournamentStatus представляет статусы турнира, соответствующие CHECK в БД.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusFinished     TournamentStatus = "finished"
)

// Tournament представляет турнир.
type Tournament struct {
	ID               int              `json:"id" db:"id"`
	Name             string           `json:"name" db:"name"`
	Description      *string          `json:"description,omitempty" db:"description"`
	Format           TournamentFormat `json:"format" db:"format"`
	Status           TournamentStatus `json:"status" db:"status"`
	RegistrationOpen bool             `json:"registration_open" db:"registration_open"`
	MaxParticipants  *int             `json:"max_participants,omitempty" db:"max_participants"`
	CurrentRound     int              `json:"current_round" db:"current_round"`
	TotalRounds      int              `json:"total_rounds" db:"total_rounds"`
	DrawCompleted    bool             `json:"draw_completed" db:"draw_completed"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	StartedAt        *time.Time       `json:"started_at,omitempty" db:"started_at"`
	FinishedAt       *time.Time       `json:"finished_at,omitempty" db:"finished_at"`
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Statuses only move forward: registration -> active -> finished.
func (t *Tournament) CanTransitionTo(next TournamentStatus) bool {
	switch t.Status {
	case StatusRegistration:
		return next == StatusActive && t.DrawCompleted
	case StatusActive:
		return next == StatusFinished
	}
	return false
}

// IsFull returns true when the participant cap is reached.
func (t *Tournament) IsFull(registered int) bool {
	return t.MaxParticipants != nil && registered >= *t.MaxParticipants
}

// RoundInfo - сводка по туру для экранов выбора тура.
type RoundInfo struct {
	RoundNumber  int  `json:"round_number"`
	MatchesCount int  `json:"matches_count"`
	DeadlineSet  bool `json:"deadline_set"`
}
