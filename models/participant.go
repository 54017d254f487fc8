package models

import "time"

// Participant - регистрация пользователя в турнире вместе с его турнирной статистикой.
type Participant struct {
	ID            int       `json:"id" db:"id"`
	TournamentID  int       `json:"tournament_id" db:"tournament_id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	Points        int       `json:"points" db:"points"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	Wins          int       `json:"wins" db:"wins"`
	Draws         int       `json:"draws" db:"draws"`
	Losses        int       `json:"losses" db:"losses"`
	GoalsFor      int       `json:"goals_for" db:"goals_for"`
	GoalsAgainst  int       `json:"goals_against" db:"goals_against"`
	RegisteredAt  time.Time `json:"registered_at" db:"registered_at"`

	User *User `json:"user,omitempty" db:"-"`
}

func (p *Participant) GoalDifference() int {
	return p.GoalsFor - p.GoalsAgainst
}

// ResetStats zeroes the standings counters.
func (p *Participant) ResetStats() {
	p.Points = 0
	p.MatchesPlayed = 0
	p.Wins = 0
	p.Draws = 0
	p.Losses = 0
	p.GoalsFor = 0
	p.GoalsAgainst = 0
}
