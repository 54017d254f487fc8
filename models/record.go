package models

import "time"

type RecordType string

const (
	RecordTopScorer     RecordType = "top_scorer"
	RecordBestDefense   RecordType = "best_defense"
	RecordBestWinRate   RecordType = "best_winrate"
	RecordMostDraws     RecordType = "most_draws"
	RecordBiggestDefeat RecordType = "biggest_defeat"
	RecordBestWinStreak RecordType = "best_win_streak"
)

// TournamentRecord - достижение, вычисляемое при завершении турнира.
type TournamentRecord struct {
	ID           int        `json:"id" db:"id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	RecordType   RecordType `json:"record_type" db:"record_type"`
	UserID       int64      `json:"user_id" db:"user_id"`
	Value        float64    `json:"value" db:"value"`
	Description  string     `json:"description" db:"description"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
