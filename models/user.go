package models

import (
	"strconv"
	"time"
)

// RatingRecord - глобальный рейтинг игрока по всем турнирам.
type RatingRecord struct {
	Rating        int `json:"rating" db:"rating"`
	MatchesPlayed int `json:"matches_played" db:"matches_played"`
	Wins          int `json:"wins" db:"wins"`
	Draws         int `json:"draws" db:"draws"`
	Losses        int `json:"losses" db:"losses"`
	// CurrentStreak is positive for consecutive wins, negative for consecutive losses.
	CurrentStreak int `json:"current_streak" db:"current_streak"`
}

// WinRate returns wins/matches in percent, 0 with no matches.
func (r RatingRecord) WinRate() float64 {
	if r.MatchesPlayed == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.MatchesPlayed) * 100
}

type User struct {
	ID        int64      `json:"id"`
	Username  *string    `json:"username,omitempty"`
	FullName  string     `json:"full_name"`
	AdminRole *AdminRole `json:"admin_role,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	RatingRecord
}

// DisplayName prefers @username, then the full name, then the numeric id.
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return "@" + *u.Username
	}
	if u.FullName != "" {
		return u.FullName
	}
	return "#" + strconv.FormatInt(u.ID, 10)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
