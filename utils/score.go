package utils

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidScore = errors.New("invalid score format, expected goals:goals")

// ParseScore parses "a:b" with non-negative integers on both sides.
func ParseScore(text string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidScore
	}
	first, err := parseGoals(parts[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := parseGoals(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

func parseGoals(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidScore
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, ErrInvalidScore
	}
	return v, nil
}
