package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DeadlineLayout - формат ввода и отображения времени для пользователей.
const DeadlineLayout = "02.01.2006 15:04"

var ErrInvalidDeadline = errors.New("invalid deadline format, expected DD.MM.YYYY HH:MM")

// DisplayZone converts between UTC storage time and the fixed-offset zone users see.
type DisplayZone struct {
	loc *time.Location
}

func NewDisplayZone(offsetHours int) DisplayZone {
	name := "UTC"
	if offsetHours != 0 {
		name = fmt.Sprintf("UTC%+d", offsetHours)
	}
	return DisplayZone{loc: time.FixedZone(name, offsetHours*int(time.Hour/time.Second))}
}

func (z DisplayZone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// ToUTC interprets the wall clock of local as display-zone time.
func (z DisplayZone) ToUTC(local time.Time) time.Time {
	y, mo, d := local.Date()
	h, mi, s := local.Clock()
	return time.Date(y, mo, d, h, mi, s, local.Nanosecond(), z.Location()).UTC()
}

func (z DisplayZone) FromUTC(t time.Time) time.Time {
	return t.In(z.Location())
}

// Parse reads "DD.MM.YYYY HH:MM" as display-zone time.
func (z DisplayZone) Parse(text string) (time.Time, error) {
	t, err := time.ParseInLocation(DeadlineLayout, strings.TrimSpace(text), z.Location())
	if err != nil {
		return time.Time{}, ErrInvalidDeadline
	}
	return t, nil
}

func (z DisplayZone) Format(t time.Time) string {
	return z.FromUTC(t).Format(DeadlineLayout)
}
