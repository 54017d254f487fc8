package services

import (
	"errors"

	"github.com/Dosada05/tleague/brackets"
	"github.com/Dosada05/tleague/utils"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrRoundNotFound       = errors.New("round has no matches")

	// Регистрация
	ErrRegistrationNotOpen  = errors.New("tournament registration is not open")
	ErrTournamentFull       = errors.New("tournament registration is full")
	ErrRegistrationConflict = errors.New("user is already registered for this tournament")

	// Жеребьёвка и жизненный цикл турнира
	ErrNotEnoughParticipants             = brackets.ErrNotEnoughParticipants
	ErrUnsupportedFormat                 = brackets.ErrUnsupportedFormat
	ErrDrawAlreadyCompleted              = errors.New("draw has already been completed")
	ErrDrawNotCompleted                  = errors.New("draw has not been completed yet")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentFinished                = errors.New("tournament is already finished")

	// Дедлайны и результаты матчей
	ErrInvalidDeadline       = utils.ErrInvalidDeadline
	ErrInvalidScore          = utils.ErrInvalidScore
	ErrDeadlineInPast        = errors.New("deadline must be in the future")
	ErrDeadlineNotSet        = errors.New("deadline for this round is not set yet")
	ErrMatchNotScheduled     = errors.New("match result has already been reported")
	ErrMatchNotPending       = errors.New("match has no result awaiting confirmation")
	ErrMatchNotDisputed      = errors.New("match is not disputed")
	ErrNotMatchParticipant   = errors.New("user is not a participant of this match")
	ErrReporterCannotConfirm = errors.New("the reporting player cannot confirm or dispute their own result")
)
