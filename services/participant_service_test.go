package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tleague/models"
)

func TestRegisterParticipant(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	limit := 2
	tr, err := e.tournaments.CreateTournament(ctx, testOwnerID, CreateTournamentInput{
		Name:             "Duel",
		Format:           models.FormatRoundRobin,
		MaxParticipants:  &limit,
		RegistrationOpen: true,
	})
	require.NoError(t, err)
	for _, uid := range []int64{1, 2, 3} {
		e.store.addUser(uid, "")
	}

	p, err := e.participants.Register(ctx, tr.ID, 1)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Zero(t, p.Points)

	_, err = e.participants.Register(ctx, tr.ID, 1)
	assert.ErrorIs(t, err, ErrRegistrationConflict)
	_, err = e.participants.Register(ctx, tr.ID, 77)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = e.participants.Register(ctx, 555, 1)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = e.participants.Register(ctx, tr.ID, 2)
	require.NoError(t, err)
	_, err = e.participants.Register(ctx, tr.ID, 3)
	assert.ErrorIs(t, err, ErrTournamentFull)

	list, err := e.participants.List(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].UserID)
	assert.Equal(t, int64(2), list[1].UserID)
}

func TestRegisterClosedAfterDraw(t *testing.T) {
	e := newTestEngine(t)
	id := e.drawnLeague(t)
	e.store.addUser(5, "late")

	_, err := e.participants.Register(context.Background(), id, 5)
	assert.ErrorIs(t, err, ErrRegistrationNotOpen)
}
