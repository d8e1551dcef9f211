package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-planner/internal/models"
)

func TestRegisterParticipant_Succeeds(t *testing.T) {
	tr, _, emitter := newTestTournament(models.Tournament{ID: "t1"})

	p, err := tr.RegisterParticipant(context.Background(), models.UserRef{ID: "u1", DisplayName: "Alice"}, true)

	require.NoError(t, err)
	assert.Equal(t, "u1", p.User.ID)
	assert.False(t, p.CheckedIn)
	assert.Len(t, emitter.userNotices, 1)
}

func TestRegisterParticipant_RejectsDuplicate(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()

	_, err := tr.RegisterParticipant(ctx, models.UserRef{ID: "u1", DisplayName: "Alice"}, false)
	require.NoError(t, err)

	_, err = tr.RegisterParticipant(ctx, models.UserRef{ID: "u1", DisplayName: "Alice"}, false)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterParticipant_RejectsWhenLimitReached(t *testing.T) {
	limit := 1
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1", Limit: &limit})
	ctx := context.Background()

	_, err := tr.RegisterParticipant(ctx, models.UserRef{ID: "u1", DisplayName: "Alice"}, false)
	require.NoError(t, err)

	_, err = tr.RegisterParticipant(ctx, models.UserRef{ID: "u2", DisplayName: "Bob"}, false)
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestRegisterParticipant_ChecksInAutomaticallyWhenCheckinOpen(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1", CheckinPhase: models.SubPhaseOngoing})

	p, err := tr.RegisterParticipant(context.Background(), models.UserRef{ID: "u1", DisplayName: "Alice"}, false)

	require.NoError(t, err)
	assert.True(t, p.CheckedIn)
}

func TestUnregisterParticipant_RemovesAndDestroysRemotePresence(t *testing.T) {
	tr, fp, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()

	p, err := tr.RegisterParticipant(ctx, models.UserRef{ID: "u1", DisplayName: "Alice"}, false)
	require.NoError(t, err)

	playerID, err := fp.CreateParticipant(ctx, "Alice", 1)
	require.NoError(t, err)
	tr.mu.Lock()
	idx, _ := tr.participantIndexByUserID("u1")
	tr.state.Participants[idx].PlayerID = &playerID
	tr.mu.Unlock()
	_ = p

	require.NoError(t, tr.UnregisterParticipant(ctx, "u1"))

	_, ok := tr.participantIndexByUserID("u1")
	assert.False(t, ok)
	_, stillRemote := fp.participants[playerID]
	assert.False(t, stillRemote)
}

func TestUnregisterParticipant_NotRegistered(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	err := tr.UnregisterParticipant(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestCheckInParticipant_IsIdempotent(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()
	_, err := tr.RegisterParticipant(ctx, models.UserRef{ID: "u1", DisplayName: "Alice"}, false)
	require.NoError(t, err)

	require.NoError(t, tr.CheckInParticipant(ctx, "u1"))
	require.NoError(t, tr.CheckInParticipant(ctx, "u1"))

	idx, _ := tr.participantIndexByUserID("u1")
	assert.True(t, tr.state.Participants[idx].CheckedIn)
}

func TestUncheckedParticipants_ListsOnlyThoseNotCheckedIn(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()
	_, err := tr.RegisterParticipant(ctx, models.UserRef{ID: "u1", DisplayName: "Alice"}, false)
	require.NoError(t, err)
	_, err = tr.RegisterParticipant(ctx, models.UserRef{ID: "u2", DisplayName: "Bob"}, false)
	require.NoError(t, err)
	require.NoError(t, tr.CheckInParticipant(ctx, "u1"))

	unchecked := tr.uncheckedParticipants()

	require.Len(t, unchecked, 1)
	assert.Equal(t, "u2", unchecked[0].User.ID)
}
