package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-planner/internal/models"
	"tournament-planner/internal/notify"
)

func TestStartRegistration_RejectsFromWrongPhase(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1", Phase: models.TournamentOngoing})

	err := tr.StartRegistration(context.Background(), false)

	var wrongPhase *WrongPhaseError
	assert.ErrorAs(t, err, &wrongPhase)
}

func TestStartRegistration_OpensFromPending(t *testing.T) {
	tr, _, emitter := newTestTournament(models.Tournament{ID: "t1", Phase: models.TournamentPending})

	require.NoError(t, tr.StartRegistration(context.Background(), false))

	assert.Equal(t, models.TournamentRegister, tr.state.Phase)
	assert.Equal(t, models.SubPhaseOngoing, tr.state.RegisterPhase)
	assert.Contains(t, emitter.announcements, notify.KindRegistrationOpen)
}

func TestEndRegistration_IsIdempotentWhenNotOngoing(t *testing.T) {
	tr, _, emitter := newTestTournament(models.Tournament{ID: "t1", RegisterPhase: models.SubPhaseDone})

	require.NoError(t, tr.EndRegistration(context.Background()))

	assert.Empty(t, emitter.announcements)
}

func TestEndRegistration_MovesToAwaitingWhenCheckinAlsoDone(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{
		ID:            "t1",
		Phase:         models.TournamentRegister,
		RegisterPhase: models.SubPhaseOngoing,
		CheckinPhase:  models.SubPhaseManual,
	})

	require.NoError(t, tr.EndRegistration(context.Background()))

	assert.Equal(t, models.SubPhaseDone, tr.state.RegisterPhase)
	assert.Equal(t, models.TournamentAwaiting, tr.state.Phase)
}

func TestEndRegistration_HoldsOpenWhenSecondOpeningScheduled(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{
		ID:            "t1",
		RegisterPhase: models.SubPhaseOngoing,
		Timings:       models.EventTimings{RegisterSecondStart: nowEpoch() + 3600},
	})

	require.NoError(t, tr.EndRegistration(context.Background()))

	assert.Equal(t, models.SubPhaseOnHold, tr.state.RegisterPhase)
}

func TestStartCheckin_SkipsStraightToDoneWhenNoParticipants(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{
		ID:            "t1",
		CheckinPhase:  models.SubPhasePending,
		RegisterPhase: models.SubPhaseDone,
	})

	require.NoError(t, tr.StartCheckin(context.Background()))

	assert.Equal(t, models.SubPhaseDone, tr.state.CheckinPhase)
	assert.Equal(t, models.TournamentAwaiting, tr.state.Phase)
}

func TestStartCheckin_OpensAndSchedulesReminders(t *testing.T) {
	tr, _, emitter := newTestTournament(models.Tournament{
		ID:           "t1",
		CheckinPhase: models.SubPhasePending,
		Timings:      models.EventTimings{CheckinStart: 1000, CheckinStop: 1000 + 20*60},
	})
	ctx := context.Background()
	_, err := tr.RegisterParticipant(ctx, models.UserRef{ID: "u1"}, false)
	require.NoError(t, err)

	require.NoError(t, tr.StartCheckin(ctx))

	assert.Equal(t, models.SubPhaseOngoing, tr.state.CheckinPhase)
	assert.NotEmpty(t, tr.state.CheckinReminders)
	assert.Contains(t, emitter.announcements, notify.KindCheckinOpen)
}

func TestEndCheckin_DropsUncheckedParticipants(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1", CheckinPhase: models.SubPhasePending})
	ctx := context.Background()
	_, err := tr.RegisterParticipant(ctx, models.UserRef{ID: "u1"}, false)
	require.NoError(t, err)
	_, err = tr.RegisterParticipant(ctx, models.UserRef{ID: "u2"}, false)
	require.NoError(t, err)
	require.NoError(t, tr.CheckInParticipant(ctx, "u1"))
	tr.state.CheckinPhase = models.SubPhaseOngoing

	require.NoError(t, tr.EndCheckin(ctx))

	assert.Len(t, tr.state.Participants, 1)
	assert.Equal(t, "u1", tr.state.Participants[0].User.ID)
}

func TestStart_RequiresAwaitingPhase(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1", Phase: models.TournamentPending})

	err := tr.Start(context.Background())

	var wrongPhase *WrongPhaseError
	assert.ErrorAs(t, err, &wrongPhase)
}

func TestEnd_RejectsWhileAMatchIsOngoing(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{
		ID:      "t1",
		Phase:   models.TournamentOngoing,
		Matches: []models.Match{{ID: "m1", Phase: models.MatchOngoing}},
	})

	err := tr.End(context.Background())

	assert.Error(t, err)
	assert.Equal(t, models.TournamentOngoing, tr.state.Phase)
}

func TestEnd_FinalizesWhenNoMatchOngoing(t *testing.T) {
	tr, _, emitter := newTestTournament(models.Tournament{
		ID:      "t1",
		Phase:   models.TournamentOngoing,
		Matches: []models.Match{{ID: "m1", Phase: models.MatchDone}},
	})

	require.NoError(t, tr.End(context.Background()))

	assert.Equal(t, models.TournamentDone, tr.state.Phase)
	assert.Contains(t, emitter.announcements, notify.KindTournamentEnd)
}
