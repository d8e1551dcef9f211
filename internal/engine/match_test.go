package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-planner/internal/models"
)

func strPtr(s string) *string { return &s }

func matchTournament(m models.Match) *Tournament {
	tr, _, _ := newTestTournament(models.Tournament{
		ID: "t1",
		Participants: []models.Participant{
			{ID: "p1", User: models.UserRef{ID: "u1"}, PlayerID: strPtr("r1"), MatchID: &m.ID},
			{ID: "p2", User: models.UserRef{ID: "u2"}, PlayerID: strPtr("r2"), MatchID: &m.ID},
		},
		Matches: []models.Match{m},
	})
	return tr
}

func TestEndMatchBySet_PicksHigherScoreAsWinner(t *testing.T) {
	tr := matchTournament(models.Match{
		ID: "m1", Set: 1, Phase: models.MatchOngoing,
		Player1ID: strPtr("r1"), Player2ID: strPtr("r2"),
	})

	require.NoError(t, tr.EndMatchBySet(context.Background(), 1, 1, 2, false))

	idx, _ := tr.matchIndexBySet(1)
	m := tr.state.Matches[idx]
	assert.Equal(t, models.MatchDone, m.Phase)
	assert.Equal(t, "r2", *m.WinnerID)
}

func TestEndMatchBySet_Player1WinsTies(t *testing.T) {
	tr := matchTournament(models.Match{
		ID: "m1", Set: 1, Phase: models.MatchOngoing,
		Player1ID: strPtr("r1"), Player2ID: strPtr("r2"),
	})

	require.NoError(t, tr.EndMatchBySet(context.Background(), 1, 2, 2, false))

	idx, _ := tr.matchIndexBySet(1)
	assert.Equal(t, "r1", *tr.state.Matches[idx].WinnerID)
}

func TestEndMatchBySet_RejectsWhenNotOngoing(t *testing.T) {
	tr := matchTournament(models.Match{ID: "m1", Set: 1, Phase: models.MatchPending})

	err := tr.EndMatchBySet(context.Background(), 1, 2, 0, false)

	var wrongPhase *WrongPhaseError
	assert.ErrorAs(t, err, &wrongPhase)
}

func TestEndMatchBySet_UnknownSetReturnsErrMatchNotFound(t *testing.T) {
	tr := matchTournament(models.Match{ID: "m1", Set: 1, Phase: models.MatchOngoing})

	err := tr.EndMatchBySet(context.Background(), 99, 2, 0, false)

	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestEndMatchBySet_DetachesParticipantsFromMatch(t *testing.T) {
	tr := matchTournament(models.Match{
		ID: "m1", Set: 1, Phase: models.MatchOngoing,
		Player1ID: strPtr("r1"), Player2ID: strPtr("r2"),
	})

	require.NoError(t, tr.EndMatchBySet(context.Background(), 1, 2, 0, false))

	for _, p := range tr.state.Participants {
		assert.Nil(t, p.MatchID)
	}
}

func TestForceEndMatchBySet_EndsFromAnyPhase(t *testing.T) {
	tr := matchTournament(models.Match{ID: "m1", Set: 1, Phase: models.MatchOnHold})

	require.NoError(t, tr.ForceEndMatchBySet(context.Background(), 1))

	idx, _ := tr.matchIndexBySet(1)
	assert.Equal(t, models.MatchDone, tr.state.Matches[idx].Phase)
}

func TestRelaunchMatchBySet_RequiresDone(t *testing.T) {
	tr := matchTournament(models.Match{ID: "m1", Set: 1, Phase: models.MatchOngoing})

	err := tr.RelaunchMatchBySet(context.Background(), 1)

	var wrongPhase *WrongPhaseError
	assert.ErrorAs(t, err, &wrongPhase)
}

func TestRelaunchMatchBySet_ClearsScoreAndReopens(t *testing.T) {
	score1, score2, winner := 2, 1, "r1"
	tr := matchTournament(models.Match{
		ID: "m1", Set: 1, Phase: models.MatchDone,
		Score1: &score1, Score2: &score2, WinnerID: &winner,
	})

	require.NoError(t, tr.RelaunchMatchBySet(context.Background(), 1))

	idx, _ := tr.matchIndexBySet(1)
	m := tr.state.Matches[idx]
	assert.Equal(t, models.MatchOngoing, m.Phase)
	assert.Nil(t, m.Score1)
	assert.Nil(t, m.WinnerID)
}

func TestDisqualifyParticipantBySet_OpponentWins(t *testing.T) {
	tr := matchTournament(models.Match{
		ID: "m1", Set: 1, Phase: models.MatchOngoing,
		Player1ID: strPtr("r1"), Player2ID: strPtr("r2"),
	})

	require.NoError(t, tr.DisqualifyParticipantBySet(context.Background(), 1, "r1"))

	idx, _ := tr.matchIndexBySet(1)
	m := tr.state.Matches[idx]
	assert.Equal(t, models.MatchDone, m.Phase)
	assert.Equal(t, "r2", *m.WinnerID)
	assert.Equal(t, -1, *m.Score1)
	assert.Equal(t, 0, *m.Score2)
}

func TestDisqualifyParticipantBySet_UnknownParticipant(t *testing.T) {
	tr := matchTournament(models.Match{
		ID: "m1", Set: 1, Phase: models.MatchOngoing,
		Player1ID: strPtr("r1"), Player2ID: strPtr("r2"),
	})

	err := tr.DisqualifyParticipantBySet(context.Background(), 1, "ghost")

	assert.Error(t, err)
}

func TestForfeitMatchBySet_RequiresOngoing(t *testing.T) {
	tr := matchTournament(models.Match{ID: "m1", Set: 1, Phase: models.MatchDone})

	err := tr.ForfeitMatchBySet(context.Background(), 1, "r1")

	var wrongPhase *WrongPhaseError
	assert.ErrorAs(t, err, &wrongPhase)
}

func TestCancelStreamBySet_ReturnsMatchToOngoing(t *testing.T) {
	sid := "s1"
	tr := matchTournament(models.Match{ID: "m1", Set: 1, Phase: models.MatchOnHold, StreamerID: &sid})

	require.NoError(t, tr.CancelStreamBySet(context.Background(), 1))

	idx, _ := tr.matchIndexBySet(1)
	m := tr.state.Matches[idx]
	assert.Equal(t, models.MatchOngoing, m.Phase)
	assert.Nil(t, m.StreamerID)
}

func TestFormatScoresCSV_OrdersWinnerFirst(t *testing.T) {
	assert.Equal(t, "2-1", formatScoresCSV(2, 1))
	assert.Equal(t, "2-1", formatScoresCSV(1, 2))
}

func TestParseScoresCSV_ReordersToPlayerConvention(t *testing.T) {
	s1, s2, err := parseScoresCSV("2-1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, s1)
	assert.Equal(t, 1, s2)

	s1, s2, err = parseScoresCSV("2-1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, s1)
	assert.Equal(t, 2, s2)
}

func TestParseScoresCSV_RejectsMalformedInput(t *testing.T) {
	_, _, err := parseScoresCSV("not-a-score", true)
	assert.Error(t, err)
}
