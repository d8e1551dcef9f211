package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-planner/internal/models"
)

func TestAddStreamer_ClaimsSets(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})

	s, err := tr.AddStreamer(context.Background(), models.UserRef{ID: "owner1", DisplayName: "Caster"}, "#main", []int{1, 2})

	require.NoError(t, err)
	assert.Len(t, s.Matches, 2)
	assert.Equal(t, 1, s.Matches[0].Set)
	assert.Equal(t, 2, s.Matches[1].Set)
}

func TestAddStreamer_RejectsDuplicateSetAcrossStreamers(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()

	_, err := tr.AddStreamer(ctx, models.UserRef{ID: "owner1"}, "#main", []int{1})
	require.NoError(t, err)

	_, err = tr.AddStreamer(ctx, models.UserRef{ID: "owner2"}, "#second", []int{1})
	assert.Error(t, err)
}

func TestAddStreamer_RejectsSetRequestedTwice(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	_, err := tr.AddStreamer(context.Background(), models.UserRef{ID: "owner1"}, "#main", []int{1, 1})
	assert.Error(t, err)
}

func TestSwap_ExchangesQueuePositions(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()
	s, err := tr.AddStreamer(ctx, models.UserRef{ID: "owner1"}, "#main", []int{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, tr.Swap(s.ID, 1, 3))

	si, _ := tr.streamerIndex(s.ID)
	assert.Equal(t, 3, tr.state.Streamers[si].Matches[0].Set)
	assert.Equal(t, 2, tr.state.Streamers[si].Matches[1].Set)
	assert.Equal(t, 1, tr.state.Streamers[si].Matches[2].Set)
}

func TestSwap_UnknownStreamer(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	err := tr.Swap("missing", 1, 2)
	assert.Error(t, err)
}

func TestInsert_MovesSetBeforeTarget(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()
	s, err := tr.AddStreamer(ctx, models.UserRef{ID: "owner1"}, "#main", []int{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, tr.Insert(s.ID, 3, 1))

	si, _ := tr.streamerIndex(s.ID)
	sets := []int{}
	for _, item := range tr.state.Streamers[si].Matches {
		sets = append(sets, item.Set)
	}
	assert.Equal(t, []int{3, 1, 2}, sets)
}

func TestRemove_DropsSetsFromQueue(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()
	s, err := tr.AddStreamer(ctx, models.UserRef{ID: "owner1"}, "#main", []int{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, tr.Remove(ctx, s.ID, 2))

	si, _ := tr.streamerIndex(s.ID)
	assert.Len(t, tr.state.Streamers[si].Matches, 2)
}

func TestEndStreamer_RemovesStreamerEntirely(t *testing.T) {
	tr, _, _ := newTestTournament(models.Tournament{ID: "t1"})
	ctx := context.Background()
	s, err := tr.AddStreamer(ctx, models.UserRef{ID: "owner1"}, "#main", []int{1})
	require.NoError(t, err)

	require.NoError(t, tr.EndStreamer(ctx, s.ID))

	_, ok := tr.streamerIndex(s.ID)
	assert.False(t, ok)
}
