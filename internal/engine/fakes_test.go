package engine

import (
	"context"
	"log"
	"io"

	"tournament-planner/internal/models"
	"tournament-planner/internal/notify"
	"tournament-planner/internal/provider"
)

// fakeProvider is an in-memory stand-in for the remote bracket provider.
type fakeProvider struct {
	participants map[string]provider.RemoteParticipant
	matches      []provider.RemoteMatch
	nextID       int
	startErr     error
	finalizeErr  error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{participants: map[string]provider.RemoteParticipant{}}
}

func (f *fakeProvider) ShowTournament(ctx context.Context, ref string) (*provider.TournamentInfo, error) {
	return &provider.TournamentInfo{ID: ref, Name: ref, Status: provider.RemoteStatusPending}, nil
}

func (f *fakeProvider) StartTournament(ctx context.Context) error    { return f.startErr }
func (f *fakeProvider) FinalizeTournament(ctx context.Context) error { return f.finalizeErr }
func (f *fakeProvider) ResetTournament(ctx context.Context) error    { return nil }

func (f *fakeProvider) ListParticipants(ctx context.Context) ([]provider.RemoteParticipant, error) {
	var out []provider.RemoteParticipant
	for _, p := range f.participants {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProvider) CreateParticipant(ctx context.Context, name string, seed int) (string, error) {
	f.nextID++
	id := itoa(f.nextID)
	f.participants[id] = provider.RemoteParticipant{ID: id, Name: name, Active: true}
	return id, nil
}

func (f *fakeProvider) DestroyParticipant(ctx context.Context, id string) error {
	delete(f.participants, id)
	return nil
}

func (f *fakeProvider) ListMatches(ctx context.Context) ([]provider.RemoteMatch, error) {
	return f.matches, nil
}

func (f *fakeProvider) UpdateMatch(ctx context.Context, id string, scoresCSV string, winnerID string) error {
	return nil
}
func (f *fakeProvider) MarkMatchUnderway(ctx context.Context, id string) error   { return nil }
func (f *fakeProvider) UnmarkMatchUnderway(ctx context.Context, id string) error { return nil }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// fakeEmitter records every call instead of touching a hub or Mongo.
type fakeEmitter struct {
	announcements []notify.Kind
	toNotices     []notify.Kind
	matchNotices  []notify.Kind
	userNotices   []notify.Kind
}

func newFakeEmitter() *fakeEmitter { return &fakeEmitter{} }

func (e *fakeEmitter) NotifyAnnouncement(ctx context.Context, tournamentID string, kind notify.Kind, payload map[string]interface{}) {
	e.announcements = append(e.announcements, kind)
}
func (e *fakeEmitter) NotifyTO(ctx context.Context, tournamentID string, kind notify.Kind, payload map[string]interface{}) {
	e.toNotices = append(e.toNotices, kind)
}
func (e *fakeEmitter) NotifyMatch(ctx context.Context, match *models.Match, kind notify.Kind, payload map[string]interface{}) {
	e.matchNotices = append(e.matchNotices, kind)
}
func (e *fakeEmitter) NotifyUser(ctx context.Context, user models.UserRef, kind notify.Kind, payload map[string]interface{}) {
	e.userNotices = append(e.userNotices, kind)
}
func (e *fakeEmitter) CreateCategory(ctx context.Context, tournamentID, name string) (string, error) {
	return name, nil
}
func (e *fakeEmitter) CreateMatchChannel(ctx context.Context, category string, match *models.Match, allowedUsers []models.UserRef) (models.ChannelHandle, error) {
	return models.ChannelHandle(category), nil
}
func (e *fakeEmitter) DeleteChannel(ctx context.Context, handle models.ChannelHandle) error {
	return nil
}
func (e *fakeEmitter) ResolveUserByName(ctx context.Context, tournamentID, name string) (*models.UserRef, bool) {
	return nil, false
}

// fakeSeeder returns the participants unchanged unless forced to fail.
type fakeSeeder struct {
	err error
}

func (s *fakeSeeder) Seed(ctx context.Context, tournamentID string, participants []models.Participant, cfg models.EngineConfig) ([]models.Participant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return participants, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestTournament(state models.Tournament) (*Tournament, *fakeProvider, *fakeEmitter) {
	p := newFakeProvider()
	e := newFakeEmitter()
	return New(state, p, e, &fakeSeeder{}, testLogger()), p, e
}
