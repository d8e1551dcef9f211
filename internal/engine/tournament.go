// internal/engine/tournament.go
// Tournament aggregate root: phase machine, registration/check-in
// sub-phases, and the slab+index lookups that replace the original
// cog's pointer graph (spec.md §9 Design Notes).

package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"tournament-planner/internal/models"
	"tournament-planner/internal/notify"
	"tournament-planner/internal/provider"
)

// Seeder is the narrow interface Tournament consumes for seeding; the
// concrete implementation lives in internal/seeding.
type Seeder interface {
	Seed(ctx context.Context, tournamentID string, participants []models.Participant, cfg models.EngineConfig) ([]models.Participant, error)
}

// Tournament is the engine's aggregate root wrapping the serializable
// models.Tournament with the runtime collaborators and the exclusive
// lock described in spec.md §5.
type Tournament struct {
	mu sync.Mutex

	state models.Tournament

	provider provider.Client
	emitter  notify.Emitter
	seeder   Seeder
	logger   *log.Logger

	loopCancel context.CancelFunc

	// categoryCapacity tracks how many match channels have been
	// placed in each created category, enforcing the per-category cap.
	categoryCapacity map[string]int
}

const categoryChannelCap = 50
const maxLaunchesPerTick = 20
const maxTaskErrors = 5

// New wraps an existing (restored or freshly-setup) state snapshot.
func New(state models.Tournament, client provider.Client, emitter notify.Emitter, seeder Seeder, logger *log.Logger) *Tournament {
	return &Tournament{
		state:            state,
		provider:         client,
		emitter:          emitter,
		seeder:           seeder,
		logger:           logger,
		categoryCapacity: make(map[string]int),
	}
}

// State returns a snapshot copy of the serializable state for
// persistence (ToDict-equivalent). Callers must hold no expectation
// that further mutation is reflected.
func (t *Tournament) State() models.Tournament {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ID returns the remote tournament id, used to key the loop task and
// persisted state row.
func (t *Tournament) ID() string {
	return t.state.ID
}

func nowEpoch() int64 {
	return time.Now().Unix()
}

// ---- Setup ----

// SetupResult is returned by Setup; Resumed is true when the remote
// tournament was already underway and the engine took the resume path.
type SetupResult struct {
	Tournament *Tournament
	Resumed    bool
}

// Setup fetches tournament metadata from the provider, validates
// event-ordering invariants, and returns a draft Tournament (spec.md §4.2).
// It does not acquire a lock: no Tournament instance exists yet.
func Setup(
	ctx context.Context,
	ref string,
	cfg models.EngineConfig,
	client provider.Client,
	emitter notify.Emitter,
	seeder Seeder,
	logger *log.Logger,
	tzOffsetSeconds int,
) (*SetupResult, error) {
	info, err := client.ShowTournament(ctx, ref)
	if err != nil {
		return nil, err
	}

	now := nowEpoch()

	state := models.Tournament{
		ID:            info.ID,
		Name:          info.Name,
		Game:          info.Game,
		URL:           info.URL,
		Limit:         info.Limit,
		Phase:         models.TournamentPending,
		RegisterPhase: models.SubPhaseManual,
		CheckinPhase:  models.SubPhaseManual,
		IgnoredEvents: map[models.EventName]bool{},
		Config:        cfg,
	}

	if info.Status == provider.RemoteStatusUnderway {
		t := New(state, client, emitter, seeder, logger)
		if err := t.resumeFromRemote(ctx); err != nil {
			return nil, err
		}
		return &SetupResult{Tournament: t, Resumed: true}, nil
	}

	if info.StartAt <= now {
		return nil, fmt.Errorf("tournament start time must be in the future")
	}

	timings := computeTimings(info.StartAt, tzOffsetSeconds, cfg)
	if err := validateEventOrdering(timings, state.IgnoredEvents); err != nil {
		return nil, err
	}
	state.Timings = timings

	if cfg.RegistrationOpeningSeconds != 0 {
		state.RegisterPhase = models.SubPhasePending
	}
	if cfg.CheckinOpeningSeconds != 0 {
		state.CheckinPhase = models.SubPhasePending
	}

	return &SetupResult{Tournament: New(state, client, emitter, seeder, logger)}, nil
}

// computeTimings derives register.start/second_start/stop and
// checkin.start/stop as tournament_start minus the configured offsets.
func computeTimings(tournamentStart int64, tzOffset int, cfg models.EngineConfig) models.EventTimings {
	t := models.EventTimings{
		TournamentStart:      tournamentStart,
		TournamentStartTZOff: tzOffset,
	}
	if cfg.RegistrationOpeningSeconds != 0 {
		t.RegisterStart = tournamentStart - cfg.RegistrationOpeningSeconds
	}
	if cfg.RegistrationSecondOpeningSeconds != 0 {
		t.RegisterSecondStart = tournamentStart - cfg.RegistrationSecondOpeningSeconds
	}
	if cfg.RegistrationClosingSeconds != 0 {
		t.RegisterStop = tournamentStart - cfg.RegistrationClosingSeconds
	}
	if cfg.CheckinOpeningSeconds != 0 {
		t.CheckinStart = tournamentStart - cfg.CheckinOpeningSeconds
	}
	if cfg.CheckinClosingSeconds != 0 {
		t.CheckinStop = tournamentStart - cfg.CheckinClosingSeconds
	}
	return t
}

// validateEventOrdering enforces the date-ordering invariants of
// spec.md §4.2, raising ConflictingDatesError listing offenders.
// Events already in ignoredEvents are exempt.
func validateEventOrdering(t models.EventTimings, ignored map[models.EventName]bool) error {
	var offenders []models.EventName

	check := func(cond bool, reason string, events ...models.EventName) {
		if cond {
			return
		}
		for _, e := range events {
			if !ignored[e] {
				offenders = append(offenders, e)
			}
		}
	}

	if t.RegisterStart != 0 && t.RegisterStop != 0 {
		check(t.RegisterStart < t.RegisterStop, "register.start < register.stop",
			models.EventRegisterStart, models.EventRegisterStop)
	}
	if t.RegisterStart != 0 && t.RegisterSecondStart != 0 && t.RegisterStop != 0 {
		check(t.RegisterStart < t.RegisterSecondStart && t.RegisterSecondStart < t.RegisterStop,
			"register.start < register.second_start < register.stop",
			models.EventRegisterStart, models.EventRegisterSecondStart, models.EventRegisterStop)
	}
	if t.CheckinStart != 0 && t.CheckinStop != 0 {
		check(t.CheckinStart < t.CheckinStop, "checkin.start < checkin.stop",
			models.EventCheckinStart, models.EventCheckinStop)
		// A check-in window narrower than 1 minute is not usable; rather
		// than raising a conflict, checkin_stop is auto-ignored.
		if t.CheckinStop-t.CheckinStart < 60 {
			ignored[models.EventCheckinStop] = true
		}
	}

	if len(offenders) == 0 {
		return nil
	}
	return &ConflictingDatesError{Offenders: dedupEvents(offenders), Reason: "event ordering invariant violated"}
}

func dedupEvents(in []models.EventName) []models.EventName {
	seen := map[models.EventName]bool{}
	out := make([]models.EventName, 0, len(in))
	for _, e := range in {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// resumeFromRemote implements the AlreadyStarted resume path: disable
// registration/check-in, match every remote participant it can to a
// chat user, mark unmatchable ones for destruction, and move straight
// to ONGOING.
func (t *Tournament) resumeFromRemote(ctx context.Context) error {
	t.state.RegisterPhase = models.SubPhaseDone
	t.state.CheckinPhase = models.SubPhaseDone

	remoteParticipants, err := t.provider.ListParticipants(ctx)
	if err != nil {
		return err
	}

	for _, rp := range remoteParticipants {
		if !rp.Active {
			continue
		}
		user, ok := t.emitter.ResolveUserByName(ctx, t.state.ID, rp.Name)
		if !ok {
			if derr := t.provider.DestroyParticipant(ctx, rp.ID); derr != nil {
				t.logger.Printf("resume: failed destroying unmatchable participant %s: %v", rp.ID, derr)
			}
			continue
		}
		playerID := rp.ID
		t.state.Participants = append(t.state.Participants, models.Participant{
			ID:        newEntityID(),
			User:      *user,
			PlayerID:  &playerID,
			CheckedIn: true,
		})
	}

	if err := t.refreshTopEight(ctx); err != nil {
		return err
	}

	t.state.Phase = models.TournamentOngoing
	return nil
}

// ---- slab + index lookups ----

func (t *Tournament) participantIndexByPlayerID(playerID string) (int, bool) {
	for i := range t.state.Participants {
		p := &t.state.Participants[i]
		if p.PlayerID != nil && *p.PlayerID == playerID {
			return i, true
		}
	}
	return 0, false
}

func (t *Tournament) participantIndexByUserID(userID string) (int, bool) {
	for i := range t.state.Participants {
		if t.state.Participants[i].User.ID == userID {
			return i, true
		}
	}
	return 0, false
}

func (t *Tournament) matchIndex(id string) (int, bool) {
	for i := range t.state.Matches {
		if t.state.Matches[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (t *Tournament) matchIndexBySet(set int) (int, bool) {
	for i := range t.state.Matches {
		if t.state.Matches[i].Set == set {
			return i, true
		}
	}
	return 0, false
}

func (t *Tournament) matchIndexByRemoteID(remoteID string) (int, bool) {
	return t.matchIndex(remoteID)
}

func (t *Tournament) streamerIndex(id string) (int, bool) {
	for i := range t.state.Streamers {
		if t.state.Streamers[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

var idCounter int64
var idCounterMu sync.Mutex

// newEntityID allocates a locally-unique id for entities that have no
// remote id yet (a Participant before upload, for instance). Stable
// across the process lifetime, not globally unique; persisted state
// restores it byte-for-byte so it never needs to survive a restart
// without its matching row.
func newEntityID() string {
	idCounterMu.Lock()
	defer idCounterMu.Unlock()
	idCounter++
	return fmt.Sprintf("local-%d-%d", time.Now().UnixNano(), idCounter)
}

// ---- top_8 derivation (spec.md §4.2) ----

// refreshTopEight reads all round numbers from the remote and computes
// TopEight, following the exact clamp sequence of the original engine
// (winner.top8 = max(1, max(R)-2), loser.top8 = min(-1, min(R)+2), with
// the bo5 boundary offset by start_bo5 and clamped into [min(R), max(R)]).
func (t *Tournament) refreshTopEight(ctx context.Context) error {
	matches, err := t.provider.ListMatches(ctx)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	rounds := make([]int, 0, len(matches))
	for _, m := range matches {
		rounds = append(rounds, m.Round)
	}
	sort.Ints(rounds)
	minRound, maxRound := rounds[0], rounds[len(rounds)-1]

	top := models.TopEightBounds{}
	top.WinnerTop8 = maxRound - 2
	if top.WinnerTop8 < 1 {
		top.WinnerTop8 = 1
	}
	top.LoserTop8 = minRound + 2
	if top.LoserTop8 > -1 {
		top.LoserTop8 = -1
	}

	startBo5 := t.state.Config.StartBo5
	switch {
	case startBo5 > 0:
		top.WinnerBo5 = top.WinnerTop8 + startBo5 - 1
	case startBo5 == 0 || startBo5 == 1:
		top.WinnerBo5 = top.WinnerTop8 + startBo5
	default:
		top.WinnerBo5 = top.WinnerTop8 + startBo5 + 1
	}
	if startBo5 > 1 {
		top.LoserBo5 = minRound // top 3 is the loser final anyway
	} else {
		top.LoserBo5 = top.LoserTop8 - startBo5
	}

	if top.WinnerBo5 > maxRound {
		top.WinnerBo5 = maxRound
	}
	if top.WinnerBo5 < 1 {
		top.WinnerBo5 = 1
	}
	if top.LoserBo5 < minRound {
		top.LoserBo5 = minRound
	}
	if top.LoserBo5 > -1 {
		top.LoserBo5 = -1
	}

	t.state.TopEight = top
	t.refreshMatchDerivedFields()
	return nil
}

// refreshMatchDerivedFields recomputes IsTop8/IsBo5/RoundName/CheckedDQ
// for every match after TopEight changes, mirroring the eager
// recomputation the original Match.__init__ performs.
func (t *Tournament) refreshMatchDerivedFields() {
	for i := range t.state.Matches {
		m := &t.state.Matches[i]
		m.IsTop8 = m.Round >= t.state.TopEight.WinnerTop8 || m.Round <= t.state.TopEight.LoserTop8
		m.IsBo5 = m.Round >= t.state.TopEight.WinnerBo5 || m.Round <= t.state.TopEight.LoserBo5
		m.RoundName = roundName(m.Round, t.state.TopEight)
		if m.IsTop8 {
			m.CheckedDQ = true
		}
	}
}

func roundName(round int, top models.TopEightBounds) string {
	switch {
	case round == top.WinnerTop8 && round > 0:
		return "Winners semi-final"
	case round > 0:
		return fmt.Sprintf("Winners round %d", round)
	case round == top.LoserTop8 && round < 0:
		return "Losers semi-final"
	default:
		return fmt.Sprintf("Losers round %d", -round)
	}
}
