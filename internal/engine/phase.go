// internal/engine/phase.go
// Tournament-level phase machine: registration/check-in sub-phases,
// the event scheduler, start/end/resetBracket (spec.md §4.2).

package engine

import (
	"context"
	"fmt"

	"tournament-planner/internal/models"
	"tournament-planner/internal/notify"
)

// StartRegistration opens (or re-opens, if second) the registration
// sub-phase.
func (t *Tournament) StartRegistration(ctx context.Context, second bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startRegistration(ctx, second)
}

func (t *Tournament) startRegistration(ctx context.Context, second bool) error {
	if t.state.Phase != models.TournamentPending && t.state.Phase != models.TournamentRegister {
		return &WrongPhaseError{Operation: "startRegistration", Current: t.state.Phase,
			Allowed: []interface{}{models.TournamentPending, models.TournamentRegister}}
	}

	t.state.Phase = models.TournamentRegister
	t.state.RegisterPhase = models.SubPhaseOngoing

	kind := notify.KindRegistrationOpen
	payload := map[string]interface{}{"second": second}
	t.emitter.NotifyAnnouncement(ctx, t.state.ID, kind, payload)

	return nil
}

// EndRegistration closes the registration sub-phase, moving to
// ON_HOLD if a second opening is still scheduled, else DONE.
func (t *Tournament) EndRegistration(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endRegistration(ctx)
}

func (t *Tournament) endRegistration(ctx context.Context) error {
	if t.state.RegisterPhase != models.SubPhaseOngoing {
		return nil // idempotent no-op per spec.md §8
	}

	if t.state.Timings.RegisterSecondStart != 0 && t.state.Timings.RegisterSecondStart > nowEpoch() {
		t.state.RegisterPhase = models.SubPhaseOnHold
	} else {
		t.state.RegisterPhase = models.SubPhaseDone
	}

	t.emitter.NotifyAnnouncement(ctx, t.state.ID, notify.KindRegistrationClosed, nil)

	if t.noFurtherScheduledEvents() {
		t.state.Phase = models.TournamentAwaiting
		go t.seedAndUpload(context.Background())
	}
	return nil
}

// StartCheckin opens the check-in sub-phase and schedules reminders.
func (t *Tournament) StartCheckin(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startCheckin(ctx)
}

func (t *Tournament) startCheckin(ctx context.Context) error {
	if t.state.CheckinPhase != models.SubPhasePending && t.state.CheckinPhase != models.SubPhaseManual {
		return &WrongPhaseError{Operation: "startCheckin", Current: t.state.CheckinPhase,
			Allowed: []interface{}{models.SubPhasePending, models.SubPhaseManual}}
	}

	if len(t.state.Participants) == 0 {
		t.state.CheckinPhase = models.SubPhaseDone
		if t.noFurtherScheduledEvents() {
			t.state.Phase = models.TournamentAwaiting
			go t.seedAndUpload(context.Background())
		}
		return nil
	}

	t.state.CheckinPhase = models.SubPhaseOngoing
	t.state.CheckinReminders = buildCheckinReminders(t.state.Timings)
	t.emitter.NotifyAnnouncement(ctx, t.state.ID, notify.KindCheckinOpen, nil)
	return nil
}

// buildCheckinReminders schedules the -15/-10/-5 minute reminders
// relative to checkin.stop, each only if the window permits it.
func buildCheckinReminders(timings models.EventTimings) []models.CheckinReminder {
	if timings.CheckinStart == 0 || timings.CheckinStop == 0 {
		return nil
	}
	window := timings.CheckinStop - timings.CheckinStart
	candidates := []models.CheckinReminder{
		{MinutesBefore: 15, WithDM: false},
		{MinutesBefore: 10, WithDM: true},
		{MinutesBefore: 5, WithDM: false},
	}
	var out []models.CheckinReminder
	for _, c := range candidates {
		if int64(c.MinutesBefore)*60 < window {
			out = append(out, c)
		}
	}
	return out
}

// CallCheckin emits a reminder naming unchecked participants.
func (t *Tournament) CallCheckin(ctx context.Context, withDM bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	unchecked := t.uncheckedParticipants()
	t.emitter.NotifyAnnouncement(ctx, t.state.ID, notify.KindCheckinReminder, map[string]interface{}{
		"unchecked": unchecked,
		"with_dm":   withDM,
	})
	return nil
}

// EndCheckin closes the check-in window, unregistering everyone who
// never checked in.
func (t *Tournament) EndCheckin(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endCheckin(ctx)
}

func (t *Tournament) endCheckin(ctx context.Context) error {
	if t.state.CheckinPhase != models.SubPhaseOngoing {
		return nil
	}

	for i := len(t.state.Participants) - 1; i >= 0; i-- {
		if !t.state.Participants[i].CheckedIn {
			if err := t.removeParticipantAt(ctx, i); err != nil {
				t.logger.Printf("endCheckin: failed dropping unchecked participant: %v", err)
			}
		}
	}

	t.state.CheckinPhase = models.SubPhaseDone

	if t.noFurtherScheduledEvents() {
		t.state.Phase = models.TournamentAwaiting
		go t.seedAndUpload(context.Background())
	}
	return nil
}

// noFurtherScheduledEvents reports whether every register/checkin
// sub-phase has reached its terminal state.
func (t *Tournament) noFurtherScheduledEvents() bool {
	registerDone := t.state.RegisterPhase == models.SubPhaseDone || t.state.RegisterPhase == models.SubPhaseManual
	checkinDone := t.state.CheckinPhase == models.SubPhaseDone || t.state.CheckinPhase == models.SubPhaseManual
	return registerDone && checkinDone
}

// seedAndUpload is the background job triggered when every
// registration/check-in gate has closed: seed ranking (if configured)
// then upload participants to the remote bracket.
func (t *Tournament) seedAndUpload(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seeder != nil && t.state.Config.RankingLeagueID != "" {
		seeded, err := t.seeder.Seed(ctx, t.state.ID, t.state.Participants, t.state.Config)
		if err != nil {
			t.logger.Printf("seedAndUpload: seeding failed, keeping existing order: %v", err)
			t.emitter.NotifyTO(ctx, t.state.ID, notify.KindConfigurationError, map[string]interface{}{"seeding_failed": true})
		} else {
			t.state.Participants = seeded
		}
	}

	if err := t.addParticipants(ctx, false); err != nil {
		t.logger.Printf("seedAndUpload: upload failed: %v", err)
		t.emitter.NotifyTO(ctx, t.state.ID, notify.KindConfigurationError, map[string]interface{}{"upload_failed": true})
	}
}

// addParticipants uploads the local roster to the remote bracket. When
// force, every remote participant is destroyed and recreated in exact
// local order; otherwise only the unknown tail is appended.
func (t *Tournament) addParticipants(ctx context.Context, force bool) error {
	if force {
		remote, err := t.provider.ListParticipants(ctx)
		if err != nil {
			return err
		}
		for _, rp := range remote {
			if err := t.provider.DestroyParticipant(ctx, rp.ID); err != nil {
				t.logger.Printf("addParticipants: destroy failed for %s: %v", rp.ID, err)
			}
		}
		for i := range t.state.Participants {
			p := &t.state.Participants[i]
			playerID, err := t.provider.CreateParticipant(ctx, p.User.DisplayName, i+1)
			if err != nil {
				return fmt.Errorf("addParticipants: create failed for %s: %w", p.User.DisplayName, err)
			}
			p.PlayerID = &playerID
		}
		return nil
	}

	for i := range t.state.Participants {
		p := &t.state.Participants[i]
		if p.Uploaded() {
			continue
		}
		playerID, err := t.provider.CreateParticipant(ctx, p.User.DisplayName, i+1)
		if err != nil {
			return fmt.Errorf("addParticipants: create failed for %s: %w", p.User.DisplayName, err)
		}
		p.PlayerID = &playerID
	}
	return nil
}

// Start transitions AWAITING -> ONGOING: starts the remote bracket and
// computes top_8. It does not start the reconciliation loop; the loop
// started by StartLoop keeps running across this transition.
func (t *Tournament) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Phase != models.TournamentAwaiting {
		return &WrongPhaseError{Operation: "start", Current: t.state.Phase, Allowed: []interface{}{models.TournamentAwaiting}}
	}

	if err := t.provider.StartTournament(ctx); err != nil {
		return err
	}
	if err := t.refreshTopEight(ctx); err != nil {
		return err
	}

	t.state.Phase = models.TournamentOngoing
	t.emitter.NotifyAnnouncement(ctx, t.state.ID, notify.KindTournamentStart, nil)
	return nil
}

// End transitions ONGOING -> DONE: guard requires no match still
// ONGOING. Finalizes the remote bracket, stops the loop and clears the
// engine's winner/loser category lists and capacity counts. No emitter
// call is made for the categories, so they are not deleted.
func (t *Tournament) End(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Phase != models.TournamentOngoing {
		return &WrongPhaseError{Operation: "end", Current: t.state.Phase, Allowed: []interface{}{models.TournamentOngoing}}
	}
	for _, m := range t.state.Matches {
		if m.Phase == models.MatchOngoing {
			return fmt.Errorf("end: match %s is still ongoing", m.ID)
		}
	}

	if err := t.provider.FinalizeTournament(ctx); err != nil {
		return err
	}

	t.StopLoop()

	t.state.WinnerCategories = nil
	t.state.LoserCategories = nil
	t.categoryCapacity = make(map[string]int)

	t.state.Phase = models.TournamentDone
	t.emitter.NotifyAnnouncement(ctx, t.state.ID, notify.KindTournamentEnd, nil)
	return nil
}

// ResetBracket resets the remote bracket; the next reconciler pass
// will detect every finished/ongoing match as reverted and force-end
// them.
func (t *Tournament) ResetBracket(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.provider.ResetTournament(ctx)
}

// ---- event scheduler ----

// dueEvent is returned by nextDueEvent; Name identifies which
// transition is due.
type dueEvent struct {
	Name models.EventName
	At   int64
}

// runScheduler evaluates the fixed due-order from spec.md §4.2 and
// fires at most one transition per tick (the following tick will pick
// up the next due event, preserving the listed tie-break order).
func (t *Tournament) runScheduler(ctx context.Context) {
	now := nowEpoch()
	tm := t.state.Timings

	fire := func(name models.EventName, due int64, guard bool, op func() error) bool {
		if t.state.IgnoredEvents[name] {
			return false
		}
		if due == 0 || now < due || !guard {
			return false
		}
		if err := op(); err != nil {
			t.logger.Printf("scheduler: %s failed: %v", name, err)
			t.state.TaskErrors++
		}
		return true
	}

	if fire(models.EventRegisterStart, tm.RegisterStart, t.state.RegisterPhase == models.SubPhasePending,
		func() error { return t.startRegistration(ctx, false) }) {
		return
	}
	if fire(models.EventCheckinStop, tm.CheckinStop, t.state.CheckinPhase == models.SubPhaseOngoing,
		func() error { return t.endCheckin(ctx) }) {
		return
	}
	if fire(models.EventCheckinStart, tm.CheckinStart, t.state.CheckinPhase == models.SubPhasePending,
		func() error { return t.startCheckin(ctx) }) {
		return
	}
	if fire(models.EventRegisterSecondStart, tm.RegisterSecondStart, t.state.RegisterPhase == models.SubPhaseOnHold,
		func() error { return t.startRegistration(ctx, true) }) {
		return
	}
	fire(models.EventRegisterStop, tm.RegisterStop, t.state.RegisterPhase == models.SubPhaseOngoing,
		func() error { return t.endRegistration(ctx) })
}
