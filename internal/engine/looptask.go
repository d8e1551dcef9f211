// internal/engine/looptask.go
// LoopTask: the 15-second ticker driving reconciliation, launch,
// timeout, overtime, and stream passes (spec.md §4.2, §5).

package engine

import (
	"context"
	"sync"
	"time"

	"tournament-planner/internal/models"
)

const tickInterval = 15 * time.Second
const tickTimeout = 30 * time.Second

// taskRegistry is the in-process anti-duplicate safeguard: a LoopTask
// is named after its tournament id, and starting one with the same
// name cancels any pre-existing task first. This is process-local by
// design (spec.md §9 EXPANSION note): it only needs to prevent two
// goroutines racing within the same process, unlike the Redis-backed
// seeding cooldown which must survive a restart.
var (
	taskRegistry   = map[string]context.CancelFunc{}
	taskRegistryMu sync.Mutex
)

// StartLoop launches the reconciliation ticker for this tournament,
// cancelling any pre-existing task registered under the same id.
func (t *Tournament) StartLoop(ctx context.Context) {
	taskRegistryMu.Lock()
	if cancel, ok := taskRegistry[t.state.ID]; ok {
		cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	taskRegistry[t.state.ID] = cancel
	taskRegistryMu.Unlock()

	t.mu.Lock()
	t.loopCancel = cancel
	t.resumeCheckedDQ()
	t.mu.Unlock()

	go t.runLoop(loopCtx)
}

// StopLoop cancels the running ticker, if any. Cooperative: the
// in-flight tick is not retried.
func (t *Tournament) StopLoop() {
	taskRegistryMu.Lock()
	if cancel, ok := taskRegistry[t.state.ID]; ok {
		cancel()
		delete(taskRegistry, t.state.ID)
	}
	taskRegistryMu.Unlock()
}

// resumeCheckedDQ forcibly marks checked_dq on every ONGOING match
// already past the AFK threshold, avoiding a thundering-herd
// disqualification on the first tick after a long pause.
func (t *Tournament) resumeCheckedDQ() {
	delay := t.state.Config.DelaySeconds
	if delay == 0 {
		return
	}
	now := nowEpoch()
	for i := range t.state.Matches {
		m := &t.state.Matches[i]
		if m.Phase != models.MatchOngoing || m.CheckedDQ || m.StartTime == nil {
			continue
		}
		if now-*m.StartTime >= delay {
			m.CheckedDQ = true
		}
	}
}

func (t *Tournament) runLoop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runTick(ctx)
		}
	}
}

// runTick executes exactly one reconciliation tick under lock, with a
// hard timeout; a timeout counts as a tick error.
func (t *Tournament) runTick(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, tickTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		t.tick(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.mu.Lock()
		t.state.TaskErrors++
		t.mu.Unlock()
		t.logger.Printf("tick: hard timeout exceeded for tournament %s", t.state.ID)
	}
}

// tick runs one full pass: scheduler, participants/matches/streamer
// refresh, launch, timeout, overtime, stream, in that fixed order.
func (t *Tournament) tick(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	errored := false
	guard := func(name string, fn func() error) {
		if err := fn(); err != nil {
			t.logger.Printf("tick: %s failed: %v", name, err)
			errored = true
		}
	}

	t.runScheduler(ctx)

	guard("updateParticipants", func() error { return t.updateParticipants(ctx) })
	guard("updateMatches", func() error { return t.updateMatches(ctx) })

	t.refreshStreamers()

	guard("launchPass", func() error { return t.launchPass(ctx) })
	guard("timeoutPass", func() error { return t.timeoutPass(ctx) })
	guard("overtimePass", func() error { return t.overtimePass(ctx) })

	t.streamPass(ctx)

	if errored {
		t.state.TaskErrors++
	} else {
		t.state.TaskErrors = 0
	}

	if t.state.TaskErrors >= maxTaskErrors {
		t.logger.Printf("tick: error budget exceeded for tournament %s, cancelling loop", t.state.ID)
		go t.StopLoop()
	}
}

// launchPass launches at most maxLaunchesPerTick PENDING matches with
// no channel.
func (t *Tournament) launchPass(ctx context.Context) error {
	launched := 0
	for i := range t.state.Matches {
		if launched >= maxLaunchesPerTick {
			break
		}
		m := &t.state.Matches[i]
		if m.Phase != models.MatchPending || m.Channel != nil {
			continue
		}
		if err := t.launchMatch(ctx, i); err != nil {
			t.logger.Printf("launchPass: match %s: %v", m.ID, err)
			continue
		}
		launched++
	}
	return nil
}
