// internal/services/engine_service.go
// EngineService is the glue between the HTTP/websocket presentation
// layer and the in-memory engine.Tournament aggregates: it owns the
// live registry, persists state after every mutation, and rebuilds a
// provider.Client per tournament from its stored credentials.

package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"tournament-planner/internal/engine"
	"tournament-planner/internal/models"
	"tournament-planner/internal/notify"
	"tournament-planner/internal/provider"
	"tournament-planner/internal/repositories"
	"tournament-planner/internal/seeding"
)

// ProviderFactory builds a provider.Client bound to one operator's
// remote bracket credentials.
type ProviderFactory func(baseURL, apiKey string) provider.Client

// EngineService owns the live set of in-memory tournament aggregates.
type EngineService struct {
	stateRepo       *repositories.StateRepository
	emitter         notify.Emitter
	seeder          *seeding.Seeder
	providerFactory ProviderFactory
	logger          *log.Logger

	mu      sync.RWMutex
	live    map[string]*engine.Tournament
	creds   map[string]repositories.ProviderCredentials
}

// NewEngineService builds an EngineService.
func NewEngineService(stateRepo *repositories.StateRepository, emitter notify.Emitter, seeder *seeding.Seeder, providerFactory ProviderFactory, logger *log.Logger) *EngineService {
	return &EngineService{
		stateRepo:       stateRepo,
		emitter:         emitter,
		seeder:          seeder,
		providerFactory: providerFactory,
		logger:          logger,
		live:            make(map[string]*engine.Tournament),
		creds:           make(map[string]repositories.ProviderCredentials),
	}
}

// CreateTournamentRequest describes a new tournament to bring under
// engine management.
type CreateTournamentRequest struct {
	Ref             string
	BaseURL         string
	APIKey          string
	Config          models.EngineConfig
	TZOffsetSeconds int
}

// CreateTournament sets up a new aggregate against the remote bracket
// provider, registers it for the reconciliation loop, and persists it.
func (s *EngineService) CreateTournament(ctx context.Context, req CreateTournamentRequest) (*models.Tournament, error) {
	client := s.providerFactory(req.BaseURL, req.APIKey)

	result, err := engine.Setup(ctx, req.Ref, req.Config, client, s.emitter, s.seeder, s.logger, req.TZOffsetSeconds)
	if err != nil {
		return nil, err
	}

	creds := repositories.ProviderCredentials{BaseURL: req.BaseURL, APIKey: req.APIKey}
	if err := s.register(ctx, result.Tournament, creds); err != nil {
		return nil, err
	}

	state := result.Tournament.State()
	return &state, nil
}

// register adds a tournament to the live registry, persists its
// initial state, and starts its reconciliation loop.
func (s *EngineService) register(ctx context.Context, t *engine.Tournament, creds repositories.ProviderCredentials) error {
	s.mu.Lock()
	s.live[t.ID()] = t
	s.creds[t.ID()] = creds
	s.mu.Unlock()

	state := t.State()
	if err := s.stateRepo.Save(ctx, &state, creds); err != nil {
		return fmt.Errorf("failed to persist new tournament: %w", err)
	}

	t.StartLoop(context.Background())
	return nil
}

// ResumeAll reloads every not-yet-DONE tournament from storage and
// restarts its reconciliation loop. Intended to run once at process
// startup.
func (s *EngineService) ResumeAll(ctx context.Context) error {
	ids, err := s.stateRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active tournaments: %w", err)
	}

	for _, id := range ids {
		state, creds, err := s.stateRepo.Load(ctx, id)
		if err != nil {
			s.logger.Printf("resume %s: load failed: %v", id, err)
			continue
		}

		client := s.providerFactory(creds.BaseURL, creds.APIKey)
		t := engine.New(*state, client, s.emitter, s.seeder, s.logger)

		s.mu.Lock()
		s.live[id] = t
		s.creds[id] = creds
		s.mu.Unlock()

		t.StartLoop(context.Background())
		s.logger.Printf("resumed tournament %s in phase %v", id, state.Phase)
	}
	return nil
}

// Get returns the live aggregate for a tournament id.
func (s *EngineService) Get(id string) (*engine.Tournament, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.live[id]
	return t, ok
}

// Snapshot returns the current serializable state for a tournament id.
func (s *EngineService) Snapshot(id string) (*models.Tournament, error) {
	t, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	state := t.State()
	return &state, nil
}

// Persist saves a tournament's current state, called after every
// mutating operation so a process restart never loses committed work.
func (s *EngineService) Persist(ctx context.Context, id string) error {
	t, ok := s.Get(id)
	if !ok {
		return ErrNotFound
	}

	s.mu.RLock()
	creds := s.creds[id]
	s.mu.RUnlock()

	state := t.State()
	return s.stateRepo.Save(ctx, &state, creds)
}

// Remove drops a tournament from the live registry and its persisted
// storage, stopping its loop first. Used once a tournament reaches
// TournamentDone and its operator tears it down.
func (s *EngineService) Remove(ctx context.Context, id string) error {
	t, ok := s.Get(id)
	if !ok {
		return ErrNotFound
	}
	t.StopLoop()

	s.mu.Lock()
	delete(s.live, id)
	delete(s.creds, id)
	s.mu.Unlock()

	return s.stateRepo.Delete(ctx, id)
}

// ShutdownAll stops every live reconciliation loop. Called on graceful
// server shutdown.
func (s *EngineService) ShutdownAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.live {
		t.StopLoop()
	}
}
