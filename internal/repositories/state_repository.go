// internal/repositories/state_repository.go
// Persisted tournament state: one row per tournament holding the
// full serialized engine snapshot as a JSON blob, versioned for
// optimistic-concurrency-free (lock-guarded) replace-on-save.

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tournament-planner/internal/models"
)

// StateRepository handles persisted tournament-state data access.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new state repository.
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// ProviderCredentials are the per-tournament remote bracket provider
// credentials, persisted alongside state so a process restart can
// rebuild a provider.Client without operator intervention.
type ProviderCredentials struct {
	BaseURL string
	APIKey  string
}

// Save upserts the full serialized state for one tournament.
func (r *StateRepository) Save(ctx context.Context, state *models.Tournament, creds ProviderCredentials) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament state: %w", err)
	}

	query := `
		INSERT INTO tournament_state (remote_id, name, phase, data, provider_base_url, provider_api_key, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, NOW())
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			phase = VALUES(phase),
			data = VALUES(data),
			provider_base_url = VALUES(provider_base_url),
			provider_api_key = VALUES(provider_api_key),
			version = version + 1,
			updated_at = NOW()
	`
	_, err = r.db.ExecContext(ctx, query, state.ID, state.Name, state.Phase, data, creds.BaseURL, creds.APIKey)
	if err != nil {
		return fmt.Errorf("failed to save tournament state: %w", err)
	}
	return nil
}

// Load restores one tournament's full state and provider credentials
// by remote id.
func (r *StateRepository) Load(ctx context.Context, remoteID string) (*models.Tournament, ProviderCredentials, error) {
	query := `SELECT data, provider_base_url, provider_api_key FROM tournament_state WHERE remote_id = ?`

	var data []byte
	var creds ProviderCredentials
	err := r.db.QueryRowContext(ctx, query, remoteID).Scan(&data, &creds.BaseURL, &creds.APIKey)
	if err == sql.ErrNoRows {
		return nil, creds, fmt.Errorf("tournament %s not found", remoteID)
	}
	if err != nil {
		return nil, creds, fmt.Errorf("failed to load tournament state: %w", err)
	}

	var state models.Tournament
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, creds, fmt.Errorf("failed to unmarshal tournament state: %w", err)
	}
	return &state, creds, nil
}

// ListActive returns the remote ids of every tournament not yet DONE,
// used to resume LoopTasks on process start.
func (r *StateRepository) ListActive(ctx context.Context) ([]string, error) {
	query := `SELECT remote_id FROM tournament_state WHERE phase != ?`

	rows, err := r.db.QueryContext(ctx, query, models.TournamentDone)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tournaments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a tournament's persisted state, used on bracket reset
// or a fully-torn-down tournament.
func (r *StateRepository) Delete(ctx context.Context, remoteID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tournament_state WHERE remote_id = ?`, remoteID)
	if err != nil {
		return fmt.Errorf("failed to delete tournament state: %w", err)
	}
	return nil
}
