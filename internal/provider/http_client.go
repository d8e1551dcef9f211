// internal/provider/http_client.go
// HTTP adapter implementing Client against a Challonge-shaped REST API.
// The retry-on-5xx policy mirrors the backoff loop the teacher uses to
// establish its MySQL connection (internal/database.initMySQL): a small,
// bounded number of attempts with a short sleep between them.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient is the reference Client implementation.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// NewHTTPClient creates a provider HTTP adapter.
func NewHTTPClient(baseURL, apiKey string, logger *log.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// do performs an HTTP request against the provider, retrying once
// after a short backoff on a retryable (5xx/504) failure.
func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.logger.Printf("provider: retrying %s %s after error: %v", method, path, lastErr)
			select {
			case <-time.After(time.Duration(1+attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if perr, ok := err.(*Error); ok && perr.Retryable() {
			continue
		}
		return err
	}

	return lastErr
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("build provider url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Status: 504, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}

	return nil
}

type tournamentWire struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Game    string `json:"game_name"`
	URL     string `json:"url"`
	Limit   *int   `json:"signup_cap"`
	State   string `json:"state"`
	StartAt int64  `json:"start_at"`
}

func (c *HTTPClient) ShowTournament(ctx context.Context, ref string) (*TournamentInfo, error) {
	var wire tournamentWire
	if err := c.do(ctx, http.MethodGet, "/tournaments/"+url.PathEscape(ref), nil, &wire); err != nil {
		return nil, err
	}
	return &TournamentInfo{
		ID:      wire.ID,
		Name:    wire.Name,
		Game:    wire.Game,
		URL:     wire.URL,
		Limit:   wire.Limit,
		Status:  RemoteStatus(wire.State),
		StartAt: wire.StartAt,
	}, nil
}

func (c *HTTPClient) StartTournament(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/tournaments/start", nil, nil)
}

func (c *HTTPClient) FinalizeTournament(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/tournaments/finalize", nil, nil)
}

func (c *HTTPClient) ResetTournament(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/tournaments/reset", nil, nil)
}

type participantWire struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (c *HTTPClient) ListParticipants(ctx context.Context) ([]RemoteParticipant, error) {
	var wire []participantWire
	if err := c.do(ctx, http.MethodGet, "/participants", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]RemoteParticipant, 0, len(wire))
	for _, w := range wire {
		out = append(out, RemoteParticipant{ID: w.ID, Name: w.Name, Active: w.Active})
	}
	return out, nil
}

func (c *HTTPClient) CreateParticipant(ctx context.Context, name string, seed int) (string, error) {
	var wire participantWire
	body := map[string]interface{}{"name": name, "seed": seed}
	if err := c.do(ctx, http.MethodPost, "/participants", body, &wire); err != nil {
		return "", err
	}
	return wire.ID, nil
}

func (c *HTTPClient) DestroyParticipant(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/participants/"+url.PathEscape(id), nil, nil)
}

type matchWire struct {
	ID         string  `json:"id"`
	Round      int     `json:"round"`
	Set        int     `json:"suggested_play_order"`
	State      string  `json:"state"`
	Player1ID  *string `json:"player1_id"`
	Player2ID  *string `json:"player2_id"`
	UnderwayAt *int64  `json:"underway_at"`
	ScoresCSV  string  `json:"scores_csv"`
	WinnerID   *string `json:"winner_id"`
}

func (c *HTTPClient) ListMatches(ctx context.Context) ([]RemoteMatch, error) {
	var wire []matchWire
	if err := c.do(ctx, http.MethodGet, "/matches", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]RemoteMatch, 0, len(wire))
	for _, w := range wire {
		out = append(out, RemoteMatch{
			ID:         w.ID,
			Round:      w.Round,
			Set:        w.Set,
			State:      MatchState(w.State),
			Player1ID:  w.Player1ID,
			Player2ID:  w.Player2ID,
			UnderwayAt: w.UnderwayAt,
			ScoresCSV:  w.ScoresCSV,
			WinnerID:   w.WinnerID,
		})
	}
	return out, nil
}

func (c *HTTPClient) UpdateMatch(ctx context.Context, id string, scoresCSV string, winnerID string) error {
	body := map[string]interface{}{"scores_csv": scoresCSV, "winner_id": winnerID}
	return c.do(ctx, http.MethodPut, "/matches/"+url.PathEscape(id), body, nil)
}

func (c *HTTPClient) MarkMatchUnderway(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/matches/"+url.PathEscape(id)+"/mark_as_underway", nil, nil)
}

func (c *HTTPClient) UnmarkMatchUnderway(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/matches/"+url.PathEscape(id)+"/unmark_as_underway", nil, nil)
}
