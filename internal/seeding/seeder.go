// internal/seeding/seeder.go
// Seeder: paged ranking CSV fetch, elo mapping, and ranked-then-
// shuffled-tail ordering (spec.md §4.5). Implements engine.Seeder.

package seeding

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"tournament-planner/internal/models"
	"tournament-planner/internal/utils"
)

const maxRankingPages = 5
const cooldown = 5 * time.Minute

// Cache is the narrow interface Seeder needs from services.CacheService
// for the cross-invocation ranking-fetch cooldown.
type Cache interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}

// HTTPGetter abstracts the ranking CSV download so tests can stub it.
type HTTPGetter interface {
	Get(url string) (*http.Response, error)
}

// Seeder fetches a ranking source and reorders participants by it.
type Seeder struct {
	http   HTTPGetter
	cache  Cache
	logger *log.Logger
}

// NewSeeder builds a Seeder against the given ranking-source client.
func NewSeeder(httpClient HTTPGetter, cache Cache, logger *log.Logger) *Seeder {
	return &Seeder{http: httpClient, cache: cache, logger: logger}
}

// DefaultHTTPGetter returns the production HTTPGetter: a plain
// *http.Client with a bounded timeout for the ranking source.
func DefaultHTTPGetter() HTTPGetter {
	return &http.Client{Timeout: 10 * time.Second}
}

// Seed downloads the ranking CSV for cfg's configured league, maps
// each participant to its elo (or the minimum seen value if absent),
// sorts the ranked participants descending, and shuffles the
// unranked tail. On any failure the original ordering is returned
// unchanged alongside the error (spec.md §4.5 rollback guarantee).
func (s *Seeder) Seed(ctx context.Context, tournamentID string, participants []models.Participant, cfg models.EngineConfig) ([]models.Participant, error) {
	original := append([]models.Participant(nil), participants...)

	if cfg.RankingLeagueID == "" {
		return original, nil
	}

	cooldownKey := fmt.Sprintf("seeding:cooldown:%s", tournamentID)
	allowed, err := s.cache.SetNX(ctx, cooldownKey, true, cooldown)
	if err != nil {
		return original, fmt.Errorf("seeding cooldown check failed: %w", err)
	}
	if !allowed {
		return original, fmt.Errorf("seeding: ranking fetch is on cooldown for %s", tournamentID)
	}

	points, err := s.fetchRanking(cfg.RankingLeagueID)
	if err != nil {
		return original, err
	}

	minPoints := 0
	first := true
	for _, v := range points {
		if first || v < minPoints {
			minPoints = v
			first = false
		}
	}

	seeded := append([]models.Participant(nil), original...)
	for i := range seeded {
		p := &seeded[i]
		if v, ok := points[p.User.DisplayName]; ok {
			elo := float64(v)
			p.Elo = &elo
		} else {
			elo := float64(minPoints)
			p.Elo = &elo
		}
	}

	var ranked, unranked []models.Participant
	for _, p := range seeded {
		if _, ok := points[p.User.DisplayName]; ok {
			ranked = append(ranked, p)
		} else {
			unranked = append(unranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return *ranked[i].Elo > *ranked[j].Elo })
	shuffle(unranked)

	return append(ranked, unranked...), nil
}

// fetchRanking downloads pages 1..maxRankingPages of the ranking
// source, stopping early when a page is byte-identical to the one
// before it (end of pagination), and merges every page's name->points
// mapping.
func (s *Seeder) fetchRanking(leagueID string) (map[string]int, error) {
	points := make(map[string]int)
	var previousPage []byte

	for page := 1; page <= maxRankingPages; page++ {
		url := fmt.Sprintf("https://rankings.example/leagues/%s?page=%d", leagueID, page)
		resp, err := s.http.Get(url)
		if err != nil {
			return nil, fmt.Errorf("fetch ranking page %d: %w", page, err)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read ranking page %d: %w", page, err)
		}

		if previousPage != nil && string(data) == string(previousPage) {
			break
		}
		previousPage = data

		if err := mergeRankingPage(data, points); err != nil {
			return nil, fmt.Errorf("parse ranking page %d: %w", page, err)
		}
	}

	return points, nil
}

func mergeRankingPage(data []byte, into map[string]int) error {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 2

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		var pts int
		if _, err := fmt.Sscanf(record[1], "%d", &pts); err != nil {
			continue
		}
		into[record[0]] = pts
	}
	return nil
}

// shuffle performs an in-place Fisher-Yates shuffle using the
// package's crypto-backed random source.
func shuffle(p []models.Participant) {
	for i := len(p) - 1; i > 0; i-- {
		j := utils.RandomInt(i + 1)
		p[i], p[j] = p[j], p[i]
	}
}
