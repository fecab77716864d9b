// Package usage aggregates the anonymous usage events into the numbers shown
// on the usage-stats endpoint.
package usage

import (
	"fmt"

	"github.com/WIlski54/Leseassistent/internal/db"
)

type Queries struct {
	db *db.DB
}

func NewQueries(database *db.DB) *Queries {
	return &Queries{db: database}
}

// EventCount is a total per event type.
type EventCount struct {
	Event string `json:"event"`
	Count int64  `json:"count"`
}

// ProviderCount is a total per upstream provider.
type ProviderCount struct {
	Provider string `json:"provider"`
	Count    int64  `json:"count"`
}

// DailyCount is sessions created per day.
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Stats is the full usage-stats response.
type Stats struct {
	Events       []EventCount    `json:"events"`
	Providers    []ProviderCount `json:"providers"`
	Daily        []DailyCount    `json:"daily_sessions"`
	TTSCacheRate float64         `json:"tts_cache_hit_rate"`
}

func (q *Queries) EventCounts() ([]EventCount, error) {
	rows, err := q.db.Query(`SELECT event, COUNT(*) FROM usage_events GROUP BY event ORDER BY event`)
	if err != nil {
		return nil, fmt.Errorf("querying event counts: %w", err)
	}
	defer rows.Close()

	var counts []EventCount
	for rows.Next() {
		var c EventCount
		if err := rows.Scan(&c.Event, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (q *Queries) ProviderCounts() ([]ProviderCount, error) {
	rows, err := q.db.Query(`SELECT provider, COUNT(*) FROM usage_events
		WHERE provider <> '' GROUP BY provider ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying provider counts: %w", err)
	}
	defer rows.Close()

	var counts []ProviderCount
	for rows.Next() {
		var c ProviderCount
		if err := rows.Scan(&c.Provider, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// DailySessions returns sessions created per day over the last n days.
func (q *Queries) DailySessions(days int) ([]DailyCount, error) {
	rows, err := q.db.Query(`SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*)
		FROM usage_events
		WHERE event = $1 AND created_at > NOW() - ($2::text || ' days')::interval
		GROUP BY created_at::date ORDER BY created_at::date`,
		db.EventSessionCreated, days)
	if err != nil {
		return nil, fmt.Errorf("querying daily sessions: %w", err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TTSCacheHitRate returns the share of TTS requests served from cache.
func (q *Queries) TTSCacheHitRate() (float64, error) {
	var total, hits int64
	err := q.db.QueryRow(`SELECT COUNT(*), COUNT(*) FILTER (WHERE cache_hit)
		FROM usage_events WHERE event = $1`, db.EventTTSRequest).Scan(&total, &hits)
	if err != nil {
		return 0, fmt.Errorf("querying cache hit rate: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(hits) / float64(total), nil
}

// Collect gathers the full stats response.
func (q *Queries) Collect() (*Stats, error) {
	events, err := q.EventCounts()
	if err != nil {
		return nil, err
	}
	providers, err := q.ProviderCounts()
	if err != nil {
		return nil, err
	}
	daily, err := q.DailySessions(30)
	if err != nil {
		return nil, err
	}
	rate, err := q.TTSCacheHitRate()
	if err != nil {
		return nil, err
	}
	return &Stats{Events: events, Providers: providers, Daily: daily, TTSCacheRate: rate}, nil
}
