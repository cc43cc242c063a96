package universe

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Repository persists the ordered asset universe. Position is the canonical
// asset index used by masks and weight vectors; it never changes for a
// stored universe.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new universe repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "universe_repo").Logger(),
	}
}

// Set replaces the stored universe with the given tickers, deduplicated
// while preserving first-occurrence order.
func (r *Repository) Set(tickers []string) ([]string, error) {
	deduped := Dedupe(tickers)
	if len(deduped) == 0 {
		return nil, fmt.Errorf("universe cannot be empty")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM universe`); err != nil {
		return nil, fmt.Errorf("failed to clear universe: %w", err)
	}

	for i, symbol := range deduped {
		if _, err := tx.Exec(`INSERT INTO universe (position, symbol) VALUES (?, ?)`, i, symbol); err != nil {
			return nil, fmt.Errorf("failed to insert %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit universe: %w", err)
	}

	r.log.Info().Int("count", len(deduped)).Msg("Universe updated")
	return deduped, nil
}

// Get returns the stored universe in canonical order. An empty slice means
// no universe has been configured yet.
func (r *Repository) Get() ([]string, error) {
	rows, err := r.db.Query(`SELECT symbol FROM universe ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query universe: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan universe row: %w", err)
		}
		tickers = append(tickers, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating universe rows: %w", err)
	}

	return tickers, nil
}

// Dedupe removes duplicate tickers, keeping first-occurrence order.
func Dedupe(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	var out []string
	for _, t := range tickers {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
