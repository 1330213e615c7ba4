// Package aggregator persists periodic analytics reports to PostgreSQL. Only
// statistics are stored; documents and the index stay in memory.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/postgres"
)

// DefaultRetention is how many snapshots SaveSnapshot keeps.
const DefaultRetention = 1000

// Store writes analytics.Report snapshots to the analytics_snapshots table
// created by postgres.Client.EnsureSchema.
type Store struct {
	db        *postgres.Client
	retention int
	logger    *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:        db,
		retention: DefaultRetention,
		logger:    slog.Default().With("component", "analytics-store"),
	}
}

// SaveSnapshot inserts report and prunes snapshots beyond the retention
// limit in the same transaction.
func (s *Store) SaveSnapshot(ctx context.Context, report analytics.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
			data, report.CapturedAt,
		); err != nil {
			return fmt.Errorf("inserting snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM analytics_snapshots WHERE id NOT IN (
			     SELECT id FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1)`,
			s.retention,
		); err != nil {
			return fmt.Errorf("pruning snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}

	log := s.logger.With("total_searches", report.Search.TotalSearches)
	if report.Requests != nil {
		log = log.With("zero_results_in_window", report.Requests.ZeroResults)
	}
	log.Info("analytics snapshot saved")
	return nil
}

// LatestSnapshot returns the newest snapshot, or nil when there is none.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.Report, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var report analytics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &report, nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows that fail
// to decode are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.Report, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	reports := make([]analytics.Report, 0, limit)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var report analytics.Report
		if err := json.Unmarshal(data, &report); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// Snapshots serves the newest snapshots, at most ?limit (default 20, max
// 500).
func (s *Store) Snapshots(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, 500)
	}
	reports, err := s.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing snapshots failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing snapshots failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(reports),
		"snapshots": reports,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// StartPeriodicSave saves report() every interval until ctx is done, then
// saves one final snapshot.
func (s *Store) StartPeriodicSave(ctx context.Context, report func() analytics.Report, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, report()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, report()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
