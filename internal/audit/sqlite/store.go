// Package sqlite is a durable TrailStore backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/execboard/boardroom/internal/audit"
	"github.com/execboard/boardroom/internal/domain"
)

// Store is a SQLite implementation of audit.TrailStore.
type Store struct {
	db *sql.DB
}

var _ audit.TrailStore = (*Store)(nil)

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_trails (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			query TEXT,
			context TEXT,
			decision TEXT,
			confidence REAL NOT NULL DEFAULT 0,
			steps TEXT,
			evidence_count INTEGER NOT NULL DEFAULT 0,
			total_processing_ns INTEGER NOT NULL DEFAULT 0,
			outcome TEXT,
			impact TEXT,
			feedback TEXT,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_trails_role ON audit_trails(role)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_trails_session ON audit_trails(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_trails_created ON audit_trails(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) Save(ctx context.Context, trail *audit.Trail) error {
	contextJSON, err := json.Marshal(trail.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	stepsJSON, err := json.Marshal(trail.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}
	feedbackJSON, err := json.Marshal(trail.Feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	query := `INSERT INTO audit_trails
		(id, session_id, role, query, context, decision, confidence, steps,
		 evidence_count, total_processing_ns, outcome, impact, feedback, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 decision=excluded.decision, confidence=excluded.confidence, steps=excluded.steps,
		 evidence_count=excluded.evidence_count, total_processing_ns=excluded.total_processing_ns,
		 outcome=excluded.outcome, impact=excluded.impact, feedback=excluded.feedback,
		 completed_at=excluded.completed_at`

	_, err = s.db.ExecContext(ctx, query,
		trail.ID, trail.SessionID, string(trail.Role), trail.Query,
		string(contextJSON), trail.Decision, trail.Confidence, string(stepsJSON),
		trail.EvidenceCount, int64(trail.TotalProcessing),
		string(trail.Outcome), trail.Impact, string(feedbackJSON),
		trail.CreatedAt, trail.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save audit trail: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*audit.Trail, error) {
	query := `SELECT id, session_id, role, query, context, decision, confidence, steps,
		 evidence_count, total_processing_ns, outcome, impact, feedback, created_at, completed_at
		FROM audit_trails WHERE id = ?`

	var trail audit.Trail
	var role, outcome string
	var contextJSON, stepsJSON, feedbackJSON sql.NullString
	var processingNS int64
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&trail.ID, &trail.SessionID, &role, &trail.Query,
		&contextJSON, &trail.Decision, &trail.Confidence, &stepsJSON,
		&trail.EvidenceCount, &processingNS,
		&outcome, &trail.Impact, &feedbackJSON,
		&trail.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("audit trail %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}

	trail.Role = domain.Role(role)
	trail.Outcome = audit.Outcome(outcome)
	trail.TotalProcessing = time.Duration(processingNS)
	if completedAt.Valid {
		trail.CompletedAt = completedAt.Time
	}
	if contextJSON.Valid && contextJSON.String != "" {
		if err := json.Unmarshal([]byte(contextJSON.String), &trail.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context: %w", err)
		}
	}
	if stepsJSON.Valid && stepsJSON.String != "" {
		if err := json.Unmarshal([]byte(stepsJSON.String), &trail.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}
	if feedbackJSON.Valid && feedbackJSON.String != "" {
		if err := json.Unmarshal([]byte(feedbackJSON.String), &trail.Feedback); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feedback: %w", err)
		}
	}

	return &trail, nil
}

func (s *Store) OutcomesByRole(ctx context.Context, role string) ([]audit.Outcome, error) {
	query := `SELECT outcome FROM audit_trails WHERE role = ? AND outcome != ''`

	rows, err := s.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []audit.Outcome
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, audit.Outcome(o))
	}
	return outcomes, rows.Err()
}

func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM audit_trails WHERE outcome = '' AND created_at < ?`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit trails: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
