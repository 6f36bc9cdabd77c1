package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// EventType classifies what happened to a proposal or the draft store.
type EventType string

const (
	// Proposal lifecycle events
	EventTypeProposalStaged  EventType = "PROPOSAL_STAGED"
	EventTypeProposalBlocked EventType = "PROPOSAL_BLOCKED"
	EventTypeProposalDryRun  EventType = "PROPOSAL_DRY_RUN"
	EventTypeProposalError   EventType = "PROPOSAL_ERROR"

	// Classification events
	EventTypeClassifierFallback EventType = "CLASSIFIER_FALLBACK"

	// Draft store admin events
	EventTypeDraftCleanup EventType = "DRAFT_CLEANUP"
)

// Severity is the audit-trail severity of an event.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
)

// Event is a single audit trail entry for a proposal decision.
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	Severity  Severity               `json:"severity"`
	RequestID string                 `json:"request_id,omitempty"` // proposal correlation ID
	User      string                 `json:"user,omitempty"`
	Symbol    string                 `json:"symbol,omitempty"`
	Strategy  string                 `json:"strategy,omitempty"`
	Outcome   string                 `json:"outcome"` // staged, blocked, dry_run, error
	Reasons   []string               `json:"reasons,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Duration  int64                  `json:"duration_ms,omitempty"`
}

// DB is the subset of a pgx pool the recorder needs. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Recorder writes proposal decisions to the structured log and, when a
// database is configured, to the audit_events table. Persistence failures
// are reported but never block the pipeline.
type Recorder struct {
	db      DB
	enabled bool
}

// NewRecorder creates an audit recorder. A nil db means log-only.
func NewRecorder(db DB, enabled bool) *Recorder {
	return &Recorder{db: db, enabled: enabled}
}

// Record logs an audit event and persists it when a database is attached.
func (r *Recorder) Record(ctx context.Context, event *Event) error {
	if !r.enabled {
		return nil
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	logEvent := log.With().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.EventType)).
		Str("request_id", event.RequestID).
		Str("symbol", event.Symbol).
		Str("outcome", event.Outcome).
		Logger()
	if len(event.Reasons) > 0 {
		logEvent = logEvent.With().Strs("reasons", event.Reasons).Logger()
	}
	if event.Duration > 0 {
		logEvent = logEvent.With().Int64("duration_ms", event.Duration).Logger()
	}

	switch event.Severity {
	case SeverityError:
		logEvent.Error().Msg("Audit event")
	case SeverityWarning:
		logEvent.Warn().Msg("Audit event")
	default:
		logEvent.Info().Msg("Audit event")
	}

	if r.db != nil {
		if err := r.persist(ctx, event); err != nil {
			log.Error().Err(err).
				Str("event_id", event.ID.String()).
				Msg("Failed to persist audit event")
			return err
		}
	}
	return nil
}

func (r *Recorder) persist(ctx context.Context, event *Event) error {
	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal audit event metadata")
			metadataJSON = []byte("{}")
		}
	}

	reasonsJSON, err := json.Marshal(event.Reasons)
	if err != nil {
		reasonsJSON = []byte("[]")
	}

	query := `
		INSERT INTO audit_events (
			id, timestamp, event_type, severity, request_id, usr,
			symbol, strategy, outcome, reasons, metadata, duration_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	_, err = r.db.Exec(ctx, query,
		event.ID,
		event.Timestamp,
		event.EventType,
		event.Severity,
		event.RequestID,
		event.User,
		event.Symbol,
		event.Strategy,
		event.Outcome,
		reasonsJSON,
		metadataJSON,
		event.Duration,
	)
	return err
}

// QueryFilters narrows Query results. Zero values match everything.
type QueryFilters struct {
	EventType EventType
	RequestID string
	Symbol    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// Query retrieves persisted audit events, newest first. Returns nil when
// running log-only.
func (r *Recorder) Query(ctx context.Context, filters *QueryFilters) ([]Event, error) {
	if r.db == nil {
		return nil, nil
	}

	query := `
		SELECT
			id, timestamp, event_type, severity, request_id, usr,
			symbol, strategy, outcome, reasons, metadata, duration_ms
		FROM audit_events
		WHERE 1=1
	`
	args := []any{}
	next := func(clause string, arg any) {
		args = append(args, arg)
		query += clause + argPlaceholder(len(args))
	}

	if filters.EventType != "" {
		next(` AND event_type = `, filters.EventType)
	}
	if filters.RequestID != "" {
		next(` AND request_id = `, filters.RequestID)
	}
	if filters.Symbol != "" {
		next(` AND symbol = `, filters.Symbol)
	}
	if !filters.StartTime.IsZero() {
		next(` AND timestamp >= `, filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		next(` AND timestamp <= `, filters.EndTime)
	}

	query += ` ORDER BY timestamp DESC`
	if filters.Limit > 0 {
		next(` LIMIT `, filters.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var event Event
		var reasonsJSON, metadataJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.EventType,
			&event.Severity,
			&event.RequestID,
			&event.User,
			&event.Symbol,
			&event.Strategy,
			&event.Outcome,
			&reasonsJSON,
			&metadataJSON,
			&event.Duration,
		)
		if err != nil {
			return nil, err
		}
		if len(reasonsJSON) > 0 {
			if err := json.Unmarshal(reasonsJSON, &event.Reasons); err != nil {
				log.Warn().Err(err).Msg("Failed to unmarshal audit event reasons")
			}
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				log.Warn().Err(err).Msg("Failed to unmarshal audit event metadata")
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func argPlaceholder(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return "$" + string(digits[n])
	}
	return "$" + string(digits[n/10]) + string(digits[n%10])
}

// RecordProposal is the convenience path used by the pipeline. Severity is
// derived from the outcome.
func (r *Recorder) RecordProposal(ctx context.Context, eventType EventType, requestID, user, symbol, strategy, outcome string, reasons []string, durationMs int64) error {
	severity := SeverityInfo
	switch eventType {
	case EventTypeProposalBlocked:
		severity = SeverityWarning
	case EventTypeProposalError:
		severity = SeverityError
	}

	return r.Record(ctx, &Event{
		EventType: eventType,
		Severity:  severity,
		RequestID: requestID,
		User:      user,
		Symbol:    symbol,
		Strategy:  strategy,
		Outcome:   outcome,
		Reasons:   reasons,
		Duration:  durationMs,
	})
}

// RecordCleanup logs a draft retention sweep.
func (r *Recorder) RecordCleanup(ctx context.Context, removed int, olderThanDays int) error {
	return r.Record(ctx, &Event{
		EventType: EventTypeDraftCleanup,
		Severity:  SeverityInfo,
		Outcome:   "cleanup",
		Metadata: map[string]interface{}{
			"removed":         removed,
			"older_than_days": olderThanDays,
		},
	})
}
