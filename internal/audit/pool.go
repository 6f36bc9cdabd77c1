package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FromConfig builds a recorder from the audit settings. Without a database
// URL the recorder runs log-only; the returned close func is then a no-op.
func FromConfig(ctx context.Context, enabled bool, databaseURL string) (*Recorder, func(), error) {
	if !enabled || databaseURL == "" {
		return NewRecorder(nil, enabled), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("audit database: %w", err)
	}
	return NewRecorder(pool, true), pool.Close, nil
}
