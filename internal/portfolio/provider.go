package portfolio

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// SnapshotProvider supplies a point-in-time portfolio snapshot. The core
// never mutates what it receives; callers that need check-then-stage
// serialization against a live portfolio must enforce it around this
// interface.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (model.PortfolioSnapshot, error)
}

// StaticProvider returns a fixed snapshot. Used in tests and for dry runs
// against a known portfolio state.
type StaticProvider struct {
	Value model.PortfolioSnapshot
}

// Snapshot returns the fixed snapshot value
func (p StaticProvider) Snapshot(_ context.Context) (model.PortfolioSnapshot, error) {
	return p.Value, nil
}

// FileProvider reads the snapshot from a YAML file on every call, picking up
// external updates between requests.
type FileProvider struct {
	Path string
}

// Snapshot loads and parses the snapshot file
func (p FileProvider) Snapshot(_ context.Context) (model.PortfolioSnapshot, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return model.PortfolioSnapshot{}, fmt.Errorf("failed to read portfolio snapshot: %w", err)
	}

	var snapshot model.PortfolioSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return model.PortfolioSnapshot{}, fmt.Errorf("failed to parse portfolio snapshot: %w", err)
	}

	if !snapshot.Equity.IsPositive() {
		return model.PortfolioSnapshot{}, fmt.Errorf("portfolio snapshot equity must be positive, got %s", snapshot.Equity)
	}

	return snapshot, nil
}
