package staging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/config"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/metrics"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
)

// Draft record schema. Readers accept any 1.x record; a major bump means
// the on-disk layout changed incompatibly.
const (
	draftSchema  = "emo_order_draft"
	draftVersion = "1.0.0"
)

var schemaConstraint = semver.MustParse(draftVersion)

var (
	// ErrDuplicateDraft is returned under the reject conflict policy when a
	// request ID has already been staged.
	ErrDuplicateDraft = errors.New("draft already staged for request")

	// ErrCorruptDraft is returned when a draft's content does not match its
	// integrity signature.
	ErrCorruptDraft = errors.New("draft integrity signature mismatch")

	// ErrPlanMismatch is returned when a request ID is reused with a plan
	// that differs from the draft already staged under it. Distinct from
	// ErrDuplicateDraft so an idempotent retry is never confused with a
	// conflicting resubmission.
	ErrPlanMismatch = errors.New("request already staged with a different plan")

	// ErrNotStageable is returned when a plan failed risk gating and must
	// not reach disk.
	ErrNotStageable = errors.New("plan did not pass risk gating")

	// ErrDraftNotFound is returned when no draft exists for the given ID.
	ErrDraftNotFound = errors.New("draft not found")
)

// ConflictPolicy controls what happens when the same request is staged twice.
type ConflictPolicy string

const (
	ConflictReturnExisting ConflictPolicy = "return_existing"
	ConflictReject         ConflictPolicy = "reject"
)

// draftRecord is the on-disk envelope around a staged order.
type draftRecord struct {
	Schema  string            `yaml:"schema"`
	Version string            `yaml:"version"`
	Order   model.StagedOrder `yaml:"order"`
}

// Stats summarizes the draft directory for admin surfaces.
type Stats struct {
	Total    int              `json:"total"`
	ByStatus map[string]int   `json:"by_status"`
	BySymbol map[string]int   `json:"by_symbol"`
	Oldest   *time.Time       `json:"oldest,omitempty"`
	Newest   *time.Time       `json:"newest,omitempty"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Symbol   string
	Status   model.OrderStatus
	Strategy model.StrategyType
	Since    time.Time
}

// Store persists signed order drafts as YAML files in a single directory.
// Writes are atomic; staging the same request twice is resolved by the
// configured conflict policy.
type Store struct {
	dir    string
	policy ConflictPolicy
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates the draft directory if needed and returns a store.
func NewStore(cfg config.StagingConfig) (*Store, error) {
	if cfg.Directory == "" {
		return nil, fmt.Errorf("staging directory not configured")
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	policy := ConflictPolicy(cfg.ConflictPolicy)
	if policy == "" {
		policy = ConflictReturnExisting
	}
	return &Store{
		dir:    cfg.Directory,
		policy: policy,
		logger: config.NewLogger("staging"),
		now:    time.Now,
	}, nil
}

// Stage validates, signs, and atomically persists a draft for the given
// request. A plan carrying any block-severity violation is refused. The
// request ID makes staging idempotent: re-staging the same request either
// returns the existing draft or fails, per the conflict policy.
func (s *Store) Stage(requestID string, plan model.TradePlan, result model.ValidationResult, meta model.OrderMetadata) (*model.StagedOrder, error) {
	start := s.now()

	if !result.OK {
		return nil, fmt.Errorf("%w: %d blocking violation(s)", ErrNotStageable, len(result.Blocks()))
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("plan invalid at staging time: %w", err)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if existing, err := s.findByRequest(requestID); err != nil {
		return nil, err
	} else if existing != nil {
		same, err := samePlan(existing.TradePlan, plan)
		if err != nil {
			return nil, fmt.Errorf("compare plans: %w", err)
		}
		if !same {
			return nil, fmt.Errorf("%w: %s", ErrPlanMismatch, requestID)
		}
		if s.policy == ConflictReject {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDraft, requestID)
		}
		s.logger.Info().
			Str("request_id", requestID).
			Str("draft_id", existing.ID).
			Msg("Returning previously staged draft")
		return existing, nil
	}

	order := model.StagedOrder{
		ID:        requestID,
		TradePlan: plan,
		Status:    model.StatusDraft,
		CreatedAt: s.now().UTC(),
		Metadata:  meta,
	}
	sig, err := signOrder(order)
	if err != nil {
		return nil, fmt.Errorf("sign draft: %w", err)
	}
	order.IntegritySignature = sig

	name := fmt.Sprintf("%s-%s.yaml", sanitizeID(requestID), sig[:8])
	path := filepath.Join(s.dir, name)

	data, err := yaml.Marshal(draftRecord{
		Schema:  draftSchema,
		Version: draftVersion,
		Order:   order,
	})
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("persist draft: %w", err)
	}
	order.StoragePath = path

	metrics.StagingDuration.Observe(s.now().Sub(start).Seconds())
	metrics.StagedDrafts.Inc()
	s.logger.Info().
		Str("draft_id", order.ID).
		Str("symbol", plan.Symbol).
		Str("strategy", string(plan.StrategyType)).
		Str("path", path).
		Msg("Order draft staged")

	return &order, nil
}

// Get loads a single draft by its ID.
func (s *Store) Get(id string) (*model.StagedOrder, error) {
	order, err := s.findByRequest(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return order, nil
}

// List returns all drafts matching the filter, newest first. Corrupt files
// abort the listing rather than being silently skipped.
func (s *Store) List(filter Filter) ([]*model.StagedOrder, error) {
	paths, err := s.draftPaths()
	if err != nil {
		return nil, err
	}

	var orders []*model.StagedOrder
	for _, path := range paths {
		order, err := s.load(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
		if filter.Symbol != "" && !strings.EqualFold(order.TradePlan.Symbol, filter.Symbol) {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.Strategy != "" && order.TradePlan.StrategyType != filter.Strategy {
			continue
		}
		if !filter.Since.IsZero() && order.CreatedAt.Before(filter.Since) {
			continue
		}
		orders = append(orders, order)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// Stats aggregates counts across all drafts in the store.
func (s *Store) Stats() (*Stats, error) {
	orders, err := s.List(Filter{})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:    len(orders),
		ByStatus: make(map[string]int),
		BySymbol: make(map[string]int),
	}
	for _, order := range orders {
		stats.ByStatus[string(order.Status)]++
		stats.BySymbol[order.TradePlan.Symbol]++
		created := order.CreatedAt
		if stats.Oldest == nil || created.Before(*stats.Oldest) {
			t := created
			stats.Oldest = &t
		}
		if stats.Newest == nil || created.After(*stats.Newest) {
			t := created
			stats.Newest = &t
		}
	}
	return stats, nil
}

// Cleanup removes drafts older than the given number of days and returns
// how many were deleted. Zero or negative days deletes nothing.
func (s *Store) Cleanup(olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -olderThanDays)

	orders, err := s.List(Filter{})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, order := range orders {
		if order.CreatedAt.After(cutoff) {
			continue
		}
		if err := os.Remove(order.StoragePath); err != nil {
			return removed, fmt.Errorf("remove %s: %w", filepath.Base(order.StoragePath), err)
		}
		removed++
		s.logger.Info().
			Str("draft_id", order.ID).
			Time("created_at", order.CreatedAt).
			Msg("Expired draft removed")
	}
	if removed > 0 {
		metrics.StagedDrafts.Sub(float64(removed))
	}
	return removed, nil
}

// findByRequest scans for a draft whose filename carries the request ID
// prefix. Returns nil without error when no draft exists.
func (s *Store) findByRequest(requestID string) (*model.StagedOrder, error) {
	prefix := sanitizeID(requestID) + "-"
	paths, err := s.draftPaths()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if strings.HasPrefix(filepath.Base(path), prefix) {
			return s.load(path)
		}
	}
	return nil, nil
}

func (s *Store) draftPaths() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read staging directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	return paths, nil
}

// load reads a draft file, checks schema compatibility, and verifies the
// integrity signature.
func (s *Store) load(path string) (*model.StagedOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}

	var record draftRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	if record.Schema != draftSchema {
		return nil, fmt.Errorf("unknown draft schema %q", record.Schema)
	}
	version, err := semver.NewVersion(record.Version)
	if err != nil {
		return nil, fmt.Errorf("parse draft version %q: %w", record.Version, err)
	}
	if version.Major() != schemaConstraint.Major() {
		return nil, fmt.Errorf("incompatible draft version %s, reader speaks %s", record.Version, draftVersion)
	}

	order := record.Order
	expected, err := signOrder(order)
	if err != nil {
		return nil, fmt.Errorf("recompute signature: %w", err)
	}
	if expected != order.IntegritySignature {
		return nil, fmt.Errorf("%w: %s", ErrCorruptDraft, filepath.Base(path))
	}

	order.StoragePath = path
	return &order, nil
}

// signOrder hashes the canonical JSON form of the order. JSON rather than
// YAML so map ordering cannot perturb the digest.
func signOrder(order model.StagedOrder) (string, error) {
	order.StoragePath = ""
	order.IntegritySignature = ""
	canonical, err := json.Marshal(order)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// samePlan compares two plans ignoring creation timestamps, so an
// idempotent retry that re-synthesized the identical trade still matches
// while a changed trade under a reused request ID does not.
func samePlan(a, b model.TradePlan) (bool, error) {
	a.CreatedAt = time.Time{}
	b.CreatedAt = time.Time{}
	aj, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(aj, bj), nil
}

// sanitizeID keeps filenames shell-safe regardless of caller input.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		case r == '-':
			return '_'
		default:
			return '_'
		}
	}, id)
}
