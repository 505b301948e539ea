package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

var ErrAllocationConflict = errors.New("sequence_allocation_conflict")

// Store is the transactional view of the identifier counter. LockCounter must
// hold a row lock on the counter until the surrounding transaction ends.
type Store interface {
	LockCounter(ctx context.Context, prefix string) (last int64, found bool, err error)
	SeedCounter(ctx context.Context, prefix string, value int64) error
	AdvanceCounter(ctx context.Context, prefix string, value int64) error
	GreatestAssigned(ctx context.Context, prefix string) (id string, found bool, err error)
	IdentifierExists(ctx context.Context, id string) (bool, error)
}

type Config struct {
	Prefix      string
	MinWidth    int
	MaxAttempts int
}

type Allocator struct {
	prefix      string
	minWidth    int
	maxAttempts int
	logger      *slog.Logger
}

func NewAllocator(cfg Config, logger *slog.Logger) *Allocator {
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = "SPK"
	}
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		prefix:      strings.TrimSpace(cfg.Prefix),
		minWidth:    cfg.MinWidth,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
}

func (a *Allocator) Prefix() string {
	return a.prefix
}

// Assign returns current unchanged when it already holds an identifier and
// otherwise reserves the next one. The bool reports whether a new identifier
// was reserved.
func (a *Allocator) Assign(ctx context.Context, store Store, current *string) (string, bool, error) {
	if current != nil && strings.TrimSpace(*current) != "" {
		return *current, false, nil
	}
	id, err := a.Next(ctx, store)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Next reserves the next free identifier under the allocator's prefix. It
// must run inside the transaction that persists the identifier.
func (a *Allocator) Next(ctx context.Context, store Store) (string, error) {
	last, found, err := store.LockCounter(ctx, a.prefix)
	if err != nil {
		return "", fmt.Errorf("lock counter: %w", err)
	}
	if !found {
		seed, err := a.seed(ctx, store)
		if err != nil {
			return "", err
		}
		if err := store.SeedCounter(ctx, a.prefix, seed); err != nil {
			return "", fmt.Errorf("seed counter: %w", err)
		}
		// A concurrent seeder may have won; the lock below serializes on its row.
		last, found, err = store.LockCounter(ctx, a.prefix)
		if err != nil {
			return "", fmt.Errorf("lock counter: %w", err)
		}
		if !found {
			return "", fmt.Errorf("counter for %q missing after seed", a.prefix)
		}
	}

	next := last
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		next++
		candidate := Format(a.prefix, next, a.minWidth)
		taken, err := store.IdentifierExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check identifier: %w", err)
		}
		if taken {
			a.logger.Warn("loan identifier already taken, skipping", "candidate", candidate)
			continue
		}
		if err := store.AdvanceCounter(ctx, a.prefix, next); err != nil {
			return "", fmt.Errorf("advance counter: %w", err)
		}
		return candidate, nil
	}
	return "", ErrAllocationConflict
}

func (a *Allocator) seed(ctx context.Context, store Store) (int64, error) {
	greatest, found, err := store.GreatestAssigned(ctx, a.prefix)
	if err != nil {
		return 0, fmt.Errorf("find greatest identifier: %w", err)
	}
	if !found {
		return 0, nil
	}
	n, err := ParseSuffix(a.prefix, greatest)
	if err != nil {
		a.logger.Warn("unparsable loan identifier, starting sequence from 1", "identifier", greatest, "err", err)
		return 0, nil
	}
	return n, nil
}

// Format renders n under prefix, zero-padded to minWidth digits.
func Format(prefix string, n int64, minWidth int) string {
	return fmt.Sprintf("%s%0*d", prefix, minWidth, n)
}

func ParseSuffix(prefix, id string) (int64, error) {
	if !strings.HasPrefix(id, prefix) {
		return 0, fmt.Errorf("identifier %q lacks prefix %q", id, prefix)
	}
	digits := strings.TrimPrefix(id, prefix)
	if digits == "" {
		return 0, fmt.Errorf("identifier %q has no numeric suffix", id)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("identifier %q has invalid suffix", id)
	}
	return n, nil
}

// Less orders identifiers numerically: longer suffixes are larger.
func Less(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
