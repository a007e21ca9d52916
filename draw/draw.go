// Package draw implements lucky-draw winner selection: weighted picks
// without replacement, classic batched draws and multi-round tournaments.
package draw

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Mode selects how winners are drawn
type Mode string

const (
	ModeClassic    Mode = "classic"
	ModeTournament Mode = "tournament"
)

// Method controls how a classic draw reveals its winners
type Method string

const (
	MethodAll      Method = "all"
	MethodOneByOne Method = "one-by-one"
	MethodBatch    Method = "batch"
)

var (
	ErrNoCandidates = errors.New("no candidates available")
	ErrInvalidCount = errors.New("invalid winner count")
)

// Candidate is one entry in the draw pool
type Candidate struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// Round is one stage of a tournament draw
type Round struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Config describes a draw
type Config struct {
	Mode      Mode    `json:"mode"`
	Count     int     `json:"count"`
	Method    Method  `json:"method"`
	BatchSize int     `json:"batch_size"`
	Rounds    []Round `json:"rounds"`
}

// RoundResult holds the survivors of one tournament round
type RoundResult struct {
	Name      string      `json:"name"`
	Survivors []Candidate `json:"survivors"`
}

// Result is the outcome of a draw
type Result struct {
	Winners []Candidate   `json:"winners"`
	Batches [][]Candidate `json:"batches,omitempty"`
	Rounds  []RoundResult `json:"rounds,omitempty"`
}

// ValidMode reports whether m is a known mode
func ValidMode(m Mode) bool {
	return m == ModeClassic || m == ModeTournament
}

// ValidMethod reports whether m is a known classic method
func ValidMethod(m Method) bool {
	return m == MethodAll || m == MethodOneByOne || m == MethodBatch
}

// ClampCount limits count to the number of available candidates, with a
// floor of 1 while anyone is available.
func ClampCount(count, available int) int {
	if available <= 0 {
		return 0
	}
	if count > available {
		count = available
	}
	if count < 1 {
		count = 1
	}
	return count
}

// DefaultBatchSize is half the winner count rounded up, at least 1
func DefaultBatchSize(count int) int {
	size := (count + 1) / 2
	if size < 1 {
		size = 1
	}
	return size
}

// Batches splits count winners into reveal batches for the given method
func Batches(count int, method Method, batchSize int) []int {
	if count < 1 {
		return nil
	}

	switch method {
	case MethodOneByOne:
		batchSize = 1
	case MethodBatch:
		if batchSize < 1 {
			batchSize = DefaultBatchSize(count)
		}
		if batchSize > count {
			batchSize = count
		}
	default:
		batchSize = count
	}

	var sizes []int
	for remaining := count; remaining > 0; remaining -= batchSize {
		sizes = append(sizes, min(batchSize, remaining))
	}
	return sizes
}

// NormalizeRounds enforces the tournament constraints: the first round
// cannot exceed the available candidates, each later round cannot exceed
// the one before it, and every round keeps at least one survivor.
func NormalizeRounds(rounds []Round, available int) []Round {
	out := make([]Round, len(rounds))
	prev := available
	for i, r := range rounds {
		c := r.Count
		if c < 1 {
			c = 1
		}
		if prev >= 1 && c > prev {
			c = prev
		}
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("Round %d", i+1)
		}
		out[i] = Round{Name: name, Count: c}
		prev = c
	}
	return out
}

// Engine runs draws. It is safe for concurrent use.
type Engine struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewEngine creates an engine drawing from rng. A nil rng uses a randomly
// seeded source.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{rng: rng}
}

// MaxWeight is the largest weight a candidate can carry. Larger weights
// are treated as MaxWeight.
const MaxWeight = 1000

func weightOf(c Candidate) int {
	switch {
	case c.Weight < 1:
		return 1
	case c.Weight > MaxWeight:
		return MaxWeight
	}
	return c.Weight
}

// Pick selects n distinct candidates from pool. Each pick chooses among the
// remaining candidates with probability proportional to weight.
func (e *Engine) Pick(pool []Candidate, n int) ([]Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pick(pool, n)
}

func (e *Engine) pick(pool []Candidate, n int) ([]Candidate, error) {
	if len(pool) == 0 {
		return nil, ErrNoCandidates
	}
	if n < 1 || n > len(pool) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidCount, n, len(pool))
	}

	remaining := make([]Candidate, len(pool))
	copy(remaining, pool)
	var total uint64
	for _, c := range remaining {
		total += uint64(weightOf(c))
	}

	picked := make([]Candidate, 0, n)
	for len(picked) < n {
		if total == 0 {
			return nil, fmt.Errorf("%w: pool has no weight", ErrInvalidCount)
		}
		r := e.rng.Uint64N(total)
		idx := len(remaining) - 1
		for i, c := range remaining {
			w := uint64(weightOf(c))
			if r < w {
				idx = i
				break
			}
			r -= w
		}
		chosen := remaining[idx]
		picked = append(picked, chosen)
		total -= uint64(weightOf(chosen))
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return picked, nil
}

// Run executes a draw over candidates
func (e *Engine) Run(cfg Config, candidates []Candidate) (*Result, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch cfg.Mode {
	case ModeTournament:
		return e.runTournament(cfg, candidates)
	case ModeClassic, "":
		return e.runClassic(cfg, candidates)
	default:
		return nil, fmt.Errorf("unknown draw mode %q", cfg.Mode)
	}
}

func (e *Engine) runClassic(cfg Config, candidates []Candidate) (*Result, error) {
	if cfg.Count < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, cfg.Count)
	}
	count := ClampCount(cfg.Count, len(candidates))

	pool := make([]Candidate, len(candidates))
	copy(pool, candidates)

	result := &Result{}
	for _, size := range Batches(count, cfg.Method, cfg.BatchSize) {
		batch, err := e.pick(pool, size)
		if err != nil {
			return nil, err
		}
		result.Batches = append(result.Batches, batch)
		result.Winners = append(result.Winners, batch...)
		pool = without(pool, batch)
	}
	return result, nil
}

func (e *Engine) runTournament(cfg Config, candidates []Candidate) (*Result, error) {
	if len(cfg.Rounds) == 0 {
		return nil, fmt.Errorf("%w: tournament has no rounds", ErrInvalidCount)
	}

	pool := candidates
	result := &Result{}
	for _, round := range NormalizeRounds(cfg.Rounds, len(candidates)) {
		survivors, err := e.pick(pool, round.Count)
		if err != nil {
			return nil, fmt.Errorf("round %s: %w", round.Name, err)
		}
		result.Rounds = append(result.Rounds, RoundResult{Name: round.Name, Survivors: survivors})
		pool = survivors
	}
	result.Winners = pool
	return result, nil
}

func without(pool, remove []Candidate) []Candidate {
	drop := make(map[int64]struct{}, len(remove))
	for _, c := range remove {
		drop[c.ID] = struct{}{}
	}
	out := pool[:0:0]
	for _, c := range pool {
		if _, ok := drop[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out
}
