// Package ranking filters address snapshots against search queries and orders the survivors by popularity.
//
// Every operation is a single pass over a caller-supplied snapshot. The snapshot is never modified and
// a Pipeline holds no per-call state, so one Pipeline may serve any number of concurrent requests.
package ranking

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"

	"address-search-api/internal/geo"
	"address-search-api/internal/models"
	"address-search-api/internal/similarity"

	"github.com/panjf2000/ants/v2"
)

const (
	// DefaultSimilarityThreshold is the score a candidate must strictly exceed to match a text query
	DefaultSimilarityThreshold = 50
	// DefaultResultLimit caps the length of ranked results
	DefaultResultLimit = 100
	// DefaultParallelThreshold is the smallest snapshot scored on the worker pool
	DefaultParallelThreshold = 2048
)

// ErrInvalidOption is returned by New when an option value is out of range
var ErrInvalidOption = errors.New("ranking: invalid option")

// Scorer scores a query against a candidate's location text in [0, 100]
type Scorer func(query, candidate string) int

// Result is an ordered list of addresses. An empty result means nothing matched; it is not an error
type Result struct {
	Addresses []models.Address
}

// NotFound reports whether the result is empty
func (r Result) NotFound() bool {
	return len(r.Addresses) == 0
}

// Pipeline composes text scoring and distance filtering into ranked results
type Pipeline struct {
	threshold         int
	limit             int
	scorer            Scorer
	pool              *ants.Pool
	parallelThreshold int
}

// Option configures a Pipeline
type Option func(*Pipeline) error

// WithSimilarityThreshold overrides DefaultSimilarityThreshold
func WithSimilarityThreshold(threshold int) Option {
	return func(p *Pipeline) error {
		if threshold < 0 || threshold > similarity.MaxScore {
			return fmt.Errorf("%w: similarity threshold %d", ErrInvalidOption, threshold)
		}
		p.threshold = threshold
		return nil
	}
}

// WithResultLimit overrides DefaultResultLimit
func WithResultLimit(limit int) Option {
	return func(p *Pipeline) error {
		if limit < 1 {
			return fmt.Errorf("%w: result limit %d", ErrInvalidOption, limit)
		}
		p.limit = limit
		return nil
	}
}

// WithScorer replaces the token-set scorer
func WithScorer(scorer Scorer) Option {
	return func(p *Pipeline) error {
		if scorer == nil {
			return fmt.Errorf("%w: nil scorer", ErrInvalidOption)
		}
		p.scorer = scorer
		return nil
	}
}

// WithPool scores large snapshots on pool. The pool is owned by the caller
func WithPool(pool *ants.Pool) Option {
	return func(p *Pipeline) error {
		p.pool = pool
		return nil
	}
}

// WithParallelThreshold overrides DefaultParallelThreshold
func WithParallelThreshold(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: parallel threshold %d", ErrInvalidOption, n)
		}
		p.parallelThreshold = n
		return nil
	}
}

// New creates a pipeline using the token-set scorer and the default policy
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		threshold:         DefaultSimilarityThreshold,
		limit:             DefaultResultLimit,
		scorer:            similarity.TokenSetRatio,
		parallelThreshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RankByTextAndRadius keeps the candidates whose location text scores above the similarity threshold
// against q.Text and that lie within q.RadiusKm of the query center, then returns the most popular of them.
// Non-finite coordinates in the query or in a text-matching candidate yield geo.ErrInvalidCoordinate
func (p *Pipeline) RankByTextAndRadius(candidates []models.Address, q models.RadiusQuery) (Result, error) {
	center := q.Center()
	if err := geo.ValidatePoint(center); err != nil {
		return Result{}, fmt.Errorf("ranking: query center: %w", err)
	}
	if math.IsNaN(q.RadiusKm) {
		return Result{}, fmt.Errorf("ranking: %w: radius %v", geo.ErrInvalidCoordinate, q.RadiusKm)
	}

	keep, err := p.evaluate(candidates, func(a models.Address) (bool, error) {
		if p.scorer(q.Text, a.LocationText()) <= p.threshold {
			return false, nil
		}
		ok, err := geo.Within(center, a.Point(), q.RadiusKm)
		if err != nil {
			return false, fmt.Errorf("ranking: address %d: %w", a.ID, err)
		}
		return ok, nil
	})
	if err != nil {
		return Result{}, err
	}

	var matched []models.Address
	for i, ok := range keep {
		if ok {
			matched = append(matched, candidates[i])
		}
	}
	return Result{Addresses: p.top(matched)}, nil
}

// RankByPopularity returns the most popular candidates
func (p *Pipeline) RankByPopularity(candidates []models.Address) Result {
	return Result{Addresses: p.top(slices.Clone(candidates))}
}

// FilterByExactPopularity returns every candidate whose popularity equals value, in snapshot order
func (p *Pipeline) FilterByExactPopularity(candidates []models.Address, value int) Result {
	var matched []models.Address
	for _, a := range candidates {
		if a.Popularity == value {
			matched = append(matched, a)
		}
	}
	return Result{Addresses: matched}
}

// top sorts addresses in place by descending popularity, keeping snapshot order among equals,
// and truncates to the result limit
func (p *Pipeline) top(addresses []models.Address) []models.Address {
	slices.SortStableFunc(addresses, func(a, b models.Address) int {
		return cmp.Compare(b.Popularity, a.Popularity)
	})
	if len(addresses) > p.limit {
		addresses = addresses[:p.limit]
	}
	return addresses
}

// evaluate applies match to every candidate and reports which ones matched, by snapshot index.
// Large snapshots are split into contiguous chunks scored on the pool. If any candidate fails,
// the error of the earliest failing chunk is returned
func (p *Pipeline) evaluate(candidates []models.Address, match func(models.Address) (bool, error)) ([]bool, error) {
	keep := make([]bool, len(candidates))

	if p.pool == nil || len(candidates) < p.parallelThreshold {
		for i := range candidates {
			ok, err := match(candidates[i])
			if err != nil {
				return nil, err
			}
			keep[i] = ok
		}
		return keep, nil
	}

	chunk := chunkSize(len(candidates), p.pool.Cap())
	errs := make([]error, (len(candidates)+chunk-1)/chunk)

	var wg sync.WaitGroup
	for start := 0; start < len(candidates); start += chunk {
		end := min(start+chunk, len(candidates))
		slot := start / chunk

		wg.Add(1)
		task := func() {
			defer wg.Done()
			for i := start; i < end; i++ {
				ok, err := match(candidates[i])
				if err != nil {
					errs[slot] = err
					return
				}
				keep[i] = ok
			}
		}
		if err := p.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return keep, nil
}

// chunkSize splits n candidates across the pool's workers. An unbounded pool reports a
// non-positive capacity and gets one chunk per available CPU
func chunkSize(n, capacity int) int {
	workers := capacity
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return max(1, (n+workers-1)/workers)
}
