package service

import (
	"context"
	"fmt"
	"time"

	"address-search-api/internal/metrics"
	"address-search-api/internal/models"
	"address-search-api/internal/ranking"
)

// Search modes, used as metric labels.
const (
	ModeRadius     = "radius"
	ModeTopPopular = "top_popular"
	ModePopularity = "popularity"
	ModeCustomer   = "customer"
)

// AddressReader is the read side of the address store
type AddressReader interface {
	FetchAllAddresses(ctx context.Context) ([]models.Address, error)
	FetchAddressesByCustomer(ctx context.Context, customerID int64) ([]models.Address, error)
	FetchAddressesByPopularity(ctx context.Context, popularity int) ([]models.Address, error)
}

// Recorder receives one observation per search
type Recorder interface {
	ObserveSearch(mode, outcome string, candidates int, elapsed time.Duration)
}

// SearchService fetches address snapshots from the store and ranks them
type SearchService struct {
	repo     AddressReader
	pipeline *ranking.Pipeline
	recorder Recorder
}

// NewSearchService creates a new search service. recorder may be nil.
func NewSearchService(repo AddressReader, pipeline *ranking.Pipeline, recorder Recorder) *SearchService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &SearchService{repo: repo, pipeline: pipeline, recorder: recorder}
}

// SearchWithinRadius returns the most popular addresses that match q.Text and lie within q.RadiusKm of the query center
func (s *SearchService) SearchWithinRadius(ctx context.Context, q models.RadiusQuery) (ranking.Result, error) {
	start := time.Now()
	if err := ValidateRadiusQuery(q); err != nil {
		s.recorder.ObserveSearch(ModeRadius, metrics.OutcomeInvalid, 0, time.Since(start))
		return ranking.Result{}, err
	}

	candidates, err := s.repo.FetchAllAddresses(ctx)
	if err != nil {
		s.observe(ModeRadius, start, 0, ranking.Result{}, err)
		return ranking.Result{}, fmt.Errorf("service: failed to fetch addresses: %w", err)
	}

	result, err := s.pipeline.RankByTextAndRadius(candidates, q)
	s.observe(ModeRadius, start, len(candidates), result, err)
	if err != nil {
		return ranking.Result{}, fmt.Errorf("service: failed to rank addresses: %w", err)
	}
	return result, nil
}

// TopPopular returns the most popular addresses overall
func (s *SearchService) TopPopular(ctx context.Context) (ranking.Result, error) {
	start := time.Now()
	candidates, err := s.repo.FetchAllAddresses(ctx)
	if err != nil {
		s.observe(ModeTopPopular, start, 0, ranking.Result{}, err)
		return ranking.Result{}, fmt.Errorf("service: failed to fetch addresses: %w", err)
	}

	result := s.pipeline.RankByPopularity(candidates)
	s.observe(ModeTopPopular, start, len(candidates), result, nil)
	return result, nil
}

// ByPopularity returns every address whose popularity equals value
func (s *SearchService) ByPopularity(ctx context.Context, value int) (ranking.Result, error) {
	start := time.Now()
	candidates, err := s.repo.FetchAddressesByPopularity(ctx, value)
	if err != nil {
		s.observe(ModePopularity, start, 0, ranking.Result{}, err)
		return ranking.Result{}, fmt.Errorf("service: failed to fetch addresses by popularity: %w", err)
	}

	result := s.pipeline.FilterByExactPopularity(candidates, value)
	s.observe(ModePopularity, start, len(candidates), result, nil)
	return result, nil
}

// ByCustomer returns the addresses owned by a customer in retrieval order
func (s *SearchService) ByCustomer(ctx context.Context, customerID int64) (ranking.Result, error) {
	start := time.Now()
	addresses, err := s.repo.FetchAddressesByCustomer(ctx, customerID)
	if err != nil {
		s.observe(ModeCustomer, start, 0, ranking.Result{}, err)
		return ranking.Result{}, fmt.Errorf("service: failed to fetch addresses by customer: %w", err)
	}

	result := ranking.Result{Addresses: addresses}
	s.observe(ModeCustomer, start, len(addresses), result, nil)
	return result, nil
}

func (s *SearchService) observe(mode string, start time.Time, candidates int, result ranking.Result, err error) {
	outcome := metrics.OutcomeFound
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case result.NotFound():
		outcome = metrics.OutcomeNotFound
	}
	s.recorder.ObserveSearch(mode, outcome, candidates, time.Since(start))
}

type nopRecorder struct{}

func (nopRecorder) ObserveSearch(string, string, int, time.Duration) {}
