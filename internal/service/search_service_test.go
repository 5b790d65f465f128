package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"address-search-api/internal/metrics"
	"address-search-api/internal/models"
	"address-search-api/internal/ranking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAddressReader is a mock implementation of the AddressReader interface
type MockAddressReader struct {
	mock.Mock
}

func (m *MockAddressReader) FetchAllAddresses(ctx context.Context) ([]models.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Address), args.Error(1)
}

func (m *MockAddressReader) FetchAddressesByCustomer(ctx context.Context, customerID int64) ([]models.Address, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]models.Address), args.Error(1)
}

func (m *MockAddressReader) FetchAddressesByPopularity(ctx context.Context, popularity int) ([]models.Address, error) {
	args := m.Called(ctx, popularity)
	return args.Get(0).([]models.Address), args.Error(1)
}

// MockRecorder is a mock implementation of the Recorder interface
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObserveSearch(mode, outcome string, candidates int, elapsed time.Duration) {
	m.Called(mode, outcome, candidates, elapsed)
}

var (
	denver = models.Address{
		ID: 1, Street: "Main St", City: "Denver", State: "CO", ZipCode: "80202",
		Popularity: 5, Latitude: 39.7392, Longitude: -104.9903,
	}
	boulder = models.Address{
		ID: 2, Street: "Elm St", City: "Boulder", State: "CO", ZipCode: "80302",
		Popularity: 9, Latitude: 40.0150, Longitude: -105.2705,
	}
)

func newPipeline(t *testing.T) *ranking.Pipeline {
	t.Helper()
	p, err := ranking.New()
	require.NoError(t, err)
	return p
}

func TestSearchService_SearchWithinRadius(t *testing.T) {
	validQuery := models.RadiusQuery{Text: "Denver Main", Latitude: 39.7392, Longitude: -104.9903, RadiusKm: 10}

	tests := []struct {
		name            string
		query           models.RadiusQuery
		fetch           bool
		mockAddresses   []models.Address
		mockError       error
		expected        []models.Address
		expectedOutcome string
		expectError     bool
		expectInvalid   bool
	}{
		{
			name:            "match within radius",
			query:           validQuery,
			fetch:           true,
			mockAddresses:   []models.Address{denver, boulder},
			expected:        []models.Address{denver},
			expectedOutcome: metrics.OutcomeFound,
		},
		{
			name:            "no match",
			query:           models.RadiusQuery{Text: "Paris", Latitude: 39.7392, Longitude: -104.9903, RadiusKm: 10},
			fetch:           true,
			mockAddresses:   []models.Address{denver, boulder},
			expectedOutcome: metrics.OutcomeNotFound,
		},
		{
			name:            "empty store",
			query:           validQuery,
			fetch:           true,
			mockAddresses:   []models.Address{},
			expectedOutcome: metrics.OutcomeNotFound,
		},
		{
			name:            "repository error",
			query:           validQuery,
			fetch:           true,
			mockAddresses:   []models.Address(nil),
			mockError:       assert.AnError,
			expectedOutcome: metrics.OutcomeError,
			expectError:     true,
		},
		{
			name:            "corrupt coordinates in store",
			query:           validQuery,
			fetch:           true,
			mockAddresses:   []models.Address{{ID: 3, Street: "Main St", City: "Denver", State: "CO", Latitude: math.NaN()}},
			expectedOutcome: metrics.OutcomeError,
			expectError:     true,
		},
		{
			name:            "blank text",
			query:           models.RadiusQuery{Text: "  ", Latitude: 39.7, Longitude: -104.9, RadiusKm: 10},
			expectedOutcome: metrics.OutcomeInvalid,
			expectError:     true,
			expectInvalid:   true,
		},
		{
			name:            "latitude out of range",
			query:           models.RadiusQuery{Text: "Denver", Latitude: 91, Longitude: -104.9, RadiusKm: 10},
			expectedOutcome: metrics.OutcomeInvalid,
			expectError:     true,
			expectInvalid:   true,
		},
		{
			name:            "negative radius",
			query:           models.RadiusQuery{Text: "Denver", Latitude: 39.7, Longitude: -104.9, RadiusKm: -1},
			expectedOutcome: metrics.OutcomeInvalid,
			expectError:     true,
			expectInvalid:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mockRepo := new(MockAddressReader)
			mockRecorder := new(MockRecorder)
			service := NewSearchService(mockRepo, newPipeline(t), mockRecorder)

			if tt.fetch {
				mockRepo.On("FetchAllAddresses", mock.Anything).Return(tt.mockAddresses, tt.mockError)
			}
			mockRecorder.On("ObserveSearch", ModeRadius, tt.expectedOutcome, mock.Anything, mock.Anything).Return()

			// Execute
			result, err := service.SearchWithinRadius(context.Background(), tt.query)

			// Assert
			if tt.expectError {
				assert.Error(t, err)
				var validationErr *ValidationError
				assert.Equal(t, tt.expectInvalid, errors.As(err, &validationErr))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result.Addresses)
			}

			mockRepo.AssertExpectations(t)
			mockRecorder.AssertExpectations(t)
		})
	}
}

func TestSearchService_TopPopular(t *testing.T) {
	mockRepo := new(MockAddressReader)
	service := NewSearchService(mockRepo, newPipeline(t), nil)

	mockRepo.On("FetchAllAddresses", mock.Anything).Return([]models.Address{denver, boulder}, nil).Once()

	result, err := service.TopPopular(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Address{boulder, denver}, result.Addresses)

	mockRepo.On("FetchAllAddresses", mock.Anything).Return([]models.Address{}, nil).Once()
	result, err = service.TopPopular(context.Background())
	require.NoError(t, err)
	assert.True(t, result.NotFound())

	mockRepo.On("FetchAllAddresses", mock.Anything).Return([]models.Address(nil), assert.AnError).Once()
	_, err = service.TopPopular(context.Background())
	assert.ErrorIs(t, err, assert.AnError)

	mockRepo.AssertExpectations(t)
}

func TestSearchService_ByPopularity(t *testing.T) {
	tests := []struct {
		name          string
		value         int
		mockAddresses []models.Address
		mockError     error
		expected      []models.Address
		expectError   bool
	}{
		{
			name:          "matching popularity",
			value:         9,
			mockAddresses: []models.Address{boulder},
			expected:      []models.Address{boulder},
		},
		{
			name:          "store returns extra rows",
			value:         9,
			mockAddresses: []models.Address{denver, boulder},
			expected:      []models.Address{boulder},
		},
		{
			name:          "no results",
			value:         7,
			mockAddresses: []models.Address{},
		},
		{
			name:          "repository error",
			value:         9,
			mockAddresses: []models.Address(nil),
			mockError:     assert.AnError,
			expectError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockAddressReader)
			service := NewSearchService(mockRepo, newPipeline(t), nil)
			mockRepo.On("FetchAddressesByPopularity", mock.Anything, tt.value).Return(tt.mockAddresses, tt.mockError)

			result, err := service.ByPopularity(context.Background(), tt.value)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result.Addresses)
				assert.Equal(t, len(tt.expected) == 0, result.NotFound())
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestSearchService_ByCustomer(t *testing.T) {
	mockRepo := new(MockAddressReader)
	mockRecorder := new(MockRecorder)
	service := NewSearchService(mockRepo, newPipeline(t), mockRecorder)

	owned := []models.Address{denver, boulder}
	mockRepo.On("FetchAddressesByCustomer", mock.Anything, int64(4)).Return(owned, nil)
	mockRepo.On("FetchAddressesByCustomer", mock.Anything, int64(5)).Return([]models.Address{}, nil)
	mockRecorder.On("ObserveSearch", ModeCustomer, metrics.OutcomeFound, 2, mock.Anything).Return().Once()
	mockRecorder.On("ObserveSearch", ModeCustomer, metrics.OutcomeNotFound, 0, mock.Anything).Return().Once()

	result, err := service.ByCustomer(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, owned, result.Addresses, "retrieval order is kept")

	result, err = service.ByCustomer(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, result.NotFound())

	mockRepo.AssertExpectations(t)
	mockRecorder.AssertExpectations(t)
}
