package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"address-search-api/internal/models"
	"address-search-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRegistryService is a mock implementation of the RegistryService interface
type MockRegistryService struct {
	mock.Mock
}

func (m *MockRegistryService) AddCustomer(ctx context.Context, name string) (models.Customer, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(models.Customer), args.Error(1)
}

func (m *MockRegistryService) AddAddress(ctx context.Context, address models.NewAddress) (models.Address, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(models.Address), args.Error(1)
}

func post(handle gin.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handle(c)
	return w
}

func TestRegistryHandler_AddCustomer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		body           string
		callService    bool
		mockCustomer   models.Customer
		mockError      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "customer added",
			body:           `{"customer_name":"Acme"}`,
			callService:    true,
			mockCustomer:   models.Customer{ID: 4, Name: "Acme"},
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"message":"Customer added successfully","id":4}`,
		},
		{
			name:           "missing name",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"missing required field 'customer_name'"}`,
		},
		{
			name:           "malformed body",
			body:           `{"customer_name":`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"missing required field 'customer_name'"}`,
		},
		{
			name:           "store failure",
			body:           `{"customer_name":"Acme"}`,
			callService:    true,
			mockCustomer:   models.Customer{},
			mockError:      assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockRegistryService)
			handler := NewRegistryHandler(mockSvc)

			if tt.callService {
				mockSvc.On("AddCustomer", mock.Anything, "Acme").Return(tt.mockCustomer, tt.mockError)
			}

			w := post(handler.AddCustomer, "/add_customer", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestRegistryHandler_AddAddress(t *testing.T) {
	gin.SetMode(gin.TestMode)

	customerID := int64(4)
	withCustomer := models.NewAddress{
		Street:     "Main St",
		City:       "Denver",
		State:      "CO",
		ZipCode:    "80202",
		CustomerID: &customerID,
		Popularity: 3,
		Latitude:   39.7392,
		Longitude:  -104.9903,
	}
	withoutCustomer := models.NewAddress{
		Street:  "Null Island",
		City:    "Atlantic",
		State:   "XX",
		ZipCode: "00000",
	}

	tests := []struct {
		name           string
		body           string
		expectAddress  *models.NewAddress
		mockAddress    models.Address
		mockError      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "address added",
			body:           `{"street":"Main St","city":"Denver","state":"CO","zip_code":"80202","customer_id":4,"popularity":3,"latitude":39.7392,"longitude":-104.9903}`,
			expectAddress:  &withCustomer,
			mockAddress:    models.Address{ID: 12},
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"message":"Address added successfully","id":12}`,
		},
		{
			name:           "zero coordinates and default popularity",
			body:           `{"street":"Null Island","city":"Atlantic","state":"XX","zip_code":"00000","latitude":0,"longitude":0}`,
			expectAddress:  &withoutCustomer,
			mockAddress:    models.Address{ID: 13},
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"message":"Address added successfully","id":13}`,
		},
		{
			name:           "missing latitude",
			body:           `{"street":"Main St","city":"Denver","state":"CO","zip_code":"80202","longitude":-104.9903}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing street",
			body:           `{"city":"Denver","state":"CO","zip_code":"80202","latitude":39.7,"longitude":-104.9}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown customer",
			body:           `{"street":"Main St","city":"Denver","state":"CO","zip_code":"80202","customer_id":4,"popularity":3,"latitude":39.7392,"longitude":-104.9903}`,
			expectAddress:  &withCustomer,
			mockAddress:    models.Address{},
			mockError:      fmt.Errorf("service: failed to add address: %w", models.ErrCustomerNotFound),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"customer does not exist"}`,
		},
		{
			name:           "out of range latitude",
			body:           `{"street":"Main St","city":"Denver","state":"CO","zip_code":"80202","customer_id":4,"popularity":3,"latitude":39.7392,"longitude":-104.9903}`,
			expectAddress:  &withCustomer,
			mockAddress:    models.Address{},
			mockError:      &service.ValidationError{Field: "latitude", Reason: "must be between -90 and 90"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid latitude: must be between -90 and 90"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockRegistryService)
			handler := NewRegistryHandler(mockSvc)

			if tt.expectAddress != nil {
				mockSvc.On("AddAddress", mock.Anything, *tt.expectAddress).Return(tt.mockAddress, tt.mockError)
			}

			w := post(handler.AddAddress, "/add_address", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf strings.Builder
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/health", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	line := buf.String()
	assert.Contains(t, line, `"level":"warn"`)
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/health"`)
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"latency":`)
}
