package handler

import (
	"context"
	"net/http"

	"address-search-api/internal/models"

	"github.com/gin-gonic/gin"
)

// RegistryHandler handles customer and address creation
type RegistryHandler struct {
	service RegistryService
}

// RegistryService interface for dependency injection
type RegistryService interface {
	AddCustomer(context.Context, string) (models.Customer, error)
	AddAddress(context.Context, models.NewAddress) (models.Address, error)
}

// NewRegistryHandler creates a new registry handler
func NewRegistryHandler(svc RegistryService) *RegistryHandler {
	return &RegistryHandler{service: svc}
}

type addCustomerRequest struct {
	CustomerName string `json:"customer_name" binding:"required"`
}

// Coordinates are pointers so that an explicit 0 is distinguishable from a missing field.
type addAddressRequest struct {
	Street     string   `json:"street" binding:"required"`
	City       string   `json:"city" binding:"required"`
	State      string   `json:"state" binding:"required"`
	ZipCode    string   `json:"zip_code" binding:"required"`
	CustomerID *int64   `json:"customer_id"`
	Popularity int      `json:"popularity"`
	Latitude   *float64 `json:"latitude" binding:"required"`
	Longitude  *float64 `json:"longitude" binding:"required"`
}

// AddCustomer handles POST /add_customer requests
//
//	@Summary	Register a customer
//	@Accept		json
//	@Produce	json
//	@Param		body	body		addCustomerRequest	true	"Customer"
//	@Success	201		{object}	map[string]any
//	@Failure	400		{object}	map[string]string
//	@Router		/add_customer [post]
func (h *RegistryHandler) AddCustomer(c *gin.Context) {
	var req addCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field 'customer_name'"})
		return
	}

	customer, err := h.service.AddCustomer(c.Request.Context(), req.CustomerName)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Customer added successfully", "id": customer.ID})
}

// AddAddress handles POST /add_address requests
//
//	@Summary	Register an address
//	@Accept		json
//	@Produce	json
//	@Param		body	body		addAddressRequest	true	"Address"
//	@Success	201		{object}	map[string]any
//	@Failure	400		{object}	map[string]string
//	@Router		/add_address [post]
func (h *RegistryHandler) AddAddress(c *gin.Context) {
	var req addAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address payload: " + err.Error()})
		return
	}

	address, err := h.service.AddAddress(c.Request.Context(), models.NewAddress{
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		ZipCode:    req.ZipCode,
		CustomerID: req.CustomerID,
		Popularity: req.Popularity,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Address added successfully", "id": address.ID})
}
