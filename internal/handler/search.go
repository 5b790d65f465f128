package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"address-search-api/internal/models"
	"address-search-api/internal/ranking"
	"address-search-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SearchHandler handles address search requests
type SearchHandler struct {
	service SearchService
}

// SearchService interface for dependency injection
type SearchService interface {
	SearchWithinRadius(context.Context, models.RadiusQuery) (ranking.Result, error)
	TopPopular(context.Context) (ranking.Result, error)
	ByPopularity(context.Context, int) (ranking.Result, error)
	ByCustomer(context.Context, int64) (ranking.Result, error)
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// FuzzySearchWithinRadius handles GET /fuzzy_search_within_radius requests
//
//	@Summary	Search addresses by text within a radius
//	@Produce	json
//	@Param		search_text	query		string	true	"Free-text query"
//	@Param		latitude	query		number	true	"Center latitude"
//	@Param		longitude	query		number	true	"Center longitude"
//	@Param		radius		query		number	true	"Radius in kilometers"
//	@Success	200			{object}	map[string][]models.AddressView
//	@Failure	400			{object}	map[string]string
//	@Failure	404			{object}	map[string]string
//	@Router		/fuzzy_search_within_radius [get]
func (h *SearchHandler) FuzzySearchWithinRadius(c *gin.Context) {
	text := c.Query("search_text")
	latStr := c.Query("latitude")
	lonStr := c.Query("longitude")
	radiusStr := c.Query("radius")

	if text == "" || latStr == "" || lonStr == "" || radiusStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameters 'search_text', 'latitude', 'longitude' and 'radius'"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude format"})
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude format"})
		return
	}

	radius, err := strconv.ParseFloat(radiusStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius format"})
		return
	}

	result, err := h.service.SearchWithinRadius(c.Request.Context(), models.RadiusQuery{
		Text:      text,
		Latitude:  lat,
		Longitude: lon,
		RadiusKm:  radius,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if result.NotFound() {
		c.JSON(http.StatusNotFound, gin.H{"message": "No addresses found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"top_100_addresses": models.Views(result.Addresses)})
}

// TopPopularAddresses handles GET /get_top_popular_addresses requests
//
//	@Summary	List the most popular addresses
//	@Produce	json
//	@Success	200	{object}	map[string][]models.AddressView
//	@Failure	404	{object}	map[string]string
//	@Router		/get_top_popular_addresses [get]
func (h *SearchHandler) TopPopularAddresses(c *gin.Context) {
	result, err := h.service.TopPopular(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	if result.NotFound() {
		c.JSON(http.StatusNotFound, gin.H{"message": "No addresses found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": models.Views(result.Addresses)})
}

// AddressesByPopularity handles GET /get_addresses_by_popularity requests
//
//	@Summary	List addresses with an exact popularity
//	@Produce	json
//	@Param		popularity	query		int	true	"Popularity value"
//	@Success	200			{object}	map[string][]models.AddressView
//	@Failure	400			{object}	map[string]string
//	@Failure	404			{object}	map[string]string
//	@Router		/get_addresses_by_popularity [get]
func (h *SearchHandler) AddressesByPopularity(c *gin.Context) {
	popularityStr := c.Query("popularity")
	if popularityStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'popularity'"})
		return
	}

	popularity, err := strconv.Atoi(popularityStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid popularity format"})
		return
	}

	result, err := h.service.ByPopularity(c.Request.Context(), popularity)
	if err != nil {
		writeError(c, err)
		return
	}

	if result.NotFound() {
		c.JSON(http.StatusNotFound, gin.H{"message": "No addresses found with the specified popularity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": models.Views(result.Addresses)})
}

// AddressesByCustomer handles GET /get_addresses_by_customer requests
//
//	@Summary	List the addresses of a customer
//	@Produce	json
//	@Param		customer_id	query		int	true	"Customer id"
//	@Success	200			{object}	map[string][]models.AddressView
//	@Failure	400			{object}	map[string]string
//	@Failure	404			{object}	map[string]string
//	@Router		/get_addresses_by_customer [get]
func (h *SearchHandler) AddressesByCustomer(c *gin.Context) {
	customerStr := c.Query("customer_id")
	if customerStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'customer_id'"})
		return
	}

	customerID, err := strconv.ParseInt(customerStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id format"})
		return
	}

	result, err := h.service.ByCustomer(c.Request.Context(), customerID)
	if err != nil {
		writeError(c, err)
		return
	}

	if result.NotFound() {
		c.JSON(http.StatusNotFound, gin.H{"message": "No addresses found for the specified customer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": models.Views(result.Addresses)})
}

// writeError maps service errors onto status codes. Anything that is not a client mistake is a 500.
func writeError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.Is(err, models.ErrCustomerNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer does not exist"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
