package service

import (
	"math"
	"strings"

	"address-search-api/internal/models"
)

// ValidateRadiusQuery checks that q can be ranked: non-blank text, a finite center inside the
// coordinate ranges and a finite, non-negative radius.
func ValidateRadiusQuery(q models.RadiusQuery) error {
	if strings.TrimSpace(q.Text) == "" {
		return invalid("search_text", "must not be empty")
	}
	if err := validateCoordinates(q.Latitude, q.Longitude); err != nil {
		return err
	}
	if math.IsNaN(q.RadiusKm) || math.IsInf(q.RadiusKm, 0) || q.RadiusKm < 0 {
		return invalid("radius", "must be a non-negative number of kilometers")
	}
	return nil
}

// ValidateNewAddress checks the fields the store requires and the coordinate ranges.
func ValidateNewAddress(a models.NewAddress) error {
	required := []struct {
		field string
		value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zip_code", a.ZipCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.field, "must not be empty")
		}
	}
	if a.Popularity < 0 {
		return invalid("popularity", "must not be negative")
	}
	return validateCoordinates(a.Latitude, a.Longitude)
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return invalid("latitude", "must be between -90 and 90")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return invalid("longitude", "must be between -180 and 180")
	}
	return nil
}
