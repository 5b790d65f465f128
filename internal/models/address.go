package models

import (
	"errors"

	"github.com/paulmach/orb"
)

// ErrCustomerNotFound is returned when an address references a customer that does not exist
var ErrCustomerNotFound = errors.New("customer not found")

// Address is a stored address record. Records handed to the ranking pipeline are read-only snapshots
type Address struct {
	ID         int64
	Street     string
	City       string
	State      string
	ZipCode    string
	CustomerID *int64
	Popularity int
	Latitude   float64
	Longitude  float64
}

// LocationText composes the text that search queries are matched against
func (a Address) LocationText() string {
	return a.State + " " + a.City + " " + a.Street
}

// Point returns the address coordinates as an orb.Point (lon, lat)
func (a Address) Point() orb.Point {
	return orb.Point{a.Longitude, a.Latitude}
}

// View projects the address onto the public response fields. The owning customer is not exposed
func (a Address) View() AddressView {
	return AddressView{
		ID:         a.ID,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		ZipCode:    a.ZipCode,
		Popularity: a.Popularity,
		Latitude:   a.Latitude,
		Longitude:  a.Longitude,
	}
}

// AddressView is the serialized form of an address in API responses
type AddressView struct {
	ID         int64   `json:"id"`
	Street     string  `json:"street"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	ZipCode    string  `json:"zip_code"`
	Popularity int     `json:"popularity"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Views projects a list of addresses, preserving order. It never returns nil
func Views(addresses []Address) []AddressView {
	views := make([]AddressView, 0, len(addresses))
	for _, a := range addresses {
		views = append(views, a.View())
	}
	return views
}

// NewAddress carries the fields of an address that has not been stored yet
type NewAddress struct {
	Street     string  `json:"street"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	ZipCode    string  `json:"zip_code"`
	CustomerID *int64  `json:"customer_id,omitempty"`
	Popularity int     `json:"popularity"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Customer owns zero or more addresses
type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"customer_name"`
}
