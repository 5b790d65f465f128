package models

import "github.com/paulmach/orb"

// RadiusQuery selects addresses whose location text resembles Text and that lie within RadiusKm of the center
type RadiusQuery struct {
	Text      string
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// Center returns the query center as an orb.Point (lon, lat)
func (q RadiusQuery) Center() orb.Point {
	return orb.Point{q.Longitude, q.Latitude}
}
