package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"address-search-api/internal/models"
	"address-search-api/internal/service"
)

// Columns is the expected CSV header. Column order in the file may differ.
var Columns = []string{"street", "city", "state", "zip_code", "customer_id", "popularity", "latitude", "longitude"}

// ParseCSV reads addresses from r. Every row is validated the same way as an API insert;
// the first bad row aborts the parse with its line number.
func ParseCSV(r io.Reader) ([]models.NewAddress, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("importer: empty file")
		}
		return nil, fmt.Errorf("importer: failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range Columns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("importer: missing column %q", name)
		}
	}

	var addresses []models.NewAddress
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("importer: failed to read record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		field := func(name string) string {
			return strings.TrimSpace(record[index[name]])
		}

		address, err := parseRecord(field)
		if err != nil {
			return nil, fmt.Errorf("importer: line %d: %w", line, err)
		}
		if err := service.ValidateNewAddress(address); err != nil {
			return nil, fmt.Errorf("importer: line %d: %w", line, err)
		}
		addresses = append(addresses, address)
	}

	return addresses, nil
}

func parseRecord(field func(string) string) (models.NewAddress, error) {
	address := models.NewAddress{
		Street:  field("street"),
		City:    field("city"),
		State:   field("state"),
		ZipCode: field("zip_code"),
	}

	if raw := field("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.NewAddress{}, fmt.Errorf("invalid customer_id: %s", raw)
		}
		address.CustomerID = &id
	}

	if raw := field("popularity"); raw != "" {
		popularity, err := strconv.Atoi(raw)
		if err != nil {
			return models.NewAddress{}, fmt.Errorf("invalid popularity: %s", raw)
		}
		address.Popularity = popularity
	}

	lat, err := strconv.ParseFloat(field("latitude"), 64)
	if err != nil {
		return models.NewAddress{}, fmt.Errorf("invalid latitude: %s", field("latitude"))
	}
	lon, err := strconv.ParseFloat(field("longitude"), 64)
	if err != nil {
		return models.NewAddress{}, fmt.Errorf("invalid longitude: %s", field("longitude"))
	}
	address.Latitude = lat
	address.Longitude = lon

	return address, nil
}
