package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ProductRecord is an immutable row sourced from the product catalog.
type ProductRecord struct {
	ProductName string  `json:"product_name"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Country     string  `json:"country"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
}

// Text returns the textual projection embedded at index build time and
// rendered into grounding context.
func (r ProductRecord) Text() string {
	return fmt.Sprintf(
		"Product Name: %s\nBrand: %s\nCategory: %s\nSubcategory: %s\nCountry: %s\nPrice: %g\nRating: %g",
		r.ProductName, r.Brand, r.Category, r.Subcategory, r.Country, r.Price, r.Rating,
	)
}

var requiredColumns = []string{"product_name", "brand", "category", "subcategory", "country", "price", "rating"}

// LoadCSV reads the product catalog. The header must contain every required
// column; extra columns are ignored.
func LoadCSV(path string) ([]ProductRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]ProductRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("catalog missing required column %q", name)
		}
	}

	var records []ProductRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog row: %w", err)
		}

		price, err := strconv.ParseFloat(row[cols["price"]], 64)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: invalid price %q", line, row[cols["price"]])
		}
		rating, err := strconv.ParseFloat(row[cols["rating"]], 64)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: invalid rating %q", line, row[cols["rating"]])
		}

		records = append(records, ProductRecord{
			ProductName: row[cols["product_name"]],
			Brand:       row[cols["brand"]],
			Category:    row[cols["category"]],
			Subcategory: row[cols["subcategory"]],
			Country:     row[cols["country"]],
			Price:       price,
			Rating:      rating,
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("catalog contains no records")
	}
	return records, nil
}
