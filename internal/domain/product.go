package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type Product struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	ImageURL    string  `json:"image_url"`
	InStock     bool    `json:"in_stock"`
}

// ProductFromRow parses one catalog sheet row.
// Expected columns: sku, name, description, price, currency, image_url, in_stock.
// Trailing columns may be absent; sku and name are required.
func ProductFromRow(row []string) (Product, error) {
	var p Product
	p.SKU = strings.TrimSpace(col(row, 0))
	p.Name = strings.TrimSpace(col(row, 1))
	if p.SKU == "" || p.Name == "" {
		return Product{}, fmt.Errorf("product row: sku and name are required")
	}
	p.Description = strings.TrimSpace(col(row, 2))

	if raw := strings.TrimSpace(col(row, 3)); raw != "" {
		price, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return Product{}, fmt.Errorf("product row %s: bad price %q: %w", p.SKU, raw, err)
		}
		p.Price = price
	}
	p.Currency = strings.TrimSpace(col(row, 4))
	p.ImageURL = strings.TrimSpace(col(row, 5))

	switch strings.ToLower(strings.TrimSpace(col(row, 6))) {
	case "", "0", "false", "no", "out":
		p.InStock = false
	default:
		p.InStock = true
	}
	return p, nil
}

func col(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
