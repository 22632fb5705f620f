package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type OrderItem struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Order struct {
	OrderID      string      `json:"order_id"`
	CustomerName string      `json:"customer_name"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	Address      string      `json:"address"`
	City         string      `json:"city"`
	Country      string      `json:"country"`
	Items        []OrderItem `json:"items"`
	Total        float64     `json:"total"`
	Currency     string      `json:"currency"`
	Comment      string      `json:"comment"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (o *Order) Validate() error {
	var missing []string
	if strings.TrimSpace(o.CustomerName) == "" {
		missing = append(missing, "customer_name")
	}
	if strings.TrimSpace(o.Email) == "" {
		missing = append(missing, "email")
	}
	if len(o.Items) == 0 {
		missing = append(missing, "items")
	}
	for i, it := range o.Items {
		if strings.TrimSpace(it.SKU) == "" || it.Quantity <= 0 {
			missing = append(missing, fmt.Sprintf("items[%d]", i))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOrder, strings.Join(missing, ", "))
	}
	return nil
}

// Rows projects the order into spreadsheet rows, one row per item.
// Column order matches the header row of the orders sheet.
func (o *Order) Rows() [][]string {
	rows := make([][]string, 0, len(o.Items))
	for _, it := range o.Items {
		rows = append(rows, []string{
			o.OrderID,
			o.CreatedAt.UTC().Format(time.RFC3339),
			o.CustomerName,
			o.Email,
			o.Phone,
			o.Address,
			o.City,
			o.Country,
			it.SKU,
			it.Name,
			strconv.Itoa(it.Quantity),
			formatAmount(it.Price),
			formatAmount(float64(it.Quantity) * it.Price),
			formatAmount(o.Total),
			o.Currency,
			o.Comment,
		})
	}
	return rows
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
