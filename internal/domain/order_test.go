package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testOrder() Order {
	return Order{
		OrderID:      "ord-1",
		CustomerName: "Ada",
		Email:        "ada@example.com",
		Currency:     "EUR",
		Total:        35,
		CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Items: []OrderItem{
			{SKU: "mug-01", Name: "Mug", Quantity: 2, Price: 10},
			{SKU: "tee-02", Name: "Tee", Quantity: 1, Price: 15},
		},
	}
}

func TestOrderRows(t *testing.T) {
	o := testOrder()
	rows := o.Rows()

	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, "ord-1", row[0])
		require.Equal(t, "2025-06-01T12:00:00Z", row[1])
		require.Equal(t, "Ada", row[2])
	}
	require.Equal(t, "mug-01", rows[0][8])
	require.Equal(t, "2", rows[0][10])
	require.Equal(t, "20.00", rows[0][12]) // quantity * price
	require.Equal(t, "tee-02", rows[1][8])
	require.Equal(t, "15.00", rows[1][12])
	require.Equal(t, "35.00", rows[1][13])
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Order) {}},
		{name: "missing customer", mutate: func(o *Order) { o.CustomerName = " " }, wantErr: true},
		{name: "missing email", mutate: func(o *Order) { o.Email = "" }, wantErr: true},
		{name: "no items", mutate: func(o *Order) { o.Items = nil }, wantErr: true},
		{name: "zero quantity", mutate: func(o *Order) { o.Items[0].Quantity = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOrder()
			tt.mutate(&o)
			err := o.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidOrder)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
