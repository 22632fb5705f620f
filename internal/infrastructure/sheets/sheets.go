// Package sheets is the Google Sheets remote store: the append primitive the
// write queue drains into, and the catalog fetch the product cache refreshes
// from. The spreadsheet is the system of record; this package stays a thin
// wrapper around the Sheets API.
package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/nlukin/sheet-orders/internal/config"
	"github.com/nlukin/sheet-orders/internal/domain"
)

type Client struct {
	svc           *sheetsv4.Service
	spreadsheetID string
	productsSheet string
	logger        *zap.Logger
}

func New(ctx context.Context, cfg config.Sheets, credentialsJSON []byte, logger *zap.Logger) (*Client, error) {
	jwtCfg, err := google.JWTConfigFromJSON(credentialsJSON, sheetsv4.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	svc, err := sheetsv4.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		productsSheet: cfg.ProductsSheet,
		logger:        logger,
	}, nil
}

// Append appends rows to the named sheet in one call.
func (c *Client) Append(ctx context.Context, table string, rows [][]string) error {
	vr := &sheetsv4.ValueRange{Values: toValues(rows)}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, table+"!A:Z", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %d rows to %s: %w", len(rows), table, err)
	}
	return nil
}

// FetchProducts reads the catalog sheet, skipping the header row.
// Unparseable rows are logged and skipped rather than failing the fetch.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, c.productsSheet+"!A2:G").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("fetch products from %s: %w", c.productsSheet, err)
	}

	products := make([]domain.Product, 0, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		p, err := domain.ProductFromRow(row)
		if err != nil {
			c.logger.Warn("skipping catalog row",
				zap.Int("row", i+2),
				zap.Error(err),
			)
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func toValues(rows [][]string) [][]interface{} {
	vals := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		vals[i] = cells
	}
	return vals
}
