// Package imghost uploads product images to an imgbb-compatible hosting
// provider and returns the public URL.
package imghost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/config"
)

var ErrDisabled = errors.New("image hosting not configured")

type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type ImgBB struct {
	cfg    config.ImageHost
	hc     *http.Client
	logger *zap.Logger
}

func NewImgBB(cfg config.ImageHost, logger *zap.Logger) *ImgBB {
	return &ImgBB{
		cfg:    cfg,
		hc:     &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (u *ImgBB) Upload(ctx context.Context, name string, data []byte) (string, error) {
	form := url.Values{}
	form.Set("key", u.cfg.APIKey)
	form.Set("name", name)
	form.Set("image", base64.StdEncoding.EncodeToString(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.Endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload %s: status %d", name, resp.StatusCode)
	}

	var out struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Data.URL == "" {
		return "", fmt.Errorf("upload %s: unexpected provider response", name)
	}

	u.logger.Info("image uploaded",
		zap.String("name", name),
		zap.Int("bytes", len(data)),
	)
	return out.Data.URL, nil
}

// Disabled is used when no provider API key is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, []byte) (string, error) {
	return "", ErrDisabled
}
