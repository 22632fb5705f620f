package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nlukin/sheet-orders/internal/application/service"
	"github.com/nlukin/sheet-orders/internal/cache"
	"github.com/nlukin/sheet-orders/internal/config"
	"github.com/nlukin/sheet-orders/internal/domain"
	"github.com/nlukin/sheet-orders/internal/infrastructure/imghost"
	"github.com/nlukin/sheet-orders/internal/observability"
)

const testSecret = "test-secret"

type fixture struct {
	server  *Server
	orders  *MockOrderSubmitter
	catalog *MockProductLister
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	orders := NewMockOrderSubmitter(ctrl)
	catalog := NewMockProductLister(ctrl)
	verifier := NewTokenVerifier(config.Auth{Secret: testSecret}, zaptest.NewLogger(t))

	return &fixture{
		server:  New(orders, catalog, imghost.Disabled{}, verifier, zaptest.NewLogger(t), observability.NewNoop()),
		orders:  orders,
		catalog: catalog,
	}
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func orderBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(domain.Order{
		CustomerName: "Ada",
		Email:        "ada@example.com",
		Items:        []domain.OrderItem{{SKU: "mug-01", Name: "Mug", Quantity: 1, Price: 10}},
		Total:        10,
		Currency:     "EUR",
	})
	require.NoError(t, err)
	return b
}

func TestSubmitOrder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().
			Submit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, o *domain.Order) (service.SubmitStats, error) {
				o.OrderID = "ord-42"
				return service.SubmitStats{QueueMs: 12}, nil
			})

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(orderBody(t)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		require.Contains(t, w.Body.String(), `"success": true`)
		require.Contains(t, w.Body.String(), `"order_id": "ord-42"`)
	})

	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(orderBody(t)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token signed with wrong key", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0)

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("other-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(orderBody(t)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(orderBody(t)))
		req.Header.Set("Content-Type", "text/plain")
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("bad json", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte("{nope")))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid order", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().
			Submit(gomock.Any(), gomock.Any()).
			Return(service.SubmitStats{}, domain.ErrInvalidOrder)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(orderBody(t)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("write rejected", func(t *testing.T) {
		f := newFixture(t)
		f.orders.EXPECT().
			Submit(gomock.Any(), gomock.Any()).
			Return(service.SubmitStats{}, errors.New("append exhausted"))

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(orderBody(t)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadGateway, w.Code)
		require.Contains(t, w.Body.String(), `"success": false`)
	})
}

func TestListProducts(t *testing.T) {
	t.Run("fresh", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Products(gomock.Any()).Return(
			[]domain.Product{{SKU: "mug-01", Name: "Mug"}},
			service.ProductStats{Source: service.SourceFresh, CacheMs: 1.5},
			nil,
		)

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "fresh", w.Header().Get("X-Source"))
		require.Equal(t, "1.50", w.Header().Get("X-Cache-Time"))
		require.Contains(t, w.Body.String(), `"sku": "mug-01"`)
	})

	t.Run("stale fallback still responds 200", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Products(gomock.Any()).Return(
			[]domain.Product{{SKU: "mug-01", Name: "Mug"}},
			service.ProductStats{Source: service.SourceStale},
			nil,
		)

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "stale", w.Header().Get("X-Source"))
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Products(gomock.Any()).Return(
			nil, service.ProductStats{}, errors.New("remote down"),
		)

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestAdminCacheEndpoints(t *testing.T) {
	t.Run("stats", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().CacheStats().Return(cache.Stats{
			Keys:            []string{"products"},
			TotalEntries:    1,
			AutoRefreshKeys: []string{"products"},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", nil)
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"total_entries": 1`)
	})

	t.Run("refresh success", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Refresh(gomock.Any()).Return([]domain.Product{{SKU: "a", Name: "A"}}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/refresh", nil)
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"products": 1`)
	})

	t.Run("refresh not configured", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Refresh(gomock.Any()).Return(nil, cache.ErrNoRefresher)

		req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/refresh", nil)
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("refresh failure surfaces to the admin", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Refresh(gomock.Any()).Return(nil, errors.New("remote down"))

		req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/refresh", nil)
		req.Header.Set("Authorization", bearer(t))
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestUploadImageDisabled(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := newMultipartImage(t, &body)

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", mw)
	req.Header.Set("Authorization", bearer(t))
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// newMultipartImage writes a tiny multipart body with one "image" part and
// returns the Content-Type to use.
func newMultipartImage(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("image", "pixel.png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
