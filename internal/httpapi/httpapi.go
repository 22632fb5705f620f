package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/application/service"
	"github.com/nlukin/sheet-orders/internal/cache"
	"github.com/nlukin/sheet-orders/internal/domain"
	"github.com/nlukin/sheet-orders/internal/infrastructure/imghost"
	"github.com/nlukin/sheet-orders/internal/observability"
	"github.com/nlukin/sheet-orders/internal/queue"
)

//go:generate mockgen -source internal/httpapi/httpapi.go -destination=internal/httpapi/httpapi_mock_test.go -package=httpapi

const maxImageBytes = 10 << 20

type OrderSubmitter interface {
	Submit(ctx context.Context, order *domain.Order) (service.SubmitStats, error)
}

type ProductLister interface {
	Products(ctx context.Context) ([]domain.Product, service.ProductStats, error)
	Refresh(ctx context.Context) ([]domain.Product, error)
	CacheStats() cache.Stats
}

type Server struct {
	orders  OrderSubmitter
	catalog ProductLister
	images  imghost.Uploader
	auth    *TokenVerifier
	router  chi.Router
	logger  *zap.Logger
	metrics observability.Metrics
}

func New(
	orders OrderSubmitter,
	catalog ProductLister,
	images imghost.Uploader,
	auth *TokenVerifier,
	logger *zap.Logger,
	metrics observability.Metrics,
) *Server {
	s := &Server{
		orders:  orders,
		catalog: catalog,
		images:  images,
		auth:    auth,
		logger:  logger,
		metrics: metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	r.Use(ServerTimingApp(s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/products", s.listProducts)

	r.Group(func(pr chi.Router) {
		pr.Use(s.auth.Middleware)
		pr.Post("/api/orders", s.submitOrder)
		pr.Post("/api/images", s.uploadImage)
		pr.Get("/api/admin/cache/stats", s.cacheStats)
		pr.Post("/api/admin/cache/refresh", s.refreshCache)
	})

	s.router = r
}

func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var order domain.Order
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&order); err != nil {
		s.logger.Error("bad order payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	st, err := s.orders.Submit(r.Context(), &order)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrder):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, queue.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, "service is shutting down")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "timed out waiting for the order to be recorded")
		default:
			writeError(w, http.StatusBadGateway, "order was not saved")
		}
		return
	}

	observability.AppendServerTiming(w, "queue", st.QueueMs, "")
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Data:    map[string]string{"order_id": order.OrderID},
	})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, st, err := s.catalog.Products(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog is unavailable")
		return
	}

	observability.AppendServerTiming(w, "cache", st.CacheMs, "")
	observability.AppendServerTiming(w, "remote", st.RemoteMs, "")
	observability.AppendServerTiming(w, "source", 0, string(st.Source))
	w.Header().Set("X-Source", string(st.Source))
	observability.SetIfPos(w, "X-Cache-Time", st.CacheMs)
	observability.SetIfPos(w, "X-Remote-Time", st.RemoteMs)

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: products})
}

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable image")
		return
	}

	url, err := s.images.Upload(r.Context(), header.Filename, data)
	if err != nil {
		if errors.Is(err, imghost.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, "image hosting not configured")
			return
		}
		s.logger.Error("image upload failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "image upload failed")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: map[string]string{"url": url}})
}

func (s *Server) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.catalog.CacheStats()})
}

func (s *Server) refreshCache(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, cache.ErrNoRefresher) {
			writeError(w, http.StatusConflict, "auto refresh is not configured")
			return
		}
		s.logger.Error("force refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    map[string]int{"products": len(products)},
	})
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}
