package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/ptulin/folio/server/internal/folio/service"
	"github.com/ptulin/folio/server/internal/metrics"
	"github.com/ptulin/folio/server/internal/ratelimit"
)

// HealthMessage is the message of the GET health payload.
const HealthMessage = "Portfolio Backend API is running"

type Dependencies struct {
	Logger        logrus.FieldLogger
	Addr          string
	AccessService *service.AccessService

	// AllowedOrigins feeds the CORS policy. Empty means "*".
	AllowedOrigins []string
	// TrustedProxies are addresses or CIDRs allowed to set X-Forwarded-For
	// for rate limiting. Invalid entries are logged and skipped.
	TrustedProxies []string

	// Limiter is optional; nil disables rate limiting.
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
}

type Server struct {
	httpServer    *http.Server
	logger        logrus.FieldLogger
	router        *mux.Router
	accessService *service.AccessService
	limiter       ratelimit.Limiter
	proxies       proxyList
	metrics       *metrics.Metrics

	now func() time.Time
}

func NewServer(d Dependencies) *Server {
	router := mux.NewRouter()

	s := &Server{
		logger:        d.Logger,
		router:        router,
		accessService: d.AccessService,
		limiter:       d.Limiter,
		proxies:       parseProxies(d.TrustedProxies, d.Logger),
		metrics:       d.Metrics,
		now:           time.Now,
	}

	router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/", s.handleOptions).Methods(http.MethodOptions)
	router.HandleFunc("/", s.handleAction).Methods(http.MethodPost)
	if d.MetricsHandler != nil {
		router.Handle("/metrics", d.MetricsHandler).Methods(http.MethodGet)
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	co := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         3600,
	})

	handler := loggingMiddleware(d.Logger, co.Handler(router))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
