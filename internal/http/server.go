package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/vision/v1"

	"budgie/internal/auth"
	"budgie/internal/cache"
	"budgie/internal/llm"
	"budgie/internal/log"
	"budgie/internal/middleware/ratelimit"
	"budgie/internal/middleware/security"
	"budgie/internal/middleware/trace"
	"budgie/internal/services"
)

// VisionAnnotator runs document text detection for the /api/vision proxy.
type VisionAnnotator interface {
	Annotate(ctx context.Context, imageBase64 string) (*vision.BatchAnnotateImagesResponse, error)
}

// MessageSender relays a messages request for the /api/anthropic proxy.
type MessageSender interface {
	Send(ctx context.Context, req llm.MessagesRequest) (int, []byte, error)
	Model() string
}

// Deps are the collaborators the server routes to. Receipts, Vision and
// Messages are optional; their routes answer 503 when unset.
type Deps struct {
	Ledger   *services.LedgerService
	Budgets  *services.BudgetService
	Receipts *services.ReceiptService
	Vision   VisionAnnotator
	Messages MessageSender
	Tokens   *auth.TokenService
	Caches   *cache.Manager
	Logger   *log.Logger

	RequestsPerMinute int
	TrustedProxies    []string
}

type Server struct {
	http.Server

	ledger   *services.LedgerService
	budgets  *services.BudgetService
	receipts *services.ReceiptService
	vision   VisionAnnotator
	messages MessageSender

	auth     *auth.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager
	logger   *log.Logger

	startedAt time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Ledger == nil || deps.Budgets == nil {
		return nil, errors.New("http: ledger and budget services are required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("http: token service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		ledger:    deps.Ledger,
		budgets:   deps.Budgets,
		receipts:  deps.Receipts,
		vision:    deps.Vision,
		messages:  deps.Messages,
		auth:      auth.NewMiddleware(deps.Tokens),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		detector:  detector,
		tracer:    trace.NewMiddleware(logger, detector.ExtractClientIP),
		caches:    deps.Caches,
		logger:    logger.WithComponent(log.ComponentHTTP),
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Gateway proxies hold the upstream keys; limited per client IP.
	byIP := s.limiter.Middleware(detector.ExtractClientIP)
	mux.Handle("POST /api/vision", byIP(http.HandlerFunc(s.handleVisionProxy)))
	mux.Handle("POST /api/anthropic", byIP(http.HandlerFunc(s.handleAnthropicProxy)))

	api := func(h http.HandlerFunc) http.Handler {
		return s.auth.RequireAuth(s.limiter.Middleware(userKey)(h))
	}
	mux.Handle("GET /categories", api(s.handleListCategories))
	mux.Handle("POST /categories", api(s.handleCreateCategory))
	mux.Handle("POST /categories/reset", api(s.handleResetTotals))
	mux.Handle("PUT /categories/{id}/total", api(s.handleSetTotal))
	mux.Handle("POST /categories/{id}/adjust", api(s.handleAdjustTotal))
	mux.Handle("GET /categories/{id}/items", api(s.handleCategoryItems))
	mux.Handle("GET /items", api(s.handleListItems))
	mux.Handle("POST /items", api(s.handleCreateItem))
	mux.Handle("GET /budgets", api(s.handleListBudgets))
	mux.Handle("POST /budgets", api(s.handleCreateBudget))
	mux.Handle("GET /budgets/progress", api(s.handleBudgetProgress))
	mux.Handle("GET /budgets/alerts", api(s.handleBudgetAlerts))
	mux.Handle("PUT /budgets/{id}", api(s.handleUpdateBudget))
	mux.Handle("DELETE /budgets/{id}", api(s.handleDeleteBudget))
	mux.Handle("POST /receipts", log.ComponentMiddleware(log.ComponentPipeline)(api(s.handleScanReceipt)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.tracer.Middleware(headers.Middleware(detector.Middleware(mux)))
	s.Addr = addr
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 60 * time.Second
	s.WriteTimeout = 120 * time.Second
	s.IdleTimeout = 120 * time.Second

	return s, nil
}

// userKey rate limits authenticated routes per user.
func userKey(r *http.Request) string {
	userID, _ := auth.UserIDFromContext(r.Context())
	return userID
}

// userID returns the authenticated user for the request.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// Shutdown stops background workers then gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	if s.caches != nil {
		s.caches.Stop()
	}
	return s.Server.Shutdown(ctx)
}
