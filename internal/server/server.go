package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hagzilla/apiserver/config"
	"github.com/hagzilla/apiserver/internal/auth"
	"github.com/hagzilla/apiserver/internal/db"
	"github.com/hagzilla/apiserver/internal/handlers"
	"github.com/hagzilla/apiserver/internal/logger"
	"github.com/hagzilla/apiserver/internal/mq"
	"github.com/hagzilla/apiserver/internal/services"
	"github.com/hagzilla/apiserver/internal/store"
)

// requestTimeout bounds handler contexts. It stays below writeTimeout so a
// timed-out handler can still write its 504 before the connection deadline.
const (
	requestTimeout = 10 * time.Second
	readTimeout    = 15 * time.Second
	writeTimeout   = 15 * time.Second
	idleTimeout    = 60 * time.Second
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	mq         mq.Backend
}

// Dependencies are the collaborators the router needs. New fills them from
// the config; tests pass stubs.
type Dependencies struct {
	Gate     handlers.Authenticator
	Login    handlers.LoginService
	Users    handlers.UserService
	Expenses handlers.ExpenseService
	Reports  handlers.ReportService
	Alerts   handlers.AlertLister
	Quiz     handlers.QuizService
	DB       handlers.Pinger
}

// New opens the database and message broker and wires every route.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	codec, err := auth.NewTokenCodec(cfg.Signing())
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}
	hasher, err := cfg.Hasher()
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	backend, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	expenseRepo := store.NewExpenseRepository(dbConn)
	questionRepo := store.NewQuestionRepository(dbConn)

	alertService := services.NewAlertService(userRepo, backend, cfg.MQ.AlertsChannel)

	router := Routes(Dependencies{
		Gate:     auth.NewGate(codec, userRepo),
		Login:    auth.NewLoginService(userRepo, hasher, codec),
		Users:    services.NewUserService(userRepo, hasher),
		Expenses: services.NewExpenseService(expenseRepo, alertService),
		Reports:  services.NewReportService(expenseRepo, userRepo),
		Alerts:   alertService,
		Quiz:     services.NewQuizService(questionRepo),
		DB:       dbConn,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	return &Server{
		httpServer: newHTTPServer(port, router),
		db:         dbConn,
		mq:         backend,
	}, nil
}

// Routes builds the router with the shared middleware stack.
func Routes(deps Dependencies) *chi.Mux {
	authMiddleware := handlers.RequireAuth(deps.Gate)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger,
		middleware.Timeout(requestTimeout),
	)

	handlers.HealthRouter(router, deps.DB)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, deps.Login)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, deps.Users, authMiddleware)
	})
	router.Route("/expenses", func(r chi.Router) {
		handlers.ExpenseRouter(r, deps.Expenses, authMiddleware)
	})
	router.Route("/reports", func(r chi.Router) {
		handlers.ReportRouter(r, deps.Reports, authMiddleware)
	})
	router.Route("/alerts", func(r chi.Router) {
		handlers.AlertRouter(r, deps.Alerts, authMiddleware)
	})
	router.Route("/quiz", func(r chi.Router) {
		handlers.QuizRouter(r, deps.Quiz, authMiddleware)
	})

	return router
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	logger.Get().Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if cerr := s.mq.Close(); cerr != nil {
			logger.Get().Warn().Err(cerr).Msg("close message broker")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
