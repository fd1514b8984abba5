// Package relay implements app.Runner for the bridge relay process.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/app"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/app/httpserver"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/archive"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/attestation"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/auth"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/bridge"
	bridgeservice "github.com/Facilitator-Network/agent-cli-backend/pkg/bridge/service"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/config"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/ethereum"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/notify"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/pgutil"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/statestore"
)

const defaultHTTPMiddlewareTimeout = 60 * time.Second

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds configuration for the relay process.
type Server struct {
	cfg *config.Config
}

var _ app.Runner = (*Server)(nil)

// NewServer initializes a new relay Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run wires the state store, chain clients and orchestrator behind the HTTP
// API. It blocks until an OS shutdown signal is received or a fatal server
// error occurs. A missing state store or relay key does not stop startup;
// intake answers 503 instead.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging, "bridge-relay")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting USDC bridge relay",
		zap.String("destination", cfg.Chains.Destination.Name),
		zap.Int("source_chains", len(cfg.Chains.Sources)))

	// interface values stay nil, not typed nil, when a dependency is absent
	var (
		store      bridgeservice.Store
		runner     bridgeservice.Runner
		archiveSvc bridgeservice.Archive
		ready      Pinger
	)

	redisStore, err := s.openStore(ctx, logger)
	if err != nil {
		return err
	}
	if redisStore != nil {
		defer func() { _ = redisStore.Close() }()
		store = redisStore
		ready = redisStore
	}

	var hooks []bridge.TerminalHook

	if cfg.Archive.Enabled {
		db, err := pgutil.ConnectDB(ctx, &cfg.Archive.Database, logger)
		if err != nil {
			return fmt.Errorf("connect archive db: %w", err)
		}
		defer func() { _ = db.Close() }()

		archiveStore := archive.NewStore(db)
		archiveSvc = archiveStore
		hooks = append(hooks, archive.NewHook(archiveStore, logger))
	}

	if cfg.Events.Enabled {
		publisher, err := notify.NewPublisher(cfg.Events, logger)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		defer func() { _ = publisher.Close() }()
		hooks = append(hooks, publisher)
	}

	var orch *bridge.Orchestrator
	if redisStore != nil && cfg.RelayKeyConfigured() {
		var closeChains func()
		orch, closeChains, err = s.newOrchestrator(redisStore, hooks, logger)
		if err != nil {
			return err
		}
		defer closeChains()
		runner = orch
	} else {
		logger.Warn("Bridge intake disabled",
			zap.Bool("store_configured", redisStore != nil),
			zap.Bool("relay_key_configured", cfg.RelayKeyConfigured()))
	}

	svc := bridgeservice.NewLog(bridgeservice.NewService(store, runner, archiveSvc, bridgeservice.Options{
		RecordTTL:          cfg.Bridge.RecordTTL,
		PaymentClaimTTL:    cfg.Bridge.PaymentClaimTTL,
		RelayKeyConfigured: cfg.RelayKeyConfigured(),
	}, logger), logger)

	var operatorAuth func(http.Handler) http.Handler
	if cfg.Auth.OperatorJWTSecret != "" {
		operatorAuth = auth.NewJWTValidator(cfg.Auth.OperatorJWTSecret, cfg.Auth.OperatorJWTIssuer).Middleware(logger)
	} else {
		logger.Info("Operator JWT secret not set, manual retry disabled")
	}

	router := NewRouter(svc, ready, operatorAuth, cfg.Monitoring.Enabled, logger)
	httpServer := httpserver.New(ctx, cfg.Server, router)

	err = httpserver.ServeAndWait(ctx, logger, httpServer, cfg.Server.ShutdownTimeout)

	// Runs observe cancellation and keep their checkpoints; wait for them
	// before the store and hooks close.
	if orch != nil {
		orch.Stop()
	}
	logger.Info("Bridge relay stopped")
	return err
}

// openStore connects to Redis when an address is configured. A configured
// but unreachable store is a startup error.
func (s *Server) openStore(ctx context.Context, logger *zap.Logger) (*statestore.RedisStore, error) {
	if !s.cfg.StoreConfigured() {
		logger.Warn("State store not configured")
		return nil, nil
	}
	store, err := statestore.NewRedisStore(ctx, s.cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("connect state store: %w", err)
	}
	return store, nil
}

func (s *Server) newOrchestrator(store bridge.Store, hooks []bridge.TerminalHook, logger *zap.Logger) (*bridge.Orchestrator, func(), error) {
	cfg := s.cfg

	var clients []*ethereum.Client
	closeAll := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	sources := make(map[string]bridge.SourceChain, len(cfg.Chains.Sources))
	for name, chainCfg := range cfg.Chains.Sources {
		client, err := ethereum.NewClient(chainCfg, cfg.Relayer.PrivateKey, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("initialize %s client: %w", name, err)
		}
		clients = append(clients, client)
		sources[name] = bridge.NewSourceChain(client, chainCfg)
	}

	destClient, err := ethereum.NewClient(cfg.Chains.Destination, cfg.Relayer.PrivateKey, logger)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("initialize destination client: %w", err)
	}
	clients = append(clients, destClient)

	poller := attestation.NewPoller(
		attestation.NewClient(cfg.Attestation.BaseURL, cfg.Attestation.RequestTimeout, nil),
		cfg.Attestation.PollInterval,
		cfg.Attestation.Timeout,
		logger,
	)

	orch, err := bridge.NewOrchestrator(
		store,
		sources,
		bridge.NewDestinationChain(destClient, cfg.Chains.Destination),
		poller,
		bridge.Options{RunLease: cfg.Bridge.RunLease, RecordTTL: cfg.Bridge.RecordTTL},
		logger,
		hooks...,
	)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("create orchestrator: %w", err)
	}
	return orch, closeAll, nil
}

// NewRouter mounts the bridge API with the operational endpoints. ready may
// be nil, in which case /ready reports NOT_READY.
func NewRouter(
	svc bridgeservice.Service,
	ready Pinger,
	operatorAuth func(http.Handler) http.Handler,
	metricsEnabled bool,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultHTTPMiddlewareTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if ready == nil || ready.Ping(req.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	bridgeservice.RegisterRoutes(r, svc, operatorAuth, logger)

	return r
}
