package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/docuchain/notary/metrics"
	"github.com/docuchain/notary/notary-app/config"
	apisrv "github.com/docuchain/notary/server/api"
	apimw "github.com/docuchain/notary/server/api/middleware"
	"github.com/docuchain/notary/x/automation"
	"github.com/docuchain/notary/x/chain"
	"github.com/docuchain/notary/x/docstore"
	"github.com/docuchain/notary/x/gas"
	"github.com/docuchain/notary/x/hasher"
	"github.com/docuchain/notary/x/ipfs"
	"github.com/docuchain/notary/x/notary"
)

// App represents the notary service application
type App struct {
	cfg *config.Config
	log zerolog.Logger

	store      *docstore.Store
	ethClient  *ethclient.Client
	tracker    *notary.Tracker
	automation *automation.Client

	// API server (HTTP)
	apiServer *apisrv.Server

	// Shutdown management
	shutdownFns []func() error

	cancel context.CancelFunc
}

// NewApp creates a new application instance
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		cfg:         cfg,
		log:         log.With().Str("component", "app").Logger(),
		shutdownFns: make([]func() error, 0),
	}

	if err := app.initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return app, nil
}

// initialize sets up storage, chain access, the tracker and the HTTP API.
func (a *App) initialize(ctx context.Context) error {
	store, err := docstore.Open(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	a.store = store
	a.shutdownFns = append(a.shutdownFns, store.Close)

	var (
		submitter *notary.EthSubmitter
		verifier  *notary.Verifier
		estimator *gas.Estimator
		binding   *notary.RegistryBinding
		from      common.Address
	)

	if strings.TrimSpace(a.cfg.Chain.RPCEndpoint) != "" {
		client, err := chain.Dial(ctx, a.cfg.Chain.RPCEndpoint, a.cfg.Chain.ChainID)
		if err != nil {
			return fmt.Errorf("failed to connect to chain: %w", err)
		}
		a.ethClient = client
		a.shutdownFns = append(a.shutdownFns, func() error { client.Close(); return nil })

		signer, err := chain.NewLocalECDSASignerFromHex(
			new(big.Int).SetUint64(a.cfg.Chain.ChainID), a.cfg.Chain.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to load signing key: %w", err)
		}
		from = signer.Address()

		binding, err = notary.NewRegistryBinding(a.cfg.Notary.RegistryContract)
		if err != nil {
			return fmt.Errorf("failed to bind registry contract: %w", err)
		}

		estimator = gas.NewEstimator(a.cfg.Gas, client, a.log)
		submitter = notary.NewEthSubmitter(client, signer, binding, estimator, a.cfg.Chain.ChainID, a.log)
		verifier = notary.NewVerifier(client, binding, a.log)

		a.log.Info().
			Str("rpc_endpoint", a.cfg.Chain.RPCEndpoint).
			Uint64("chain_id", a.cfg.Chain.ChainID).
			Str("from", from.Hex()).
			Str("registry_contract", a.cfg.Notary.RegistryContract).
			Msg("Chain access configured")
	} else {
		a.log.Warn().Msg("No chain configured, notarization submissions will be rejected")
	}

	trackerOpts := []notary.Option{notary.WithStore(store)}
	if a.cfg.Metrics.Enabled {
		trackerOpts = append(trackerOpts, notary.WithMetrics(notary.NewMetrics()))
	}

	var trackerSubmitter notary.Submitter
	if submitter != nil {
		trackerSubmitter = submitter
	}
	a.tracker = notary.NewTracker(ctx, a.cfg.Notary, trackerSubmitter, a.log, trackerOpts...)
	if err := a.tracker.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore tracker state: %w", err)
	}

	hasherOpts := []hasher.Option{}
	if a.cfg.Metrics.Enabled {
		hasherOpts = append(hasherOpts, hasher.WithMetrics(hasher.NewMetrics()))
	}
	if strings.TrimSpace(a.cfg.IPFS.APIEndpoint) != "" {
		pinner, err := ipfs.NewClient(a.cfg.IPFS, nil, a.log)
		if err != nil {
			return fmt.Errorf("failed to create IPFS client: %w", err)
		}
		hasherOpts = append(hasherOpts, hasher.WithPinner(pinner))
	}
	hasherSvc := hasher.NewProcessor(a.cfg.Hasher, a.log, hasherOpts...)

	if strings.TrimSpace(a.cfg.Automation.Endpoint) != "" {
		a.automation = automation.NewClient(a.cfg.Automation, a.log)
	}

	// API server
	apiCfg := apisrv.Config{
		ListenAddr:        a.cfg.API.ListenAddr,
		ReadHeaderTimeout: a.cfg.API.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.API.ReadTimeout,
		WriteTimeout:      a.cfg.API.WriteTimeout,
		IdleTimeout:       a.cfg.API.IdleTimeout,
		MaxHeaderBytes:    a.cfg.API.MaxHeaderBytes,
	}
	s := apisrv.NewServer(apiCfg, a.log)
	s.Use(apimw.Recover(a.log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log))
	s.EnableCORS()

	handler := apisrv.NewHandler(hasherSvc, store, a.tracker, verifier, estimator, binding, from, a.log)
	handler.RegisterMux(s.Router)

	// Metrics
	if a.cfg.Metrics.Enabled {
		s.Router.Handle(a.cfg.Metrics.Path,
			promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	a.apiServer = s

	return nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		if err := a.apiServer.Start(runCtx); err != nil {
			a.log.Error().Err(err).Msg("API server error")
		}
	}()

	if a.automation != nil {
		go func() {
			if err := a.automation.Run(runCtx); err != nil && runCtx.Err() == nil {
				a.log.Error().Err(err).Msg("Automation client stopped")
			}
		}()
		go a.drainAutomation(runCtx)
	}

	return a.runWithGracefulShutdown(runCtx)
}

// drainAutomation logs automation progress so sessions are observable
// even with no UI attached.
func (a *App) drainAutomation(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-a.automation.Messages():
			if !ok {
				return
			}
			a.log.Debug().
				Str("type", string(msg.Type)).
				Str("status", msg.Status).
				Int("step", msg.Step).
				Msg("automation message")
		}
	}
}

// runWithGracefulShutdown handles shutdown signals.
func (a *App) runWithGracefulShutdown(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info().Msg("Notary service started successfully")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("Context canceled, initiating shutdown")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	if a.cancel != nil {
		a.cancel()
	}

	return a.shutdown()
}

// shutdown gracefully stops the tracker and closes resources.
func (a *App) shutdown() error {
	a.log.Info().Msg("Initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Let in-flight submissions settle before closing the store.
	if err := a.tracker.Stop(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Tracker shutdown error")
	}

	for _, fn := range a.shutdownFns {
		if err := fn(); err != nil {
			a.log.Error().Err(err).Msg("Shutdown function error")
		}
	}

	a.log.Info().Msg("Graceful shutdown complete")
	return nil
}
