// main.go - Shielded-pool daemon.
//
// Boots the full protocol stack from one JSON config file:
//   - loads or creates the journal and rebuilds accumulator and registry
//     checkpoints from it
//   - compiles the reveal circuit and loads or generates the Groth16 keys
//   - wires the verifier, asset allowlist and escrow adapters into the pool
//   - serves the REST surface with per-client rate limiting, metrics and
//     health endpoints
//   - runs the read-model indexer in the background, optionally publishing
//     fresh roots as commitments land
//
// Usage:
//
//	poold -config poold.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"shieldedpool/internal/circuits/reveal"
	"shieldedpool/internal/indexer"
	"shieldedpool/internal/shield"
)

const version = "1.2.0"

func main() {
	configPath := flag.String("config", "poold.json", "path to the daemon configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "poold: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	logger.Info().Str("version", version).Str("config", configPath).Msg("starting pool daemon")

	// Journal and replayed checkpoints.
	journal, err := loadJournal(cfg.JournalPath, logger)
	if err != nil {
		return err
	}
	publisher, _ := parsePrincipal(cfg.Publisher)
	pauser, _ := parsePrincipal(cfg.Pauser)
	admin, _ := parsePrincipal(cfg.Admin)

	acc := shield.NewAccumulator(shield.AccumulatorConfig{
		Publisher:       publisher,
		RootHistorySize: cfg.RootHistorySize,
		StalenessBound:  cfg.StalenessBound,
	}, journal)
	registry := shield.NewRegistry(journal, nil)
	if err := shield.Restore(journal, acc, registry); err != nil {
		return fmt.Errorf("journal replay failed: %w", err)
	}
	logger.Info().
		Uint64("leaves", acc.LeafCount()).
		Int("nullifiers", registry.Count()).
		Int("records", journal.Len()).
		Msg("state rebuilt from journal")

	// Circuit and verification key.
	verifier, err := buildVerifier(cfg.KeyDir, logger)
	if err != nil {
		return err
	}

	// Asset allowlist and adapters.
	auth := shield.NewAllowlistAuthorizer(admin)
	pool := shield.NewPool(acc, registry, journal, shield.PoolConfig{
		Authorizer:     auth,
		Verifier:       verifier,
		Pauser:         pauser,
		CommitCooldown: time.Duration(cfg.CommitCooldownSeconds) * time.Second,
		Logger:         logger.With().Str("component", "pool").Logger(),
	})
	if cfg.EnableNative {
		if err := auth.Authorize(admin, shield.NativeAsset); err != nil {
			return err
		}
		pool.RegisterAdapter(shield.NativeAsset, shield.NewNativeVaultAdapter())
	}
	for _, a := range cfg.Assets {
		addr, _ := parsePrincipal(a)
		if err := auth.Authorize(admin, addr); err != nil {
			return err
		}
		pool.RegisterAdapter(addr, shield.NewVaultAdapter())
		logger.Info().Str("asset", a).Msg("asset authorized")
	}

	// Read model.
	ix := indexer.New(logger.With().Str("component", "indexer").Logger())
	if err := ix.Sync(journal); err != nil {
		return fmt.Errorf("initial index build failed: %w", err)
	}

	metrics := NewMetricsCollector()
	health := NewHealthChecker(version)
	health.RegisterComponent("accumulator", func() error {
		if acc.LeafCount() >= shield.Capacity {
			return errors.New("accumulator at capacity")
		}
		return nil
	})
	health.RegisterComponent("indexer", func() error {
		lag := acc.LeafCount() - ix.LeafCount()
		if lag > cfg.StalenessBound {
			return fmt.Errorf("indexer lags the record by %d leaves", lag)
		}
		if lag > cfg.StalenessBound/2 {
			return fmt.Errorf("%w: indexer lags the record by %d leaves", errDegraded, lag)
		}
		return nil
	})
	health.RegisterComponent("journal", func() error {
		dir := filepath.Dir(cfg.JournalPath)
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("journal directory: %w", err)
		}
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go syncLoop(ctx, cfg, ix, acc, registry, journal, publisher, metrics, logger)
	go saveLoop(ctx, cfg, journal, logger)

	// HTTP surface.
	poolServer := shield.NewServer(pool, acc, journal, logger.With().Str("component", "api").Logger())
	mux := http.NewServeMux()
	mux.Handle("/", poolServer.Handler())
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetMetricsSummary())
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		sys := health.CheckHealth()
		status := http.StatusOK
		if sys.OverallStatus == Unhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, sys)
	})

	limiter := NewClientRateLimiter(cfg.RateLimitBurst, cfg.RateLimitPerMinute, time.Minute)
	handler := limiter.Middleware(metrics, instrument(metrics, mux))

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("serving")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	if err := journal.SaveToFile(cfg.JournalPath); err != nil {
		return fmt.Errorf("final journal save failed: %w", err)
	}
	logger.Info().Int("records", journal.Len()).Msg("journal saved")
	return nil
}

// loadJournal reads the persisted journal, or starts an empty one on first
// boot.
func loadJournal(path string, logger zerolog.Logger) (*shield.Journal, error) {
	if _, err := os.Stat(path); err != nil {
		logger.Info().Str("path", path).Msg("no journal on disk, starting fresh")
		return shield.NewJournal(), nil
	}
	journal, err := shield.LoadJournalFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("journal load failed: %w", err)
	}
	return journal, nil
}

// buildVerifier compiles the reveal circuit, loads or generates the Groth16
// key pair under keyDir, and wraps the verifying key in the pool's pairing
// verifier.
func buildVerifier(keyDir string, logger zerolog.Logger) (*shield.Verifier, error) {
	if err := os.MkdirAll(keyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	start := time.Now()
	ccs, err := reveal.Compile()
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	logger.Info().Dur("took", time.Since(start)).Msg("reveal circuit compiled")

	pkPath := filepath.Join(keyDir, "reveal_pk.bin")
	vkPath := filepath.Join(keyDir, "reveal_vk.bin")
	start = time.Now()
	_, gvk, err := reveal.SetupOrLoadKeys(ccs, pkPath, vkPath)
	if err != nil {
		return nil, fmt.Errorf("key setup failed: %w", err)
	}
	logger.Info().Dur("took", time.Since(start)).Msg("groth16 keys ready")

	vk, err := shield.VerifyingKeyFromGnark(gvk)
	if err != nil {
		return nil, err
	}
	return shield.NewVerifier(vk)
}

// syncLoop keeps the read model current and, when configured, publishes a
// fresh root whenever new leaves landed since the last publication.
func syncLoop(ctx context.Context, cfg *Config, ix *indexer.Indexer, acc *shield.Accumulator, registry *shield.Registry, journal *shield.Journal, publisher *big.Int, metrics *MetricsCollector, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.SyncIntervalSeconds) * time.Second)
	defer ticker.Stop()

	published := ix.LeafCount()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := ix.Sync(journal); err != nil {
			metrics.RecordError("index_sync")
			logger.Error().Err(err).Msg("index sync failed")
			continue
		}
		metrics.SetGauge(MetricLeafCount, float64(ix.LeafCount()), nil)
		metrics.SetGauge(MetricNullifierCount, float64(registry.Count()), nil)

		if !cfg.AutoPublishRoots || ix.LeafCount() == published {
			continue
		}
		root := ix.Root()
		if err := acc.PublishRoot(publisher, root.BigInt(new(big.Int)), ix.LeafCount()); err != nil {
			metrics.RecordError("root_publish")
			logger.Error().Err(err).Msg("root publication failed")
			continue
		}
		published = ix.LeafCount()
		metrics.RecordRootPublish()
		logger.Info().Uint64("leaves", published).Msg("root published")
	}
}

// saveLoop persists the journal at the configured interval.
func saveLoop(ctx context.Context, cfg *Config, journal *shield.Journal, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.SaveIntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := journal.SaveToFile(cfg.JournalPath); err != nil {
				logger.Error().Err(err).Msg("journal save failed")
			}
		}
	}
}

// instrument records per-route request timings and commit/reveal counters.
func instrument(metrics *MetricsCollector, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordRequest(r.URL.Path, time.Since(start))

		if rec.status != http.StatusOK {
			metrics.RecordError(fmt.Sprintf("http_%d", rec.status))
			return
		}
		switch r.URL.Path {
		case "/commit":
			metrics.RecordCommit()
		case "/reveal":
			metrics.RecordReveal()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
