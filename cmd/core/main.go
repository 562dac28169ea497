// Command core is the e-invoicing core's service-bootstrap entrypoint: it
// wires the ambient init sequence (config, logging, database, cache,
// tenant manager, customer matching, the staged pipeline, migrations,
// backups, metrics) and tears everything down again on shutdown signal.
// It deliberately carries no HTTP/gRPC transport or vendor-connector wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taxpoynt/core/internal/config"
	"github.com/taxpoynt/core/pkg/backup"
	"github.com/taxpoynt/core/pkg/cache"
	cacheredis "github.com/taxpoynt/core/pkg/cache/redis"
	"github.com/taxpoynt/core/pkg/customer"
	"github.com/taxpoynt/core/pkg/metrics"
	"github.com/taxpoynt/core/pkg/migration"
	"github.com/taxpoynt/core/pkg/pipeline"
	"github.com/taxpoynt/core/pkg/shared/logging"
	"github.com/taxpoynt/core/pkg/store"
	"github.com/taxpoynt/core/pkg/tenant"
	"github.com/taxpoynt/core/pkg/transaction"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Logging)
	logger.Info("starting taxpoynt core", "config_path", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := store.NewEngine(storeConfig(cfg.Database), logger)
	if err != nil {
		logger.Error(err, "failed to open database engine")
		os.Exit(1)
	}
	defer engine.Close()

	if err := applyMigrations(ctx, engine, cfg.Migrations, logger); err != nil {
		logger.Error(err, "failed to apply pending migrations")
		os.Exit(1)
	}

	txRepo := store.NewProcessedTransactionRepo(engine)
	identityRepo := store.NewCustomerIdentityRepo(engine)
	tenantRepo := store.NewTenantRepo(engine)

	redisClient, l2 := buildL2Cache(cfg.Cache, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	statsCache := cache.NewTwoTier[rollingStats]("rolling_stats", l2, twoTierConfig(cfg.Cache), logger)

	tenantManager := tenant.NewManager(tenantRepo.Loader(), nil)

	customerEngine, err := customer.NewEngine(identityRepo, nil)
	if err != nil {
		logger.Error(err, "failed to construct customer matching engine")
		os.Exit(1)
	}

	orchestrator := pipeline.NewOrchestrator("v1")

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, logger)
	metricsServer.StartAsync()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Stop(shutdownCtx)
	}()

	backupOrchestrator := buildBackupOrchestrator(cfg.Backup, engine, logger)
	stopBackupScheduler := scheduleBackups(ctx, backupOrchestrator, cfg.Backup, logger)
	defer stopBackupScheduler()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := backupOrchestrator.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "backup orchestrator did not drain cleanly")
		}
	}()

	process := newProcessor(orchestrator, tenantManager, customerEngine, txRepo, statsCache, logger)
	_ = process // for adapter hosts, which bind a ProfileTag to get a pkg/connector.FetchAndProcess ProcessFunc; no transport in this entrypoint

	logger.Info("taxpoynt core is ready")
	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight work")
}

func buildLogger(cfg config.LoggingConfig) logr.Logger {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		zapCfg.Level = lvl
	}
	zapLog, err := zapCfg.Build()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(zapLog)
}

func storeConfig(cfg config.DatabaseConfig) store.Config {
	kind := store.EnginePostgres
	dsn := cfg.URL
	if cfg.Engine == "sqlite" {
		kind = store.EngineSQLite
		dsn = cfg.FilePath
	}
	return store.Config{
		Kind:               kind,
		DSN:                dsn,
		PoolSize:           cfg.PoolSize,
		PoolOverflow:       cfg.PoolOverflow,
		PoolTimeout:        cfg.PoolTimeout,
		PoolRecycle:        cfg.PoolRecycle,
		StatementTimeout:   cfg.StatementTimeout,
		SlowQueryThreshold: cfg.SlowQueryThreshold,
		DetailedLogging:    cfg.DetailedLogging,
	}
}

// applyMigrations discovers and applies every pending global-scope
// migration at startup (§4.8). Tenant-specific migrations are the
// operator's responsibility to trigger explicitly; this entrypoint only
// carries the ambient init sequence.
func applyMigrations(ctx context.Context, engine *store.Engine, cfg config.MigrationsConfig, logger logr.Logger) error {
	migrations, err := migration.DiscoverDir(cfg.Path)
	if err != nil {
		return err
	}
	runner := migration.NewRunner(engine, migrations, logger)
	applyCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	result, err := runner.Apply(applyCtx, migration.ApplyOptions{})
	if err != nil {
		return err
	}
	logger.Info("migrations applied", logging.NewFields().Component("migration").Operation("apply").KeysAndValues()...)
	_ = result
	return nil
}

// buildL2Cache wires go-redis as the circuit-broken L2 tier (§4.6). Only
// single-node mode establishes a live client in this minimal bootstrap;
// sentinel/cluster topologies validate at config load but fall back to the
// first address as a single-node endpoint here (see DESIGN.md).
func buildL2Cache(cfg config.CacheConfig, logger logr.Logger) (*cacheredis.Client, cache.L2) {
	if len(cfg.Addrs) == 0 {
		return nil, nil
	}
	client := cacheredis.NewClient(&goredis.Options{Addr: cfg.Addrs[0]}, logger)
	return client, cache.NewRedisL2(client)
}

func twoTierConfig(cfg config.CacheConfig) cache.TwoTierConfig {
	format := cache.FormatJSON
	if cfg.SerializationFormat == "binary" {
		format = cache.FormatBinary
	}
	return cache.TwoTierConfig{
		Capacity:          cfg.L1Capacity,
		TTL:               cfg.L1DefaultTTL,
		Format:            format,
		CompressThreshold: cfg.CompressionBytes,
		Breaker: cache.BreakerConfig{
			ConsecutiveFailures: cfg.BreakerFailures,
			RecoveryTimeout:     cfg.BreakerRecovery,
		},
	}
}

func buildBackupOrchestrator(cfg config.BackupConfig, engine *store.Engine, logger logr.Logger) *backup.Orchestrator {
	var uploader backup.Uploader
	if cfg.ObjectStoreBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			logger.Error(err, "failed to load object-store credentials, remote backup upload disabled")
		} else {
			uploader = backup.NewS3Uploader(s3.NewFromConfig(awsCfg))
		}
	}

	orchCfg := backup.Config{
		LocalRoot:     cfg.LocalPath,
		Concurrency:   cfg.WorkerConcurrency,
		RetentionDays: cfg.RetentionDays,
		Compression:   backup.Compression(cfg.Compression),
		RemoteBucket:  cfg.ObjectStoreBucket,
	}
	return backup.NewOrchestrator(orchCfg, engine, uploader, logger)
}

// scheduleBackups runs a full backup on startup, then a recurring
// incremental backup every six hours and a weekly full backup. It returns
// a function that blocks until the schedule's goroutine has exited, which
// happens once ctx is cancelled.
func scheduleBackups(ctx context.Context, orch *backup.Orchestrator, cfg config.BackupConfig, logger logr.Logger) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		incrementalTicker := time.NewTicker(6 * time.Hour)
		fullTicker := time.NewTicker(7 * 24 * time.Hour)
		defer incrementalTicker.Stop()
		defer fullTicker.Stop()

		if _, err := orch.Schedule(ctx, backup.JobTypeFull, ""); err != nil {
			logger.Error(err, "failed to schedule startup full backup")
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-incrementalTicker.C:
				if _, err := orch.Schedule(ctx, backup.JobTypeIncremental, ""); err != nil {
					logger.Error(err, "failed to schedule incremental backup")
				}
			case <-fullTicker.C:
				if _, err := orch.Schedule(ctx, backup.JobTypeFull, ""); err != nil {
					logger.Error(err, "failed to schedule full backup")
				}
				if err := orch.Sweep(ctx); err != nil {
					logger.Error(err, "retention sweep failed")
				}
			}
		}
	}()
	return func() { <-done }
}

// rollingStats is the cacheable shape of ProcessedTransactionRepo's
// RollingStats read path.
type rollingStats struct {
	Mean        float64
	StdDev      float64
	HourlyCount int
	HourlyMean  float64
}

// newProcessor builds the per-transaction processing function; an adapter
// host binds a ProfileTag to it to obtain the ProcessFunc it passes to
// pkg/connector.FetchAndProcess: resolve tenant, run the staged pipeline
// with every C7/C9/C10 collaborator seam bound to a live implementation,
// and persist the result.
func newProcessor(
	orchestrator *pipeline.Orchestrator,
	tenantManager *tenant.Manager,
	customerEngine *customer.Engine,
	txRepo *store.ProcessedTransactionRepo,
	statsCache *cache.TwoTier[rollingStats],
	logger logr.Logger,
) func(ctx context.Context, u transaction.Universal, tag pipeline.ProfileTag) (*transaction.Processed, error) {
	return func(ctx context.Context, u transaction.Universal, tag pipeline.ProfileTag) (*transaction.Processed, error) {
		profile, ok := pipeline.ByTag(tag)
		if !ok {
			return nil, fmt.Errorf("unknown processing profile %q", tag)
		}

		tenantCfg, err := tenantManager.Resolve(ctx, u.TenantID)
		if err != nil {
			return nil, err
		}

		sc := pipeline.StageContext{
			Now:            time.Now(),
			TenantID:       u.TenantID,
			TenantCurrency: u.Currency,
			EnabledRegimes: regimeSet(tenantCfg),
			CustomerMatch: func(ctx context.Context, u transaction.Universal) (string, string, error) {
				result, err := customerEngine.Match(u.TenantID, universalToPayload(u), customer.StrategyBalanced)
				if err != nil {
					return "", "", err
				}
				return result.IdentityID, "", nil
			},
			IsDuplicate: txRepo.IsDuplicate,
			RollingStats: func(ctx context.Context, tenantID, accountID string) (float64, float64, int, float64, error) {
				key := cache.TenantKey(tenantID, "rolling_stats:"+accountID)
				if cached, ok := statsCache.Get(ctx, key); ok {
					return cached.Mean, cached.StdDev, cached.HourlyCount, cached.HourlyMean, nil
				}
				mean, stddev, hourlyCount, hourlyMean, err := txRepo.RollingStats(ctx, tenantID, accountID)
				if err != nil {
					return 0, 0, 0, 0, err
				}
				if err := statsCache.Set(ctx, key, rollingStats{mean, stddev, hourlyCount, hourlyMean}); err != nil {
					logger.Error(err, "failed to cache rolling stats", logging.NewFields().Component("cache").Operation("set").TenantID(tenantID).KeysAndValues()...)
				}
				return mean, stddev, hourlyCount, hourlyMean, nil
			},
		}

		processed, err := orchestrator.Run(ctx, u, profile, sc)
		if err != nil {
			return nil, err
		}
		if err := txRepo.Save(ctx, processed); err != nil {
			return nil, err
		}
		return processed, nil
	}
}

func regimeSet(cfg tenant.Configuration) map[string]bool {
	regimes := map[string]bool{}
	for _, r := range cfg.Grant.SectorList {
		regimes[r] = true
	}
	return regimes
}

// universalToPayload extracts the name/phone/email/address/business-id
// facets customer matching needs from whichever per-connector Metadata a
// Universal Transaction carries (§4.1's "exactly one concrete type is
// populated per transaction").
func universalToPayload(u transaction.Universal) customer.Payload {
	p := customer.Payload{
		Name:          u.Description,
		SourceSystem:  string(u.ConnectorKind),
		SourceLocalID: u.ExternalRef,
	}
	switch md := u.Metadata.(type) {
	case *transaction.CRMMetadata:
		p.Name = md.AccountName
		p.Email = md.ContactEmail
		p.Phone = md.ContactPhone
	case *transaction.ERPMetadata:
		p.Name = md.VendorOrCustomer
	case *transaction.EcommerceMetadata:
		p.Address = md.ShippingAddress
	}
	return p
}
