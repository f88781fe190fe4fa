// Package server initializes and runs the studiosign server: it selects the
// consent registry, builds the signing pipeline, and serves the gRPC
// service and the HTTP download surface until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/logging"
	"github.com/dmitrijs2005/studiosign/internal/server/archive"
	"github.com/dmitrijs2005/studiosign/internal/server/assembly"
	"github.com/dmitrijs2005/studiosign/internal/server/audit"
	"github.com/dmitrijs2005/studiosign/internal/server/channels"
	"github.com/dmitrijs2005/studiosign/internal/server/config"
	"github.com/dmitrijs2005/studiosign/internal/server/consent"
	"github.com/dmitrijs2005/studiosign/internal/server/httpapi"
	"github.com/dmitrijs2005/studiosign/internal/server/otp"
	"github.com/dmitrijs2005/studiosign/internal/server/registry"
	"github.com/dmitrijs2005/studiosign/internal/server/repositories/repomanager"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/studiosign/internal/server/grpc"
)

// sweepInterval is how often idle signing sessions are collected.
const sweepInterval = time.Minute

// Seams for tests.
var (
	openDB               = sql.Open
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
	newArchive           = archive.NewS3
)

var logOutput io.Writer = os.Stdout

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	sessions *otp.Registry
	consent  *consent.Service
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(logOutput, c.LogLevel)
	ctx := context.Background()

	reg, db, err := newRegistry(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	app, err := buildApp(ctx, c, logger, reg)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	app.db = db
	if db == nil {
		logger.Warn(ctx, "no database configured, consents are kept in memory")
	}
	return app, nil
}

// newRegistry opens Postgres and applies migrations when dsn is set, and
// falls back to the in-memory registry otherwise.
func newRegistry(ctx context.Context, dsn string) (registry.Registry, *sql.DB, error) {
	if dsn == "" {
		return registry.NewMemory(), nil, nil
	}

	db, err := openDB("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migration error: %w", err)
	}

	return registry.NewPostgres(db, rm), db, nil
}

func buildApp(ctx context.Context, c *config.Config, logger logging.Logger, reg registry.Registry) (*App, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.Timezone, err)
	}

	sealer, err := audit.NewSealer([]byte(c.AuditKey))
	if err != nil {
		return nil, fmt.Errorf("audit sealer: %w", err)
	}

	ch, err := channels.New(channels.Options{
		Kind:           c.OTPChannel,
		SMSGatewayURL:  c.SMSGatewayURL,
		SMSAPIKey:      c.SMSAPIKey,
		SMSSender:      c.SMSSender,
		SendGridAPIKey: c.SendGridAPIKey,
		EmailFrom:      c.EmailFrom,
		EmailFromName:  c.EmailFromName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("otp channel: %w", err)
	}

	sessions := otp.NewRegistry(otp.Config{
		CodeTTL:     c.OTPCodeTTL,
		MaxAttempts: c.OTPMaxAttempts,
	}, c.SessionIdleTTL, logger)

	deps := consent.Deps{
		Registry: reg,
		Sessions: sessions,
		Channel:  ch,
		Address:  channels.AddressFor(c.OTPChannel),
		Sealer:   sealer,
		Engine:   assembly.NewEngine(logger, assembly.WithLocation(loc)),
	}

	if c.ArchiveCertificates {
		store, err := newArchive(ctx, archive.Options{
			Region:   c.S3Region,
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Endpoint: c.S3BaseEndpoint,
			Bucket:   c.S3Bucket,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("certificate archive: %w", err)
		}
		deps.Archive = store
	}

	cs, err := consent.NewService(deps, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, sessions: sessions, consent: cs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.consent, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.EndpointAddrHTTP == "" {
		return
	}
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.consent, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "grpc", app.config.EndpointAddrGRPC, "http", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sessions.Run(ctx, sweepInterval)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "close", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the database handle, if any.
func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	err := app.db.Close()
	app.db = nil
	return err
}
