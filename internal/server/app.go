// Package server wires the account server together: database and migrations,
// the lifecycle service, the expiry sweeper and the gRPC endpoint. It handles
// signals and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/communitykeeper/internal/logging"
	"github.com/dmitrijs2005/communitykeeper/internal/server/auth"
	"github.com/dmitrijs2005/communitykeeper/internal/server/config"
	"github.com/dmitrijs2005/communitykeeper/internal/server/objectstore"
	"github.com/dmitrijs2005/communitykeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/communitykeeper/internal/server/services"

	gs "github.com/dmitrijs2005/communitykeeper/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	signer   *auth.Signer
	accounts *services.AccountService
	sweeper  *services.ExpirySweeper
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	signer := auth.NewSigner([]byte(c.SecretKey), c.AccessTokenValidityDuration)
	hasher := auth.NewHasher(c.BcryptCost)

	policy := services.Policy{
		GracePeriod:     c.GracePeriod,
		RefreshTokenTTL: c.RefreshTokenValidityDuration,
	}
	as := services.NewAccountService(db, rm, hasher, signer, policy, logger)

	var opts []services.SweeperOption
	images, err := objectstore.NewImageStore(ctx, c)
	if err != nil {
		logger.Warn(ctx, "profile image removal disabled", "error", err)
	} else {
		opts = append(opts, services.WithImageRemover(images))
	}
	sw := services.NewExpirySweeper(db, rm, c.GracePeriod, logger, opts...)

	return &App{config: c, logger: logger, db: db, signer: signer, accounts: as, sweeper: sw}, nil
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

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accounts, app.signer)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

// Run serves until a signal arrives or a component fails, then waits for
// the gRPC server and the sweeper to stop and closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx, app.config.SweepInterval, app.config.SweepOnStart)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

// Sweep runs a single purge pass and returns the number of accounts removed.
func (app *App) Sweep(ctx context.Context) (int, error) {
	defer app.db.Close()
	return app.sweeper.RunExpirySweep(ctx)
}
