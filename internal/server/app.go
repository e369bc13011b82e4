// Package server wires the identity components together: it selects and
// initializes a table backend, composes the store adapter, repository,
// service, and HTTP handler, and runs the HTTP server with graceful
// shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"authkeeper/internal/logging"
	"authkeeper/internal/server/config"
	"authkeeper/internal/server/httpapi"
	"authkeeper/internal/server/table"
	"authkeeper/internal/server/users"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler *httpapi.Handler
	db      *sql.DB
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSON()

	app := &App{config: cfg, logger: logger}

	tbl, err := app.newTable(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("table init error: %w", err)
	}

	store := users.NewStore(tbl, logger)
	repo := users.NewRepository(store, cfg, logger)
	service := users.NewService(repo, logger)
	app.handler = httpapi.NewHandler(service, logger)

	return app, nil
}

func (app *App) newTable(ctx context.Context, cfg *config.Config, logger logging.Logger) (table.Table, error) {
	settings := table.Settings{
		Name:          cfg.TableName,
		IDFields:      cfg.TableIDFields,
		AddTimestamps: cfg.TableAddTimestamps,
	}

	switch cfg.Backend {
	case config.BackendMemory:
		return table.NewMemoryTable(settings), nil

	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := table.RunMigrations(ctx, db); err != nil {
			return nil, err
		}
		app.db = db
		return table.NewPostgresTable(db, settings, logger), nil

	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKeyID,
				cfg.AWSSecretAccessKey,
				"",
			)))
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.AWSEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
			}
		})
		return table.NewDynamoTable(client, settings, logger), nil
	}

	return nil, fmt.Errorf("unknown table backend %q", cfg.Backend)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"addr", app.config.EndpointAddr, "backend", app.config.Backend)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "shutdown error", "error", err)
		}
		if app.db != nil {
			if err := app.db.Close(); err != nil {
				app.logger.Error(shutdownCtx, "db close error", "error", err)
			}
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
