package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/willemschots/accounts/assets"
	"github.com/willemschots/accounts/internal"
	"github.com/willemschots/accounts/internal/account"
	accountdb "github.com/willemschots/accounts/internal/account/db"
	"github.com/willemschots/accounts/internal/db"
	"github.com/willemschots/accounts/internal/db/migrate"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/email/mailgun"
	"github.com/willemschots/accounts/internal/email/postmark"
	"github.com/willemschots/accounts/internal/email/view"
	"github.com/willemschots/accounts/internal/krypto"
	"github.com/willemschots/accounts/internal/web"
	"github.com/willemschots/accounts/migrations"
	"golang.org/x/sync/errgroup"
)

const (
	dotEnvFile = ".env"

	// emailClientTimeout is the timeout for requests to email APIs.
	emailClientTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	level := &slog.LevelVar{}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))

	err := loadDotEnv(dotEnvFile)
	if err != nil {
		logger.Error("failed to load env file", "file", dotEnvFile, "error", err)
		return 1
	}

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	level.Set(cfg.logLevel)

	writeDB, readDB, err := openDB(cfg.db)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.db.dialect, "error", err)
		return 1
	}
	defer func() {
		closeErr := errors.Join(writeDB.Close(), readDB.Close())
		if closeErr != nil {
			logger.Error("failed to close database", "error", closeErr)
		}
	}()

	if cfg.db.migrate {
		err = migrateDB(ctx, logger, writeDB, cfg.db.dialect)
		if err != nil {
			logger.Error("failed to migrate database", "error", err)
			return 1
		}
	}

	encryptor, err := krypto.NewEncryptor(cfg.db.encryptionKeys)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		return 1
	}

	sender, err := emailSender(logger, cfg.email)
	if err != nil {
		logger.Error("failed to create email sender", "error", err)
		return 1
	}

	renderer := view.NewFSRenderer(assets.EmailFS)
	err = renderer.Preload(account.TemplateConfirmEmail, account.TemplateResetPassword)
	if err != nil {
		logger.Error("failed to load email templates", "error", err)
		return 1
	}

	emailSvc := email.NewService(renderer, sender, cfg.email.service)

	accountStore := accountdb.New(writeDB, readDB, cfg.db.dialect, encryptor, cfg.db.blindIndexSalt)

	accountSvc, err := account.NewService(accountStore, emailSvc, func(err error) {
		logger.Warn("account workflow error", "error", err)
	}, cfg.account)
	if err != nil {
		logger.Error("failed to create account service", "error", err)
		return 1
	}

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler: web.NewServer(&web.ServerDeps{
			Logger:         logger,
			AccountService: accountSvc,
		}),
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"build", internal.Build,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}

// openDB opens the database pools used for writing and reading. For SQLite
// these are different pools, PostgreSQL uses the same pool for both.
func openDB(cfg dbConfig) (*sql.DB, *sql.DB, error) {
	switch cfg.dialect {
	case db.SQLite:
		writeDB, err := db.OpenSQLite(cfg.file, true)
		if err != nil {
			return nil, nil, err
		}

		readDB, err := db.OpenSQLite(cfg.file, false)
		if err != nil {
			return nil, nil, errors.Join(err, writeDB.Close())
		}

		return writeDB, readDB, nil
	case db.Postgres:
		pgDB, err := db.OpenPostgres(string(cfg.dsn.SecretValue()))
		if err != nil {
			return nil, nil, err
		}

		return pgDB, pgDB, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dialect %v", cfg.dialect)
	}
}

func migrateDB(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB, dialect db.Dialect) error {
	logger.Info("attempting to migrate database", "driver", dialect)

	fileSys, err := migrations.ForDialect(dialect)
	if err != nil {
		return err
	}

	ran, err := migrate.RunFS(ctx, sqlDB, dialect, fileSys, migrate.Metadata{
		AppVersion: internal.Build.Revision,
		Timestamp:  internal.Build.Time,
	})
	if err != nil {
		return err
	}

	for _, m := range ran {
		logger.Info("migration ran", "sequence", m.Sequence, "filename", m.Filename)
	}

	logger.Info("database migrated", "migrations", len(ran))

	return nil
}

func emailSender(logger *slog.Logger, cfg emailConfig) (email.Sender, error) {
	client := &http.Client{
		Timeout: emailClientTimeout,
	}

	switch cfg.driver {
	case "log":
		return email.NewLogSender(logger), nil
	case "postmark":
		return postmark.NewSender(client, cfg.postmark), nil
	case "mailgun":
		return mailgun.NewSender(client, cfg.mailgun), nil
	default:
		return nil, fmt.Errorf("unknown email driver %q", cfg.driver)
	}
}
