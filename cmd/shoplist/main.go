package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/shoplist/internal/backup"
	"github.com/dukerupert/shoplist/internal/config"
	"github.com/dukerupert/shoplist/internal/database"
	"github.com/dukerupert/shoplist/internal/draft"
	"github.com/dukerupert/shoplist/internal/logging"
	"github.com/dukerupert/shoplist/internal/middleware"
	"github.com/dukerupert/shoplist/internal/server"
	"github.com/dukerupert/shoplist/internal/shopping"
	"github.com/dukerupert/shoplist/internal/snapshot"
	ws "github.com/dukerupert/shoplist/internal/websocket"
)

const usage = `usage:
  shoplist [serve]       run the HTTP server
  shoplist hash-key KEY  print a bcrypt hash for SHOPLIST_API_KEY_HASH
  shoplist backup        upload an encrypted backup of SHOPLIST_DB_PATH now
  shoplist backups       list stored backups, oldest first
  shoplist restore KEY   replace SHOPLIST_DB_PATH with a stored backup`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve()
	case "hash-key":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		var hash string
		if hash, err = middleware.HashAPIKey(os.Args[2], 0); err == nil {
			fmt.Println(hash)
		}
	case "backup", "backups":
		err = withBackups(func(ctx context.Context, m *backup.Manager) error {
			if cmd == "backup" {
				key, err := m.RunNow(ctx)
				if err == nil {
					fmt.Println(key)
				}
				return err
			}
			keys, err := m.List(ctx)
			for _, k := range keys {
				fmt.Println(k)
			}
			return err
		})
	case "restore":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		err = restore(os.Args[2])
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		slog.Error("shoplist "+cmd+" failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat), nil
}

func withBackups(fn func(context.Context, *backup.Manager) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Backup.Enabled() {
		return backup.ErrDisabled
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, backup.NewManager(cfg.Backup, db, nil, logger.With("component", "backup")))
}

// restore runs without opening the database; the server must be stopped.
func restore(key string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Backup.Enabled() {
		return backup.ErrDisabled
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	m := backup.NewManager(cfg.Backup, nil, nil, logger.With("component", "backup"))
	return m.Restore(ctx, key, cfg.DBPath)
}

func serve() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []shopping.Option{
		shopping.WithIDPolicy(cfg.IDPolicy),
		shopping.WithLogger(logger.With("component", "store")),
	}

	// Defers run in reverse: the store stops first, then the snapshot writer
	// flushes, then backups stop, then the database closes.
	var (
		db     *sql.DB
		writer *snapshot.Writer
	)
	if cfg.Persistent() {
		db, err = database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		repo := snapshot.NewRepository(db)
		initial, err := repo.Load(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		schema, err := database.SchemaVersion(ctx, db)
		if err != nil {
			return err
		}
		logger.Info("snapshot loaded", "path", cfg.DBPath, "schema", schema, "lists", len(initial.Lists))
		opts = append(opts, shopping.WithInitialState(initial))

		writer = snapshot.NewWriter(repo, logger.With("component", "snapshot"))
	}

	store := shopping.New(opts...)
	drafts := draft.NewManager(cfg.DraftTTL)
	srv := server.New(store, drafts, cfg, logger)

	if db != nil && cfg.Backup.Enabled() {
		hub := srv.Hub()
		backups := backup.NewManager(cfg.Backup, db, func(s backup.Status) {
			hub.Broadcast(ws.NewMessage("backup", string(s.State), 0, map[string]any{
				"last_key": s.LastKey,
				"error":    s.Error,
			}))
		}, logger.With("component", "backup"))
		backups.Start(context.Background())
		defer backups.Stop()
	}
	if writer != nil {
		writer.Start(context.Background())
		defer writer.Stop()
		store.Subscribe(writer.Listener())
	}

	store.Start(context.Background())
	defer store.Stop()

	// Background cleanup of abandoned drafts and stale rate-limit windows
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := drafts.Cleanup(); n > 0 {
					logger.Info("expired drafts removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("shoplist starting", "addr", httpServer.Addr, "id_policy", cfg.IDPolicy.String(), "persistent", cfg.Persistent(), "backups", cfg.Backup.Enabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
