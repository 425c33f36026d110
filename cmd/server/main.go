// cmd/server/main.go

// aceitubank 服務進入點：載入設定、開啟資料庫、組裝 bank 與 HTTP 層並啟動伺服器。
// 收到 SIGINT/SIGTERM 時優雅關閉，並在結束前寫入一份帳本快照。

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"aceitubank/internal/auth"
	"aceitubank/internal/bank"
	"aceitubank/internal/config"
	"aceitubank/internal/logging"
	"aceitubank/internal/metrics/prometheus"
	"aceitubank/internal/server"
	"aceitubank/internal/storage"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")
	makeStaff := flag.String("make-staff", "", "grant staff rights to the given username and exit")
	flag.Parse()

	if err := run(*configPath, *makeStaff); err != nil {
		fmt.Fprintln(os.Stderr, "aceitubank:", err)
		os.Exit(1)
	}
}

func run(configPath, makeStaff string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Development = cfg.Log.Development
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer storage.Close(db)
	if err := bank.Migrate(db); err != nil {
		return err
	}

	registry := prom.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := prometheus.NewPrometheusCollector("aceitubank")
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	b := bank.NewBank(db,
		bank.WithLogger(logger),
		bank.WithMetrics(collector),
		bank.WithPageSize(cfg.App.PageSize),
		bank.WithBcryptCost(cfg.Security.BcryptCost),
	)

	ctx := context.Background()
	if makeStaff != "" {
		u, err := b.SetStaff(ctx, makeStaff, true)
		if err != nil {
			return err
		}
		logger.Info("staff granted", zap.String("username", u.Username))
		return nil
	}

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	s := server.NewServer(b, tokens,
		server.WithLogger(logger),
		server.WithMetrics(collector, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})),
		server.WithBackupDir(cfg.Backup.Dir),
		server.WithSecureCookie(cfg.Security.SecureCookie),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("database", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	// 結束前保存快照
	snap, err := b.Snapshot(shutdownCtx)
	if err != nil {
		logger.Error("snapshot on shutdown", zap.Error(err))
		return nil
	}
	snap.Meta.Note = "shutdown"
	path := filepath.Join(cfg.Backup.Dir, storage.SnapshotFileName(snap.Meta.Timestamp))
	if err := storage.SaveSnapshot(path, snap); err != nil {
		logger.Error("snapshot on shutdown", zap.Error(err))
		return nil
	}
	logger.Info("server stopped", zap.String("snapshot", path))
	return nil
}
