package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/params"
	"github.com/uhyunpark/bondmm/pkg/api"
	"github.com/uhyunpark/bondmm/pkg/desk"
	"github.com/uhyunpark/bondmm/pkg/history"
	"github.com/uhyunpark/bondmm/pkg/sim"
	"github.com/uhyunpark/bondmm/pkg/storage"
	"github.com/uhyunpark/bondmm/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logFile := cfg.Server.LogFile
	if logFile == "" {
		logFile = filepath.Join(cfg.Storage.DataDir, "desk.log")
	}

	logger, err := util.NewLoggerWithFile(logFile, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile, "level", cfg.Server.LogLevel)

	// ---- Reference data ----
	ref, err := params.LoadReference(cfg.Storage.ProductsFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		sugar.Warnw("products_file_missing", "path", cfg.Storage.ProductsFile, "fallback", "embedded")
		ref = params.DefaultReference()
	case err != nil:
		sugar.Fatalw("products_load_failed", "path", cfg.Storage.ProductsFile, "err", err)
	}

	// ---- History ----
	store, err := openStore(cfg.Storage.StorePath, sugar)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Storage.StorePath, "err", err)
	}
	files, err := storage.NewFileLog(cfg.Storage.OutputDir, history.FileNames)
	if err != nil {
		sugar.Fatalw("output_dir_failed", "dir", cfg.Storage.OutputDir, "err", err)
	}
	defer files.Close()

	// ---- Desk ----
	d, err := desk.New(desk.Options{
		Config:    cfg.Desk,
		Reference: ref,
		Store:     store,
		Appenders: []storage.Appender{files},
		Clock:     util.RealClock{},
		Logger:    sugar,
	})
	if err != nil {
		sugar.Fatalw("desk_init_failed", "err", err)
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(d, sugar)
	go func() {
		if err := apiServer.Start(ctx, cfg.Server.APIAddr); err != nil {
			sugar.Errorw("api_server_failed", "err", err)
			stop()
		}
	}()

	// ---- Simulated feed (optional) ----
	// Enable with: SIM_ENABLED=true SIM_INTERVAL_MS=250
	stopFeeder := func() {}
	if cfg.Sim.Enabled {
		feedCfg := sim.DefaultFeederConfig()
		feedCfg.Interval = cfg.Sim.Interval
		feedCfg.Seed = cfg.Sim.Seed
		feedCfg.Books = cfg.Desk.TradeBooks
		feedCfg.Logger = sugar.Named("sim")

		stopFeeder = sim.StartFeeder(ctx, d, feedCfg)
	} else {
		sugar.Info("sim_disabled - waiting for API input only")
	}

	sugar.Infow("desk_starting",
		"products", d.Products.Len(),
		"api_addr", cfg.Server.APIAddr,
		"store", cfg.Storage.StorePath,
		"output_dir", cfg.Storage.OutputDir,
	)

	<-ctx.Done()

	// Nothing may write to the desk once the deferred closes run.
	stopFeeder()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_shutdown_failed", "err", err)
	}
	sugar.Infow("desk_stopped",
		"executions", d.AlgoExecution.Executions(),
		"gui_updates", d.GUI.Sent(),
	)
}

// openStore opens the pebble history at path, or an in-memory store when
// path is empty.
func openStore(path string, logger *zap.SugaredLogger) (storage.RecordStore, error) {
	if path == "" {
		logger.Info("history_in_memory")
		return storage.NewMemoryStore(), nil
	}
	s, err := storage.NewPebbleStore(path)
	if err != nil {
		return nil, err
	}
	logger.Infow("history_opened", "path", path, "last_seq", s.LastSeq())
	return s, nil
}
