package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/config"
	"github.com/Veraticus/the-budget-must-balance/internal/extraction"
	"github.com/Veraticus/the-budget-must-balance/internal/ledger"
	"github.com/Veraticus/the-budget-must-balance/internal/llm"
	"github.com/Veraticus/the-budget-must-balance/internal/service"
	"github.com/Veraticus/the-budget-must-balance/internal/storage"
)

// envKeyReplacer maps nested keys such as llm.openai_api_key onto
// BUDGET_LLM_OPENAI_API_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// app holds everything a command needs to touch the ledger.
type app struct {
	ledger    *ledger.Store
	snapshots service.SnapshotStore
	gateway   *llm.Gateway
	session   *extraction.Session
	logger    *slog.Logger
}

const closeTimeout = 10 * time.Second

// openLedger opens the configured snapshot store and loads the ledger from it.
func openLedger(ctx context.Context, logger *slog.Logger) (*ledger.Store, service.SnapshotStore, error) {
	cfg := config.StorageConfig()
	snapshots, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, common.NewUserError(fmt.Sprintf("Could not open the %s ledger at %s", cfg.Backend, cfg.Path), err)
	}

	store := ledger.New(snapshots, logger.With("component", "ledger"))
	if err := store.Load(ctx); err != nil {
		store.Close()
		_ = snapshots.Close()
		return nil, nil, common.NewUserError("Could not load the saved ledger", err)
	}

	logger.Debug("Ledger opened", "backend", cfg.Backend, "path", cfg.Path)
	return store, snapshots, nil
}

// newApp opens the ledger and wires the extraction pipeline around it.
// Missing API keys are not an error: extraction then runs on the offline
// heuristic alone.
func newApp(ctx context.Context) (*app, error) {
	logger := slog.Default()

	store, snapshots, err := openLedger(ctx, logger)
	if err != nil {
		return nil, err
	}

	completionCfg, transcriptionCfg := config.LLMConfigs()

	completer, err := llm.NewCompleter(completionCfg)
	if err != nil {
		logFallback(logger, "completion", completionCfg.Provider, err)
		completer = nil
	}
	transcriber, err := llm.NewTranscriber(transcriptionCfg)
	if err != nil {
		logFallback(logger, "transcription", transcriptionCfg.Provider, err)
		transcriber = nil
	}

	gateway := llm.NewGateway(transcriber, completer, completionCfg, logger.With("component", "llm"))
	pipeline := extraction.NewPipeline(gateway, gateway, store, logger.With("component", "extraction"))

	return &app{
		ledger:    store,
		snapshots: snapshots,
		gateway:   gateway,
		session:   extraction.NewSession(pipeline, logger.With("component", "session")),
		logger:    logger,
	}, nil
}

func logFallback(logger *slog.Logger, role, provider string, err error) {
	if errors.Is(err, common.ErrNoCredential) {
		logger.Info("No API key configured, using offline extraction", "role", role, "provider", provider)
		return
	}
	logger.Warn("LLM client unavailable, using offline extraction", "role", role, "provider", provider, "error", err)
}

// Close flushes pending ledger writes and releases the store and the
// remote clients. It still flushes when ctx is already canceled.
func (a *app) Close(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	if err := a.ledger.Flush(flushCtx); err != nil {
		common.LogError(a.logger, err, "Failed to flush ledger", nil)
	}
	a.ledger.Close()
	if err := a.snapshots.Close(); err != nil {
		common.LogError(a.logger, err, "Failed to close ledger storage", nil)
	}
	if a.gateway != nil {
		a.gateway.Close()
	}
}
