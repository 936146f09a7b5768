package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	attachmentStore "github.com/MrJamesThe3rd/lexledger/internal/attachment/store"
	"github.com/MrJamesThe3rd/lexledger/internal/config"
	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	expenseStore "github.com/MrJamesThe3rd/lexledger/internal/expense/store"
	lexHttp "github.com/MrJamesThe3rd/lexledger/internal/http"
	attachmentHandler "github.com/MrJamesThe3rd/lexledger/internal/http/attachment"
	expenseHandler "github.com/MrJamesThe3rd/lexledger/internal/http/expense"
	importHandler "github.com/MrJamesThe3rd/lexledger/internal/http/importcsv"
	tagHandler "github.com/MrJamesThe3rd/lexledger/internal/http/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/importer"
	"github.com/MrJamesThe3rd/lexledger/internal/linking"
	linkingStore "github.com/MrJamesThe3rd/lexledger/internal/linking/store"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	tagStore "github.com/MrJamesThe3rd/lexledger/internal/tag/store"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), cfg.DB.MaxOpenConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	importService, err := importer.NewService(cfg.Import.ProfilesFile)
	if err != nil {
		slog.Error("failed to load import profiles", "error", err)
		os.Exit(1)
	}

	var (
		expenseService = expense.NewService(expenseStore.New(db),
			expense.WithPageLimits(cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit))
		tagService        = tag.NewService(tagStore.New(db))
		linkManager       = linking.NewManager(linkingStore.New(db))
		attachmentService = attachment.NewService(attachmentStore.New(db), attachment.Config{
			TempTTL:         cfg.Attachments.TempTTL,
			OrphanGrace:     cfg.Attachments.OrphanGrace,
			ClaimStaleAfter: cfg.Attachments.ClaimStaleAfter,
			ClaimBatch:      cfg.Attachments.ClaimBatch,
		})
	)

	var (
		expenseH    = expenseHandler.NewHandler(expenseService, linkManager, attachmentService)
		tagH        = tagHandler.NewHandler(tagService)
		attachmentH = attachmentHandler.NewHandler(attachmentService)
		importH     = importHandler.NewHandler(importService, expenseService)
	)

	router := lexHttp.New(
		tenant.NewResolver(cfg.Auth.JWTSecret),
		lexHttp.Options{AllowedOrigins: cfg.Server.AllowedOrigins},
		expenseH, tagH, attachmentH, importH,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           http.TimeoutHandler(router, cfg.Server.Timeout, "request timed out"),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "addr", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
