package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"runtime/debug"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/tosho-dev/tosho-backend/internal/config"
	"github.com/tosho-dev/tosho-backend/internal/handler"
	"github.com/tosho-dev/tosho-backend/internal/repository"
	"github.com/tosho-dev/tosho-backend/internal/service"
	"github.com/tosho-dev/tosho-backend/internal/token"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v\nStack trace:\n%s", err, debug.Stack())
	}

	// X-Ray設定
	if cfg.EnableTracing {
		if err := xray.Configure(xray.Config{
			DaemonAddr:     "127.0.0.1:2000", // X-Rayデーモンのアドレス
			ServiceVersion: "1.0.0",
		}); err != nil {
			log.Printf("Failed to configure X-Ray: %v", err)
			if configErr := xray.Configure(xray.Config{}); configErr != nil {
				log.Fatalf("Failed to configure default X-Ray settings: %v", configErr)
			}
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	// データベース接続
	db, err := repository.NewDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v\nStack trace:\n%s", err, debug.Stack())
	}
	defer db.Close()

	// SCHEMA_PATHが設定されている場合はスキーマを適用する(開発環境用)
	if cfg.SchemaPath != "" {
		if err := applySchema(db, cfg.SchemaPath); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		log.Printf("Applied schema from %s", cfg.SchemaPath)
	}

	// リポジトリの初期化
	bookRepo := repository.NewBookRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	fineRepo := repository.NewFineRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	patronRepo := repository.NewPatronRepository(db)

	// サービスの初期化
	books := service.NewBookService(bookRepo)
	loans := service.NewLoanService(db, loanRepo, bookRepo, fineRepo, reservationRepo, notificationRepo)
	reservations := service.NewReservationService(db, reservationRepo, bookRepo, notificationRepo)
	fines := service.NewFineService(db, fineRepo, loanRepo)
	notifications := service.NewNotificationService(db, notificationRepo)
	patrons := service.NewPatronService(patronRepo)

	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)
	h := handler.New(books, loans, reservations, fines, notifications, patrons, tokens)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// シグナルハンドリングの設定
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting API server on %s", cfg.HTTPAddr)
		errChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
		}
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v\nStack trace:\n%s", err, debug.Stack())
		}
	}

	log.Println("Server stopped")
}

// applySchema はスキーマファイルを読み込んで実行します
func applySchema(db *repository.DB, path string) error {
	schema, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = db.Exec(string(schema))
	return err
}
