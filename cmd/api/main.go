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

	"github.com/joho/godotenv"

	"github.com/zhaojunwei/campus-companion/backend/internal/auth"
	"github.com/zhaojunwei/campus-companion/backend/internal/config"
	"github.com/zhaojunwei/campus-companion/backend/internal/handler"
	"github.com/zhaojunwei/campus-companion/backend/internal/service/agent"
	chatservice "github.com/zhaojunwei/campus-companion/backend/internal/service/chat"
	emotionservice "github.com/zhaojunwei/campus-companion/backend/internal/service/emotion"
	"github.com/zhaojunwei/campus-companion/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}

	userStore := storage.NewUserStore(db)
	historyStore := storage.NewHistoryStore(db)
	emotionStore := storage.NewEmotionStore(db)

	sessions := auth.NewManager()

	// Initialize the counselor agent
	var agentSvc *agent.Service
	if cfg.AI.Enabled() {
		agentSvc, err = agent.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize agent service: %v", err)
			log.Println("continuing with apology replies only - 请检查 Ark 模型相关环境变量")
		} else {
			log.Println("agent service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，聊天将返回固定的道歉回复")
	}

	emotionSvc := emotionservice.NewService(emotionStore)
	chatSvc := chatservice.NewService(historyStore, emotionSvc, agentSvc)

	router := handler.NewRouter(userStore, sessions, chatSvc, emotionSvc, agentSvc, cfg.Server.AllowOrigin)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Campus Companion backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
