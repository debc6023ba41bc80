package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jothamteshome/watch-together/internal/controller"
	connmemory "github.com/jothamteshome/watch-together/internal/repository/connection/inmemory"
	roommemory "github.com/jothamteshome/watch-together/internal/repository/room/inmemory"
	roomredis "github.com/jothamteshome/watch-together/internal/repository/room/redis"
	"github.com/jothamteshome/watch-together/internal/service/room"
	"github.com/jothamteshome/watch-together/pkg/ctxlogger"
	"github.com/jothamteshome/watch-together/pkg/redisclient"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	// safety net for rooms orphaned by a crash before eviction ran
	redisRoomTTL = 24 * 14 * time.Hour
)

type AppConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	LogLevel      string `json:"log_level"`
	EvictionGrace int    `json:"eviction_grace_seconds"`
	PlaylistLimit int    `json:"playlist_limit"`
	Store         string `json:"store"`
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.EvictionGrace < 1 {
		return fmt.Errorf("eviction grace must be greater than 0")
	}
	if cfg.PlaylistLimit < 1 {
		return fmt.Errorf("playlist limit must be greater than 0")
	}
	if cfg.Store != StoreMemory && cfg.Store != StoreRedis {
		return fmt.Errorf("unknown store %q", cfg.Store)
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	var roomRepo room.RoomRepo
	switch cfg.Store {
	case StoreRedis:
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		roomRepo = roomredis.NewRepo(rc, redisRoomTTL)
	default:
		roomRepo = roommemory.NewRepo()
	}

	connectionRepo := connmemory.NewRepo()
	roomService := room.NewService(roomRepo, connectionRepo, logger, &room.Config{
		EvictionGrace: time.Duration(cfg.EvictionGrace) * time.Second,
		PlaylistLimit: cfg.PlaylistLimit,
	})
	defer roomService.Close()

	controller := controller.NewController(roomService, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "store", cfg.Store)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
