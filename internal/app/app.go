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

	"github.com/playbind/server/internal/binding"
	"github.com/playbind/server/internal/controller"
	"github.com/playbind/server/internal/host"
	"github.com/playbind/server/internal/player"
	"github.com/playbind/server/internal/player/mpv"
	positionInmemory "github.com/playbind/server/internal/repository/position/inmemory"
	positionRedis "github.com/playbind/server/internal/repository/position/redis"
	"github.com/playbind/server/pkg/ctxlogger"
	"github.com/playbind/server/pkg/redisclient"
)

type AppConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`

	SourceURL        string  `json:"source_url"`
	StartAtSeconds   float64 `json:"start_at_seconds"`
	PlayingInitially bool    `json:"playing_initially"`
	MutedInitially   bool    `json:"muted_initially"`
	Loop             bool    `json:"loop"`
	ResizeMode       string  `json:"resize_mode"`
	ShowControls     bool    `json:"show_controls"`
	PictureInPicture bool    `json:"picture_in_picture"`

	MPVPath      string `json:"mpv_path"`
	MPVSocketDir string `json:"mpv_socket_dir"`

	ResumeEnabled       bool   `json:"resume_enabled"`
	SaveIntervalSeconds int    `json:"save_interval_seconds"`
	RedisHost           string `json:"redis_host"`
	RedisPort           int    `json:"redis_port"`
	RedisPassword       string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.SourceURL == "" {
		return fmt.Errorf("source url is required")
	}
	if cfg.StartAtSeconds < 0 {
		return fmt.Errorf("start at seconds must not be negative")
	}
	if cfg.SaveIntervalSeconds < 1 {
		return fmt.Errorf("save interval must be greater than 0")
	}
	if _, err := player.ParseResizeMode(cfg.ResizeMode); err != nil {
		return err
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	resizeMode, err := player.ParseResizeMode(cfg.ResizeMode)
	if err != nil {
		return err
	}

	opts := binding.NewOptions(cfg.SourceURL).
		WithStartAt(cfg.StartAtSeconds).
		WithPlaying(cfg.PlayingInitially).
		WithMuted(cfg.MutedInitially).
		WithLoop(cfg.Loop).
		WithResizeMode(resizeMode).
		WithControls(cfg.ShowControls).
		WithPictureInPicture(cfg.PictureInPicture)

	newAdapter := func() (player.Adapter, error) {
		return mpv.New(mpv.Config{
			BinaryPath: cfg.MPVPath,
			SocketDir:  cfg.MPVSocketDir,
		}), nil
	}

	hostCfg := host.Config{
		SaveInterval: time.Duration(cfg.SaveIntervalSeconds) * time.Second,
		Resume:       cfg.ResumeEnabled,
	}

	var playerHost *host.Host
	if cfg.ResumeEnabled && cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		playerHost, err = host.New(opts, newAdapter, positionRedis.NewRepo(rc, 24*14*time.Hour), hostCfg, logger)
		if err != nil {
			return err
		}
	} else {
		playerHost, err = host.New(opts, newAdapter, positionInmemory.NewRepo(), hostCfg, logger)
		if err != nil {
			return err
		}
	}

	controller := controller.NewController(playerHost, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.Mux()}

	hostCtx, stopHost := context.WithCancel(ctx)
	defer stopHost()
	hostDone := make(chan struct{})
	go func() {
		defer close(hostDone)
		if err := playerHost.Run(hostCtx); err != nil {
			logger.ErrorContext(hostCtx, "player host stopped", "error", err)
		}
	}()

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

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		stopHost()
		<-hostDone
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
