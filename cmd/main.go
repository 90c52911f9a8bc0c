package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicecanvas/listening-room/config"
	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/ratelimit"
	"github.com/voicecanvas/listening-room/internal/registry"
	"github.com/voicecanvas/listening-room/internal/service"
	"github.com/voicecanvas/listening-room/internal/session"
	grpcx "github.com/voicecanvas/listening-room/internal/transport/grpc"
	httpx "github.com/voicecanvas/listening-room/internal/transport/http"
	"github.com/voicecanvas/listening-room/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("logging level: %v", err)
	}
	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     level,
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting listening-room",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- tracing: только id для корреляции логов, без экспортера ---
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	library, err := cfg.LibraryTracks()
	if err != nil {
		log.Fatalf("library: %v", err)
	}

	// --- rate limiter ---
	var limiter ratelimit.Limiter = ratelimit.Noop{}
	var rdb *redis.Client
	switch cfg.RateLimit.Backend {
	case config.RateLimitMemory:
		mem := ratelimit.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		go pruneLoop(ctx, mem, cfg.RateLimit.Window)
		limiter = mem
	case config.RateLimitRedis:
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.Redis.Addr,
			Password: cfg.RateLimit.Redis.Password,
			DB:       cfg.RateLimit.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// лимитер fail-open, сервис поднимаем всё равно
			slog.Warn("redis unavailable", "addr", cfg.RateLimit.Redis.Addr, "err", err)
		}
		cancel()
		limiter = ratelimit.NewRedis(rdb, cfg.RateLimit.KeyPrefix, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	// --- core ---
	reg := registry.New()
	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL, cfg.Session.ClockSkew)

	// --- WS Hub: он же получатель изменений комнат ---
	hub := ws.NewHub()

	// --- services ---
	svc, err := service.New(service.Config{
		MaxParticipants: cfg.Rooms.MaxParticipants,
		CodeLength:      cfg.Rooms.CodeLength,
		CodeAttempts:    cfg.Rooms.CodeAttempts,
		LockTimeout:     cfg.Rooms.LockTimeout,
		EmptyGrace:      cfg.Rooms.EmptyGrace,
		PresenceTimeout: cfg.Rooms.PresenceTimeout,
		SweepEvery:      cfg.Rooms.SweepEvery,
		HistorySize:     cfg.Rooms.HistorySize,
		ChatTail:        cfg.Rooms.ChatTail,
		MaxMessageLen:   cfg.Rooms.MaxMessageLen,
		Announce:        cfg.Rooms.AnnounceEnabled(),
		AutoAdvance:     cfg.Rooms.AutoAdvanceEnabled(),
		Library:         library,
	}, reg, sessions, hub)
	if err != nil {
		log.Fatalf("services: %v", err)
	}
	go svc.Members.Run(ctx)

	wsServer := ws.NewServer(hub, ws.Deps{
		Rooms:    svc.Rooms,
		Members:  svc.Members,
		Queue:    svc.Queue,
		Playback: svc.Playback,
		Chat:     svc.Chat,
		Sessions: sessions,
		Limiter:  limiter,
	})

	// --- HTTP ---
	router := httpx.NewRouter(httpx.Deps{
		Services:       svc,
		Sessions:       sessions,
		WS:             wsServer,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// --- gRPC ---
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerInterceptor(10*time.Second),
			grpcx.RateLimitInterceptor(limiter),
		),
		grpc.ChainStreamInterceptor(grpcx.StreamServerInterceptor()),
	)
	grpcx.Register(grpcServer, grpcx.NewServer(svc, sessions))

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- err
			return
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}
	stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// hijacked ws-соединения Shutdown не закрывает
	hub.CloseAll()
	_ = httpSrv.Shutdown(ctxShutdown)

	// ReadMessages-стримы живут до отключения клиента, поэтому GracefulStop с таймаутом
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctxShutdown.Done():
		grpcServer.Stop()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = tp.Shutdown(ctxShutdown)
	slog.Info("stopped")
}

func pruneLoop(ctx context.Context, m *ratelimit.Memory, every time.Duration) {
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Prune(); n > 0 {
				slog.Debug("rate limiter pruned", "keys", n)
			}
		}
	}
}
