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

	"github.com/cwrk-planet/live-room-service/config"
	"github.com/cwrk-planet/live-room-service/internal/events"
	"github.com/cwrk-planet/live-room-service/internal/live"
	"github.com/cwrk-planet/live-room-service/internal/service"
	grpcx "github.com/cwrk-planet/live-room-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/live-room-service/internal/transport/http"
	httpmw "github.com/cwrk-planet/live-room-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/live-room-service/internal/transport/ws"
	"github.com/cwrk-planet/live-room-service/pkg/logger"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	logger.Init(logger.Config{
		Level:     level,
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting live-room-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// trace_id/span_id в логах; экспортёр не подключён
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	ctx := context.Background()

	// --- storage ---
	st, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer st.Close()

	// --- events ---
	hub := ws.NewHub()
	sinks := []events.Sink{hub}
	rdb := openRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		sinks = append(sinks, events.NewRedisSink(rdb, cfg.Redis.Stream, cfg.Redis.MaxLen))
	}
	if st.archive != nil {
		sinks = append(sinks, st.archive)
	}
	bus := events.NewBus(cfg.Live.EventBuffer, sinks...)
	go bus.Run(ctx)

	// --- downstream adapters ---
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		log.Fatalf("adapters: %v", err)
	}
	deps.Publisher = bus

	// --- orchestrator ---
	reg := live.NewRegistry(st.rooms, live.Options{
		ProductDuration:    cfg.Live.ProductDuration,
		ReplyTimeout:       cfg.Live.ReplyTimeout,
		TranscribeTimeout:  cfg.Live.TranscribeTimeout,
		NarrateTimeout:     cfg.Live.NarrateTimeout,
		RenderTimeout:      cfg.Live.RenderTimeout,
		ConversationCap:    cfg.Live.ConversationCap,
		HistoryWindow:      cfg.Live.HistoryWindow,
		MaxMessageLen:      cfg.Live.MaxMessageLen,
		FallbackReply:      cfg.Live.FallbackReply,
		AudioFallbackReply: cfg.Live.AudioFallbackReply,
	}, deps)
	var archive service.Archive
	if st.archive != nil {
		archive = st.archive
	}
	liveSvc := service.NewLiveService(reg, archive)

	// --- auth ---
	var verifier *httpmw.Verifier
	if cfg.Auth.Enabled && cfg.Auth.PublicKeyPath != "" {
		pub, err := httpmw.LoadRSAPublicKeyFromPEM(cfg.Auth.PublicKeyPath)
		if err != nil {
			log.Fatalf("auth public key: %v", err)
		}
		verifier = httpmw.NewVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.ClockSkew)
	}

	// --- HTTP ---
	handler := httpx.NewHandler(liveSvc, cfg.HTTP.MaxUploadBytes)
	router := httpx.NewRouter(handler, ws.NewServer(hub, liveSvc), httpx.RouterConfig{
		AuthEnabled:    cfg.Auth.Enabled,
		Verifier:       verifier,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
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
		grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor(cfg.HTTP.RequestTimeout)),
		grpc.ChainStreamInterceptor(grpcx.StreamServerInterceptor()),
	)
	grpcx.Register(grpcServer, grpcx.NewServer(liveSvc, cfg.Auth.Enabled, verifier))
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(grpcx.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

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

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	healthSrv.Shutdown()
	grpcServer.GracefulStop()
	_ = httpSrv.Shutdown(ctxShutdown)

	// сессии останавливаются до закрытия шины, чтобы room.offline дошёл до sink-ов
	if err := liveSvc.Shutdown(ctxShutdown); err != nil {
		slog.Warn("live sessions shutdown", slog.Any("err", err))
	}
	if err := bus.Close(ctxShutdown); err != nil {
		slog.Warn("event bus drain", slog.Any("err", err), "dropped", bus.Dropped())
	}
	_ = tp.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
