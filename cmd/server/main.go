package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"emotion-detector/internal/config"
	"emotion-detector/internal/database"
	"emotion-detector/internal/emotion"
	"emotion-detector/internal/handlers"
	"emotion-detector/internal/logger"
	"emotion-detector/internal/sentiment"
	"emotion-detector/internal/services"
)

var build = "develop"

func main() {
	cfg, help, err := config.Load(build)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return
		}
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.Log.Environment,
		LogLevel:    cfg.Log.Level,
		ServiceName: "emotion-detector",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("startup failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting", zap.String("version", build))
	log.Info("config\n" + cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, database.Options{
		Driver:         cfg.DB.Driver,
		DSN:            cfg.DSN(),
		MaxOpenConns:   cfg.DB.MaxOpenConns,
		MaxIdleConns:   cfg.DB.MaxIdleConns,
		ConnectRetries: 5,
	}, log)
	if err != nil {
		return fmt.Errorf("database %s: %w", cfg.DSNForLog(), err)
	}
	defer store.Close()

	lexicon, err := emotion.LoadLexicon(cfg.Detection.LexiconPath)
	if err != nil {
		return err
	}

	estimator, err := newEstimator(cfg)
	if err != nil {
		return err
	}
	log.Info("sentiment estimator ready", zap.String("mode", cfg.Sentiment.Mode))

	face, closeFace, err := newFaceClassifier(cfg, log)
	if err != nil {
		log.Warn("face classifier unavailable, continuing without it", zap.Error(err))
	}
	defer closeFace()

	publisher := services.Publisher(services.NopPublisher{})
	if cfg.Redis.Addr != "" {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rp, err := services.NewRedisPublisher(pctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Channel, log)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, detections will not be published", zap.Error(err))
		} else {
			publisher = rp
			log.Info("publishing detections", zap.String("channel", cfg.Redis.Channel))
		}
	}
	defer publisher.Close()

	metrics := services.NewMetrics()
	detector := services.NewDetector(emotion.NewTextScorer(lexicon, estimator), store, services.DetectorOptions{
		MaxTextLength: cfg.Detection.MaxTextLength,
		Face:          face,
		Publisher:     publisher,
		Metrics:       metrics,
	}, log)

	if cfg.Retention.Days > 0 {
		retention, err := services.NewRetention(store, cfg.Retention.Days, cfg.Retention.Schedule, log)
		if err != nil {
			return err
		}
		retention.Start()
		defer retention.Stop()
		log.Info("retention scheduled",
			zap.Int("days", cfg.Retention.Days),
			zap.Time("next_run", retention.Next()))
	}

	maxMsg := cfg.Web.MaxMessageSizeMB * 1024 * 1024

	// gRPC
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsg),
		grpc.MaxSendMsgSize(maxMsg),
		grpc.UnaryInterceptor(handlers.UnaryLogger(log)),
	)
	handlers.RegisterEmotionDetectionServer(grpcServer, handlers.NewGRPCHandler(detector, log))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(handlers.EmotionDetectionService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.Web.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.Web.GRPCAddr, err)
	}

	// HTTP
	hub := handlers.NewHub(detector, int64(maxMsg), log)
	api := handlers.NewAPI(detector, store, hub, handlers.Options{
		Version:         build,
		CORSOrigin:      cfg.Web.CORSOrigin,
		AdminKeyHash:    cfg.Admin.KeyHash,
		HistoryLimit:    cfg.Detection.HistoryLimit,
		MaxBodyBytes:    int64(maxMsg),
		SentimentSource: cfg.Sentiment.Mode,
	}, log)
	httpServer := &http.Server{
		Addr:         cfg.Web.HTTPAddr,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log),
	}

	serverErrors := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		serverErrors <- grpcServer.Serve(lis)
	}()
	go func() {
		log.Info("HTTP server listening",
			zap.String("addr", cfg.Web.HTTPAddr),
			zap.String("websocket", "/ws"),
			zap.String("rest", "/api/*"))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer cancel()

	healthServer.Shutdown()
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		log.Info("gRPC server stopped")
	case <-shutdownCtx.Done():
		log.Warn("forcing gRPC shutdown")
		grpcServer.Stop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
		httpServer.Close()
	} else {
		log.Info("HTTP server stopped")
	}

	hub.CloseAll(shutdownCtx)
	log.Info("websocket connections closed")

	log.Info("goodbye")
	return nil
}

func newEstimator(cfg *config.Config) (emotion.SentimentEstimator, error) {
	if cfg.Sentiment.Mode == "remote" {
		return sentiment.NewRemoteEstimator(cfg.Sentiment.URL, cfg.Sentiment.Timeout), nil
	}
	return sentiment.NewLexiconEstimator()
}

// newFaceClassifier returns a nil classifier in "none" mode. The returned
// close func is always safe to call.
func newFaceClassifier(cfg *config.Config, log *zap.Logger) (services.FaceClassifier, func(), error) {
	breaker := services.BreakerSettings{
		Failures: cfg.Face.BreakerFailures,
		Timeout:  cfg.Face.BreakerTimeout,
	}
	switch cfg.Face.Mode {
	case "grpc":
		breaker.Name = "face-grpc"
		gc, err := services.NewGRPCFaceClassifier(cfg.Face.Addr, cfg.Face.Timeout, breaker, log)
		if err != nil {
			return nil, func() {}, err
		}
		return gc, func() { gc.Close() }, nil
	case "http":
		breaker.Name = "face-http"
		return services.NewHTTPFaceClassifier(cfg.Face.Addr, cfg.Face.Timeout, breaker, log), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
