package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HoodChat/data/database"
	"HoodChat/global"
	"HoodChat/logger"
	"HoodChat/middleware"
	midsec "HoodChat/middleware/security"
	chatapi "HoodChat/module/chat"
	chatsvc "HoodChat/module/chat/service"
	"HoodChat/module/chat/store"
	"HoodChat/module/listing"
	"HoodChat/service/chat"
	"HoodChat/service/chat/handlers"
	"HoodChat/service/kafka"
	"HoodChat/service/mgo"
	"HoodChat/service/natsx"
	"HoodChat/service/notify"
	"HoodChat/service/storage"
	rds "HoodChat/service/storage/redis"
	"HoodChat/tools/errs"
	"HoodChat/tools/ids"
	"HoodChat/tools/safe"
	"HoodChat/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := global.Load()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)
	ids.SetNodeID(cfg.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg global.AppConfig) error {
	// 1) storage
	// mongo outlives ctx so in-flight requests finish during shutdown
	mctx, mcancel := context.WithCancel(context.Background())
	defer mcancel()
	mm := mgo.NewManager(cfg.Mongo())
	mm.StartAsync(mctx)
	readyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	db, err := mm.WaitReady(readyCtx)
	cancel()
	if err != nil {
		return err
	}
	repo := store.NewMongoRepo(db)
	listings := listing.NewMongoReader(db)
	if err := database.EnsureIndexes(ctx, repo, listings); err != nil {
		return err
	}

	verifier, err := security.NewVerifier(cfg.JWTOptions())
	if err != nil {
		return err
	}
	deps := chat.Deps{
		Verifier: verifier,
		Resolver: chatsvc.NewParticipantResolver(repo),
	}

	// 2) optional integrations
	if cfg.RedisEnabled() {
		rdb, err := rds.NewClient(ctx, cfg.Redis())
		if err != nil {
			return err
		}
		defer rdb.Close()
		presence := storage.NewRedisPresence(rdb, cfg.PresenceTTL)
		safe.SafeGo("presence-refresh", func() { presence.Run(ctx) })
		deps.Presence = presence
	}
	if cfg.NatsEnabled() {
		nm, err := natsx.NewNatsManager(cfg.Nats())
		if err != nil {
			return err
		}
		defer nm.Close()
		pub, err := notify.NewPublisher(nm)
		if err != nil {
			return err
		}
		deps.Sink = pub
	}
	var svcOpts []chatsvc.Option
	if cfg.KafkaEnabled() {
		ep, err := kafka.NewEventProducer(cfg.Kafka())
		if err != nil {
			return err
		}
		defer ep.Close()
		svcOpts = append(svcOpts, chatsvc.WithEvents(ep))
	}

	// 3) gateway and chat service
	opts := chat.DefaultOptions()
	opts.SendQueueSize = cfg.SendQueueSize
	opts.FanoutWorkers = cfg.FanoutWorkers
	opts.AllowedOrigins = []string{cfg.ClientURL}
	gw, err := chat.NewServer(deps, opts)
	if err != nil {
		return err
	}
	gw.Register(handlers.All()...)
	svc := chatsvc.New(repo, listings, gw.Delivery(), svcOpts...)

	// 4) HTTP + WebSocket
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	mw := middleware.NewManager()
	mw.Add(middleware.Recovery(), middleware.RequestLog(), middleware.CORS([]string{cfg.ClientURL}))
	r.Use(mw.Use())

	rt := middleware.NewRouter(r, midsec.Middleware(verifier, midsec.DefaultOptions()))
	chatapi.NewHandler(svc).Routes(rt)
	gw.Routes(r)
	r.GET("/up", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": gw.Registry().Online()})
	})
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	// 5) gRPC health
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return errs.WrapMsg(err, "grpc listen", "addr", cfg.GRPCAddr)
	}
	gs := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	failed := make(chan error, 2)
	safe.SafeGo("grpc", func() {
		logger.Info("[gRPC] listening", zap.String("addr", cfg.GRPCAddr))
		if err := gs.Serve(lis); err != nil {
			failed <- errs.WrapMsg(err, "grpc serve")
		}
	})
	safe.SafeGo("http", func() {
		logger.Info("[HTTP] listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- errs.WrapMsg(err, "http serve")
		}
	})

	select {
	case <-ctx.Done():
		err = nil
	case err = <-failed:
	}

	// 6) shutdown
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", zap.Error(serr))
	}
	gw.Close()
	gs.GracefulStop()
	return err
}
