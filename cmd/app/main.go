package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"monad-deathmatch-backend/docs"
	"monad-deathmatch-backend/internal/common/cache"
	"monad-deathmatch-backend/internal/common/config"
	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/common/middleware"
	arenaws "monad-deathmatch-backend/internal/features/arena/delivery/ws"
	arenaapi "monad-deathmatch-backend/internal/features/arena/delivery/http"
	"monad-deathmatch-backend/internal/features/arena/reconcile"
	arenaservice "monad-deathmatch-backend/internal/features/arena/service"
	betlabelRepo "monad-deathmatch-backend/internal/features/betlabel/repository/redis"
	poolChain "monad-deathmatch-backend/internal/features/pool/repository/chain"
	poolService "monad-deathmatch-backend/internal/features/pool/service"
	profileHTTP "monad-deathmatch-backend/internal/features/profile/delivery/http"
	profileRepo "monad-deathmatch-backend/internal/features/profile/repository/postgres"
	profileService "monad-deathmatch-backend/internal/features/profile/service"
	sessionHTTP "monad-deathmatch-backend/internal/features/session/delivery/http"
	sessionmw "monad-deathmatch-backend/internal/features/session/middleware"
	sessionRepo "monad-deathmatch-backend/internal/features/session/repository/redis"
	sessionService "monad-deathmatch-backend/internal/features/session/service"
	walletproofHTTP "monad-deathmatch-backend/internal/features/walletproof/delivery/http"
	walletproofRepo "monad-deathmatch-backend/internal/features/walletproof/repository/redis"
	walletproofService "monad-deathmatch-backend/internal/features/walletproof/service"
	"monad-deathmatch-backend/internal/platform/chain"
	"monad-deathmatch-backend/internal/platform/metrics"
	"monad-deathmatch-backend/internal/platform/postgres"
	"monad-deathmatch-backend/internal/platform/redis"
	"monad-deathmatch-backend/internal/workers"
)

// @title           Monad Deathmatch API
// @version         1.0
// @description     Session gate, arena reconciliation and join/bet coordination for the Monad Deathmatch pool.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey SocialSession
// @in header
// @name X-Social-Session
// @description Opaque social session token issued by /session/social (or the social_session cookie)

// @tag.name session
// @tag.description Page mounts, gate evaluation and social sessions

// @tag.name wallet-proof
// @tag.description EIP-191 proof of wallet ownership

// @tag.name arena
// @tag.description Reconciled arena view, join and bet actions

// @tag.name profiles
// @tag.description Wallet to social profile links and participant stats

const serviceName = "monad-deathmatch-backend"

func main() {
	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env file not found: %v\n", err)
	}

	cfg := config.Load()
	logger.Init(serviceName, cfg.Debug)

	logger.Info().
		Str("version", docs.SwaggerInfo.Version).
		Bool("debug", cfg.Debug).
		Int64("pool_id", cfg.Chain.PoolID).
		Msg("Starting Monad Deathmatch Backend")

	gameRules, err := cfg.GameRules()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid game rules")
	}
	rules := reconcile.Rules{
		EntryFee: gameRules.EntryFee,
		MinBet:   gameRules.MinBet,
		MaxBet:   gameRules.MaxBet,
		Symbol:   cfg.Chain.NativeSymbol,
	}

	// Инициализируем базу данных
	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgresClient.Close()

	// Инициализируем Redis
	redisClient, err := redis.OpenFromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	chainClient, err := chain.Dial(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to chain RPC")
	}
	defer chainClient.Close()

	m := metrics.New()
	cacheService := cache.NewCacheService(redisClient)

	// Пул: чтение, опрос, запись
	contractAddr := common.HexToAddress(cfg.Chain.PoolContract)
	reader := poolChain.NewReader(chainClient, contractAddr, cfg.Chain.PoolID,
		poolChain.WithObservationWindow(cfg.Chain.ObservationWindow),
		poolChain.WithTimeout(cfg.Chain.ReadTimeout),
		poolChain.WithMetrics(m),
	)
	poller := poolService.NewPoller(reader, cfg.Chain.PollInterval, cfg.Chain.PollMaxBackoff, m)

	writer, err := poolService.NewWriter(chainClient, contractAddr, cfg.Chain.PoolID,
		chainClient.ConfiguredChainID(), cfg.Chain.SignerKeys, cfg.Chain.ReceiptPoll)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load signer keys")
	}

	// Профили
	profileSvc := profileService.NewService(
		profileRepo.NewPostgresRepository(postgresClient.GetDB()),
		cacheService, cfg.Profile.CacheTTL, cfg.Chain.PoolID,
	)

	// Сессии
	proofSvc := walletproofService.NewService(
		walletproofRepo.NewRepository(redisClient),
		cfg.Session.WalletProofDomain, cfg.Chain.ChainID,
		cfg.Session.WalletProofTTL, cfg.Session.IdentityTTL,
	)
	var verifier sessionService.WalletVerifier
	if cfg.Session.RequireWalletProof {
		verifier = proofSvc
	}

	mounts := sessionService.NewMountRegistry(cfg.Session.ProtectedRoute, cfg.Session.PublicRoute, cfg.Session.MountIdleTimeout, m)
	sessionSvc := sessionService.NewService(
		mounts,
		sessionRepo.NewIdentityCache(redisClient, cfg.Session.IdentityTTL),
		sessionRepo.NewSocialSessionStore(redisClient),
		profileSvc,
		verifier,
		sessionService.Options{
			BotToken:         cfg.Telegram.BotToken,
			InitDataTTL:      cfg.Telegram.InitDataTTL,
			SocialSessionTTL: cfg.Session.SocialSessionTTL,
		},
		m,
	)

	// Арена
	labels := betlabelRepo.NewRepository(redisClient, cfg.BetLabel.TTL)
	coordinator := arenaservice.NewCoordinator(
		arenaservice.SessionMounts{Registry: mounts},
		reader, writer, labels, poller, rules, cfg.Chain.ConfirmTimeout, m,
	)
	viewer := arenaservice.NewViewer(poller, reader, labels, profileSvc, rules)
	hub := arenaws.NewHub(cfg.Server.Origin, m)

	stream := workers.NewParticipantStream(redisClient, profileSvc, cfg.Chain.PoolID, fmt.Sprintf("%s_%d", serviceName, os.Getpid()))

	poller.Subscribe(func(ctx context.Context, _ poolService.Snapshot, joined []string) {
		if len(joined) > 0 {
			if err := stream.Publish(ctx, joined); err != nil {
				logger.Warn().Err(err).Int("count", len(joined)).Msg("Failed to publish participant joins")
			}
			hub.Broadcast(arenaws.Event{Type: arenaws.EventJoined, Timestamp: time.Now().UTC(), Data: joined})
		}
		view, err := viewer.Build(ctx, "")
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to build public arena view")
			return
		}
		hub.Broadcast(arenaws.Event{Type: arenaws.EventView, Timestamp: time.Now().UTC(), Data: view})
	})

	logger.Info().Msg("Services initialized")

	// Фоновые задачи
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var bg sync.WaitGroup
	for _, run := range []func(context.Context){poller.Run, mounts.Run, hub.Run, stream.Start} {
		bg.Add(1)
		go func(run func(context.Context)) {
			defer bg.Done()
			run(bgCtx)
		}(run)
	}

	// Настраиваем Gin
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data", "X-Social-Session", "X-Bridge-Secret"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.Use(middleware.DeviceID(cfg.Server.SecureCookies))

	setupRoutes(router, cfg, routeDeps{
		session:     sessionHTTP.NewHandler(sessionSvc, sessionHTTP.CookieOptions{WalletMaxAge: cfg.Session.WalletCookieMaxAge, SocialMaxAge: int(cfg.Session.SocialSessionTTL / time.Second), Secure: cfg.Server.SecureCookies}, cfg.Session.SocialBridgeSecret),
		walletProof: walletproofHTTP.NewHandler(proofSvc),
		profile:     profileHTTP.NewHandler(profileSvc),
		arena:       arenaapi.NewHandler(coordinator, viewer, hub),
		sessionSvc:  sessionSvc,
		metrics:     m,
		postgres:    postgresClient,
		redis:       redisClient,
		chain:       chainClient,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Ждем сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// отмена контекста освобождает все маунты, ожидания подтверждений завершаются
	stopBackground()
	bg.Wait()
	coordinator.Wait()

	logger.Info().Msg("Server exited")
}

type routeDeps struct {
	session     *sessionHTTP.Handler
	walletProof *walletproofHTTP.Handler
	profile     *profileHTTP.Handler
	arena       *arenaapi.Handler
	sessionSvc  *sessionService.Service
	metrics     *metrics.Metrics
	postgres    *postgres.Client
	redis       *redis.Client
	chain       *chain.Client
}

func setupRoutes(router *gin.Engine, cfg *config.Config, d routeDeps) {
	apiGuard := sessionmw.RequireDualIdentity(d.sessionSvc, cfg.Session.PublicRoute, true)
	pageGuard := sessionmw.RequireDualIdentity(d.sessionSvc, cfg.Session.PublicRoute, false)

	// Профили: пути совместимы с фронтендом
	d.profile.RegisterRoutes(router.Group("/api"), apiGuard)

	v1 := router.Group("/api/v1")
	{
		d.session.RegisterRoutes(v1)
		d.walletProof.RegisterRoutes(v1)
		d.arena.RegisterRoutes(v1, apiGuard)
	}

	// Защищенная страница
	router.GET(cfg.Session.ProtectedRoute, pageGuard, middleware.HandleErrorWrapper()(func(c *gin.Context) {
		social, _ := sessionmw.Social(c)
		c.JSON(http.StatusOK, gin.H{
			"wallet": sessionmw.Wallet(c),
			"social": social.Key(),
		})
	}))

	router.GET("/metrics", gin.WrapH(d.metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := []struct {
			name  string
			check func(context.Context) error
		}{
			{"postgres", d.postgres.HealthCheck},
			{"redis", d.redis.HealthCheck},
			{"chain rpc", d.chain.HealthCheck},
		}
		for _, ch := range checks {
			if err := ch.check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   ch.name + " unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})
}
