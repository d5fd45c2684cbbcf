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

	firebase "firebase.google.com/go/v4"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"societyAdminAPI/handlers"
	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/config"
	"societyAdminAPI/internal/gateway"
	"societyAdminAPI/internal/lock"
	"societyAdminAPI/internal/logger"
	"societyAdminAPI/internal/metrics"
	"societyAdminAPI/internal/notification"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/operator"
	"societyAdminAPI/internal/workers"
	"societyAdminAPI/middleware"
	"societyAdminAPI/services"
)

var (
	cfg         config.Config
	appLogger   *zap.Logger
	appStore    store.Store
	redisClient *redis.Client
	auditSink   *audit.PostgresSink
	registry    *prometheus.Registry

	authMiddleware      *middleware.Auth
	subscriptionService *services.SubscriptionService
	societyService      *services.SocietyService
	announcementService *services.AnnouncementService
	unitRequestService  *services.UnitRequestService
	inquiryService      *services.InquiryService
	suggestionService   *services.SuggestionService
	dashboardService    *services.DashboardService
	auditRecorder       *audit.Recorder
	activityFeed        *audit.Feed
	schedulerWorker     *workers.SchedulerWorker
)

func init() {
	var err error
	cfg, err = config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	appLogger, err = logger.New(cfg.App.LogLevel, cfg.Dev())
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	handlers.RequestTimeout = cfg.Server.RequestTimeout

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var app *firebase.App
	if needsFirebase(cfg) {
		app, err = notification.NewApp(ctx, notification.Credentials{
			Base64:    cfg.Firebase.CredentialsJSON,
			File:      cfg.Firebase.CredentialsFile,
			ProjectID: cfg.Firebase.ProjectID,
		}, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize firebase", zap.Error(err))
		}
	}

	switch cfg.Store.Driver {
	case "memory":
		mem := store.NewMemory()
		if cfg.Store.BootstrapAdmin != "" {
			mem.Seed(operator.Collection, cfg.Store.BootstrapAdmin, store.Patch{
				"role":     operator.RoleSuperAdmin,
				"isActive": true,
			})
		}
		appStore = mem
		appLogger.Warn("Using in-memory store; data is lost on restart")
	default:
		fs, err := app.Firestore(context.Background())
		if err != nil {
			appLogger.Fatal("Failed to open firestore", zap.Error(err))
		}
		appStore = store.NewFirestore(fs)
		appLogger.Info("Connected to Firestore")
	}

	var verifier middleware.TokenVerifier
	switch cfg.Auth.Provider {
	case "clerk":
		verifier = middleware.NewClerkVerifier(cfg.Auth.ClerkSecret)
	default:
		authClient, err := app.Auth(context.Background())
		if err != nil {
			appLogger.Fatal("Failed to initialize firebase auth", zap.Error(err))
		}
		verifier = middleware.NewFirebaseVerifier(authClient)
	}

	var sink audit.Sink = audit.NewLogSink(appLogger, 500)
	if cfg.Audit.DatabaseURL != "" {
		auditSink, err = audit.NewPostgresSink(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			appLogger.Fatal("Failed to connect audit database", zap.Error(err))
		}
		sink = auditSink
		appLogger.Info("Audit trail stored in postgres")
	}
	activityFeed = audit.NewFeed(64)
	auditRecorder = audit.NewRecorder(sink, appLogger).WithFeed(activityFeed)

	var functions services.FunctionCaller = gateway.Disabled{}
	if cfg.Gateway.BaseURL != "" {
		functions = gateway.New(gateway.Config{
			BaseURL:       cfg.Gateway.BaseURL,
			Timeout:       cfg.Gateway.Timeout,
			ServiceToken:  cfg.Gateway.ServiceToken,
			RatePerSecond: cfg.Gateway.RatePerSecond,
			Burst:         cfg.Gateway.Burst,
		}, appLogger.Named("gateway"))
	} else {
		appLogger.Warn("gateway.base_url not set; society provisioning is unavailable")
	}

	var broadcaster services.Broadcaster
	switch cfg.Broadcast.Mode {
	case "direct":
		var pusher services.Pusher
		if cfg.Broadcast.Push {
			fcm, err := notification.NewFCMService(context.Background(), app, appLogger)
			if err != nil {
				appLogger.Warn("Could not initialize FCM; announcements will not be pushed", zap.Error(err))
			} else {
				pusher = fcm
			}
		}
		broadcaster = services.NewDirectBroadcaster(appStore, pusher, appLogger.Named("broadcast"))
	default:
		broadcaster = services.NewFunctionBroadcaster(functions)
	}

	var mutator services.UnitMutator
	switch cfg.Units.Mutator {
	case "direct":
		mutator = services.NewDirectUnitMutator(appStore)
	default:
		mutator = services.NewFunctionUnitMutator(functions)
	}

	subscriptionService = services.NewSubscriptionService(appStore, auditRecorder, appLogger)
	societyService = services.NewSocietyService(appStore, functions, subscriptionService, auditRecorder, cfg.Visitor.BaseURL, appLogger)
	announcementService = services.NewAnnouncementService(appStore, broadcaster, auditRecorder, appLogger)
	unitRequestService = services.NewUnitRequestService(appStore, mutator, auditRecorder, appLogger)
	inquiryService = services.NewInquiryService(appStore, auditRecorder)
	suggestionService = services.NewSuggestionService(appStore)
	dashboardService = services.NewDashboardService(subscriptionService)

	authMiddleware = middleware.NewAuth(verifier, services.NewOperatorService(appStore), appLogger)

	if cfg.Scheduler.Enabled {
		var locker lock.Locker = lock.NewLocal()
		if cfg.Redis.Addr != "" {
			redisClient, err = lock.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				appLogger.Fatal("Failed to connect to redis", zap.Error(err))
			}
			locker = lock.NewRedis(redisClient, "society-admin:", appLogger)
			appLogger.Info("Scheduler lock held in redis", zap.String("addr", cfg.Redis.Addr))
		} else {
			appLogger.Warn("redis.addr not set; scheduler lock is local to this process")
		}
		schedulerWorker = workers.NewSchedulerWorker(announcementService, locker, cfg.Scheduler.Interval, cfg.Scheduler.LockTTL, appLogger.Named("scheduler"))
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)
	middleware.InitPrometheus(registry)
}

func needsFirebase(c config.Config) bool {
	return c.Store.Driver == "firestore" ||
		c.Auth.Provider == "firebase" ||
		(c.Broadcast.Mode == "direct" && c.Broadcast.Push)
}

func main() {
	defer func() {
		appLogger.Info("Closing connections...")
		if err := appStore.Close(); err != nil {
			appLogger.Warn("store close failed", zap.Error(err))
		}
		if auditSink != nil {
			auditSink.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
		appLogger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	societyHandler := handlers.NewSocietyHandler(societyService, appLogger)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, appLogger)
	announcementHandler := handlers.NewAnnouncementHandler(announcementService, appLogger)
	unitRequestHandler := handlers.NewUnitRequestHandler(unitRequestService, appLogger)
	inboxHandler := handlers.NewInboxHandler(dashboardService, inquiryService, suggestionService, auditRecorder, appLogger)
	activityHandler := handlers.NewActivityHandler(activityFeed, cfg.Server.AllowedOrigins, appLogger)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RatePerSecond, cfg.Server.RateBurst)
	go rateLimiter.Cleanup(ctx)

	r := mux.NewRouter()
	r.Use(rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware(appLogger))

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.Metrics.User, cfg.Metrics.Pass)(
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if _, err := appStore.Count(ctx, operator.Collection); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "store unreachable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "society-admin-api"}`))
	}).Methods("GET")

	// every console route requires an active super-admin
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.SuperAdmin)

	api.HandleFunc("/dashboard", inboxHandler.Dashboard).Methods("GET")

	api.HandleFunc("/societies", societyHandler.List).Methods("GET")
	api.HandleFunc("/societies", societyHandler.Create).Methods("POST")
	api.HandleFunc("/societies/{id}", societyHandler.Get).Methods("GET")
	api.HandleFunc("/societies/{id}", societyHandler.Update).Methods("PUT")
	api.HandleFunc("/societies/{id}", societyHandler.Delete).Methods("DELETE")
	api.HandleFunc("/societies/{id}/qr/regenerate", societyHandler.RegenerateQR).Methods("POST")
	api.HandleFunc("/societies/{id}/qr.png", societyHandler.VisitorQR).Methods("GET")
	api.HandleFunc("/societies/{id}/features/{feature}", societyHandler.SetFeature).Methods("PUT")

	api.HandleFunc("/subscriptions", subscriptionHandler.List).Methods("GET")
	api.HandleFunc("/subscriptions/{id}/toggle", subscriptionHandler.Toggle).Methods("POST")
	api.HandleFunc("/subscriptions/{id}/extend", subscriptionHandler.Extend).Methods("POST")
	api.HandleFunc("/subscriptions/{id}/reduce", subscriptionHandler.Reduce).Methods("POST")

	api.HandleFunc("/announcements", announcementHandler.List).Methods("GET")
	api.HandleFunc("/announcements/broadcast", announcementHandler.Broadcast).Methods("POST")
	api.HandleFunc("/announcements/scheduled", announcementHandler.ListScheduled).Methods("GET")
	api.HandleFunc("/announcements/scheduled", announcementHandler.Schedule).Methods("POST")
	api.HandleFunc("/announcements/scheduled/{id}", announcementHandler.EditScheduled).Methods("PUT")
	api.HandleFunc("/announcements/scheduled/{id}/cancel", announcementHandler.CancelScheduled).Methods("POST")
	api.HandleFunc("/announcements/{id}", announcementHandler.Delete).Methods("DELETE")

	api.HandleFunc("/unit-requests/{kind}", unitRequestHandler.List).Methods("GET")
	api.HandleFunc("/unit-requests/{kind}/{id}/decision", unitRequestHandler.Decide).Methods("POST")

	api.HandleFunc("/inquiries", inboxHandler.ListInquiries).Methods("GET")
	api.HandleFunc("/inquiries/{id}", inboxHandler.UpdateInquiryStatus).Methods("PATCH")
	api.HandleFunc("/suggestions", inboxHandler.ListSuggestions).Methods("GET")
	api.HandleFunc("/audit", inboxHandler.AuditLog).Methods("GET")
	api.HandleFunc("/activity", activityHandler.Stream).Methods("GET")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	server := http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	var workerDone <-chan struct{}
	if schedulerWorker != nil {
		workerDone = schedulerWorker.Start(ctx)
	}

	go func() {
		appLogger.Info("Starting server", zap.String("addr", server.Addr), zap.String("env", cfg.App.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Error starting server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	if workerDone != nil {
		select {
		case <-workerDone:
		case <-shutdownCtx.Done():
			appLogger.Warn("scheduler worker did not stop in time")
		}
	}

	appLogger.Info("Server shutdown complete")
}
