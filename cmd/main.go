package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/nishant-jng/shopify-backend-sub000/internal/alert"
	"github.com/nishant-jng/shopify-backend-sub000/internal/handler"
	"github.com/nishant-jng/shopify-backend-sub000/internal/invoice"
	"github.com/nishant-jng/shopify-backend-sub000/internal/mailer"
	"github.com/nishant-jng/shopify-backend-sub000/internal/middleware"
	"github.com/nishant-jng/shopify-backend-sub000/internal/profile"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/internal/search"
	"github.com/nishant-jng/shopify-backend-sub000/internal/shopify"
	"github.com/nishant-jng/shopify-backend-sub000/internal/storage"
	"github.com/nishant-jng/shopify-backend-sub000/internal/workflow"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/config"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/database"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/jwtutil"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/logger"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

var version = "dev"

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting portal service...", zap.String("environment", cfg.Server.Env), zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prometheus.InitMetrics(version)
	log.Info("Prometheus metrics initialized")

	db, err := database.Open(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established", zap.String("db_host", cfg.DB.Host), zap.String("db_name", cfg.DB.Name))

	store, err := storage.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	pos := repository.NewPurchaseOrderRepository(db)
	dir := repository.NewDirectoryRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	shop := shopify.NewClient(cfg.Shopify, log)

	dispatcher := alert.NewDispatcher(mailer.New(cfg.Mail, log), cfg.Alerts.EmailWorkers, cfg.Alerts.QueueSize, log)
	alerts := alert.NewService(alertRepo, alert.Resolvers{
		Legacy: alert.NewShopifyAdminResolver(shop,
			cfg.Shopify.AdminMetafieldNamespace, cfg.Shopify.AdminMetafieldKey, cfg.Shopify.AdminMetafieldValue),
		Relational: alert.NewMerchantMembershipResolver(dir),
	}, dispatcher, cfg.Mail.PortalURL, log)

	allocator := invoice.NewAllocator(invoices, log)
	issuer := invoice.Party{Name: cfg.Invoice.IssuerName, Address: cfg.Invoice.IssuerAddress, TaxID: cfg.Invoice.IssuerTaxID}

	handlers := handler.Handlers{
		PO:       handler.NewPOHandler(workflow.NewPurchaseOrderService(pos, dir, store, alerts, log), cfg.Server.MaxUploadBytes),
		Alerts:   handler.NewAlertHandler(alerts),
		Invoices: handler.NewInvoiceHandler(workflow.NewInvoiceService(invoices, allocator, dir, store, issuer, log), allocator),
	}
	auth := handler.Auth{
		Admin: middleware.AdminAuth(jwtutil.New(&cfg.JWT), jwtutil.RoleAdmin),
	}

	if cfg.Bedrock.ModelID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Bedrock.Region))
		if err != nil {
			log.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
		catalog := shopify.NewProductCache(shop.FetchAllProducts, cfg.Catalog.CacheTTL)
		handlers.Search = handler.NewSearchHandler(search.NewService(bedrockruntime.NewFromConfig(awsCfg), cfg.Bedrock.ModelID, catalog, log))
		log.Info("AI search enabled", zap.String("model", cfg.Bedrock.ModelID))
	}

	if cfg.Firebase.ProjectID != "" {
		var opts []option.ClientOption
		if cfg.Firebase.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		}
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
		if err != nil {
			log.Fatal("Failed to initialize Firebase", zap.Error(err))
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Fatal("Failed to initialize Firebase auth", zap.Error(err))
		}
		auth.Firebase = middleware.FirebaseAuth(authClient, dir)

		fs, err := firestore.NewClient(ctx, cfg.Firebase.ProjectID, opts...)
		if err != nil {
			log.Fatal("Failed to initialize Firestore", zap.Error(err))
		}
		defer fs.Close()
		handlers.Profiles = handler.NewProfileHandler(profile.NewService(profile.NewFirestoreStore(fs), shop, log))
		log.Info("Firebase initialized", zap.String("project", cfg.Firebase.ProjectID))
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit(bodyLimit(cfg.Server.MaxUploadBytes)))
	e.Use(middleware.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())
	e.Use(logger.Middleware())

	handler.RegisterRoutes(e, handlers, auth)

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("Pending alert emails dropped", zap.Error(err))
	}
	log.Info("Server stopped")
}

// bodyLimit leaves room for the form fields around the largest upload
func bodyLimit(maxUpload int64) string {
	return strconv.FormatInt(maxUpload>>20+1, 10) + "M"
}
