package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremysolarz/invoices-with-card-element/config"
	"github.com/jeremysolarz/invoices-with-card-element/controllers"
	apperrors "github.com/jeremysolarz/invoices-with-card-element/errors"
	"github.com/jeremysolarz/invoices-with-card-element/logger"
	"github.com/jeremysolarz/invoices-with-card-element/middleware"
	"github.com/jeremysolarz/invoices-with-card-element/models"
	aws_pkg "github.com/jeremysolarz/invoices-with-card-element/pkg/aws"
	"github.com/jeremysolarz/invoices-with-card-element/routes"
	"github.com/jeremysolarz/invoices-with-card-element/services"
	"github.com/jeremysolarz/invoices-with-card-element/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "checkout-web"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[CheckoutWeb] ❌ Failed to load config:", err)
	}

	ctx := context.Background()

	// --- Logging (CloudWatch tee is optional) ---
	var cloudWatch io.Writer
	if aws_pkg.Enabled() {
		cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, serviceName)
		if err != nil {
			log.Println("[CheckoutWeb] CloudWatch Logs unavailable, logging to stdout only:", err)
		} else {
			cloudWatch = cw
		}
	}
	zlog, err := logger.New(cfg.Environment, cloudWatch)
	if err != nil {
		log.Fatal("[CheckoutWeb] ❌ Failed to initialize logger:", err)
	}
	defer zlog.Sync()

	// --- Tracing ---
	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		zlog.Fatal("Tracer init failed", zap.Error(err))
	}

	// --- CloudWatch metrics + SNS events (non-fatal) ---
	var observers services.Observers
	metricsClient, err := aws_pkg.NewMetricsClient(ctx)
	if err != nil {
		zlog.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	} else {
		observers = append(observers, services.NewMetricsObserver(metricsClient, serviceName, zlog))
	}
	if cfg.SNSTopicARN != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			zlog.Fatal("Failed to load AWS config", zap.Error(err))
		}
		observers = append(observers, services.NewEventPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.SNSTopicARN, zlog))
	}

	// --- Dependency injection ---
	api := services.NewPaymentAPIClient(cfg.ServerURL, cfg.RequestTimeout)
	stripeBackend := services.NewStripeBackend(cfg.StripeAPIURL, cfg.StripeMaxRetries)
	deps := services.PageDeps{
		API: api,
		NewConfirmer: func(publishableKey string) services.CardConfirmer {
			return services.NewStripeService(publishableKey, stripeBackend, zlog)
		},
		Request: models.PaymentRequest{
			Currency:          cfg.Currency,
			PaymentMethodType: cfg.PaymentMethodType,
		},
		Observer: observers,
		Logger:   zlog,
	}
	checkoutController := controllers.NewCheckoutController(deps, cfg.RequestTimeout, cfg.SessionTTL, zlog)
	limiter := middleware.NewRateLimiter(rate.Every(time.Minute/20), 5, cfg.SessionTTL)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go checkoutController.RunSweeper(sweepCtx, time.Minute, limiter.Sweep)

	// --- HTTP router ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(apperrors.ErrorMiddleware())
	routes.RegisterCheckoutRoutes(r, checkoutController, limiter)

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: otelhttp.NewHandler(r, serviceName)}
	go func() {
		zlog.Info("Checkout web started",
			zap.String("port", cfg.Port),
			zap.String("checkout_server", cfg.ServerURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown error", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		zlog.Error("Tracer shutdown error", zap.Error(err))
	}
	zlog.Info("Checkout web stopped gracefully")
}
