package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/willjrcristo/quote-billing/docs"
	"github.com/willjrcristo/quote-billing/internal/config"
	"github.com/willjrcristo/quote-billing/internal/gateway"
	httphandler "github.com/willjrcristo/quote-billing/internal/handler/http"
	"github.com/willjrcristo/quote-billing/internal/migrations"
	"github.com/willjrcristo/quote-billing/internal/repository"
	"github.com/willjrcristo/quote-billing/internal/service"
	"github.com/willjrcristo/quote-billing/internal/workflow"
)

// @title           API de Cobrança de Orçamentos
// @version         1.0
// @description     Assinaturas, checkout e reconciliação de webhooks da Stripe para o SaaS de orçamentos de pintura.
//
// @contact.name   Will Cristo
// @contact.url    https://linkedin.com/in/willjrcristo
// @contact.email  willjrcristo@gmail.com
//
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
//
// @host      localhost:8080
// @BasePath  /
func main() {
	// --- 1. CONFIGURAÇÃO ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Erro ao carregar a configuração", "error", err)
		os.Exit(1)
	}

	// --- 2. LOGGER ---
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	slog.Info("🚀 Iniciando a API de cobrança...")

	if err := run(cfg); err != nil {
		slog.Error("Servidor encerrado com erro", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 3. BANCO DE DADOS ---
	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("inicializar banco de dados: %w", err)
	}
	defer db.Close()
	slog.Info("💾 Banco de dados pronto", "path", cfg.DatabasePath)

	// --- 4. INJEÇÃO DE DEPENDÊNCIAS (WIRING) ---
	// DB -> Repository -> Service -> Handler
	companyRepo := repository.NewSQLiteRepository(db)

	keys, closeKeys, err := newKeyStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeKeys()

	prices, err := service.NewPriceCatalog(service.PriceIDs{
		ProfessionalMonthly: cfg.Prices.ProfessionalMonthly,
		ProfessionalYearly:  cfg.Prices.ProfessionalYearly,
		BusinessMonthly:     cfg.Prices.BusinessMonthly,
		BusinessYearly:      cfg.Prices.BusinessYearly,
	})
	if err != nil {
		return fmt.Errorf("catálogo de preços: %w", err)
	}

	stripeGateway := gateway.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.StripeTimeout}),
		gateway.WithWebhookTolerance(cfg.StripeWebhookTolerance),
	)
	subscriptionService := service.NewSubscriptionService(companyRepo, stripeGateway, prices, service.WithKeyStore(keys))

	// O notificador depende do serviço, então entra como observador depois.
	var warner httphandler.UsageWarner
	if cfg.WorkflowEnabled() {
		client := workflow.NewClient(cfg.WorkflowURL, cfg.WorkflowSecret, cfg.WorkflowTimeout)
		notifier := service.NewWorkflowNotifier(client, subscriptionService, keys)
		subscriptionService.Observe(notifier)
		warner = notifier
		slog.Info("🔔 Notificações de workflow ativadas")
	} else {
		slog.Warn("WORKFLOW_WEBHOOK_URL não definida, notificações de workflow desativadas")
	}

	companyHandler := httphandler.NewCompanyHandler(subscriptionService, warner)
	webhookHandler := httphandler.NewStripeWebhookHandler(subscriptionService)

	// --- 5. ROTEADOR E ROTAS ---
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(prometheusMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("API de cobrança está no ar! 🚀"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Mount("/companies", companyHandler.Routes())
	r.Post("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	// --- 6. SERVIDOR HTTP ---
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("✅ Servidor pronto para receber requisições", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Encerrando o servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func initDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// newKeyStore usa o Redis quando REDIS_URL está definida e a tabela
// notification_keys do SQLite caso contrário.
func newKeyStore(ctx context.Context, cfg *config.Config, db *sql.DB) (repository.KeyStore, func(), error) {
	if cfg.RedisURL == "" {
		return repository.NewSQLiteKeyStore(db), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("REDIS_URL inválida: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("conectar ao redis: %w", err)
	}
	slog.Info("🗝️  Chaves de notificação no Redis", "ttl", cfg.NotificationKeyTTL)

	return repository.NewRedisKeyStore(client, cfg.NotificationKeyTTL), func() { client.Close() }, nil
}
