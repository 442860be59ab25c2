package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/willjrcristo/quote-billing/internal/domain"
	"github.com/willjrcristo/quote-billing/internal/repository"
)

// Erros de negócio relacionados à assinatura.
var (
	ErrCompanyNotFound      = errors.New("empresa não encontrada")
	ErrInvalidCompany       = errors.New("dados da empresa inválidos")
	ErrInvalidQuote         = errors.New("orçamento sem título")
	ErrInvalidPlan          = domain.ErrInvalidPlan
	ErrUnknownPriceID       = errors.New("price id não mapeado para nenhum plano")
	ErrNoActiveSubscription = errors.New("empresa não possui assinatura ativa")
	ErrSubscriptionNotFound = errors.New("assinatura não encontrada")
	ErrNoCustomer           = errors.New("empresa ainda não é cliente na stripe")
	ErrInvalidSignature     = errors.New("assinatura do webhook inválida")
	ErrMalformedEvent       = errors.New("evento de webhook sem objeto")
)

// PaymentProvider é o que o serviço precisa da Stripe. Só trafega tipos do domínio.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, params domain.CustomerParams) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (*domain.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*domain.PortalSession, error)
	ListSubscriptions(ctx context.Context, customerID, status string) ([]domain.Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*domain.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*domain.Subscription, error)
	ConstructEvent(payload []byte, signature string) (*domain.ProviderEvent, error)
}

// SubscriptionService encapsula a lógica de assinaturas e a reconciliação dos webhooks.
type SubscriptionService struct {
	companies repository.CompanyRepository
	provider  PaymentProvider
	prices    *PriceCatalog

	// keys é opcional; sem ele eventos repetidos são processados de novo.
	keys      repository.KeyStore
	observers []WebhookObserver
	now       func() time.Time
}

type Option func(*SubscriptionService)

// WithKeyStore liga a deduplicação de eventos de webhook pelo ID do evento.
func WithKeyStore(keys repository.KeyStore) Option {
	return func(s *SubscriptionService) { s.keys = keys }
}

func WithObservers(observers ...WebhookObserver) Option {
	return func(s *SubscriptionService) { s.observers = append(s.observers, observers...) }
}

func WithClock(now func() time.Time) Option {
	return func(s *SubscriptionService) { s.now = now }
}

func NewSubscriptionService(companies repository.CompanyRepository, provider PaymentProvider, prices *PriceCatalog, opts ...Option) *SubscriptionService {
	s := &SubscriptionService{
		companies: companies,
		provider:  provider,
		prices:    prices,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observe registra mais um observador depois da construção.
// Existe porque o WorkflowNotifier depende do próprio serviço.
func (s *SubscriptionService) Observe(observers ...WebhookObserver) {
	s.observers = append(s.observers, observers...)
}

// --- EMPRESAS ---

func (s *SubscriptionService) CreateCompany(ctx context.Context, company domain.Company) (*domain.Company, error) {
	if strings.TrimSpace(company.Name) == "" || !strings.Contains(company.Email, "@") {
		return nil, ErrInvalidCompany
	}
	company.StripeCustomerID = ""
	company.SubscriptionTier = domain.TierFree

	id, err := s.companies.Create(ctx, company)
	if err != nil {
		return nil, err
	}
	return s.GetCompany(ctx, id)
}

func (s *SubscriptionService) GetCompany(ctx context.Context, id int64) (*domain.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, ErrCompanyNotFound
	}
	return company, nil
}

// --- CHECKOUT ---

// CreateCheckoutSession cria uma sessão de checkout para o plano e período escolhidos.
// Se a empresa ainda não for cliente na Stripe, o cliente é criado e gravado antes da sessão.
func (s *SubscriptionService) CreateCheckoutSession(ctx context.Context, companyID int64, plan domain.Plan, period domain.BillingPeriod, returnURL string) (*domain.CheckoutSession, error) {
	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	priceID, err := s.prices.PriceID(plan, period)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, company)
	if err != nil {
		return nil, err
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: withQuery(returnURL, "checkout=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  withQuery(returnURL, "checkout=canceled"),
		Metadata: map[string]string{
			domain.CheckoutCompanyIDKey:     strconv.FormatInt(company.ID, 10),
			domain.CheckoutPlanKey:          string(plan),
			domain.CheckoutBillingPeriodKey: string(period),
		},
	})
	if err != nil {
		slog.Error("Falha ao criar a sessão de checkout na Stripe", "company_id", company.ID, "error", err)
		return nil, err
	}

	slog.Info("Sessão de checkout criada", "company_id", company.ID, "session_id", sess.ID, "plan", plan, "billing_period", period)
	return sess, nil
}

// ensureCustomer devolve o cliente da empresa na Stripe, criando e gravando se preciso.
// Se a gravação falhar a operação inteira falha, para não criar um cliente novo a cada checkout.
func (s *SubscriptionService) ensureCustomer(ctx context.Context, company *domain.Company) (string, error) {
	if company.HasCustomer() {
		return company.StripeCustomerID, nil
	}

	c, err := s.provider.CreateCustomer(ctx, domain.CustomerParams{
		Email:     company.Email,
		Name:      company.Name,
		CompanyID: company.ID,
	})
	if err != nil {
		slog.Error("Falha ao criar cliente na Stripe", "company_id", company.ID, "error", err)
		return "", err
	}

	if err := s.companies.Update(ctx, company.ID, domain.SetCustomer(c.ID)); err != nil {
		slog.Error("Cliente criado na Stripe mas não gravado na empresa", "company_id", company.ID, "customer_id", c.ID, "error", err)
		return "", fmt.Errorf("gravar cliente %s na empresa %d: %w", c.ID, company.ID, err)
	}
	company.StripeCustomerID = c.ID
	return c.ID, nil
}

func withQuery(base, query string) string {
	if strings.Contains(base, "?") {
		return base + "&" + query
	}
	return base + "?" + query
}

// --- ASSINATURA ---

// GetSubscriptionInfo devolve nil quando a empresa não tem assinatura ativa (plano free).
// Havendo mais de uma ativa, vale a primeira devolvida pela Stripe.
func (s *SubscriptionService) GetSubscriptionInfo(ctx context.Context, companyID int64) (*domain.SubscriptionInfo, error) {
	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	sub, err := s.activeSubscription(ctx, company)
	if err != nil || sub == nil {
		return nil, err
	}

	plan, period, err := s.prices.ResolveSubscription(sub)
	if err != nil {
		return nil, err
	}

	return &domain.SubscriptionInfo{
		SubscriptionID:     sub.ID,
		Status:             sub.Status,
		Plan:               plan,
		BillingPeriod:      period,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CustomerID:         sub.CustomerID,
	}, nil
}

func (s *SubscriptionService) activeSubscription(ctx context.Context, company *domain.Company) (*domain.Subscription, error) {
	if !company.HasCustomer() {
		return nil, nil
	}

	subs, err := s.provider.ListSubscriptions(ctx, company.StripeCustomerID, domain.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].IsActive() {
			return &subs[i], nil
		}
	}
	return nil, nil
}

// CancelSubscription cancela na hora ou marca para cancelar no fim do período atual.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, companyID int64, immediately bool) error {
	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}

	sub, err := s.activeSubscription(ctx, company)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoActiveSubscription
	}

	if immediately {
		_, err = s.provider.CancelSubscription(ctx, sub.ID)
	} else {
		_, err = s.provider.SetCancelAtPeriodEnd(ctx, sub.ID, true)
	}
	if err != nil {
		slog.Error("Falha ao cancelar assinatura", "company_id", companyID, "subscription_id", sub.ID, "error", err)
		return err
	}

	slog.Info("Assinatura cancelada", "company_id", companyID, "subscription_id", sub.ID, "immediately", immediately)
	return nil
}

// ReactivateSubscription desfaz um cancelamento agendado.
// Procura em todas as assinaturas do cliente, não só nas ativas; uma assinatura
// já encerrada não pode ser reativada e conta como inexistente.
func (s *SubscriptionService) ReactivateSubscription(ctx context.Context, companyID int64) error {
	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if !company.HasCustomer() {
		return ErrSubscriptionNotFound
	}

	subs, err := s.provider.ListSubscriptions(ctx, company.StripeCustomerID, domain.SubscriptionStatusAll)
	if err != nil {
		return err
	}

	var target *domain.Subscription
	for i := range subs {
		if !subs[i].IsTerminal() {
			target = &subs[i]
			break
		}
	}
	if target == nil {
		return ErrSubscriptionNotFound
	}

	if _, err := s.provider.SetCancelAtPeriodEnd(ctx, target.ID, false); err != nil {
		slog.Error("Falha ao reativar assinatura", "company_id", companyID, "subscription_id", target.ID, "error", err)
		return err
	}

	slog.Info("Assinatura reativada", "company_id", companyID, "subscription_id", target.ID)
	return nil
}

func (s *SubscriptionService) CreateCustomerPortalSession(ctx context.Context, companyID int64, returnURL string) (*domain.PortalSession, error) {
	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !company.HasCustomer() {
		return nil, ErrNoCustomer
	}
	return s.provider.CreatePortalSession(ctx, company.StripeCustomerID, returnURL)
}

// --- USO ---

// RecordQuote registra um orçamento criado pela empresa para a contagem de uso.
func (s *SubscriptionService) RecordQuote(ctx context.Context, companyID int64, title string) (int64, error) {
	if _, err := s.GetCompany(ctx, companyID); err != nil {
		return 0, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, ErrInvalidQuote
	}
	return s.companies.CreateQuote(ctx, companyID, title, s.now())
}

// GetUsageStats conta os orçamentos do mês corrente (horário local do servidor)
// contra o limite do plano ativo.
func (s *SubscriptionService) GetUsageStats(ctx context.Context, companyID int64) (*domain.UsageStats, error) {
	info, err := s.GetSubscriptionInfo(ctx, companyID)
	if err != nil {
		return nil, err
	}

	tier := domain.TierFree
	if info != nil {
		tier = info.Plan.Tier()
	}

	count, err := s.companies.CountQuotesSince(ctx, companyID, monthStart(s.now()))
	if err != nil {
		return nil, err
	}

	return &domain.UsageStats{
		QuotesThisMonth: count,
		QuoteLimit:      domain.QuoteLimit(tier),
		Plan:            tier,
	}, nil
}

func monthStart(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local)
}
