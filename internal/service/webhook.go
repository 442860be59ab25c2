package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/willjrcristo/quote-billing/internal/domain"
)

// WebhookObserver recebe cada evento depois que o processamento principal terminou.
// Erros e panics dos observadores são registrados e descartados: o estado de
// cobrança não depende deles.
type WebhookObserver interface {
	ObserveWebhook(ctx context.Context, event domain.WebhookEvent) error
}

// WebhookObserverFunc adapta uma função para WebhookObserver.
type WebhookObserverFunc func(ctx context.Context, event domain.WebhookEvent) error

func (f WebhookObserverFunc) ObserveWebhook(ctx context.Context, event domain.WebhookEvent) error {
	return f(ctx, event)
}

type WebhookResult struct {
	// Processed é false para tipos de evento que não tratamos. Não é erro.
	Processed bool `json:"processed"`
	// Duplicate indica um evento já processado antes; nada foi feito.
	Duplicate bool                  `json:"duplicate"`
	Event     *domain.ProviderEvent `json:"-"`
}

// HandleWebhook verifica a assinatura e processa o evento recebido da Stripe.
// Nada é alterado antes da verificação.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.provider.ConstructEvent(payload, signature)
	if err != nil {
		slog.Warn("Erro ao verificar a assinatura do webhook", "error", err)
		webhookEventsTotal.WithLabelValues("unverified", "invalid_signature").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	log := slog.With("event_id", event.ID, "event_type", event.Type)

	key := "webhook:" + event.ID
	if s.keys != nil {
		seen, err := s.keys.Seen(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("consultar evento %s: %w", event.ID, err)
		}
		if seen {
			log.Info("Evento da Stripe já processado, ignorando")
			webhookEventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
			return &WebhookResult{Processed: true, Duplicate: true, Event: event}, nil
		}
	}

	we, handled, err := s.dispatch(ctx, event)
	if err != nil {
		log.Error("Erro ao processar webhook da Stripe", "error", err)
		webhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		return nil, err
	}
	if !handled {
		log.Info("Webhook da Stripe recebido, mas não tratado")
		webhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		return &WebhookResult{Processed: false, Event: event}, nil
	}

	if s.keys != nil {
		// O estado já foi gravado; uma falha aqui só permite reprocessar o evento.
		if err := s.keys.Mark(ctx, key); err != nil {
			log.Error("Falha ao marcar evento como processado", "error", err)
		}
	}
	webhookEventsTotal.WithLabelValues(event.Type, "processed").Inc()

	s.notify(ctx, we)
	return &WebhookResult{Processed: true, Event: event}, nil
}

func (s *SubscriptionService) dispatch(ctx context.Context, event *domain.ProviderEvent) (*domain.WebhookEvent, bool, error) {
	we := &domain.WebhookEvent{ProviderEvent: event}

	var err error
	switch event.Type {
	case domain.EventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, we)
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated:
		err = s.handleSubscriptionChanged(ctx, we)
	case domain.EventSubscriptionDeleted:
		err = s.handleSubscriptionDeleted(ctx, we)
	case domain.EventInvoicePaymentSuccess, domain.EventInvoicePaymentFailed:
		err = s.handleInvoice(ctx, we)
	default:
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	return we, true, nil
}

// handleCheckoutCompleted usa a metadata da sessão para achar a empresa e o plano.
func (s *SubscriptionService) handleCheckoutCompleted(ctx context.Context, we *domain.WebhookEvent) error {
	sess := we.Checkout
	if sess == nil {
		return fmt.Errorf("%w: %s", ErrMalformedEvent, we.ID)
	}

	companyID, ok := parseCompanyID(sess.Metadata[domain.CheckoutCompanyIDKey])
	if !ok {
		slog.Warn("Checkout sem companyId na metadata, ignorando", "event_id", we.ID, "session_id", sess.ID)
		return nil
	}
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return err
	}
	if company == nil {
		slog.Warn("Empresa do checkout não encontrada, ignorando", "event_id", we.ID, "company_id", companyID)
		return nil
	}

	// Plano inválido na metadata: o evento é reconhecido sem alterar a empresa.
	plan, err := domain.ParsePlan(sess.Metadata[domain.CheckoutPlanKey])
	if err != nil {
		slog.Error("Checkout com plano inválido na metadata, ignorando", "event_id", we.ID,
			"session_id", sess.ID, "company_id", company.ID, "plan", sess.Metadata[domain.CheckoutPlanKey])
		checkoutRejectedTotal.Inc()
		return nil
	}
	// O período é informativo aqui; a assinatura traz o preço real.
	period, _ := domain.ParseBillingPeriod(sess.Metadata[domain.CheckoutBillingPeriodKey])

	update := domain.SetTier(plan.Tier())
	if !company.HasCustomer() && sess.CustomerID != "" {
		update.StripeCustomerID = &sess.CustomerID
	}
	if err := s.companies.Update(ctx, company.ID, update); err != nil {
		return err
	}

	we.PreviousTier = company.SubscriptionTier
	company.SubscriptionTier = plan.Tier()
	if update.StripeCustomerID != nil {
		company.StripeCustomerID = sess.CustomerID
	}
	we.Company = company
	we.Plan = plan
	we.BillingPeriod = period

	slog.Info("Checkout concluído", "company_id", company.ID, "plan", plan, "previous_tier", we.PreviousTier)
	return nil
}

// handleSubscriptionChanged trata criação e atualização: o plano vem do preço atual.
func (s *SubscriptionService) handleSubscriptionChanged(ctx context.Context, we *domain.WebhookEvent) error {
	sub := we.Subscription
	if sub == nil {
		return fmt.Errorf("%w: %s", ErrMalformedEvent, we.ID)
	}

	company, err := s.companyForCustomer(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if company == nil {
		slog.Warn("Empresa da assinatura não encontrada, ignorando", "event_id", we.ID, "customer_id", sub.CustomerID)
		return nil
	}

	tier := domain.TierFree
	if !sub.IsTerminal() {
		plan, period, err := s.prices.ResolveSubscription(sub)
		if err != nil {
			return err
		}
		tier = plan.Tier()
		we.Plan, we.BillingPeriod = plan, period
	}

	if err := s.companies.Update(ctx, company.ID, domain.SetTier(tier)); err != nil {
		return err
	}

	we.PreviousTier = company.SubscriptionTier
	company.SubscriptionTier = tier
	we.Company = company

	slog.Info("Assinatura sincronizada", "company_id", company.ID, "subscription_id", sub.ID,
		"status", sub.Status, "tier", tier, "previous_tier", we.PreviousTier)
	return nil
}

// handleSubscriptionDeleted volta a empresa para o plano free, qualquer que seja o anterior.
func (s *SubscriptionService) handleSubscriptionDeleted(ctx context.Context, we *domain.WebhookEvent) error {
	sub := we.Subscription
	if sub == nil {
		return fmt.Errorf("%w: %s", ErrMalformedEvent, we.ID)
	}

	company, err := s.companyForCustomer(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if company == nil {
		slog.Warn("Empresa da assinatura removida não encontrada, ignorando", "event_id", we.ID, "customer_id", sub.CustomerID)
		return nil
	}

	if err := s.companies.Update(ctx, company.ID, domain.SetTier(domain.TierFree)); err != nil {
		return err
	}

	if plan, period, err := s.prices.ResolveSubscription(sub); err == nil {
		we.Plan, we.BillingPeriod = plan, period
	}
	we.PreviousTier = company.SubscriptionTier
	company.SubscriptionTier = domain.TierFree
	we.Company = company

	slog.Info("Assinatura encerrada, empresa voltou ao plano free", "company_id", company.ID, "subscription_id", sub.ID)
	return nil
}

// handleInvoice só registra o pagamento. Falhas de cobrança não mudam o plano
// local; a Stripe manda customer.subscription.updated quando o status muda.
func (s *SubscriptionService) handleInvoice(ctx context.Context, we *domain.WebhookEvent) error {
	inv := we.Invoice
	if inv == nil {
		return fmt.Errorf("%w: %s", ErrMalformedEvent, we.ID)
	}

	company, err := s.companyForCustomer(ctx, inv.CustomerID)
	if err != nil {
		return err
	}
	if company == nil {
		slog.Warn("Empresa da fatura não encontrada, ignorando", "event_id", we.ID, "customer_id", inv.CustomerID)
		return nil
	}
	we.Company = company
	we.PreviousTier = company.SubscriptionTier

	if we.Type == domain.EventInvoicePaymentFailed {
		slog.Warn("Pagamento de fatura falhou", "company_id", company.ID, "invoice", inv.DisplayNumber(),
			"subscription_id", inv.SubscriptionID, "amount_due", inv.AmountDue, "attempt_count", inv.AttemptCount)
		return nil
	}
	slog.Info("Fatura paga", "company_id", company.ID, "invoice", inv.DisplayNumber(),
		"subscription_id", inv.SubscriptionID, "amount_paid", inv.AmountPaid)
	return nil
}

// companyForCustomer acha a empresa pela metadata company_id do cliente na Stripe.
// Devolve nil, nil quando não há como resolver.
func (s *SubscriptionService) companyForCustomer(ctx context.Context, customerID string) (*domain.Company, error) {
	if customerID == "" {
		return nil, nil
	}

	customer, err := s.provider.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, nil
	}

	companyID, ok := parseCompanyID(customer.Metadata[domain.CustomerCompanyIDKey])
	if !ok {
		return nil, nil
	}
	return s.companies.GetByID(ctx, companyID)
}

func (s *SubscriptionService) notify(ctx context.Context, we *domain.WebhookEvent) {
	for _, obs := range s.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Observador de webhook entrou em pânico", "event_id", we.ID, "panic", r)
					observerFailuresTotal.Inc()
				}
			}()
			if err := obs.ObserveWebhook(ctx, *we); err != nil {
				slog.Error("Observador de webhook falhou", "event_id", we.ID, "event_type", we.Type, "error", err)
				observerFailuresTotal.Inc()
			}
		}()
	}
}

func parseCompanyID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
