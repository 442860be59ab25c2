package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/willjrcristo/quote-billing/internal/domain"
	"github.com/willjrcristo/quote-billing/internal/repository"
)

// Nomes dos workflows disparados no sistema de automação.
const (
	WorkflowPaymentSucceeded      = "payment_succeeded"
	WorkflowPaymentFailed         = "payment_failed"
	WorkflowSubscriptionCreated   = "subscription_created"
	WorkflowSubscriptionUpdated   = "subscription_updated"
	WorkflowSubscriptionCancelled = "subscription_cancelled"
	WorkflowUsageLimitWarning     = "usage_limit_warning"
)

// Faixa de aviso de uso: a partir de 80% e antes de estourar o limite.
const usageWarningThreshold = 80

type WorkflowTrigger interface {
	TriggerWorkflow(ctx context.Context, name string, payload any) error
}

// UsageReader é a parte do SubscriptionService usada pelo aviso de uso.
type UsageReader interface {
	GetCompany(ctx context.Context, id int64) (*domain.Company, error)
	GetUsageStats(ctx context.Context, companyID int64) (*domain.UsageStats, error)
}

// --- PAYLOADS ---

type CompanyContact struct {
	CompanyID   int64  `json:"companyId"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
}

type PaymentSucceededPayload struct {
	CompanyContact
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	InvoiceNumber   string    `json:"invoiceNumber"`
	InvoiceURL      string    `json:"invoiceUrl,omitempty"`
	NextBillingDate time.Time `json:"nextBillingDate"`
}

type PaymentFailedPayload struct {
	CompanyContact
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	InvoiceNumber string     `json:"invoiceNumber"`
	InvoiceURL    string     `json:"invoiceUrl,omitempty"`
	AttemptCount  int64      `json:"attemptCount"`
	NextRetryDate *time.Time `json:"nextRetryDate"`
}

type SubscriptionChangedPayload struct {
	CompanyContact
	Plan              domain.Plan          `json:"plan"`
	BillingPeriod     domain.BillingPeriod `json:"billingPeriod"`
	Status            string               `json:"status"`
	CurrentPeriodEnd  time.Time            `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool                 `json:"cancelAtPeriodEnd"`
}

type SubscriptionCancelledPayload struct {
	CompanyContact
	PreviousPlan domain.SubscriptionTier `json:"previousPlan"`
	CancelledAt  time.Time               `json:"cancelledAt"`
}

type UsageLimitWarningPayload struct {
	CompanyContact
	Plan           domain.SubscriptionTier `json:"plan"`
	QuotesUsed     int                     `json:"quotesUsed"`
	QuoteLimit     int                     `json:"quoteLimit"`
	PercentageUsed int                     `json:"percentageUsed"`
}

// WorkflowNotifier repassa eventos de cobrança para o sistema de automação.
// É um WebhookObserver: roda depois que o SubscriptionService já gravou o estado.
type WorkflowNotifier struct {
	trigger WorkflowTrigger
	usage   UsageReader
	// keys é opcional; sem ele o aviso de uso dispara a cada chamada na faixa.
	keys repository.KeyStore
	now  func() time.Time
}

func NewWorkflowNotifier(trigger WorkflowTrigger, usage UsageReader, keys repository.KeyStore) *WorkflowNotifier {
	return &WorkflowNotifier{
		trigger: trigger,
		usage:   usage,
		keys:    keys,
		now:     time.Now,
	}
}

// ObserveWebhook monta o payload do evento e dispara o workflow correspondente.
// Eventos sem empresa resolvida não disparam nada.
func (n *WorkflowNotifier) ObserveWebhook(ctx context.Context, ev domain.WebhookEvent) error {
	if ev.ProviderEvent == nil || ev.Company == nil {
		return nil
	}

	name, payload, ok := n.buildPayload(ev)
	if !ok {
		return nil
	}
	return n.fire(ctx, name, payload)
}

func (n *WorkflowNotifier) buildPayload(ev domain.WebhookEvent) (string, any, bool) {
	contact := contactOf(ev.Company)

	switch ev.Type {
	case domain.EventInvoicePaymentSuccess:
		inv := ev.Invoice
		if inv == nil {
			return "", nil, false
		}
		return WorkflowPaymentSucceeded, PaymentSucceededPayload{
			CompanyContact:  contact,
			Amount:          domain.MinorToMajor(inv.AmountPaid, inv.Currency),
			Currency:        strings.ToUpper(inv.Currency),
			InvoiceNumber:   inv.DisplayNumber(),
			InvoiceURL:      inv.HostedInvoiceURL,
			NextBillingDate: inv.PeriodEnd,
		}, true

	case domain.EventInvoicePaymentFailed:
		inv := ev.Invoice
		if inv == nil {
			return "", nil, false
		}
		return WorkflowPaymentFailed, PaymentFailedPayload{
			CompanyContact: contact,
			Amount:         domain.MinorToMajor(inv.AmountDue, inv.Currency),
			Currency:       strings.ToUpper(inv.Currency),
			InvoiceNumber:  inv.DisplayNumber(),
			InvoiceURL:     inv.HostedInvoiceURL,
			AttemptCount:   inv.AttemptCount,
			NextRetryDate:  inv.NextPaymentAttempt,
		}, true

	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated:
		sub := ev.Subscription
		if sub == nil {
			return "", nil, false
		}
		name := WorkflowSubscriptionUpdated
		if ev.Type == domain.EventSubscriptionCreated {
			name = WorkflowSubscriptionCreated
		}
		return name, SubscriptionChangedPayload{
			CompanyContact:    contact,
			Plan:              ev.Plan,
			BillingPeriod:     ev.BillingPeriod,
			Status:            sub.Status,
			CurrentPeriodEnd:  sub.CurrentPeriodEnd,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}, true

	case domain.EventSubscriptionDeleted:
		sub := ev.Subscription
		if sub == nil {
			return "", nil, false
		}
		cancelledAt := ev.Created
		if sub.CanceledAt != nil {
			cancelledAt = *sub.CanceledAt
		}
		return WorkflowSubscriptionCancelled, SubscriptionCancelledPayload{
			CompanyContact: contact,
			PreviousPlan:   ev.PreviousTier,
			CancelledAt:    cancelledAt,
		}, true
	}
	return "", nil, false
}

// CheckUsageAndWarn dispara usage_limit_warning quando o uso está entre 80% e 100%
// do limite do plano. Devolve true quando o aviso foi enviado.
// Falha no envio é registrada e não vira erro.
func (n *WorkflowNotifier) CheckUsageAndWarn(ctx context.Context, companyID int64) (bool, error) {
	stats, err := n.usage.GetUsageStats(ctx, companyID)
	if err != nil {
		return false, err
	}
	if !inWarningRange(stats) {
		return false, nil
	}

	key := fmt.Sprintf("usage_warning:%d:%s:%d", companyID, n.now().Local().Format("2006-01"), usageWarningThreshold)
	if n.keys != nil {
		seen, err := n.keys.Seen(ctx, key)
		if err != nil {
			return false, err
		}
		if seen {
			return false, nil
		}
	}

	company, err := n.usage.GetCompany(ctx, companyID)
	if err != nil {
		return false, err
	}

	payload := UsageLimitWarningPayload{
		CompanyContact: contactOf(company),
		Plan:           stats.Plan,
		QuotesUsed:     stats.QuotesThisMonth,
		QuoteLimit:     stats.QuoteLimit,
		PercentageUsed: stats.PercentageUsed(),
	}
	if err := n.fire(ctx, WorkflowUsageLimitWarning, payload); err != nil {
		slog.Error("Falha ao enviar aviso de limite de uso", "company_id", companyID, "error", err)
		return false, nil
	}

	if n.keys != nil {
		if err := n.keys.Mark(ctx, key); err != nil {
			slog.Error("Falha ao marcar aviso de uso como enviado", "company_id", companyID, "error", err)
		}
	}
	usageWarningsTotal.Inc()
	return true, nil
}

func inWarningRange(stats *domain.UsageStats) bool {
	if stats.Unlimited() || stats.QuoteLimit <= 0 {
		return false
	}
	used := stats.QuotesThisMonth
	return used*100 >= usageWarningThreshold*stats.QuoteLimit && used < stats.QuoteLimit
}

func (n *WorkflowNotifier) fire(ctx context.Context, name string, payload any) error {
	if err := n.trigger.TriggerWorkflow(ctx, name, payload); err != nil {
		workflowTriggersTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("disparar workflow %s: %w", name, err)
	}
	workflowTriggersTotal.WithLabelValues(name, "ok").Inc()
	slog.Info("Workflow disparado", "workflow", name)
	return nil
}

func contactOf(c *domain.Company) CompanyContact {
	return CompanyContact{
		CompanyID:   c.ID,
		CompanyName: c.Name,
		Email:       c.Email,
	}
}
