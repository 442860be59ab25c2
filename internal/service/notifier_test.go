package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willjrcristo/quote-billing/internal/domain"
)

var silva = domain.Company{ID: 42, Name: "Pinturas Silva", Email: "contato@silva.com", StripeCustomerID: "cus_1"}

func newTestNotifier(repo *fakeRepo, provider *fakeProvider, trigger *fakeTrigger, keys *memKeyStore) *WorkflowNotifier {
	svc := newTestService(repo, provider)
	var n *WorkflowNotifier
	if keys != nil {
		n = NewWorkflowNotifier(trigger, svc, keys)
	} else {
		n = NewWorkflowNotifier(trigger, svc, nil)
	}
	n.now = func() time.Time { return fixedNow }
	return n
}

func TestCheckUsageAndWarn(t *testing.T) {
	ctx := context.Background()

	proProvider := func() *fakeProvider {
		p := newFakeProvider()
		p.addSubscription(activeSub("sub_1", "cus_1", "price_pro_m"))
		return p
	}

	t.Run("sucesso - 40 de 50 dispara um aviso com 80%", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo(silva)
		repo.addQuotes(42, 40, fixedNow)
		trigger := &fakeTrigger{}
		n := newTestNotifier(repo, proProvider(), trigger, nil)
		before := testutil.ToFloat64(usageWarningsTotal)

		// Act
		sent, err := n.CheckUsageAndWarn(ctx, 42)

		// Assert
		require.NoError(t, err)
		assert.True(t, sent)
		require.Len(t, trigger.calls, 1)
		assert.Equal(t, WorkflowUsageLimitWarning, trigger.calls[0].Name)
		assert.Equal(t, UsageLimitWarningPayload{
			CompanyContact: CompanyContact{CompanyID: 42, CompanyName: "Pinturas Silva", Email: "contato@silva.com"},
			Plan:           domain.TierProfessional,
			QuotesUsed:     40,
			QuoteLimit:     50,
			PercentageUsed: 80,
		}, trigger.calls[0].Payload)
		assert.Equal(t, before+1, testutil.ToFloat64(usageWarningsTotal))
	})

	t.Run("sucesso - fora da faixa não dispara", func(t *testing.T) {
		cases := []struct {
			name     string
			quotes   int
			provider *fakeProvider
		}{
			{"abaixo de 80%", 39, proProvider()},
			{"limite atingido", 50, proProvider()},
			{"acima do limite", 60, proProvider()},
			{"free abaixo de 80%", 3, newFakeProvider()},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				repo := newFakeRepo(silva)
				repo.addQuotes(42, tc.quotes, fixedNow)
				trigger := &fakeTrigger{}
				n := newTestNotifier(repo, tc.provider, trigger, nil)

				sent, err := n.CheckUsageAndWarn(ctx, 42)

				require.NoError(t, err)
				assert.False(t, sent)
				assert.Empty(t, trigger.calls)
			})
		}
	})

	t.Run("sucesso - business nunca dispara", func(t *testing.T) {
		provider := newFakeProvider()
		provider.addSubscription(activeSub("sub_1", "cus_1", "price_biz_m"))
		repo := newFakeRepo(silva)
		repo.addQuotes(42, 1000, fixedNow)
		trigger := &fakeTrigger{}
		n := newTestNotifier(repo, provider, trigger, nil)

		sent, err := n.CheckUsageAndWarn(ctx, 42)

		require.NoError(t, err)
		assert.False(t, sent)
		assert.Empty(t, trigger.calls)
	})

	t.Run("sucesso - free com 4 de 5 dispara", func(t *testing.T) {
		repo := newFakeRepo(domain.Company{ID: 42, Name: "Pinturas Silva", Email: "contato@silva.com"})
		repo.addQuotes(42, 4, fixedNow)
		trigger := &fakeTrigger{}
		n := newTestNotifier(repo, newFakeProvider(), trigger, nil)

		sent, err := n.CheckUsageAndWarn(ctx, 42)

		require.NoError(t, err)
		assert.True(t, sent)
	})

	t.Run("sucesso - sem KeyStore cada chamada dispara", func(t *testing.T) {
		repo := newFakeRepo(silva)
		repo.addQuotes(42, 45, fixedNow)
		trigger := &fakeTrigger{}
		n := newTestNotifier(repo, proProvider(), trigger, nil)

		_, err := n.CheckUsageAndWarn(ctx, 42)
		require.NoError(t, err)
		_, err = n.CheckUsageAndWarn(ctx, 42)
		require.NoError(t, err)

		assert.Len(t, trigger.calls, 2)
	})

	t.Run("sucesso - com KeyStore dispara uma vez por mês", func(t *testing.T) {
		repo := newFakeRepo(silva)
		repo.addQuotes(42, 45, fixedNow)
		trigger := &fakeTrigger{}
		keys := newMemKeyStore()
		n := newTestNotifier(repo, proProvider(), trigger, keys)

		first, err := n.CheckUsageAndWarn(ctx, 42)
		require.NoError(t, err)
		second, err := n.CheckUsageAndWarn(ctx, 42)
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)
		assert.Len(t, trigger.calls, 1)
		assert.True(t, keys.keys["usage_warning:42:2026-03:80"])
	})

	t.Run("sucesso - falha no envio vira false sem erro e não marca", func(t *testing.T) {
		repo := newFakeRepo(silva)
		repo.addQuotes(42, 40, fixedNow)
		trigger := &fakeTrigger{Err: errors.New("connection refused")}
		keys := newMemKeyStore()
		n := newTestNotifier(repo, proProvider(), trigger, keys)

		sent, err := n.CheckUsageAndWarn(ctx, 42)

		require.NoError(t, err)
		assert.False(t, sent)
		assert.Empty(t, keys.keys)
	})

	t.Run("erro - empresa inexistente", func(t *testing.T) {
		n := newTestNotifier(newFakeRepo(), newFakeProvider(), &fakeTrigger{}, nil)

		_, err := n.CheckUsageAndWarn(ctx, 1)
		assert.ErrorIs(t, err, ErrCompanyNotFound)
	})
}

func TestObserveWebhook(t *testing.T) {
	ctx := context.Background()
	company := silva
	retry := time.Date(2026, time.March, 18, 9, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		event    domain.WebhookEvent
		workflow string
		payload  any
	}{
		{
			name: "pagamento aprovado",
			event: domain.WebhookEvent{
				ProviderEvent: &domain.ProviderEvent{
					Type: domain.EventInvoicePaymentSuccess,
					Invoice: &domain.Invoice{
						ID: "in_1", Number: "A1B2-0001", AmountPaid: 4900, Currency: "usd",
						PeriodEnd: periodEnd, HostedInvoiceURL: "https://invoice.stripe.com/i/in_1",
					},
				},
				Company: &company,
			},
			workflow: WorkflowPaymentSucceeded,
			payload: PaymentSucceededPayload{
				CompanyContact:  CompanyContact{CompanyID: 42, CompanyName: "Pinturas Silva", Email: "contato@silva.com"},
				Amount:          49,
				Currency:        "USD",
				InvoiceNumber:   "A1B2-0001",
				InvoiceURL:      "https://invoice.stripe.com/i/in_1",
				NextBillingDate: periodEnd,
			},
		},
		{
			name: "pagamento recusado",
			event: domain.WebhookEvent{
				ProviderEvent: &domain.ProviderEvent{
					Type: domain.EventInvoicePaymentFailed,
					Invoice: &domain.Invoice{
						ID: "in_2", AmountDue: 1500, Currency: "jpy", AttemptCount: 2, NextPaymentAttempt: &retry,
					},
				},
				Company: &company,
			},
			workflow: WorkflowPaymentFailed,
			payload: PaymentFailedPayload{
				CompanyContact: CompanyContact{CompanyID: 42, CompanyName: "Pinturas Silva", Email: "contato@silva.com"},
				Amount:         1500,
				Currency:       "JPY",
				InvoiceNumber:  "in_2",
				AttemptCount:   2,
				NextRetryDate:  &retry,
			},
		},
		{
			name: "assinatura criada",
			event: domain.WebhookEvent{
				ProviderEvent: &domain.ProviderEvent{
					Type:         domain.EventSubscriptionCreated,
					Subscription: &domain.Subscription{Status: "active", CurrentPeriodEnd: periodEnd},
				},
				Company:       &company,
				Plan:          domain.PlanProfessional,
				BillingPeriod: domain.BillingMonthly,
			},
			workflow: WorkflowSubscriptionCreated,
			payload: SubscriptionChangedPayload{
				CompanyContact:   CompanyContact{CompanyID: 42, CompanyName: "Pinturas Silva", Email: "contato@silva.com"},
				Plan:             domain.PlanProfessional,
				BillingPeriod:    domain.BillingMonthly,
				Status:           "active",
				CurrentPeriodEnd: periodEnd,
			},
		},
		{
			name: "assinatura atualizada",
			event: domain.WebhookEvent{
				ProviderEvent: &domain.ProviderEvent{
					Type:         domain.EventSubscriptionUpdated,
					Subscription: &domain.Subscription{Status: "active", CurrentPeriodEnd: periodEnd, CancelAtPeriodEnd: true},
				},
				Company:       &company,
				Plan:          domain.PlanBusiness,
				BillingPeriod: domain.BillingYearly,
			},
			workflow: WorkflowSubscriptionUpdated,
			payload: SubscriptionChangedPayload{
				CompanyContact:    CompanyContact{CompanyID: 42, CompanyName: "Pinturas Silva", Email: "contato@silva.com"},
				Plan:              domain.PlanBusiness,
				BillingPeriod:     domain.BillingYearly,
				Status:            "active",
				CurrentPeriodEnd:  periodEnd,
				CancelAtPeriodEnd: true,
			},
		},
		{
			name: "assinatura cancelada sem canceled_at usa a data do evento",
			event: domain.WebhookEvent{
				ProviderEvent: &domain.ProviderEvent{
					Type:         domain.EventSubscriptionDeleted,
					Created:      fixedNow,
					Subscription: &domain.Subscription{Status: "canceled"},
				},
				Company:      &company,
				PreviousTier: domain.TierBusiness,
			},
			workflow: WorkflowSubscriptionCancelled,
			payload: SubscriptionCancelledPayload{
				CompanyContact: CompanyContact{CompanyID: 42, CompanyName: "Pinturas Silva", Email: "contato@silva.com"},
				PreviousPlan:   domain.TierBusiness,
				CancelledAt:    fixedNow,
			},
		},
	}

	for _, tc := range cases {
		t.Run("sucesso - "+tc.name, func(t *testing.T) {
			trigger := &fakeTrigger{}
			n := NewWorkflowNotifier(trigger, nil, nil)

			err := n.ObserveWebhook(ctx, tc.event)

			require.NoError(t, err)
			require.Len(t, trigger.calls, 1)
			assert.Equal(t, tc.workflow, trigger.calls[0].Name)
			assert.Equal(t, tc.payload, trigger.calls[0].Payload)
		})
	}

	t.Run("sucesso - sem empresa ou tipo sem workflow não dispara", func(t *testing.T) {
		trigger := &fakeTrigger{}
		n := NewWorkflowNotifier(trigger, nil, nil)

		require.NoError(t, n.ObserveWebhook(ctx, domain.WebhookEvent{
			ProviderEvent: &domain.ProviderEvent{Type: domain.EventInvoicePaymentSuccess, Invoice: &domain.Invoice{}},
		}))
		require.NoError(t, n.ObserveWebhook(ctx, domain.WebhookEvent{
			ProviderEvent: &domain.ProviderEvent{Type: domain.EventCheckoutCompleted, Checkout: &domain.CheckoutSession{}},
			Company:       &company,
		}))

		assert.Empty(t, trigger.calls)
	})

	t.Run("erro - falha do gatilho é devolvida", func(t *testing.T) {
		trigger := &fakeTrigger{Err: errors.New("502")}
		n := NewWorkflowNotifier(trigger, nil, nil)

		err := n.ObserveWebhook(ctx, domain.WebhookEvent{
			ProviderEvent: &domain.ProviderEvent{Type: domain.EventSubscriptionDeleted, Subscription: &domain.Subscription{}},
			Company:       &company,
		})
		assert.ErrorIs(t, err, trigger.Err)
	})
}

func TestNotifierAsObserver(t *testing.T) {
	// Fluxo completo: o webhook grava o plano e o notifier dispara o workflow.
	ctx := context.Background()
	repo := newFakeRepo(domain.Company{ID: 42, Name: "Pinturas Silva", Email: "contato@silva.com"})
	provider := newFakeProvider()
	provider.addCustomer("cus_1", 42)
	sub := activeSub("sub_1", "cus_1", "price_biz_m")
	provider.event = subscriptionEvent(domain.EventSubscriptionCreated, sub)

	svc := newTestService(repo, provider)
	trigger := &fakeTrigger{}
	svc.Observe(NewWorkflowNotifier(trigger, svc, nil))

	res, err := svc.HandleWebhook(ctx, webhookBody, validSignature)

	require.NoError(t, err)
	assert.True(t, res.Processed)
	require.Len(t, trigger.calls, 1)
	assert.Equal(t, WorkflowSubscriptionCreated, trigger.calls[0].Name)
	payload := trigger.calls[0].Payload.(SubscriptionChangedPayload)
	assert.Equal(t, domain.PlanBusiness, payload.Plan)
	assert.Equal(t, domain.BillingMonthly, payload.BillingPeriod)
}
