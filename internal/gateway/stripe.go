// Package gateway adapta a API da Stripe para os tipos do domínio.
// Nenhum tipo da stripe-go sai deste pacote.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/willjrcristo/quote-billing/internal/domain"
)

// StripeGateway fala com a Stripe usando um client.API próprio, sem a chave global.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
}

type options struct {
	backendURL string
	httpClient *http.Client
	tolerance  time.Duration
}

type Option func(*options)

// WithBackendURL aponta o cliente para outra URL (usado nos testes com httptest).
func WithBackendURL(url string) Option {
	return func(o *options) { o.backendURL = url }
}

// WithHTTPClient troca o cliente HTTP usado nas chamadas à API (timeout, transporte).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithWebhookTolerance altera a tolerância de tempo da assinatura do webhook.
func WithWebhookTolerance(d time.Duration) Option {
	return func(o *options) { o.tolerance = d }
}

func NewStripeGateway(secretKey, webhookSecret string, opts ...Option) *StripeGateway {
	o := options{tolerance: webhook.DefaultTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	var backends *stripe.Backends
	if o.backendURL != "" || o.httpClient != nil {
		cfg := &stripe.BackendConfig{}
		if o.backendURL != "" {
			// Backend de teste: sem retentativas para o erro aparecer na primeira chamada.
			cfg.URL = stripe.String(o.backendURL)
			cfg.MaxNetworkRetries = stripe.Int64(0)
		}
		if o.httpClient != nil {
			cfg.HTTPClient = o.httpClient
		}
		backends = &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
		}
	}

	api := &client.API{}
	api.Init(secretKey, backends)

	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
		tolerance:     o.tolerance,
	}
}

// --- CLIENTES ---

func (g *StripeGateway) CreateCustomer(ctx context.Context, p domain.CustomerParams) (*domain.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(p.Email),
		Name:  stripe.String(p.Name),
	}
	params.Context = ctx
	params.AddMetadata(domain.CustomerCompanyIDKey, strconv.FormatInt(p.CompanyID, 10))

	c, err := g.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: criar cliente: %w", err)
	}
	return toCustomer(c), nil
}

// GetCustomer devolve nil, nil para clientes apagados ou inexistentes na Stripe.
func (g *StripeGateway) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.api.Customers.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, nil
		}
		return nil, fmt.Errorf("stripe: buscar cliente %s: %w", id, err)
	}
	if c.Deleted {
		return nil, nil
	}
	return toCustomer(c), nil
}

// --- CHECKOUT E PORTAL ---

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p domain.CheckoutParams) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(p.CustomerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: criar sessão de checkout: %w", err)
	}
	return toCheckoutSession(s), nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*domain.PortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: criar sessão do portal: %w", err)
	}
	return &domain.PortalSession{ID: s.ID, URL: s.URL}, nil
}

// --- ASSINATURAS ---

// ListSubscriptions lista as assinaturas do cliente na ordem devolvida pela Stripe.
// status vazio usa o filtro padrão da Stripe; "all" inclui as canceladas.
func (g *StripeGateway) ListSubscriptions(ctx context.Context, customerID, status string) ([]domain.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
	}
	if status != "" {
		params.Status = stripe.String(status)
	}
	params.Context = ctx

	var subs []domain.Subscription
	it := g.api.Subscriptions.List(params)
	for it.Next() {
		subs = append(subs, *toSubscription(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: listar assinaturas de %s: %w", customerID, err)
	}
	return subs, nil
}

func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*domain.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	params.Context = ctx

	s, err := g.api.Subscriptions.Update(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: atualizar assinatura %s: %w", id, err)
	}
	return toSubscription(s), nil
}

// CancelSubscription cancela a assinatura imediatamente.
func (g *StripeGateway) CancelSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	s, err := g.api.Subscriptions.Cancel(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: cancelar assinatura %s: %w", id, err)
	}
	return toSubscription(s), nil
}

// --- WEBHOOK ---

// ConstructEvent verifica a assinatura e decodifica o objeto do evento.
// A versão da API do evento não é conferida: ela é definida no endpoint, no painel da Stripe.
func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (*domain.ProviderEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	out := &domain.ProviderEvent{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: time.Unix(ev.Created, 0),
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}

	switch {
	case strings.HasPrefix(out.Type, "checkout.session."):
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("stripe: decodificar sessão de checkout: %w", err)
		}
		out.Checkout = toCheckoutSession(&s)
	case strings.HasPrefix(out.Type, "customer.subscription."):
		var s stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("stripe: decodificar assinatura: %w", err)
		}
		out.Subscription = toSubscription(&s)
	case strings.HasPrefix(out.Type, "invoice."):
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("stripe: decodificar fatura: %w", err)
		}
		out.Invoice = toInvoice(&inv)
	}
	return out, nil
}

// --- CONVERSÕES ---

func toCustomer(c *stripe.Customer) *domain.Customer {
	return &domain.Customer{
		ID:       c.ID,
		Email:    c.Email,
		Name:     c.Name,
		Metadata: c.Metadata,
	}
}

func toCheckoutSession(s *stripe.CheckoutSession) *domain.CheckoutSession {
	out := &domain.CheckoutSession{
		ID:         s.ID,
		URL:        s.URL,
		SuccessURL: s.SuccessURL,
		CancelURL:  s.CancelURL,
		Metadata:   s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	return out
}

func toSubscription(s *stripe.Subscription) *domain.Subscription {
	out := &domain.Subscription{
		ID:                 s.ID,
		Status:             string(s.Status),
		CurrentPeriodStart: time.Unix(s.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(s.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.CanceledAt > 0 {
		t := time.Unix(s.CanceledAt, 0)
		out.CanceledAt = &t
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		out.PriceID = price.ID
		if price.Recurring != nil {
			out.Interval = string(price.Recurring.Interval)
		}
	}
	return out
}

func toInvoice(inv *stripe.Invoice) *domain.Invoice {
	out := &domain.Invoice{
		ID:               inv.ID,
		Number:           inv.Number,
		AmountPaid:       inv.AmountPaid,
		AmountDue:        inv.AmountDue,
		Currency:         string(inv.Currency),
		AttemptCount:     inv.AttemptCount,
		PeriodEnd:        time.Unix(inv.PeriodEnd, 0),
		HostedInvoiceURL: inv.HostedInvoiceURL,
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	if inv.NextPaymentAttempt > 0 {
		t := time.Unix(inv.NextPaymentAttempt, 0)
		out.NextPaymentAttempt = &t
	}
	if end, ok := subscriptionPeriodEnd(inv); ok {
		out.PeriodEnd = time.Unix(end, 0)
	}
	return out
}

// subscriptionPeriodEnd acha o fim do período pago na linha da assinatura.
// Linhas de rateio (proration) cobrem só um pedaço do ciclo e são ignoradas.
func subscriptionPeriodEnd(inv *stripe.Invoice) (int64, bool) {
	if inv.Lines == nil {
		return 0, false
	}
	for _, line := range inv.Lines.Data {
		if line.Period != nil && line.Type == stripe.InvoiceLineItemTypeSubscription {
			return line.Period.End, true
		}
	}
	if inv.Subscription == nil {
		return 0, false
	}
	for _, line := range inv.Lines.Data {
		if line.Period == nil || line.Proration || line.Subscription == nil {
			continue
		}
		if line.Subscription.ID == inv.Subscription.ID {
			return line.Period.End, true
		}
	}
	return 0, false
}
