package domain

import (
	"strings"
	"time"
)

// Tipos de evento da Stripe tratados pelo serviço de assinaturas.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventSubscriptionCreated   = "customer.subscription.created"
	EventSubscriptionUpdated   = "customer.subscription.updated"
	EventSubscriptionDeleted   = "customer.subscription.deleted"
	EventInvoicePaymentSuccess = "invoice.payment_succeeded"
	EventInvoicePaymentFailed  = "invoice.payment_failed"
)

// Chave de metadata usada no cliente da Stripe para apontar para a empresa.
const CustomerCompanyIDKey = "company_id"

// Chaves de metadata gravadas na sessão de checkout.
const (
	CheckoutCompanyIDKey     = "companyId"
	CheckoutPlanKey          = "plan"
	CheckoutBillingPeriodKey = "billingPeriod"
)

// Status de assinatura da Stripe relevantes para a reconciliação.
const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	// SubscriptionStatusAll é aceito pela listagem para incluir canceladas.
	SubscriptionStatusAll = "all"
)

type Customer struct {
	ID       string
	Email    string
	Name     string
	Metadata map[string]string
}

type CustomerParams struct {
	Email     string
	Name      string
	CompanyID int64
}

type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type CheckoutSession struct {
	ID             string            `json:"session_id"`
	URL            string            `json:"url"`
	SuccessURL     string            `json:"success_url"`
	CancelURL      string            `json:"cancel_url"`
	CustomerID     string            `json:"customer_id"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	Metadata       map[string]string `json:"metadata"`
}

type Subscription struct {
	ID                 string
	Status             string
	CustomerID         string
	PriceID            string
	Interval           string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

// IsActive segue a semântica da Stripe: apenas o status "active" conta.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// IsTerminal indica um status do qual a assinatura não volta mais.
func (s *Subscription) IsTerminal() bool {
	return s.Status == SubscriptionStatusCanceled || s.Status == SubscriptionStatusIncompleteExpired
}

type PortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Invoice struct {
	ID             string
	Number         string
	CustomerID     string
	SubscriptionID string
	AmountPaid     int64
	AmountDue      int64
	Currency       string
	AttemptCount   int64
	// NextPaymentAttempt é nil quando a Stripe não vai tentar de novo.
	NextPaymentAttempt *time.Time
	PeriodEnd          time.Time
	HostedInvoiceURL   string
}

// DisplayNumber devolve o número legível da fatura, ou o ID quando ainda não há número.
func (i *Invoice) DisplayNumber() string {
	if i.Number != "" {
		return i.Number
	}
	return i.ID
}

// ProviderEvent é um evento de webhook já verificado e decodificado.
// No máximo um entre Checkout, Subscription e Invoice é preenchido.
type ProviderEvent struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created time.Time `json:"created"`

	Checkout     *CheckoutSession `json:"-"`
	Subscription *Subscription    `json:"-"`
	Invoice      *Invoice         `json:"-"`
}

// WebhookEvent é o que os observadores recebem depois do processamento:
// o evento verificado mais a empresa resolvida (nil quando não encontrada).
type WebhookEvent struct {
	*ProviderEvent

	Company *Company
	// PreviousTier é o nível da empresa antes do webhook.
	PreviousTier SubscriptionTier
	// Plan e BillingPeriod ficam vazios quando o evento não tem preço.
	Plan          Plan
	BillingPeriod BillingPeriod
}

// Moedas sem casas decimais na Stripe.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true,
	"xpf": true,
}

// MinorToMajor converte um valor em centavos (unidade mínima) para a unidade da moeda.
func MinorToMajor(amount int64, currency string) float64 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return float64(amount)
	}
	return float64(amount) / 100
}
