package domain

import (
	"errors"
	"time"
)

// Plan é um plano pago. O nível "free" não é um Plan: é a ausência de assinatura.
type Plan string

const (
	PlanProfessional Plan = "professional"
	PlanBusiness     Plan = "business"
)

// BillingPeriod é a recorrência do preço de um plano.
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingYearly  BillingPeriod = "yearly"
)

var (
	ErrInvalidPlan          = errors.New("plano inválido")
	ErrInvalidBillingPeriod = errors.New("período de cobrança inválido")
)

// ParsePlan aceita apenas os planos pagos conhecidos.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanProfessional, PlanBusiness:
		return Plan(s), nil
	}
	return "", ErrInvalidPlan
}

// Tier devolve o nível gravado na empresa para este plano.
func (p Plan) Tier() SubscriptionTier {
	return SubscriptionTier(p)
}

func ParseBillingPeriod(s string) (BillingPeriod, error) {
	switch BillingPeriod(s) {
	case BillingMonthly, BillingYearly:
		return BillingPeriod(s), nil
	}
	return "", ErrInvalidBillingPeriod
}

// BillingPeriodFromInterval traduz o intervalo recorrente da Stripe ("month", "year").
func BillingPeriodFromInterval(interval string) (BillingPeriod, error) {
	switch interval {
	case "month":
		return BillingMonthly, nil
	case "year":
		return BillingYearly, nil
	}
	return "", ErrInvalidBillingPeriod
}

// UnlimitedQuotes é o sentinela de limite para planos sem teto de orçamentos.
const UnlimitedQuotes = -1

var quoteLimits = map[SubscriptionTier]int{
	TierFree:         5,
	TierProfessional: 50,
	TierBusiness:     UnlimitedQuotes,
}

var planFeatures = map[SubscriptionTier][]string{
	TierFree: {
		"5 orçamentos por mês",
		"Calculadora de pintura",
		"Exportação em PDF",
	},
	TierProfessional: {
		"50 orçamentos por mês",
		"Marca própria nos orçamentos",
		"Assinatura digital do cliente",
		"Suporte por e-mail",
	},
	TierBusiness: {
		"Orçamentos ilimitados",
		"Múltiplos usuários",
		"Relatórios de conversão",
		"Suporte prioritário",
	},
}

// QuoteLimit devolve o limite mensal de orçamentos do nível.
// Níveis desconhecidos recebem o limite do plano gratuito.
func QuoteLimit(tier SubscriptionTier) int {
	if limit, ok := quoteLimits[tier]; ok {
		return limit
	}
	return quoteLimits[TierFree]
}

// PlanFeatures devolve uma cópia da lista de recursos do nível.
func PlanFeatures(tier SubscriptionTier) []string {
	features := planFeatures[tier]
	out := make([]string, len(features))
	copy(out, features)
	return out
}

// SubscriptionInfo é calculada a cada consulta e nunca é persistida.
// Só é montada a partir de uma assinatura ativa na Stripe.
type SubscriptionInfo struct {
	SubscriptionID     string        `json:"subscription_id"`
	Status             string        `json:"status"`
	Plan               Plan          `json:"plan"`
	BillingPeriod      BillingPeriod `json:"billing_period"`
	CurrentPeriodStart time.Time     `json:"current_period_start"`
	CurrentPeriodEnd   time.Time     `json:"current_period_end"`
	CancelAtPeriodEnd  bool          `json:"cancel_at_period_end"`
	CustomerID         string        `json:"customer_id"`
}

type UsageStats struct {
	QuotesThisMonth int              `json:"quotes_this_month"`
	QuoteLimit      int              `json:"quote_limit"`
	Plan            SubscriptionTier `json:"plan"`
}

// Unlimited informa se o plano não tem teto de orçamentos.
func (u UsageStats) Unlimited() bool {
	return u.QuoteLimit == UnlimitedQuotes
}

// PercentageUsed devolve o uso em porcentagem inteira (arredondada para baixo).
// Planos ilimitados sempre reportam 0.
func (u UsageStats) PercentageUsed() int {
	if u.QuoteLimit <= 0 {
		return 0
	}
	return u.QuotesThisMonth * 100 / u.QuoteLimit
}
