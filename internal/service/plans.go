package service

import (
	"fmt"
	"log/slog"

	"github.com/willjrcristo/quote-billing/internal/domain"
)

// PriceIDs são os quatro preços configurados na Stripe.
type PriceIDs struct {
	ProfessionalMonthly string
	ProfessionalYearly  string
	BusinessMonthly     string
	BusinessYearly      string
}

type priceKey struct {
	plan   domain.Plan
	period domain.BillingPeriod
}

// PriceCatalog é a tabela fixa entre price ids da Stripe e pares (plano, período).
// Cada price id aponta para exatamente um par.
type PriceCatalog struct {
	byPlan  map[priceKey]string
	byPrice map[string]priceKey
}

// NewPriceCatalog monta o catálogo. Preços vazios ficam sem configuração e fazem
// o checkout daquele par falhar com ErrInvalidPlan. O mesmo id em dois pares é erro.
func NewPriceCatalog(ids PriceIDs) (*PriceCatalog, error) {
	c := &PriceCatalog{
		byPlan:  make(map[priceKey]string, 4),
		byPrice: make(map[string]priceKey, 4),
	}

	entries := []struct {
		key priceKey
		id  string
	}{
		{priceKey{domain.PlanProfessional, domain.BillingMonthly}, ids.ProfessionalMonthly},
		{priceKey{domain.PlanProfessional, domain.BillingYearly}, ids.ProfessionalYearly},
		{priceKey{domain.PlanBusiness, domain.BillingMonthly}, ids.BusinessMonthly},
		{priceKey{domain.PlanBusiness, domain.BillingYearly}, ids.BusinessYearly},
	}
	for _, e := range entries {
		if e.id == "" {
			continue
		}
		if prev, dup := c.byPrice[e.id]; dup {
			return nil, fmt.Errorf("price id %q configurado para %s/%s e %s/%s",
				e.id, prev.plan, prev.period, e.key.plan, e.key.period)
		}
		c.byPlan[e.key] = e.id
		c.byPrice[e.id] = e.key
	}
	return c, nil
}

// PriceID devolve o price id do par (plano, período).
func (c *PriceCatalog) PriceID(plan domain.Plan, period domain.BillingPeriod) (string, error) {
	id, ok := c.byPlan[priceKey{plan, period}]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s sem preço configurado", ErrInvalidPlan, plan, period)
	}
	return id, nil
}

// Resolve faz o caminho inverso. Ids fora da tabela são erro, nunca um plano padrão.
func (c *PriceCatalog) Resolve(priceID string) (domain.Plan, domain.BillingPeriod, error) {
	key, ok := c.byPrice[priceID]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownPriceID, priceID)
	}
	return key.plan, key.period, nil
}

// ResolveSubscription resolve o plano pelo price id e o período pelo intervalo
// recorrente do preço da assinatura. Sem intervalo reconhecível vale o catálogo.
func (c *PriceCatalog) ResolveSubscription(sub *domain.Subscription) (domain.Plan, domain.BillingPeriod, error) {
	plan, catalogPeriod, err := c.Resolve(sub.PriceID)
	if err != nil {
		return "", "", err
	}
	if sub.Interval == "" {
		return plan, catalogPeriod, nil
	}

	period, err := domain.BillingPeriodFromInterval(sub.Interval)
	if err != nil {
		slog.Warn("Intervalo de cobrança desconhecido, usando o catálogo",
			"subscription_id", sub.ID, "price_id", sub.PriceID, "interval", sub.Interval)
		return plan, catalogPeriod, nil
	}
	if period != catalogPeriod {
		slog.Warn("Intervalo do preço diverge do catálogo",
			"subscription_id", sub.ID, "price_id", sub.PriceID, "interval", sub.Interval, "catalog_period", catalogPeriod)
	}
	return plan, period, nil
}
