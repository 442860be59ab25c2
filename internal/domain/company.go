package domain

import (
	"errors"
	"time"
)

// SubscriptionTier é o plano gravado localmente na empresa.
// É um enum plano de três estados, sem histórico: vale o último webhook recebido.
type SubscriptionTier string

const (
	TierFree         SubscriptionTier = "free"
	TierProfessional SubscriptionTier = "professional"
	TierBusiness     SubscriptionTier = "business"
)

var ErrInvalidTier = errors.New("nível de assinatura inválido")

// ParseTier converte uma string no SubscriptionTier correspondente.
func ParseTier(s string) (SubscriptionTier, error) {
	switch SubscriptionTier(s) {
	case TierFree, TierProfessional, TierBusiness:
		return SubscriptionTier(s), nil
	}
	return "", ErrInvalidTier
}

type Company struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	// ID do cliente na Stripe (ex: "cus_..."). Vazio até o primeiro checkout.
	StripeCustomerID string `json:"-"`

	SubscriptionTier SubscriptionTier `json:"subscription_tier"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCustomer informa se a empresa já tem um cliente criado na Stripe.
func (c *Company) HasCustomer() bool {
	return c.StripeCustomerID != ""
}

// CompanyUpdate é uma atualização parcial: campos nil não são alterados.
type CompanyUpdate struct {
	StripeCustomerID *string
	SubscriptionTier *SubscriptionTier
}

// IsEmpty indica que não há nada para gravar.
func (u CompanyUpdate) IsEmpty() bool {
	return u.StripeCustomerID == nil && u.SubscriptionTier == nil
}

// SetTier é um atalho para montar um CompanyUpdate que só altera o plano.
func SetTier(tier SubscriptionTier) CompanyUpdate {
	return CompanyUpdate{SubscriptionTier: &tier}
}

// SetCustomer monta um CompanyUpdate que só grava o cliente da Stripe.
func SetCustomer(customerID string) CompanyUpdate {
	return CompanyUpdate{StripeCustomerID: &customerID}
}
