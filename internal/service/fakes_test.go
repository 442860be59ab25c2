package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/willjrcristo/quote-billing/internal/domain"
)

// --- Repositório em memória ---

type fakeRepo struct {
	mu        sync.Mutex
	companies map[int64]*domain.Company
	quotes    map[int64][]time.Time
	nextID    int64

	updateCalls int
	UpdateErr   error
}

func newFakeRepo(companies ...domain.Company) *fakeRepo {
	r := &fakeRepo{
		companies: map[int64]*domain.Company{},
		quotes:    map[int64][]time.Time{},
		nextID:    100,
	}
	for _, c := range companies {
		c := c
		if c.SubscriptionTier == "" {
			c.SubscriptionTier = domain.TierFree
		}
		r.companies[c.ID] = &c
	}
	return r
}

func (r *fakeRepo) Create(ctx context.Context, c domain.Company) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.companies[c.ID] = &c
	return c.ID, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) Update(ctx context.Context, id int64, u domain.CompanyUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	c, ok := r.companies[id]
	if !ok {
		return errors.New("not found")
	}
	if u.StripeCustomerID != nil {
		c.StripeCustomerID = *u.StripeCustomerID
	}
	if u.SubscriptionTier != nil {
		c.SubscriptionTier = *u.SubscriptionTier
	}
	return nil
}

func (r *fakeRepo) CountQuotesSince(ctx context.Context, companyID int64, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, at := range r.quotes[companyID] {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CreateQuote(ctx context.Context, companyID int64, title string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes[companyID] = append(r.quotes[companyID], at)
	return int64(len(r.quotes[companyID])), nil
}

func (r *fakeRepo) addQuotes(companyID int64, n int, at time.Time) {
	for i := 0; i < n; i++ {
		r.CreateQuote(context.Background(), companyID, "orçamento", at)
	}
}

func (r *fakeRepo) tier(id int64) domain.SubscriptionTier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.companies[id].SubscriptionTier
}

// --- Stripe falsa ---

const validSignature = "t=1,v1=ok"

type fakeProvider struct {
	customers map[string]*domain.Customer
	subs      map[string][]domain.Subscription

	createdCustomers []domain.CustomerParams
	checkouts        []domain.CheckoutParams
	portalCustomers  []string
	listStatuses     []string

	CreateCustomerErr error
	ListErr           error

	// event é devolvido por ConstructEvent quando a assinatura confere.
	event *domain.ProviderEvent
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		customers: map[string]*domain.Customer{},
		subs:      map[string][]domain.Subscription{},
	}
}

// addCustomer registra um cliente ligado à empresa pela metadata.
func (p *fakeProvider) addCustomer(id string, companyID int64) {
	p.customers[id] = &domain.Customer{
		ID:       id,
		Metadata: map[string]string{domain.CustomerCompanyIDKey: fmt.Sprint(companyID)},
	}
}

func (p *fakeProvider) addSubscription(s domain.Subscription) {
	p.subs[s.CustomerID] = append(p.subs[s.CustomerID], s)
}

func (p *fakeProvider) subscription(customerID, id string) domain.Subscription {
	for _, s := range p.subs[customerID] {
		if s.ID == id {
			return s
		}
	}
	return domain.Subscription{}
}

func (p *fakeProvider) CreateCustomer(ctx context.Context, params domain.CustomerParams) (*domain.Customer, error) {
	if p.CreateCustomerErr != nil {
		return nil, p.CreateCustomerErr
	}
	p.createdCustomers = append(p.createdCustomers, params)
	id := fmt.Sprintf("cus_%d", len(p.createdCustomers))
	p.addCustomer(id, params.CompanyID)
	return p.customers[id], nil
}

func (p *fakeProvider) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return p.customers[id], nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (*domain.CheckoutSession, error) {
	p.checkouts = append(p.checkouts, params)
	return &domain.CheckoutSession{
		ID:         fmt.Sprintf("cs_%d", len(p.checkouts)),
		URL:        "https://checkout.stripe.com/c/pay/cs_test",
		SuccessURL: params.SuccessURL,
		CancelURL:  params.CancelURL,
		CustomerID: params.CustomerID,
		Metadata:   params.Metadata,
	}, nil
}

func (p *fakeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*domain.PortalSession, error) {
	p.portalCustomers = append(p.portalCustomers, customerID)
	return &domain.PortalSession{ID: "bps_1", URL: "https://billing.stripe.com/p/session/bps_1"}, nil
}

// ListSubscriptions imita o filtro da Stripe: sem status, esconde as canceladas.
func (p *fakeProvider) ListSubscriptions(ctx context.Context, customerID, status string) ([]domain.Subscription, error) {
	p.listStatuses = append(p.listStatuses, status)
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	var out []domain.Subscription
	for _, s := range p.subs[customerID] {
		switch status {
		case domain.SubscriptionStatusAll:
			out = append(out, s)
		case "":
			if s.Status != domain.SubscriptionStatusCanceled {
				out = append(out, s)
			}
		default:
			if s.Status == status {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (p *fakeProvider) update(id string, fn func(*domain.Subscription)) (*domain.Subscription, error) {
	for cus, list := range p.subs {
		for i := range list {
			if list[i].ID == id {
				fn(&p.subs[cus][i])
				s := p.subs[cus][i]
				return &s, nil
			}
		}
	}
	return nil, errors.New("no such subscription")
}

func (p *fakeProvider) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*domain.Subscription, error) {
	return p.update(id, func(s *domain.Subscription) { s.CancelAtPeriodEnd = cancel })
}

func (p *fakeProvider) CancelSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	return p.update(id, func(s *domain.Subscription) { s.Status = domain.SubscriptionStatusCanceled })
}

func (p *fakeProvider) ConstructEvent(payload []byte, signature string) (*domain.ProviderEvent, error) {
	if signature != validSignature {
		return nil, errors.New("webhook has invalid signature")
	}
	if p.event == nil {
		return nil, errors.New("sem evento configurado")
	}
	return p.event, nil
}

// --- Automação falsa ---

type triggeredWorkflow struct {
	Name    string
	Payload any
}

type fakeTrigger struct {
	calls []triggeredWorkflow
	Err   error
}

func (f *fakeTrigger) TriggerWorkflow(ctx context.Context, name string, payload any) error {
	f.calls = append(f.calls, triggeredWorkflow{Name: name, Payload: payload})
	return f.Err
}

// --- KeyStore em memória ---

type memKeyStore struct {
	keys map[string]bool
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{keys: map[string]bool{}}
}

func (m *memKeyStore) Seen(ctx context.Context, key string) (bool, error) {
	return m.keys[key], nil
}

func (m *memKeyStore) Mark(ctx context.Context, key string) error {
	m.keys[key] = true
	return nil
}

// --- Ajudantes ---

var testPrices = PriceIDs{
	ProfessionalMonthly: "price_pro_m",
	ProfessionalYearly:  "price_pro_y",
	BusinessMonthly:     "price_biz_m",
	BusinessYearly:      "price_biz_y",
}

func mustCatalog(ids PriceIDs) *PriceCatalog {
	c, err := NewPriceCatalog(ids)
	if err != nil {
		panic(err)
	}
	return c
}

func activeSub(id, customerID, priceID string) domain.Subscription {
	interval := "month"
	if priceID == "price_pro_y" || priceID == "price_biz_y" {
		interval = "year"
	}
	return domain.Subscription{
		ID:                 id,
		Status:             domain.SubscriptionStatusActive,
		CustomerID:         customerID,
		PriceID:            priceID,
		Interval:           interval,
		CurrentPeriodStart: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		CurrentPeriodEnd:   time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
	}
}
