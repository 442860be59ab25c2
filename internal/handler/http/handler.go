package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/willjrcristo/quote-billing/internal/domain"
	"github.com/willjrcristo/quote-billing/internal/service"
)

// BillingService é o que os handlers precisam do SubscriptionService.
// O handler depende desta interface, não da implementação concreta.
type BillingService interface {
	CreateCompany(ctx context.Context, company domain.Company) (*domain.Company, error)
	GetCompany(ctx context.Context, id int64) (*domain.Company, error)
	CreateCheckoutSession(ctx context.Context, companyID int64, plan domain.Plan, period domain.BillingPeriod, returnURL string) (*domain.CheckoutSession, error)
	GetSubscriptionInfo(ctx context.Context, companyID int64) (*domain.SubscriptionInfo, error)
	CancelSubscription(ctx context.Context, companyID int64, immediately bool) error
	ReactivateSubscription(ctx context.Context, companyID int64) error
	CreateCustomerPortalSession(ctx context.Context, companyID int64, returnURL string) (*domain.PortalSession, error)
	GetUsageStats(ctx context.Context, companyID int64) (*domain.UsageStats, error)
	RecordQuote(ctx context.Context, companyID int64, title string) (int64, error)
}

// UsageWarner dispara o aviso de limite de uso. É opcional.
type UsageWarner interface {
	CheckUsageAndWarn(ctx context.Context, companyID int64) (bool, error)
}

type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error)
}

// --- REQUESTS / RESPONSES ---

type createCompanyRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type checkoutRequest struct {
	Plan          string `json:"plan" example:"professional"`
	BillingPeriod string `json:"billing_period" example:"monthly"`
	ReturnURL     string `json:"return_url" example:"https://app.example.com/billing"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type subscriptionResponse struct {
	domain.SubscriptionInfo
	Features []string `json:"features"`
}

type freePlanResponse struct {
	Plan     domain.SubscriptionTier `json:"plan" example:"free"`
	Features []string                `json:"features"`
}

type cancelRequest struct {
	Immediately bool `json:"immediately"`
}

type portalRequest struct {
	ReturnURL string `json:"return_url"`
}

type usageResponse struct {
	domain.UsageStats
	PercentageUsed int `json:"percentage_used"`
}

type quoteRequest struct {
	Title string `json:"title" example:"Pintura externa - Rua das Flores, 120"`
}

type quoteResponse struct {
	ID           int64 `json:"id"`
	UsageWarning bool  `json:"usage_warning"`
}

type webhookResponse struct {
	Received  bool `json:"received"`
	Processed bool `json:"processed"`
	Duplicate bool `json:"duplicate"`
}

// --- COMPANY HANDLER ---

// CompanyHandler cuida das rotas de /companies, incluindo as de cobrança.
type CompanyHandler struct {
	service BillingService
	warner  UsageWarner
}

// NewCompanyHandler cria o handler. warner pode ser nil quando o
// notificador de workflows está desligado.
func NewCompanyHandler(s BillingService, warner UsageWarner) *CompanyHandler {
	return &CompanyHandler{
		service: s,
		warner:  warner,
	}
}

func (h *CompanyHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateCompany)   // POST /companies
	r.Get("/{id}", h.GetCompany)   // GET /companies/{id}
	r.Post("/{id}/quotes", h.CreateQuote)

	r.Route("/{id}/billing", func(r chi.Router) {
		r.Post("/checkout", h.CreateCheckoutSession)
		r.Get("/subscription", h.GetSubscription)
		r.Post("/cancel", h.CancelSubscription)
		r.Post("/reactivate", h.ReactivateSubscription)
		r.Post("/portal", h.CreatePortalSession)
		r.Get("/usage", h.GetUsage)
		r.Post("/usage/check", h.CheckUsage)
	})

	return r
}

// @Summary      Cria uma empresa
// @Description  Cadastra uma empresa no plano free
// @Tags         empresas
// @Accept       json
// @Produce      json
// @Param        empresa  body      createCompanyRequest  true  "Nome e e-mail"
// @Success      201      {object}  domain.Company
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /companies [post]
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	company, err := h.service.CreateCompany(r.Context(), domain.Company{Name: req.Name, Email: req.Email})
	if err != nil {
		respondWithServiceError(w, err, "Erro ao criar empresa")
		return
	}
	respondWithJSON(w, http.StatusCreated, company)
}

// @Summary      Busca uma empresa por ID
// @Tags         empresas
// @Produce      json
// @Param        id   path      int  true  "ID da empresa"
// @Success      200  {object}  domain.Company
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /companies/{id} [get]
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}

	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Erro ao buscar empresa")
		return
	}
	respondWithJSON(w, http.StatusOK, company)
}

// @Summary      Registra um orçamento
// @Description  Conta o orçamento no uso do mês e, se configurado, dispara o aviso de limite
// @Tags         uso
// @Accept       json
// @Produce      json
// @Param        id         path      int           true  "ID da empresa"
// @Param        orcamento  body      quoteRequest  true  "Título do orçamento"
// @Success      201        {object}  quoteResponse
// @Failure      400        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Router       /companies/{id}/quotes [post]
func (h *CompanyHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	quoteID, err := h.service.RecordQuote(r.Context(), id, req.Title)
	if err != nil {
		respondWithServiceError(w, err, "Erro ao registrar orçamento")
		return
	}

	resp := quoteResponse{ID: quoteID}
	if h.warner != nil {
		// O orçamento já foi gravado; o aviso é best effort.
		warned, err := h.warner.CheckUsageAndWarn(r.Context(), id)
		if err != nil {
			slog.Error("Falha ao verificar limite de uso", "company_id", id, "error", err)
		}
		resp.UsageWarning = warned
	}
	respondWithJSON(w, http.StatusCreated, resp)
}

// --- COBRANÇA ---

// @Summary      Cria uma sessão de checkout na Stripe
// @Description  Gera a URL de pagamento para assinar um plano
// @Tags         assinaturas
// @Accept       json
// @Produce      json
// @Param        id       path      int              true  "ID da empresa"
// @Param        request  body      checkoutRequest  true  "Plano, período e URL de retorno"
// @Success      200      {object}  checkoutResponse
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /companies/{id}/billing/checkout [post]
func (h *CompanyHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	period, err := domain.ParseBillingPeriod(req.BillingPeriod)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validReturnURL(req.ReturnURL) {
		respondWithError(w, http.StatusBadRequest, "return_url deve ser uma URL http(s) absoluta")
		return
	}

	sess, err := h.service.CreateCheckoutSession(r.Context(), id, plan, period, req.ReturnURL)
	if err != nil {
		respondWithServiceError(w, err, "Erro ao criar sessão de checkout")
		return
	}
	respondWithJSON(w, http.StatusOK, checkoutResponse{SessionID: sess.ID, URL: sess.URL})
}

// @Summary      Consulta a assinatura atual
// @Description  Sem assinatura ativa a resposta é o plano free
// @Tags         assinaturas
// @Produce      json
// @Param        id   path      int  true  "ID da empresa"
// @Success      200  {object}  subscriptionResponse
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /companies/{id}/billing/subscription [get]
func (h *CompanyHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}

	info, err := h.service.GetSubscriptionInfo(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Erro ao consultar assinatura")
		return
	}
	if info == nil {
		respondWithJSON(w, http.StatusOK, freePlanResponse{
			Plan:     domain.TierFree,
			Features: domain.PlanFeatures(domain.TierFree),
		})
		return
	}
	respondWithJSON(w, http.StatusOK, subscriptionResponse{
		SubscriptionInfo: *info,
		Features:         domain.PlanFeatures(info.Plan.Tier()),
	})
}

// @Summary      Cancela a assinatura
// @Description  Cancela na hora ou no fim do período atual
// @Tags         assinaturas
// @Accept       json
// @Param        id       path  int            true   "ID da empresa"
// @Param        request  body  cancelRequest  false  "immediately=true cancela na hora"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /companies/{id}/billing/cancel [post]
func (h *CompanyHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	// Corpo vazio equivale a cancelar no fim do período.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	if err := h.service.CancelSubscription(r.Context(), id, req.Immediately); err != nil {
		respondWithServiceError(w, err, "Erro ao cancelar assinatura")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Reativa a assinatura
// @Description  Desfaz um cancelamento agendado para o fim do período
// @Tags         assinaturas
// @Param        id   path  int  true  "ID da empresa"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /companies/{id}/billing/reactivate [post]
func (h *CompanyHandler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}

	if err := h.service.ReactivateSubscription(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Erro ao reativar assinatura")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Abre o portal do cliente na Stripe
// @Tags         assinaturas
// @Accept       json
// @Produce      json
// @Param        id       path      int            true  "ID da empresa"
// @Param        request  body      portalRequest  true  "URL de retorno"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /companies/{id}/billing/portal [post]
func (h *CompanyHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}
	var req portalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	if !validReturnURL(req.ReturnURL) {
		respondWithError(w, http.StatusBadRequest, "return_url deve ser uma URL http(s) absoluta")
		return
	}

	sess, err := h.service.CreateCustomerPortalSession(r.Context(), id, req.ReturnURL)
	if err != nil {
		respondWithServiceError(w, err, "Erro ao abrir portal do cliente")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"url": sess.URL})
}

// @Summary      Uso do mês
// @Description  Orçamentos do mês corrente contra o limite do plano (-1 = ilimitado)
// @Tags         uso
// @Produce      json
// @Param        id   path      int  true  "ID da empresa"
// @Success      200  {object}  usageResponse
// @Failure      404  {object}  map[string]string
// @Router       /companies/{id}/billing/usage [get]
func (h *CompanyHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.GetUsageStats(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Erro ao calcular uso")
		return
	}
	respondWithJSON(w, http.StatusOK, usageResponse{UsageStats: *stats, PercentageUsed: stats.PercentageUsed()})
}

// @Summary      Verifica o limite de uso
// @Description  Dispara usage_limit_warning quando o uso está entre 80% e 100% do limite
// @Tags         uso
// @Produce      json
// @Param        id   path      int  true  "ID da empresa"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /companies/{id}/billing/usage/check [post]
func (h *CompanyHandler) CheckUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}
	if h.warner == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Notificações de workflow desativadas")
		return
	}

	warned, err := h.warner.CheckUsageAndWarn(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Erro ao verificar limite de uso")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"warned": warned})
}

// --- WEBHOOK DA STRIPE ---

// Limite de 64KB para o corpo do webhook.
const maxWebhookBodyBytes = int64(65536)

type StripeWebhookHandler struct {
	service WebhookService
}

func NewStripeWebhookHandler(s WebhookService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		service: s,
	}
}

// HandleStripeWebhook recebe os eventos da Stripe. O corpo cru e o cabeçalho
// Stripe-Signature vão sem alteração para a verificação.
//
// @Summary      Webhook da Stripe
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Assinatura do evento"
// @Success      200               {object}  webhookResponse
// @Failure      400               {object}  map[string]string
// @Failure      500               {object}  map[string]string
// @Router       /webhooks/stripe [post]
func (h *StripeWebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Corpo do webhook maior que o permitido")
			return
		}
		slog.Error("Erro ao ler o corpo do webhook", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Erro ao ler corpo da requisição")
		return
	}

	signature := r.Header.Get("Stripe-Signature")

	res, err := h.service.HandleWebhook(r.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			respondWithError(w, http.StatusBadRequest, "Falha na verificação da assinatura do webhook")
		} else {
			// 5xx faz a Stripe reenviar o evento.
			slog.Error("Erro ao processar webhook", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Erro interno ao processar webhook")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, webhookResponse{
		Received:  true,
		Processed: res.Processed,
		Duplicate: res.Duplicate,
	})
}

// --- FUNÇÕES AUXILIARES ---

func companyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "ID de empresa inválido")
		return 0, false
	}
	return id, true
}

func validReturnURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// respondWithServiceError traduz os erros de negócio para status HTTP.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrCompanyNotFound), errors.Is(err, service.ErrSubscriptionNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrInvalidCompany),
		errors.Is(err, service.ErrInvalidQuote),
		errors.Is(err, domain.ErrInvalidBillingPeriod):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoActiveSubscription), errors.Is(err, service.ErrNoCustomer):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		slog.Error(fallback, "error", err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	slog.Error("API Error", "code", code, "message", message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
