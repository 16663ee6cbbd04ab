package admission

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"admission-gateway/middleware/admission/domain"

	"github.com/rs/zerolog"
)

// Handlers agrupa os endpoints /v1 de ingestão, avaliação e cadastro.
//
// Ingestão é fail-open: falha de ledger vira log + resposta degradada,
// nunca erro para o cliente. Cadastro é o oposto: payload inválido é 400
// sempre, sem default silencioso.
type Handlers struct {
	Ledger  domain.EventLedger
	Tenants domain.TenantStore

	// Policy dos endpoints de avaliação. Zero value usa DefaultPolicy.
	Policy   domain.Policy
	TrustXFF bool
	Logger   zerolog.Logger
}

func (h *Handlers) policy() domain.Policy {
	if h.Policy == (domain.Policy{}) {
		return domain.DefaultPolicy()
	}
	return h.Policy
}

// eventBody é o payload opcional de /v1/event e /v1/evaluate: campos
// presentes substituem o metadado da própria requisição.
type eventBody struct {
	Path           string `json:"path"`
	Method         string `json:"method"`
	UserAgent      string `json:"userAgent"`
	AcceptLanguage string `json:"acceptLanguage"`
}

func (h *Handlers) ingest(r *http.Request, tenant domain.Tenant) domain.Fingerprint {
	fp := Extract(r, tenant.ID, h.TrustXFF)

	var body eventBody
	if r.Body != nil {
		// body malformado ou vazio não é erro: fica o metadado da requisição
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Path != "" {
		fp.Path = body.Path
	}
	if body.Method != "" {
		fp.Method = body.Method
	}
	if body.UserAgent != "" {
		fp.UserAgent = body.UserAgent
	}
	if body.AcceptLanguage != "" {
		fp.AcceptLanguage = body.AcceptLanguage
	}
	return fp
}

func (h *Handlers) record(r *http.Request, tenant domain.Tenant, fp domain.Fingerprint) []domain.Fingerprint {
	ctx := r.Context()
	if err := h.Ledger.Record(ctx, tenant.ID, fp.IP, fp); err != nil {
		h.Logger.Warn().Err(err).Str("tenant", tenant.ID).Str("ip", fp.IP).Msg("ledger record failed")
	}
	events, err := h.Ledger.Read(ctx, tenant.ID, fp.IP)
	if err != nil {
		h.Logger.Warn().Err(err).Str("tenant", tenant.ID).Str("ip", fp.IP).Msg("ledger read failed")
		return nil
	}
	return events
}

// Event (POST /v1/event) registra um evento para análise posterior.
func (h *Handlers) Event(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing API Key", "")
		return
	}

	fp := h.ingest(r, tenant)
	events := h.record(r, tenant, fp)

	writeJSON(w, http.StatusOK, struct {
		OK          bool   `json:"ok"`
		IP          string `json:"ip"`
		Tenant      string `json:"tenant"`
		StoredForIP int    `json:"stored_for_ip"`
	}{true, fp.IP, tenant.ID, len(events)})
}

// Evaluate (POST /v1/evaluate) ingere, computa stats e devolve a decisão
// local numa chamada só. Sem reputação e sem cache: isso é papel do gate
// em /proxy.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing API Key", "")
		return
	}

	fp := h.ingest(r, tenant)
	events := h.record(r, tenant, fp)

	stats := domain.ComputeStats(events)
	decision := h.policy().Decide(stats)

	writeJSON(w, http.StatusOK, struct {
		OK     bool   `json:"ok"`
		IP     string `json:"ip"`
		Tenant string `json:"tenant"`
		domain.Decision
		Stats domain.Stats `json:"stats"`
	}{true, fp.IP, tenant.ID, decision, stats})
}

func (h *Handlers) debugIP(r *http.Request) string {
	if q := strings.TrimSpace(r.URL.Query().Get("ip")); q != "" {
		return q
	}
	return ClientIP(r, h.TrustXFF)
}

// EventStats (GET /v1/event/stats) devolve a janela atual de um IP
// (debug; aceita ?ip= para inspecionar outra chave).
func (h *Handlers) EventStats(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing API Key", "")
		return
	}

	ip := h.debugIP(r)
	events, err := h.Ledger.Read(r.Context(), tenant.ID, ip)
	if err != nil {
		h.Logger.Warn().Err(err).Str("tenant", tenant.ID).Str("ip", ip).Msg("ledger read failed")
	}

	writeJSON(w, http.StatusOK, struct {
		OK                bool   `json:"ok"`
		IP                string `json:"ip"`
		Tenant            string `json:"tenant"`
		TotalEventsStored int    `json:"total_events_stored"`
		domain.Stats
	}{true, ip, tenant.ID, len(events), domain.ComputeStats(events)})
}

// EventDecision (GET /v1/event/decision) devolve a decisão local corrente de um IP
// (debug; não grava evento, não toca reputação).
func (h *Handlers) EventDecision(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing API Key", "")
		return
	}

	ip := h.debugIP(r)
	events, err := h.Ledger.Read(r.Context(), tenant.ID, ip)
	if err != nil {
		h.Logger.Warn().Err(err).Str("tenant", tenant.ID).Str("ip", ip).Msg("ledger read failed")
	}

	stats := domain.ComputeStats(events)
	decision := h.policy().Decide(stats)

	writeJSON(w, http.StatusOK, struct {
		OK     bool   `json:"ok"`
		IP     string `json:"ip"`
		Tenant string `json:"tenant"`
		domain.Decision
		Stats domain.Stats `json:"stats"`
	}{true, ip, tenant.ID, decision, stats})
}

type tenantBody struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"apiKey"`
	Origin string `json:"origin"`
}

type tenantView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Origin string `json:"origin"`
}

// CreateTenant (POST /v1/tenants). Campo faltando é 400, duplicata é 409.
// A api key nunca volta na resposta.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var body tenantBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return
	}
	if body.ID == "" || body.Name == "" || body.APIKey == "" || body.Origin == "" {
		writeError(w, http.StatusBadRequest, "Missing required tenant fields", "")
		return
	}

	err := h.Tenants.Add(r.Context(), domain.Tenant{
		ID: body.ID, Name: body.Name, APIKey: body.APIKey, Origin: body.Origin,
	})
	if errors.Is(err, domain.ErrDuplicateTenant) {
		writeError(w, http.StatusConflict, "Tenant already exists", "")
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Str("tenant", body.ID).Msg("tenant create failed")
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		OK     bool       `json:"ok"`
		Tenant tenantView `json:"tenant"`
	}{true, tenantView{ID: body.ID, Name: body.Name, Origin: body.Origin}})
}

// ListTenants (GET /v1/tenants) expõe id, name e origin apenas.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Tenants.List(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("tenant list failed")
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}

	views := make([]tenantView, 0, len(tenants))
	for _, t := range tenants {
		views = append(views, tenantView{ID: t.ID, Name: t.Name, Origin: t.Origin})
	}
	writeJSON(w, http.StatusOK, struct {
		Tenants []tenantView `json:"tenants"`
	}{views})
}
