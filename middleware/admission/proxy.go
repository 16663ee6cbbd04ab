package admission

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"

	"github.com/rs/zerolog"
)

// Proxy roda o gate completo e, em ALLOW, encaminha a requisição ao origin
// do tenant (proxy reverso), preservando método, path, body e headers.
//
// CHALLENGE responde 401 e BLOCK responde 403, ambos com o payload da
// decisão; origin inalcançável vira 502 sem retry.
type Proxy struct {
	Gate     *application.Gate
	TrustXFF bool
	// StripPrefix é removido do path antes do encaminhamento (ex: "/proxy").
	StripPrefix string
	Logger      zerolog.Logger

	mu      sync.Mutex
	proxies map[string]*httputil.ReverseProxy
}

type rejectionBody struct {
	OK          bool           `json:"ok"`
	Action      domain.Verdict `json:"action"`
	Tenant      string         `json:"tenant"`
	IP          string         `json:"ip"`
	Score       int            `json:"score"`
	Reasons     []string       `json:"reasons"`
	Stats       domain.Stats   `json:"stats"`
	GlobalScore int            `json:"global_score"`
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing API Key", "")
		return
	}
	if tenant.Origin == "" {
		// tenant cadastrado sem origin: erro de configuração, não de tráfego
		writeError(w, http.StatusInternalServerError, "Tenant origin not configured", "")
		return
	}

	fp := Extract(r, tenant.ID, p.TrustXFF)

	// o passe roda até o fim mesmo se o cliente desistir no meio: as
	// escritas (ledger, increment, cache de BLOCK) não podem ficar pela
	// metade. Cada chamada interna continua limitada pelo CallTimeout.
	out := p.Gate.Admit(context.WithoutCancel(r.Context()), tenant.ID, fp)

	if out.Action != domain.VerdictAllow {
		status := http.StatusForbidden
		if out.Action == domain.VerdictChallenge {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, rejectionBody{
			Action:      out.Action,
			Tenant:      tenant.ID,
			IP:          fp.IP,
			Score:       out.Decision.Score,
			Reasons:     out.Decision.Reasons,
			Stats:       out.Stats,
			GlobalScore: out.GlobalScore,
		})
		return
	}

	proxy := p.proxyFor(tenant.Origin)
	if proxy == nil {
		writeError(w, http.StatusBadGateway, "Bad Gateway", "")
		return
	}

	if p.StripPrefix != "" {
		http.StripPrefix(p.StripPrefix, proxy).ServeHTTP(w, r)
		return
	}
	proxy.ServeHTTP(w, r)
}

func (p *Proxy) proxyFor(origin string) *httputil.ReverseProxy {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.proxies == nil {
		p.proxies = make(map[string]*httputil.ReverseProxy)
	}
	if proxy, ok := p.proxies[origin]; ok {
		return proxy
	}

	target, err := url.Parse(origin)
	if err != nil || target.Scheme == "" || target.Host == "" {
		p.Logger.Error().Str("origin", origin).Msg("invalid tenant origin url")
		return nil
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		p.Logger.Warn().Err(err).Str("origin", origin).Msg("proxy error")
		writeError(w, http.StatusBadGateway, "Bad Gateway", "")
	}
	p.proxies[origin] = proxy
	return proxy
}
