package admission

import (
	"net"
	"net/http"
	"strings"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Headers consumidos na extração de fingerprint.
const (
	headerForwardedFor   = "X-Forwarded-For"
	headerUserAgent      = "User-Agent"
	headerReferer        = "Referer"
	headerAcceptLanguage = "Accept-Language"
	headerPlatformHint   = "Sec-Ch-Ua-Platform"
)

// ClientIP resolve o IP do cliente na ordem: primeiro token do
// X-Forwarded-For (quando confiável e presente), host do RemoteAddr,
// sentinela "unknown".
func ClientIP(r *http.Request, trustXFF bool) string {
	if trustXFF {
		if xff := r.Header.Get(headerForwardedFor); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				ip := strings.TrimSpace(parts[0])
				if ip != "" {
					return ip
				}
			}
		}
	}

	// fallback: RemoteAddr
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return domain.UnknownIP
}

// Extract monta o Fingerprint da requisição. Nunca falha: campo ausente
// vira string vazia. O timestamp é sempre atribuído aqui, pelo relógio do
// servidor. Timestamps de cliente não entram nas janelas.
func Extract(r *http.Request, tenantID string, trustXFF bool) domain.Fingerprint {
	return domain.Fingerprint{
		IP:             ClientIP(r, trustXFF),
		TenantID:       tenantID,
		Path:           r.URL.Path,
		Method:         r.Method,
		UserAgent:      r.Header.Get(headerUserAgent),
		Referer:        r.Header.Get(headerReferer),
		AcceptLanguage: r.Header.Get(headerAcceptLanguage),
		PlatformHint:   r.Header.Get(headerPlatformHint),
		Timestamp:      time.Now(),
	}
}
