package admission

import (
	"context"
	"errors"
	"net/http"

	"admission-gateway/middleware/admission/domain"

	"github.com/rs/zerolog"
)

// HeaderAPIKey é o header de autenticação de tenant.
const HeaderAPIKey = "x-api-key"

type ctxKey int

const tenantCtxKey ctxKey = iota

// TenantFromContext devolve o tenant resolvido pelo Authenticate.
func TenantFromContext(ctx context.Context) (domain.Tenant, bool) {
	t, ok := ctx.Value(tenantCtxKey).(domain.Tenant)
	return t, ok
}

// Authenticate resolve o tenant pela x-api-key e injeta no contexto.
//
// Ausente → 401 "Missing API Key"; desconhecida → 401 "Invalid API Key".
// Erro de cadastro (ex: banco fora) é erro de autenticação mesmo: sem
// tenant não há passe de admissão possível.
func Authenticate(store domain.TenantStore, logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(HeaderAPIKey)
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "Missing API Key",
					"Please provide your key in the 'x-api-key' header.")
				return
			}

			tenant, err := store.GetByAPIKey(r.Context(), apiKey)
			if err != nil {
				if !errors.Is(err, domain.ErrTenantNotFound) {
					logger.Warn().Err(err).Msg("tenant lookup failed")
				}
				writeError(w, http.StatusUnauthorized, "Invalid API Key",
					"The provided api key does not match a registered tenant.")
				return
			}

			ctx := context.WithValue(r.Context(), tenantCtxKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
