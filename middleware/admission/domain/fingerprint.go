package domain

import "time"

// UnknownIP é o sentinela usado quando nenhuma origem de IP está disponível.
const UnknownIP = "unknown"

// Fingerprint captura os metadados de uma requisição, do jeito que um proxy
// HTTP consegue enxergar (sem TLS/JA3, sem execução de browser).
//
// É imutável depois de criado. Timestamp é atribuído no momento da captura
// pelo servidor; serve como indicador de recência, não como relógio global.
type Fingerprint struct {
	IP             string
	TenantID       string
	Path           string
	Method         string
	UserAgent      string
	Referer        string
	AcceptLanguage string
	PlatformHint   string
	Timestamp      time.Time
}
