package domain

import "time"

// Stats é um value object derivado do histórico de eventos.
// Recalculado a cada avaliação; não carrega identidade.
//
// RPM é aproximado direto pela contagem dos últimos 60s (sem escalar).
type Stats struct {
	Count10s       int `json:"count_10s"`
	Count60s       int `json:"count_60s"`
	RPM            int `json:"rpm"`
	UniquePaths60s int `json:"unique_paths_60s"`
}

const (
	burstWindow = 10 * time.Second
	rateWindow  = 60 * time.Second
)

// ComputeStats deriva as métricas de comportamento do histórico, usando o
// relógio atual como referência das janelas.
func ComputeStats(events []Fingerprint) Stats {
	return ComputeStatsAt(events, time.Now())
}

// ComputeStatsAt é a forma determinística: função pura de (events, now).
//
// Eventos sem timestamp (zero) ficam fora de todas as janelas e nunca
// viram erro.
func ComputeStatsAt(events []Fingerprint, now time.Time) Stats {
	cutoff10s := now.Add(-burstWindow)
	cutoff60s := now.Add(-rateWindow)

	stats := Stats{}
	uniquePaths := make(map[string]struct{})

	for _, evt := range events {
		if evt.Timestamp.IsZero() {
			continue
		}
		if evt.Timestamp.Before(cutoff60s) {
			continue
		}
		stats.Count60s++
		uniquePaths[evt.Path] = struct{}{}
		if !evt.Timestamp.Before(cutoff10s) {
			stats.Count10s++
		}
	}

	stats.RPM = stats.Count60s
	stats.UniquePaths60s = len(uniquePaths)
	return stats
}
