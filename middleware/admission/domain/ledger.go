package domain

import "context"

// DefaultRetentionCap é o limite de eventos retidos por chave (tenant, ip).
const DefaultRetentionCap = 200

// EventLedger guarda o histórico recente de fingerprints por (tenant, ip).
//
// Invariantes que toda implementação precisa honrar:
//
//   - isolamento de tenant: eventos gravados sob (T1, A) nunca aparecem em
//     uma leitura sob (T2, A), mesmo sendo o mesmo IP;
//   - memória limitada por chave: ao passar do cap, os mais antigos são
//     descartados (semântica de ring buffer por ordem de inserção, não LRU);
//   - append+trim atômicos sob concorrência na mesma chave (entrada perdida
//     só como artefato de eviction, nunca corrompida ou duplicada);
//   - chave desconhecida não é erro: Read devolve sequência vazia.
//
// Read devolve os eventos do mais antigo para o mais novo.
type EventLedger interface {
	Record(ctx context.Context, tenantID, ip string, fp Fingerprint) error
	Read(ctx context.Context, tenantID, ip string) ([]Fingerprint, error)
}
