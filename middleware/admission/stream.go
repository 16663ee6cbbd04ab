package admission

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DecisionEvent é o que o feed publica para cada passe de admissão.
type DecisionEvent struct {
	ID          string         `json:"id"`
	Tenant      string         `json:"tenant"`
	IP          string         `json:"ip"`
	Action      domain.Verdict `json:"action"`
	Score       int            `json:"score"`
	Reasons     []string       `json:"reasons"`
	GlobalScore int            `json:"global_score"`
	FromCache   bool           `json:"from_cache"`
	At          time.Time      `json:"at"`
}

// Feed transmite decisões ao vivo via websocket (GET /v1/stream).
//
// Entrega é best-effort: assinante lento perde eventos (o canal dele
// estoura e o evento é descartado), nunca atrasa o passe de admissão.
type Feed struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu   sync.Mutex
	subs map[string]chan []byte
}

func NewFeed(logger zerolog.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			// feed de operação, sem estado de sessão: qualquer origin serve
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		subs:   make(map[string]chan []byte),
	}
}

// Publish tem a assinatura de Gate.OnOutcome.
func (f *Feed) Publish(tenantID string, fp domain.Fingerprint, out application.Outcome) {
	evt := DecisionEvent{
		ID:          uuid.NewString(),
		Tenant:      tenantID,
		IP:          fp.IP,
		Action:      out.Action,
		Score:       out.Decision.Score,
		Reasons:     out.Decision.Reasons,
		GlobalScore: out.GlobalScore,
		FromCache:   out.FromCache,
		At:          time.Now(),
	}
	msg, err := json.Marshal(evt)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- msg:
		default:
			// assinante lento: descarta
		}
	}
}

// Subscribers devolve o número de conexões ativas.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	ch := make(chan []byte, 16)

	f.mu.Lock()
	f.subs[id] = ch
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		_ = conn.Close()
	}()

	// read pump só para detectar fechamento do lado do cliente
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
