// utilitários pequenos para respostas JSON e formatação de headers.
// Mantém a serialização num lugar só e evita fmt para números simples.

package admission

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, errMsg, detail string) {
	writeJSON(w, status, errorBody{Error: errMsg, Message: detail})
}
