// Package application contém os casos de uso do controle de admissão.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Gate.Admit(ctx, tenantID, fp) roda o passe completo de admissão e
// retorna um Outcome (ALLOW/CHALLENGE/BLOCK + evidências).
package application
