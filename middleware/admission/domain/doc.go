// Package domain define contratos e tipos de domínio para o controle de
// admissão: fingerprint, ledger de eventos, estatísticas de janela,
// decisão, reputação e cache de veredito.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de
// negócio de detalhes de infraestrutura.
package domain
