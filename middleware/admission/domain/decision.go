package domain

// Verdict é o resultado da avaliação de uma requisição.
type Verdict string

const (
	VerdictAllow     Verdict = "ALLOW"
	VerdictChallenge Verdict = "CHALLENGE"
	VerdictBlock     Verdict = "BLOCK"
)

// Reason codes emitidos pelas famílias de regra, na ordem de avaliação.
const (
	ReasonVeryHighRPM         = "very_high_rpm"
	ReasonHighRPM             = "high_rpm"
	ReasonBurst10s            = "burst_10s"
	ReasonElevatedBurst10s    = "elevated_burst_10s"
	ReasonVeryManyUniquePaths = "very_many_unique_paths"
	ReasonManyUniquePaths     = "many_unique_paths"
)

// Decision é função pura de Stats (e, no gate, de reputação global).
type Decision struct {
	Verdict Verdict  `json:"verdict"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Policy controla os cortes de score → veredito. As faixas de cada família
// de regra são parte do contrato e não variam; só os cortes finais são
// configuráveis.
type Policy struct {
	// BlockScore: score >= BlockScore → BLOCK.
	BlockScore int
	// ChallengeScore: ChallengeScore <= score < BlockScore → CHALLENGE.
	ChallengeScore int
}

// DefaultPolicy devolve os cortes de projeto (80/30).
func DefaultPolicy() Policy {
	return Policy{BlockScore: 80, ChallengeScore: 30}
}

// Decide pontua as três famílias de regra de forma aditiva e independente
// (nenhuma família curto-circuita a outra; cada uma contribui no máximo
// uma faixa) e mapeia o total para o veredito.
func (p Policy) Decide(stats Stats) Decision {
	score := 0
	reasons := []string{}

	// taxa sustentada (60s)
	if stats.RPM >= 120 {
		score += 80
		reasons = append(reasons, ReasonVeryHighRPM)
	} else if stats.RPM >= 60 {
		score += 40
		reasons = append(reasons, ReasonHighRPM)
	}

	// rajada (10s)
	if stats.Count10s >= 30 {
		score += 40
		reasons = append(reasons, ReasonBurst10s)
	} else if stats.Count10s >= 15 {
		score += 20
		reasons = append(reasons, ReasonElevatedBurst10s)
	}

	// diversidade de paths (comportamento de crawler/scanner)
	if stats.UniquePaths60s >= 40 {
		score += 40
		reasons = append(reasons, ReasonVeryManyUniquePaths)
	} else if stats.UniquePaths60s >= 25 {
		score += 20
		reasons = append(reasons, ReasonManyUniquePaths)
	}

	verdict := VerdictAllow
	if score >= p.BlockScore {
		verdict = VerdictBlock
	} else if score >= p.ChallengeScore {
		verdict = VerdictChallenge
	}

	return Decision{Verdict: verdict, Score: score, Reasons: reasons}
}

// Decide aplica a política padrão (80/30).
func Decide(stats Stats) Decision {
	return DefaultPolicy().Decide(stats)
}
