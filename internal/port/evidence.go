package port

import "lawrag/internal/domain"

// DecisionLogger records audit evidence for every decision a
// collaborator makes. Implementations must never panic past this
// boundary; a failed write is reported through the return value only.
type DecisionLogger interface {
	LogDecision(record domain.EvidenceRecord) error
}
