package domain

// Step is one stage of the linear wizard.
type Step struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

const (
	StepVessel = iota
	StepParties
	StepTerms
	StepDiligence
	StepDocuments
	StepClosing
)

var steps = []Step{
	{Index: StepVessel, ID: "vessel", Label: "Vessel Details"},
	{Index: StepParties, ID: "parties", Label: "Parties"},
	{Index: StepTerms, ID: "terms", Label: "Terms & Price"},
	{Index: StepDiligence, ID: "diligence", Label: "Due Diligence"},
	{Index: StepDocuments, ID: "documents", Label: "Documents"},
	{Index: StepClosing, ID: "closing", Label: "Close Deal"},
}

// Steps returns the ordered step sequence.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

func StepCount() int { return len(steps) }

// ClampStep maps any requested index onto the valid range.
func ClampStep(n int) int {
	if n < 0 {
		return 0
	}
	if n > len(steps)-1 {
		return len(steps) - 1
	}
	return n
}

// StepState is the soft readiness indicator shown next to a step. It never blocks navigation.
type StepState struct {
	Step
	Ready   bool `json:"ready"`
	Current bool `json:"current"`
	Visited bool `json:"visited"`
}

// StepStates evaluates the readiness indicator of every step.
func StepStates(tx *Transaction) []StepState {
	out := make([]StepState, 0, len(steps))
	for _, s := range steps {
		out = append(out, StepState{
			Step:    s,
			Ready:   stepReady(tx, s.Index),
			Current: tx != nil && tx.CurrentStep == s.Index,
			Visited: tx != nil && s.Index < tx.CurrentStep,
		})
	}
	return out
}

func stepReady(tx *Transaction, index int) bool {
	if tx == nil {
		return false
	}
	switch index {
	case StepVessel:
		v := tx.Vessel
		return v != nil && v.Make != "" && v.Model != "" && v.Year > 0
	case StepParties:
		return partyComplete(tx.Buyer) && partyComplete(tx.Seller)
	case StepTerms:
		t := tx.Terms
		return t != nil && t.Price.IsPositive() && t.ClosingDate != "" && t.DepositMethod != ""
	case StepDiligence:
		return diligenceDone(tx.Diligence) == len(coreDiligence)
	case StepDocuments:
		signed, total := requiredSigned(tx)
		return signed == total
	case StepClosing:
		return tx.IsClosed()
	}
	return false
}

func partyComplete(p *Party) bool {
	return p != nil && p.Name != "" && p.Email != ""
}
