package domain

// EscrowStatus is totally ordered: not-started < opened < funded < conditions < released.
type EscrowStatus string

const (
	EscrowNotStarted EscrowStatus = "not-started"
	EscrowOpened     EscrowStatus = "opened"
	EscrowFunded     EscrowStatus = "funded"
	EscrowConditions EscrowStatus = "conditions"
	EscrowReleased   EscrowStatus = "released"
)

var escrowOrder = []EscrowStatus{EscrowNotStarted, EscrowOpened, EscrowFunded, EscrowConditions, EscrowReleased}

var escrowLabels = map[EscrowStatus]string{
	EscrowNotStarted: "Not Started",
	EscrowOpened:     "Escrow Opened",
	EscrowFunded:     "Funds Deposited",
	EscrowConditions: "Conditions Satisfied",
	EscrowReleased:   "Funds Released",
}

// WireFraudNotice accompanies every display of wire instructions.
const WireFraudNotice = "WIRE FRAUD WARNING: Always verify wire instructions by calling the escrow agent at an independently " +
	"verified phone number before sending funds. Never trust changed instructions received by email or text message."

func EscrowStages() []EscrowStatus {
	out := make([]EscrowStatus, len(escrowOrder))
	copy(out, escrowOrder)
	return out
}

// Index returns the position of s in the stage order, or -1 for unknown values.
func (s EscrowStatus) Index() int {
	for i, stage := range escrowOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

func (s EscrowStatus) Valid() bool { return s.Index() >= 0 }

func (s EscrowStatus) Label() string { return escrowLabels[s] }

// StageDone reports whether stage is complete for an escrow sitting at current.
func StageDone(current, stage EscrowStatus) bool {
	ci, si := current.Index(), stage.Index()
	if ci < 0 || si < 0 {
		return false
	}
	return ci >= si
}
