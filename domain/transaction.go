package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SchemaVersion is the shape version written with every persisted record.
const SchemaVersion = 2

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool { return r == RoleBuyer || r == RoleSeller }

type Status string

const (
	StatusDraft  Status = "draft"
	StatusClosed Status = "closed"
)

func (s Status) Valid() bool { return s == StatusDraft || s == StatusClosed }

type VesselType string

const (
	VesselPowerboat VesselType = "powerboat"
	VesselSailboat  VesselType = "sailboat"
	VesselYacht     VesselType = "yacht"
	VesselPontoon   VesselType = "pontoon"
	VesselJetski    VesselType = "jetski"
	VesselOther     VesselType = "other"
)

func (t VesselType) Valid() bool {
	switch t {
	case VesselPowerboat, VesselSailboat, VesselYacht, VesselPontoon, VesselJetski, VesselOther:
		return true
	}
	return false
}

type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
)

func (c Condition) Valid() bool {
	return c == ConditionNew || c == ConditionUsed || c == ConditionRefurbished
}

// DepositMethod is how the earnest money moves. The empty value means not chosen yet.
type DepositMethod string

const (
	DepositEscrow DepositMethod = "escrow"
	DepositWire   DepositMethod = "wire"
	DepositZelle  DepositMethod = "zelle"
	DepositCash   DepositMethod = "cash"
	DepositNone   DepositMethod = "none"
)

func (m DepositMethod) Valid() bool {
	switch m {
	case "", DepositEscrow, DepositWire, DepositZelle, DepositCash, DepositNone:
		return true
	}
	return false
}

type Financing string

const (
	FinancingCash     Financing = "cash"
	FinancingFinanced Financing = "financed"
	FinancingOwner    Financing = "owner"
)

func (f Financing) Valid() bool {
	return f == FinancingCash || f == FinancingFinanced || f == FinancingOwner
}

type OfferStatus string

const (
	OfferDraft     OfferStatus = "draft"
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferCountered OfferStatus = "countered"
	OfferRejected  OfferStatus = "rejected"
)

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferDraft, OfferPending, OfferAccepted, OfferCountered, OfferRejected:
		return true
	}
	return false
}

type Plan string

const (
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

func (p Plan) Valid() bool { return p == PlanStandard || p == PlanPremium }

// Transaction is the single aggregate describing one vessel sale from draft to close.
type Transaction struct {
	ID                  string                     `json:"id"`
	SchemaVersion       int                        `json:"schemaVersion"`
	Version             int64                      `json:"version"`
	Role                Role                       `json:"role"`
	CurrentStep         int                        `json:"currentStep"`
	Status              Status                     `json:"status"`
	CreatedAt           time.Time                  `json:"createdAt"`
	UpdatedAt           time.Time                  `json:"updatedAt"`
	ClosedAt            *time.Time                 `json:"closedAt,omitempty"`
	Vessel              *Vessel                    `json:"vessel"`
	Buyer               *Party                     `json:"buyer"`
	Seller              *Party                     `json:"seller"`
	Terms               *Terms                     `json:"terms"`
	Offer               *Offer                     `json:"offer"`
	DepositVerification *DepositVerification       `json:"depositVerification"`
	Escrow              *Escrow                    `json:"escrow"`
	Diligence           *Diligence                 `json:"diligence"`
	Documents           map[string]json.RawMessage `json:"documents"`
	Signatures          map[string]Signature       `json:"signatures"`
}

type Vessel struct {
	Make        string          `json:"make"`
	Model       string          `json:"model"`
	Year        int             `json:"year,omitempty"`
	Length      decimal.Decimal `json:"length"`
	HullID      string          `json:"hullId"`
	Location    string          `json:"location"`
	Type        VesselType      `json:"type"`
	Condition   Condition       `json:"condition"`
	Description string          `json:"description"`
}

// Party holds the contact block shared by buyer and seller.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

type Terms struct {
	Price          decimal.Decimal `json:"price"`
	Deposit        decimal.Decimal `json:"deposit"`
	DepositMethod  DepositMethod   `json:"depositMethod"`
	ClosingDate    string          `json:"closingDate"`
	SurveyDeadline string          `json:"surveyDeadline"`
	Financing      Financing       `json:"financing"`
	Contingencies  []string        `json:"contingencies"`
}

type Offer struct {
	Generated    bool            `json:"generated"`
	GeneratedAt  *time.Time      `json:"generatedAt,omitempty"`
	Status       OfferStatus     `json:"status"`
	Price        decimal.Decimal `json:"price"`
	Notes        string          `json:"notes"`
	HasPaid      bool            `json:"hasPaid"`
	SelectedPlan Plan            `json:"selectedPlan"`
	PaidAt       *time.Time      `json:"paidAt,omitempty"`
	PaymentRef   string          `json:"paymentRef,omitempty"`
	History      []OfferVersion  `json:"history"`
}

// OfferVersion is a prior offer snapshot kept when the offer is regenerated.
type OfferVersion struct {
	At    time.Time       `json:"at"`
	Price decimal.Decimal `json:"price"`
}

type DepositVerification struct {
	Method            DepositMethod   `json:"method"`
	Reference         string          `json:"reference"`
	Amount            decimal.Decimal `json:"amount"`
	Date              string          `json:"date"`
	ConfirmedByBuyer  bool            `json:"confirmedByBuyer"`
	ConfirmedBySeller bool            `json:"confirmedBySeller"`
	Notes             string          `json:"notes"`
}

type Escrow struct {
	AgentName        string       `json:"agentName"`
	Company          string       `json:"company"`
	Email            string       `json:"email"`
	Phone            string       `json:"phone"`
	AccountNumber    string       `json:"accountNumber"`
	BankName         string       `json:"bankName"`
	RoutingNumber    string       `json:"routingNumber"`
	WireInstructions string       `json:"wireInstructions"`
	Status           EscrowStatus `json:"status"`
	Funded           bool         `json:"funded"`
	ConditionsMet    bool         `json:"conditionsMet"`
	Released         bool         `json:"released"`
}

type Diligence struct {
	Survey          bool `json:"survey"`
	SeaTrial        bool `json:"seaTrial"`
	TitleSearch     bool `json:"titleSearch"`
	Insurance       bool `json:"insurance"`
	MechInspection  bool `json:"mechInspection"`
	HullInspection  bool `json:"hullInspection"`
	DepositSent     bool `json:"depositSent"`
	DepositReceived bool `json:"depositReceived"`
}

// Signature records an applied e-signature for one document.
type Signature struct {
	Signed bool      `json:"signed"`
	Date   time.Time `json:"date"`
	Signer Role      `json:"signer"`
	Mode   string    `json:"mode,omitempty"`
}

// New returns an empty draft transaction for the given perspective.
func New(role Role, now time.Time) (*Transaction, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	now = now.UTC()
	return &Transaction{
		ID:            uuid.NewString(),
		SchemaVersion: SchemaVersion,
		Role:          role,
		CurrentStep:   0,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
		Vessel:        &Vessel{Type: VesselPowerboat, Condition: ConditionUsed},
		Buyer:         &Party{},
		Seller:        &Party{},
		Terms: &Terms{
			DepositMethod: DepositEscrow,
			Financing:     FinancingCash,
			Contingencies: []string{},
		},
		Offer:               &Offer{Status: OfferDraft, SelectedPlan: PlanStandard, History: []OfferVersion{}},
		DepositVerification: &DepositVerification{},
		Escrow:              &Escrow{Status: EscrowNotStarted},
		Diligence:           &Diligence{},
		Documents:           map[string]json.RawMessage{},
		Signatures:          map[string]Signature{},
	}, nil
}

func (t *Transaction) IsClosed() bool {
	return t != nil && t.Status == StatusClosed
}

// IsSigned reports whether docID carries an applied signature.
func (t *Transaction) IsSigned(docID string) bool {
	if t == nil {
		return false
	}
	sig, ok := t.Signatures[docID]
	return ok && sig.Signed
}
