package domain

// Offer completeness is a pure predicate over the current field values.
var offerFields = []struct {
	name    string
	present func(*Transaction) bool
}{
	{"terms.price", func(tx *Transaction) bool { return tx.Terms != nil && tx.Terms.Price.IsPositive() }},
	{"terms.closingDate", func(tx *Transaction) bool { return tx.Terms != nil && tx.Terms.ClosingDate != "" }},
	{"buyer.name", func(tx *Transaction) bool { return tx.Buyer != nil && tx.Buyer.Name != "" }},
	{"seller.name", func(tx *Transaction) bool { return tx.Seller != nil && tx.Seller.Name != "" }},
	{"vessel.make", func(tx *Transaction) bool { return tx.Vessel != nil && tx.Vessel.Make != "" }},
	{"terms.depositMethod", func(tx *Transaction) bool { return tx.Terms != nil && tx.Terms.DepositMethod != "" }},
}

// MissingOfferFields returns the paths that must be filled before an offer can be generated.
func MissingOfferFields(tx *Transaction) []string {
	var missing []string
	for _, f := range offerFields {
		if tx == nil || !f.present(tx) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func CanGenerateOffer(tx *Transaction) bool {
	return tx != nil && len(MissingOfferFields(tx)) == 0
}

var coreDiligence = []string{"survey", "seaTrial", "titleSearch", "insurance"}

func diligenceDone(d *Diligence) int {
	if d == nil {
		return 0
	}
	done := 0
	for _, ok := range []bool{d.Survey, d.SeaTrial, d.TitleSearch, d.Insurance} {
		if ok {
			done++
		}
	}
	return done
}

// Readiness is the closing checklist. Only RequiredSigned gates the closing action;
// the other items are informational.
type Readiness struct {
	RequiredSigned   int      `json:"requiredSigned"`
	RequiredTotal    int      `json:"requiredTotal"`
	MissingRequired  []string `json:"missingRequired"`
	DiligenceDone    int      `json:"diligenceDone"`
	DiligenceTotal   int      `json:"diligenceTotal"`
	DepositSent      bool     `json:"depositSent"`
	DepositConfirmed bool     `json:"depositConfirmed"`
	BuyerComplete    bool     `json:"buyerComplete"`
	SellerComplete   bool     `json:"sellerComplete"`
	CanClose         bool     `json:"canClose"`
	Closed           bool     `json:"closed"`
}

// EvaluateReadiness derives the closing checklist from the record.
func EvaluateReadiness(tx *Transaction) Readiness {
	r := Readiness{DiligenceTotal: len(coreDiligence), MissingRequired: []string{}}
	if tx == nil {
		r.RequiredTotal = len(RequiredDocuments())
		return r
	}
	for _, def := range RequiredDocuments() {
		r.RequiredTotal++
		if tx.IsSigned(def.ID) {
			r.RequiredSigned++
			continue
		}
		r.MissingRequired = append(r.MissingRequired, def.ID)
	}
	r.DiligenceDone = diligenceDone(tx.Diligence)
	if tx.Diligence != nil {
		r.DepositSent = tx.Diligence.DepositSent
		r.DepositConfirmed = tx.Diligence.DepositReceived
	}
	r.BuyerComplete = partyComplete(tx.Buyer)
	r.SellerComplete = partyComplete(tx.Seller)
	r.Closed = tx.IsClosed()
	r.CanClose = !r.Closed && r.RequiredSigned == r.RequiredTotal
	return r
}
