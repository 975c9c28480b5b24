package domain

type Category string

const (
	CategoryCore        Category = "core"
	CategoryEscrow      Category = "escrow"
	CategoryDiligence   Category = "diligence"
	CategoryNegotiation Category = "negotiation"
	CategoryClosing     Category = "closing"
	CategoryFinance     Category = "finance"
	CategoryInsurance   Category = "insurance"
	CategoryPlatform    Category = "platform"
)

var categoryLabels = map[Category]string{
	CategoryCore:        "Core Transaction",
	CategoryEscrow:      "Escrow & Liens",
	CategoryDiligence:   "Due Diligence",
	CategoryNegotiation: "Negotiation",
	CategoryClosing:     "Closing",
	CategoryFinance:     "Finance",
	CategoryInsurance:   "Insurance",
	CategoryPlatform:    "Platform",
}

// Categories lists document categories in display order.
func Categories() []Category {
	return []Category{
		CategoryCore, CategoryEscrow, CategoryDiligence, CategoryNegotiation,
		CategoryClosing, CategoryFinance, CategoryInsurance, CategoryPlatform,
	}
}

func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// DocumentDef describes one entry of the fixed document catalog.
type DocumentDef struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Required bool     `json:"required"`
}

var catalog = []DocumentDef{
	{ID: "purchase-agreement", Name: "Purchase & Sale Agreement", Category: CategoryCore, Required: true},
	{ID: "bill-of-sale", Name: "Bill of Sale", Category: CategoryCore, Required: true},
	{ID: "closing-statement", Name: "Closing Statement", Category: CategoryCore, Required: true},
	{ID: "title-transfer", Name: "Title Transfer", Category: CategoryCore, Required: true},
	{ID: "escrow-instructions", Name: "Escrow Instructions", Category: CategoryEscrow},
	{ID: "lien-release", Name: "Lien Release", Category: CategoryEscrow},
	{ID: "due-diligence-report", Name: "Due Diligence Report", Category: CategoryDiligence},
	{ID: "vessel-acceptance", Name: "Vessel Acceptance", Category: CategoryDiligence},
	{ID: "vessel-rejection", Name: "Vessel Rejection Notice", Category: CategoryDiligence},
	{ID: "counter-offer", Name: "Counter Offer", Category: CategoryNegotiation},
	{ID: "conditional-acceptance", Name: "Conditional Acceptance", Category: CategoryNegotiation},
	{ID: "delivery-receipt", Name: "Delivery Receipt", Category: CategoryClosing},
	{ID: "seller-wire", Name: "Seller Wire Instructions", Category: CategoryClosing},
	{ID: "platform-terms", Name: "Platform Terms of Service", Category: CategoryPlatform, Required: true},
	{ID: "commitment-letter", Name: "Commitment Letter", Category: CategoryFinance},
	{ID: "damage-disclosure", Name: "Damage Disclosure", Category: CategoryDiligence},
	{ID: "loan-payoff", Name: "Loan Payoff Letter", Category: CategoryFinance},
	{ID: "survey-compliance", Name: "Survey Compliance Letter", Category: CategoryDiligence},
	{ID: "insurance-binder", Name: "Insurance Binder", Category: CategoryInsurance},
	{ID: "finance-insurance", Name: "Finance Insurance Binder", Category: CategoryInsurance},
	{ID: "insurance-to-finance", Name: "Insurance to Finance Letter", Category: CategoryInsurance},
}

// Catalog returns a copy of the fixed document catalog in display order.
func Catalog() []DocumentDef {
	out := make([]DocumentDef, len(catalog))
	copy(out, catalog)
	return out
}

// LookupDocument finds a catalog entry by id.
func LookupDocument(id string) (DocumentDef, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return DocumentDef{}, false
}

// RequiredDocuments returns the entries whose signature gates closing.
func RequiredDocuments() []DocumentDef {
	var out []DocumentDef
	for _, def := range catalog {
		if def.Required {
			out = append(out, def)
		}
	}
	return out
}

func requiredSigned(tx *Transaction) (signed, total int) {
	for _, def := range catalog {
		if !def.Required {
			continue
		}
		total++
		if tx.IsSigned(def.ID) {
			signed++
		}
	}
	return signed, total
}
