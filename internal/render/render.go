package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/fastygo/boatclosers/domain"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

const (
	KindBespoke = "bespoke"
	KindGeneric = "generic"

	blankShort = "____"
	blankHull  = "____________"
	blankField = "________"
	blankMoney = "$________"
)

var blankName = strings.Repeat("_", 24)

var bespoke = map[string]struct{}{
	"purchase-agreement": {},
	"bill-of-sale":       {},
	"closing-statement":  {},
}

// Documents that display the escrow wire block alongside the generic body.
var wireDocuments = map[string]struct{}{
	"escrow-instructions": {},
	"seller-wire":         {},
}

// Renderer turns a document definition and a transaction snapshot into markup.
// Output depends only on its inputs: the header date is the record's creation date.
type Renderer struct {
	tmpl *template.Template
}

var usd = message.NewPrinter(language.AmericanEnglish)

func New() *Renderer {
	return &Renderer{
		tmpl: template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl")),
	}
}

// TemplateKind reports which template family renders the document.
func TemplateKind(docID string) string {
	if _, ok := bespoke[docID]; ok {
		return KindBespoke
	}
	return KindGeneric
}

func (r *Renderer) Render(def domain.DocumentDef, tx *domain.Transaction) (string, error) {
	if tx == nil {
		return "", domain.ErrNoTransaction
	}
	if def.ID == "" {
		return "", domain.ErrUnknownDocument
	}

	name := KindGeneric
	if TemplateKind(def.ID) == KindBespoke {
		name = def.ID
	}

	var buf bytes.Buffer
	buf.WriteString(`<article class="document" data-document="` + template.HTMLEscapeString(def.ID) + `">` + "\n")
	if err := r.tmpl.ExecuteTemplate(&buf, name, r.view(def, tx)); err != nil {
		return "", fmt.Errorf("render %s: %w", def.ID, err)
	}
	buf.WriteString("</article>\n")
	return buf.String(), nil
}

type view struct {
	Title          string
	Date           string
	SellerName     string
	SellerAddress  string
	BuyerName      string
	BuyerAddress   string
	Vessel         string
	HullID         string
	Length         string
	Location       string
	Price          string
	Deposit        string
	NoDeposit      bool
	DepositHolder  string
	Balance        string
	ClosingDate    string
	SurveyDeadline string
	Condition      string
	Contingencies  string
	GoverningState string
	SignatureLabel string
	Wire           *wireView
}

type wireView struct {
	AgentName     string
	Company       string
	Phone         string
	Email         string
	BankName      string
	RoutingNumber string
	AccountNumber string
	Instructions  string
	Notice        string
}

// WithSignatureLabel is used by templates that print "Seller Signature" instead of "Seller".
func (v view) WithSignatureLabel(label string) view {
	v.SignatureLabel = label
	return v
}

func (r *Renderer) view(def domain.DocumentDef, tx *domain.Transaction) view {
	vessel := tx.Vessel
	if vessel == nil {
		vessel = &domain.Vessel{}
	}
	terms := tx.Terms
	if terms == nil {
		terms = &domain.Terms{}
	}
	buyer, seller := party(tx.Buyer), party(tx.Seller)

	v := view{
		Title:          strings.ToUpper(def.Name),
		Date:           tx.CreatedAt.UTC().Format("January 2, 2006"),
		SellerName:     orBlank(seller.Name, blankName),
		SellerAddress:  orBlank(address(seller), blankName),
		BuyerName:      orBlank(buyer.Name, blankName),
		BuyerAddress:   orBlank(address(buyer), blankName),
		Vessel:         vesselLabel(vessel),
		HullID:         orBlank(vessel.HullID, blankHull),
		Length:         blankShort,
		Location:       orBlank(vessel.Location, blankField),
		Price:          r.money(terms.Price),
		Deposit:        r.money(terms.Deposit),
		DepositHolder:  depositHolder(terms.DepositMethod, tx.Escrow),
		Balance:        blankMoney,
		ClosingDate:    orBlank(terms.ClosingDate, blankField),
		SurveyDeadline: orBlank(terms.SurveyDeadline, blankField),
		Condition:      "AS-IS",
		Contingencies:  strings.Join(nonEmpty(terms.Contingencies), ", "),
		GoverningState: orBlank(seller.State, blankField),
	}
	if vessel.Length.IsPositive() {
		v.Length = vessel.Length.String()
	}
	if vessel.Condition == domain.ConditionNew {
		v.Condition = "NEW"
	}
	if terms.DepositMethod == domain.DepositNone {
		v.NoDeposit = true
		v.Deposit = "None"
	}
	if balance, ok := domain.Balance(terms); ok {
		v.Balance = r.money(balance)
	}
	if _, ok := wireDocuments[def.ID]; ok {
		v.Wire = wire(tx.Escrow)
	}
	return v
}

func wire(e *domain.Escrow) *wireView {
	if e == nil {
		e = &domain.Escrow{}
	}
	return &wireView{
		AgentName:     orBlank(e.AgentName, blankField),
		Company:       orBlank(e.Company, blankField),
		Phone:         orBlank(e.Phone, blankField),
		Email:         orBlank(e.Email, blankField),
		BankName:      orBlank(e.BankName, blankField),
		RoutingNumber: orBlank(e.RoutingNumber, blankField),
		AccountNumber: orBlank(e.AccountNumber, blankField),
		Instructions:  strings.TrimSpace(e.WireInstructions),
		Notice:        domain.WireFraudNotice,
	}
}

func depositHolder(method domain.DepositMethod, e *domain.Escrow) string {
	switch method {
	case domain.DepositEscrow:
		if e != nil && strings.TrimSpace(e.Company) != "" {
			return "Escrow Agent (" + strings.TrimSpace(e.Company) + ")"
		}
		return "Escrow Agent"
	case domain.DepositWire:
		return "Seller, via wire transfer"
	case domain.DepositZelle:
		return "Seller, via Zelle"
	case domain.DepositCash:
		return "Seller, in cash"
	case domain.DepositNone:
		return "No earnest money deposit is required"
	}
	return blankField
}

func vesselLabel(v *domain.Vessel) string {
	year := blankShort
	if v.Year > 0 {
		year = fmt.Sprintf("%d", v.Year)
	}
	return strings.Join([]string{year, orBlank(v.Make, blankShort), orBlank(v.Model, blankShort)}, " ")
}

func party(p *domain.Party) domain.Party {
	if p == nil {
		return domain.Party{}
	}
	return *p
}

func address(p domain.Party) string {
	region := strings.TrimSpace(strings.TrimSpace(p.State) + " " + strings.TrimSpace(p.Zip))
	return strings.Join(nonEmpty([]string{p.Address, p.City, region}), ", ")
}

// money formats whole dollar amounts without cents and anything else with two
// decimals. Zero is an unfilled amount.
func (r *Renderer) money(d decimal.Decimal) string {
	if d.IsZero() {
		return blankMoney
	}
	return FormatMoney(d)
}

// FormatMoney writes d as US dollars with thousands separators. Whole amounts
// have no cents; anything else is shown with two decimals.
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	opts := []number.Option{number.MaxFractionDigits(0)}
	if !d.Equal(d.Truncate(0)) {
		opts = []number.Option{number.MinFractionDigits(2), number.MaxFractionDigits(2)}
	}
	return sign + "$" + usd.Sprint(number.Decimal(d.InexactFloat64(), opts...))
}

func orBlank(s, blank string) string {
	if s = strings.TrimSpace(s); s == "" {
		return blank
	}
	return s
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
