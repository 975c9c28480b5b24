package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type migration func(doc map[string]any) error

// migrations[n] upgrades a version n document to version n+1.
var migrations = map[int]migration{
	1: migrateV1,
}

// Encode serializes a transaction for persistence.
func Encode(tx *Transaction) ([]byte, error) {
	if tx == nil {
		return nil, ErrNoTransaction
	}
	return json.Marshal(tx)
}

// Decode parses a persisted record, upgrading older shapes to SchemaVersion.
// Records written before versioning existed are treated as version 1.
func Decode(raw []byte) (*Transaction, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode transaction: empty document")
	}

	version := 1
	if v, ok := doc["schemaVersion"].(json.Number); ok {
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("decode transaction: schemaVersion: %w", err)
		}
		version = int(n)
	}
	if version > SchemaVersion {
		return nil, fmt.Errorf("decode transaction: schema version %d is newer than supported %d", version, SchemaVersion)
	}
	for version < SchemaVersion {
		m, ok := migrations[version]
		if !ok {
			return nil, fmt.Errorf("decode transaction: no migration from schema version %d", version)
		}
		if err := m(doc); err != nil {
			return nil, fmt.Errorf("decode transaction: migrate v%d: %w", version, err)
		}
		version++
		doc["schemaVersion"] = version
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if tx.ID == "" {
		return nil, fmt.Errorf("decode transaction: missing id")
	}
	if !tx.Role.Valid() {
		return nil, fmt.Errorf("decode transaction: %w", ErrInvalidRole)
	}
	normalize(&tx)
	return &tx, nil
}

// normalize fills sub-records that an older or hand-edited record may lack.
func normalize(tx *Transaction) {
	if tx.Vessel == nil {
		tx.Vessel = &Vessel{Type: VesselPowerboat, Condition: ConditionUsed}
	}
	if tx.Buyer == nil {
		tx.Buyer = &Party{}
	}
	if tx.Seller == nil {
		tx.Seller = &Party{}
	}
	if tx.Terms == nil {
		tx.Terms = &Terms{DepositMethod: DepositEscrow, Financing: FinancingCash}
	}
	if tx.Terms.Contingencies == nil {
		tx.Terms.Contingencies = []string{}
	}
	if tx.Offer == nil {
		tx.Offer = &Offer{Status: OfferDraft, SelectedPlan: PlanStandard}
	}
	if tx.Offer.History == nil {
		tx.Offer.History = []OfferVersion{}
	}
	if tx.DepositVerification == nil {
		tx.DepositVerification = &DepositVerification{}
	}
	if tx.Escrow == nil {
		tx.Escrow = &Escrow{Status: EscrowNotStarted}
	}
	if tx.Diligence == nil {
		tx.Diligence = &Diligence{}
	}
	if tx.Documents == nil {
		tx.Documents = map[string]json.RawMessage{}
	}
	if tx.Signatures == nil {
		tx.Signatures = map[string]Signature{}
	}
	if tx.Status == "" {
		tx.Status = StatusDraft
	}
	tx.CurrentStep = ClampStep(tx.CurrentStep)
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}
}

// Version 1 is the first iteration of the record: string-typed numbers, vessel.hin,
// terms.depositHolder and no offer/escrow/depositVerification blocks.
func migrateV1(doc map[string]any) error {
	if vessel, ok := doc["vessel"].(map[string]any); ok {
		if hin, ok := vessel["hin"]; ok {
			if _, exists := vessel["hullId"]; !exists {
				vessel["hullId"] = hin
			}
			delete(vessel, "hin")
		}
		if year, ok := vessel["year"].(string); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
				vessel["year"] = n
			} else {
				delete(vessel, "year")
			}
		}
		numericString(vessel, "length")
	}

	if terms, ok := doc["terms"].(map[string]any); ok {
		numericString(terms, "price")
		numericString(terms, "deposit")
		if holder, ok := terms["depositHolder"].(string); ok {
			if _, exists := terms["depositMethod"]; !exists {
				terms["depositMethod"] = string(depositMethodFromHolder(holder))
			}
			delete(terms, "depositHolder")
		}
	}

	if _, ok := doc["offer"]; !ok {
		doc["offer"] = map[string]any{"status": string(OfferDraft), "selectedPlan": string(PlanStandard), "history": []any{}}
	}
	if _, ok := doc["escrow"]; !ok {
		doc["escrow"] = map[string]any{"status": string(EscrowNotStarted)}
	}
	if _, ok := doc["depositVerification"]; !ok {
		doc["depositVerification"] = map[string]any{}
	}
	return nil
}

// numericString drops blank or non-numeric string values so money fields decode cleanly.
func numericString(m map[string]any, key string) {
	s, ok := m[key].(string)
	if !ok {
		return
	}
	s = strings.TrimSpace(s)
	if s == "" {
		delete(m, key)
		return
	}
	if _, err := decimal.NewFromString(s); err != nil {
		delete(m, key)
		return
	}
	m[key] = s
}

func depositMethodFromHolder(holder string) DepositMethod {
	switch holder {
	case "escrow", "third-party":
		return DepositEscrow
	case "seller":
		return DepositWire
	case "buyer":
		return DepositNone
	}
	return DepositEscrow
}
