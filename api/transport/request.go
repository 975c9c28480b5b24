package transport

import "encoding/json"

type StartRequest struct {
	Role  string `json:"role"`
	Fresh bool   `json:"fresh"`
}

// UpdateRequest sets one field of the transaction by dot path.
type UpdateRequest struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

type StepRequest struct {
	Step int `json:"step"`
}

type OfferStatusRequest struct {
	Status string `json:"status"`
}

type PaymentRequest struct {
	Plan string `json:"plan"`
}

type DepositConfirmRequest struct {
	Party     string `json:"party"`
	Confirmed *bool  `json:"confirmed"`
}

type EscrowStatusRequest struct {
	Status string `json:"status"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SignRequest carries either a typed name or freehand strokes, selected by Mode.
type SignRequest struct {
	Mode    string    `json:"mode"`
	Name    string    `json:"name"`
	Strokes [][]Point `json:"strokes"`
}
