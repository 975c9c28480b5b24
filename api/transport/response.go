package transport

import "encoding/json"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every API response. Code and Error are set only on failures;
// Meta carries operation details such as the resume flag or the fields an
// offer is still missing.
type Envelope struct {
	Status    string      `json:"status"`
	Code      string      `json:"code,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

func Success(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Meta: meta}
}

// Failure builds an error envelope. code is one of the domain error codes or a
// transport-level code such as UNAUTHORIZED or DEGRADED.
func Failure(code, message string, meta interface{}) Envelope {
	return Envelope{Status: StatusError, Code: code, Error: message, Meta: meta}
}

// WithRequestID stamps the id the response is correlated with in the logs.
func (e Envelope) WithRequestID(id string) Envelope {
	e.RequestID = id
	return e
}

func (e Envelope) OK() bool {
	return e.Status == StatusSuccess
}

// String returns the JSON form, or "{}" when the payload cannot be encoded.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
