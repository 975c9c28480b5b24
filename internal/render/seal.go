package render

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/skip2/go-qrcode"
	"lukechampine.com/blake3"
)

// Seal identifies an exported document. The QR code encodes the fingerprint so a
// printed copy can be matched to the rendered content.
type Seal struct {
	Fingerprint string `json:"fingerprint"`
	Payload     string `json:"payload"`
	QRCode      string `json:"qrCode"`
}

// Fingerprint is the hex blake3 digest of rendered content.
func Fingerprint(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func NewSeal(docID, transactionID, content string) (Seal, error) {
	fp := Fingerprint(content)
	payload := fmt.Sprintf("boatclosers:%s:%s:%s", transactionID, docID, fp)

	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return Seal{}, fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(256)
	if err != nil {
		return Seal{}, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return Seal{
		Fingerprint: fp,
		Payload:     payload,
		QRCode:      base64.StdEncoding.EncodeToString(png),
	}, nil
}
