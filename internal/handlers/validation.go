package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bankcards/internal/money"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

var errInvalidPayload = errors.New("invalid payload")

// decodeJSON reads a single JSON object, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return errInvalidPayload
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errInvalidPayload
	}
	return nil
}

// amountField accepts either a JSON string ("12.50") or a JSON number (12.5).
type amountField struct {
	raw     string
	present bool
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	a.present = true
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.raw)
	}
	a.raw = string(data)
	return nil
}

func (a amountField) positive() (decimal.Decimal, error) {
	return money.ParsePositive(a.raw)
}

func (a amountField) value() (decimal.Decimal, error) {
	return money.Parse(a.raw)
}
