package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"committee/internal/core"
)

const (
	maxBodyBytes   = 64 << 10
	maxImportBytes = 16 << 20
)

// MonthParams holds year/month query values. Zero means "current".
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month from the query. Missing values are
// left zero; non-numeric values are rejected.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	var p MonthParams
	var err error
	if p.Year, err = queryInt(query, "year"); err != nil {
		return MonthParams{}, err
	}
	if p.Month, err = queryInt(query, "month"); err != nil {
		return MonthParams{}, err
	}
	return p, nil
}

func queryInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s must be a whole number", key)
	}
	return n, nil
}

// decodeJSON reads a single JSON object from the request body into v.
// Unknown fields are rejected so typos do not silently drop data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return badRequest("request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		}
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("request body must hold a single JSON object")
	}
	return nil
}

// amountText is an amount as sent by the client, a JSON number or string.
// It is parsed later so a bad value is reported against its field.
type amountText string

func (a *amountText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountText(n.String())
	return nil
}

// parseAmount parses a KD amount for field. Empty is zero.
func parseAmount(field string, a amountText) (decimal.Decimal, error) {
	d, err := core.ParseAmount(string(a))
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: field, Err: err}
	}
	return d, nil
}

// requireName returns the trimmed name, or a validation error when it is blank.
func requireName(name string) (string, error) {
	name = sanitizeInput(name)
	if name == "" {
		return "", &core.ValidationError{Field: "name", Err: core.ErrEmptyName}
	}
	return name, nil
}
