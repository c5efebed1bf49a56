package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"committee/internal/budget"
	"committee/internal/core"
)

// Amount is a decimal written as a bare JSON number. Numeric strings are
// accepted on input.
type Amount struct {
	decimal.Decimal
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		a.Decimal = decimal.Zero
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidAmount, s)
	}
	a.Decimal = v
	return nil
}

// Timestamp is written as RFC 3339. Older exports carry naive ISO timestamps
// without a zone; those keep their wall clock and take the zone passed to
// Document.ContentsIn.
type Timestamp struct {
	time.Time
	naive bool
}

// Instant returns the instant of t, reading a naive wall clock in loc.
func (t Timestamp) Instant(loc *time.Location) time.Time {
	if !t.naive || loc == nil {
		return t.Time
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

const naiveISO = "2006-01-02T15:04:05.999999999"

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time, t.naive = time.Time{}, false
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time, t.naive = v, false
		return nil
	}
	v, err := time.ParseInLocation(naiveISO, strings.Replace(s, " ", "T", 1), time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time, t.naive = v, true
	return nil
}

// Category is one entry of a budget section.
type Category struct {
	Name   string
	Budget Amount
	Actual Amount
}

type categoryFigures struct {
	Budget Amount `json:"budget"`
	Actual Amount `json:"actual"`
}

// Categories is a budget section written as a JSON object keyed by category
// name. Key order is kept in both directions.
type Categories []Category

func (c Categories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(categoryFigures{Budget: cat.Budget, Actual: cat.Actual})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Categories) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("budget section must be an object")
	}

	out := Categories{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected budget key %v", tok)
		}
		var f categoryFigures
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("budget category %q: %w", name, err)
		}
		out = append(out, Category{Name: name, Budget: f.Budget, Actual: f.Actual})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

func fromLines(lines []budget.Line) Categories {
	out := make(Categories, len(lines))
	for i, l := range lines {
		out[i] = Category{Name: l.Name, Budget: Amount{l.Budget}, Actual: Amount{l.Actual}}
	}
	return out
}

func (c Categories) lines(s budget.Section) ([]budget.Line, error) {
	out := make([]budget.Line, len(c))
	for i, cat := range c {
		if cat.Budget.IsNegative() || cat.Actual.IsNegative() {
			return nil, &core.ValidationError{Field: fmt.Sprintf("budget.%s.%s", s, cat.Name), Err: core.ErrNegativeAmount}
		}
		out[i] = budget.Line{Name: cat.Name, Entry: budget.Entry{Budget: cat.Budget.Decimal, Actual: cat.Actual.Decimal}}
	}
	return out, nil
}
