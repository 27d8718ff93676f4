package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/guregu/null/v6"
)

// Placeholder is the provider's "no data" marker. It is also how a Missing
// value is written to disk.
const Placeholder = "-"

// Value is a numeric slot of a Row: a finite number or Missing.
type Value struct {
	f null.Float
}

// Missing is the explicit no-data sentinel.
var Missing = Value{}

// Num returns a present Value. Non-finite input yields Missing.
func Num(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	return Value{f: null.FloatFrom(v)}
}

// IsMissing reports whether v carries no number.
func (v Value) IsMissing() bool { return !v.f.Valid }

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) { return v.f.Float64, v.f.Valid }

func (v Value) String() string {
	if v.IsMissing() {
		return Placeholder
	}
	return strconv.FormatFloat(v.f.Float64, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsMissing() {
		return []byte(`"` + Placeholder + `"`), nil
	}
	return []byte(strconv.FormatFloat(v.f.Float64, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a number, null, the placeholder, or a numeric string.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Missing
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*v = Missing
			return nil
		}
		*v = Num(f)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("value %s: %w", data, err)
	}
	*v = Num(f)
	return nil
}

// Row is one canonical daily bar. Date is always 8 digits (YYYYMMDD).
type Row struct {
	Date   string
	Open   Value
	High   Value
	Low    Value
	Close  Value
	Volume Value
}

// Values returns pointers to the five numeric slots in column order.
func (r *Row) Values() [5]*Value {
	return [5]*Value{&r.Open, &r.High, &r.Low, &r.Close, &r.Volume}
}

// MarshalJSON writes the row as [date, open, high, low, close, volume].
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Date, r.Open, r.High, r.Low, r.Close, r.Volume})
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var cols []json.RawMessage
	if err := json.Unmarshal(data, &cols); err != nil {
		return err
	}
	if len(cols) != 6 {
		return fmt.Errorf("row: want 6 columns, got %d", len(cols))
	}
	var date any
	if err := json.Unmarshal(cols[0], &date); err != nil {
		return fmt.Errorf("row date: %w", err)
	}
	switch d := date.(type) {
	case string:
		r.Date = d
	case float64:
		r.Date = strconv.FormatFloat(d, 'f', 0, 64)
	default:
		return fmt.Errorf("row date: unexpected %T", date)
	}
	for i, slot := range r.Values() {
		if err := slot.UnmarshalJSON(cols[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Series is the persisted daily history of one symbol, in arrival order.
// It holds at most one Row per date.
type Series []Row

// Find returns the index of the row dated date, or -1.
func (s Series) Find(date string) int {
	for i := range s {
		if s[i].Date == date {
			return i
		}
	}
	return -1
}
