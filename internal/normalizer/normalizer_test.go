package normalizer

import (
	"testing"

	"QuoteHarvester/internal/model"
)

func TestNormalize_DateDerivation(t *testing.T) {
	tests := []struct {
		name string
		raw  model.RawQuote
		date string
		ok   bool
	}{
		{"explicit date", model.RawQuote{Date: "20250101"}, "20250101", true},
		{"slash separators stripped", model.RawQuote{Date: "2025/01/02"}, "20250102", true},
		{"dash separators stripped", model.RawQuote{Date: "2025-01-03 13:30:00"}, "20250103", true},
		{"extra digits truncated", model.RawQuote{Date: "2025010412"}, "20250104", true},
		{"epoch millis fallback", model.RawQuote{Timestamp: "1735693200000"}, "20250101", true},
		{"epoch millis is UTC", model.RawQuote{Timestamp: "1735747199999"}, "20250101", true},
		{"short explicit date falls back", model.RawQuote{Date: "2025", Timestamp: "1735779600000"}, "20250102", true},
		{"no date at all", model.RawQuote{Trade: "100"}, "", false},
		{"garbage timestamp", model.RawQuote{Timestamp: "soon"}, "", false},
		{"negative timestamp", model.RawQuote{Timestamp: "-5"}, "", false},
		{"placeholder date", model.RawQuote{Date: "-"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, _, ok := Normalize(tt.raw)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if row.Date != tt.date {
				t.Errorf("expected date %q, got %q", tt.date, row.Date)
			}
			if ok && len(row.Date) != 8 {
				t.Errorf("date must be 8 digits, got %q", row.Date)
			}
		})
	}
}

func TestNormalize_ValidPrice(t *testing.T) {
	tests := []struct {
		trade string
		valid bool
	}{
		{"104.5", true},
		{"0", true},
		{" 88 ", true},
		{"-", false},
		{"", false},
		{"n/a", false},
		{"NaN", false},
		{"Inf", false},
	}
	for _, tt := range tests {
		_, valid, ok := Normalize(model.RawQuote{Date: "20250101", Trade: tt.trade})
		if !ok {
			t.Fatalf("trade %q: expected a dated row", tt.trade)
		}
		if valid != tt.valid {
			t.Errorf("trade %q: expected valid=%v, got %v", tt.trade, tt.valid, valid)
		}
	}
}

func TestNormalize_FieldMapping(t *testing.T) {
	row, valid, ok := Normalize(model.RawQuote{
		Code:   "2330",
		Date:   "20250102",
		Trade:  "104",
		Open:   "100",
		High:   "105",
		Low:    "-",
		Volume: "6000",
	})
	if !ok || !valid {
		t.Fatalf("expected ok and valid, got ok=%v valid=%v", ok, valid)
	}
	want := model.Row{
		Date:   "20250102",
		Open:   model.Num(100),
		High:   model.Num(105),
		Low:    model.Missing,
		Close:  model.Num(104),
		Volume: model.Num(6000),
	}
	if row != want {
		t.Errorf("expected %+v, got %+v", want, row)
	}
}

func TestParseValue(t *testing.T) {
	if v := ParseValue("12.25"); v != model.Num(12.25) {
		t.Errorf("expected 12.25, got %v", v)
	}
	for _, s := range []string{"-", "", "  ", "abc", "1,000", "+Inf"} {
		if v := ParseValue(s); !v.IsMissing() {
			t.Errorf("%q: expected Missing, got %v", s, v)
		}
	}
}
