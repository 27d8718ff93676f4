// Package normalizer turns provider quote records into canonical daily rows.
package normalizer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"QuoteHarvester/internal/model"
)

const dateDigits = 8

// Normalize converts raw into a canonical Row. validPrice reports whether
// the record carries a finite trade price. ok is false when no date can be
// derived; the row must then be discarded.
func Normalize(raw model.RawQuote) (row model.Row, validPrice bool, ok bool) {
	date, ok := deriveDate(raw)
	if !ok {
		return model.Row{}, false, false
	}
	row = model.Row{
		Date:   date,
		Open:   ParseValue(raw.Open),
		High:   ParseValue(raw.High),
		Low:    ParseValue(raw.Low),
		Close:  ParseValue(raw.Trade),
		Volume: ParseValue(raw.Volume),
	}
	return row, !row.Close.IsMissing(), true
}

// ParseValue maps the placeholder, blanks and anything non-numeric or
// non-finite to Missing.
func ParseValue(s string) model.Value {
	s = strings.TrimSpace(s)
	if s == "" || s == model.Placeholder {
		return model.Missing
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Missing
	}
	return model.Num(f)
}

func deriveDate(raw model.RawQuote) (string, bool) {
	if d, ok := firstDigits(raw.Date); ok {
		return d, true
	}
	ts := strings.TrimSpace(raw.Timestamp)
	if ts == "" {
		return "", false
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(ts, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		ms = int64(f)
	}
	if ms <= 0 {
		return "", false
	}
	return firstDigits(time.UnixMilli(ms).UTC().Format("20060102"))
}

// firstDigits strips every non-digit (so "2025/01/02" reads as 20250102)
// and keeps the first eight digits.
func firstDigits(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == dateDigits {
				return b.String(), true
			}
		}
	}
	return "", false
}
