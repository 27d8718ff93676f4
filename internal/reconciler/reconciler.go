// Package reconciler merges freshly fetched daily rows into a stored series.
package reconciler

import "QuoteHarvester/internal/model"

// Resolve picks the value kept in one slot when an incoming row meets an
// existing row of the same date. Missing never replaces a known value;
// otherwise the incoming value wins.
func Resolve(existing, incoming model.Value) model.Value {
	if incoming.IsMissing() && !existing.IsMissing() {
		return existing
	}
	return incoming
}

// MergeRow combines two rows of the same date slot by slot.
func MergeRow(existing, incoming model.Row) model.Row {
	out := existing
	in := incoming.Values()
	for i, slot := range out.Values() {
		*slot = Resolve(*slot, *in[i])
	}
	return out
}

// Merge returns series with row folded in. A row for a new date is
// appended; a row for a known date replaces the stored one in place after
// slot-wise resolution. series itself is left untouched.
func Merge(series model.Series, row model.Row) model.Series {
	out := make(model.Series, len(series), len(series)+1)
	copy(out, series)

	idx := out.Find(row.Date)
	if idx < 0 {
		return append(out, row)
	}
	out[idx] = MergeRow(out[idx], row)
	return out
}
