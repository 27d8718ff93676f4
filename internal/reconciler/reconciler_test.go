package reconciler

import (
	"testing"

	"QuoteHarvester/internal/model"
	"QuoteHarvester/internal/normalizer"
)

func row(date string, vals ...model.Value) model.Row {
	r := model.Row{Date: date}
	for i, slot := range r.Values() {
		*slot = vals[i]
	}
	return r
}

func n(f float64) model.Value { return model.Num(f) }

var miss = model.Missing

func TestResolve_PreferenceLaw(t *testing.T) {
	values := []model.Value{miss, n(0), n(1.5), n(104)}
	for _, e := range values {
		for _, in := range values {
			got := Resolve(e, in)
			want := in
			if in.IsMissing() && !e.IsMissing() {
				want = e
			}
			if got != want {
				t.Errorf("Resolve(%v, %v) = %v, want %v", e, in, got, want)
			}
		}
	}
}

func TestMerge_AppendsNewDate(t *testing.T) {
	r := row("20250102", n(100), n(105), n(99), n(104), n(5000))
	got := Merge(nil, r)
	if len(got) != 1 || got[0] != r {
		t.Fatalf("expected single appended row, got %+v", got)
	}
}

func TestMerge_PlaceholderCloseKeepsStoredClose(t *testing.T) {
	existing := model.Series{row("20250101", n(100), n(105), n(99), n(104), n(5000))}

	fresh, valid, ok := normalizer.Normalize(model.RawQuote{Date: "20250101", Trade: "-", Volume: "6000"})
	if !ok || valid {
		t.Fatalf("expected dated placeholder row, got ok=%v valid=%v", ok, valid)
	}

	got := Merge(existing, fresh)
	want := row("20250101", n(100), n(105), n(99), n(104), n(6000))
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if existing[0].Volume != n(5000) {
		t.Error("input series must not be mutated")
	}
}

func TestMerge_KnownValueOverwritesKnownAndMissing(t *testing.T) {
	existing := model.Series{row("20250101", miss, n(105), n(99), n(104), n(5000))}
	got := Merge(existing, row("20250101", n(101), n(106), miss, n(103), n(7000)))
	want := row("20250101", n(101), n(106), n(99), n(103), n(7000))
	if got[0] != want {
		t.Errorf("expected %+v, got %+v", want, got[0])
	}
}

func TestMerge_ReplacesInPlacePreservingOrder(t *testing.T) {
	existing := model.Series{
		row("20250103", n(1), n(1), n(1), n(1), n(1)),
		row("20250101", n(2), n(2), n(2), n(2), n(2)),
		row("20250102", n(3), n(3), n(3), n(3), n(3)),
	}
	got := Merge(existing, row("20250101", n(9), miss, miss, miss, miss))
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	dates := []string{got[0].Date, got[1].Date, got[2].Date}
	if dates[0] != "20250103" || dates[1] != "20250101" || dates[2] != "20250102" {
		t.Errorf("order changed: %v", dates)
	}
	if got[1] != row("20250101", n(9), n(2), n(2), n(2), n(2)) {
		t.Errorf("unexpected merged row: %+v", got[1])
	}
}

func TestMerge_Idempotent(t *testing.T) {
	existing := model.Series{
		row("20250101", n(100), n(105), n(99), n(104), n(5000)),
		row("20250102", miss, miss, miss, miss, n(10)),
	}
	incoming := []model.Row{
		row("20250102", n(1), miss, n(2), miss, miss),
		row("20250103", miss, miss, miss, miss, miss),
		row("20250101", miss, miss, miss, n(110), n(9000)),
	}
	for _, r := range incoming {
		once := Merge(existing, r)
		twice := Merge(once, r)
		if len(once) != len(twice) {
			t.Fatalf("%s: length changed on second merge", r.Date)
		}
		for i := range once {
			if once[i] != twice[i] {
				t.Errorf("%s: row %d differs after second merge: %+v vs %+v", r.Date, i, once[i], twice[i])
			}
		}
	}
}

func TestMerge_NeverDuplicatesDates(t *testing.T) {
	var s model.Series
	dates := []string{"20250101", "20250102", "20250101", "20250103", "20250102", "20250101"}
	for i, d := range dates {
		s = Merge(s, row(d, n(float64(i)), miss, miss, miss, miss))
	}
	seen := map[string]bool{}
	for _, r := range s {
		if seen[r.Date] {
			t.Fatalf("duplicate date %s in %+v", r.Date, s)
		}
		seen[r.Date] = true
	}
	if len(s) != 3 {
		t.Errorf("expected 3 distinct dates, got %d", len(s))
	}
}
