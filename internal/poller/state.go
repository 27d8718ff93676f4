package poller

import "QuoteHarvester/internal/model"

type slot struct {
	best      *model.Row
	satisfied bool
}

// batchState tracks the best row seen per symbol for one in-flight batch.
// It lives only as long as a single Poll call.
type batchState struct {
	order   []string
	slots   map[string]*slot
	pending int
}

func newBatchState(symbols []model.Symbol) *batchState {
	s := &batchState{
		order: make([]string, 0, len(symbols)),
		slots: make(map[string]*slot, len(symbols)),
	}
	for _, sym := range symbols {
		if _, dup := s.slots[sym.Code]; dup {
			continue
		}
		s.order = append(s.order, sym.Code)
		s.slots[sym.Code] = &slot{}
	}
	s.pending = len(s.order)
	return s
}

// observe folds one normalized row into the state. A valid-price row always
// replaces the best row; a placeholder row is kept only if nothing was seen
// yet. It reports whether the row was stored.
func (s *batchState) observe(code string, row model.Row, validPrice bool) bool {
	sl, ok := s.slots[code]
	if !ok {
		return false
	}
	if validPrice {
		r := row
		sl.best = &r
		if !sl.satisfied {
			sl.satisfied = true
			s.pending--
		}
		return true
	}
	if sl.best == nil {
		r := row
		sl.best = &r
		return true
	}
	return false
}

func (s *batchState) done() bool { return s.pending == 0 }

func (s *batchState) result() *Result {
	res := &Result{
		Best:      make(map[string]model.Row, len(s.order)),
		Satisfied: make(map[string]bool, len(s.order)),
	}
	for _, code := range s.order {
		sl := s.slots[code]
		res.Satisfied[code] = sl.satisfied
		if sl.best == nil {
			res.Unresolved = append(res.Unresolved, code)
			continue
		}
		res.Best[code] = *sl.best
	}
	return res
}
