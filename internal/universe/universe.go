// Package universe loads the list of symbols a session polls.
package universe

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"QuoteHarvester/internal/model"
)

// ErrEmpty is returned when a universe file lists no usable symbols.
var ErrEmpty = errors.New("symbol universe is empty")

type file struct {
	Symbols []model.Symbol `yaml:"symbols"`
}

// Load reads a YAML universe file of the form
//
//	symbols:
//	  - {code: "2330", name: "TSMC", segment: tse}
//
// Entries without a code or segment are skipped.
func Load(path string) ([]model.Symbol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse universe: %w", err)
	}
	out := make([]model.Symbol, 0, len(f.Symbols))
	for _, s := range f.Symbols {
		s.Code = strings.TrimSpace(s.Code)
		s.Segment = strings.ToLower(strings.TrimSpace(s.Segment))
		if s.Code == "" || s.Segment == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return out, nil
}

// Filter keeps symbols whose code is in allow, preserving input order and
// dropping repeated codes. An empty allow list keeps everything.
func Filter(symbols []model.Symbol, allow []string) []model.Symbol {
	var allowed map[string]struct{}
	if len(allow) > 0 {
		allowed = make(map[string]struct{}, len(allow))
		for _, a := range allow {
			allowed[strings.TrimSpace(a)] = struct{}{}
		}
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]model.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if allowed != nil {
			if _, ok := allowed[s.Code]; !ok {
				continue
			}
		}
		if _, dup := seen[s.Code]; dup {
			continue
		}
		seen[s.Code] = struct{}{}
		out = append(out, s)
	}
	return out
}
