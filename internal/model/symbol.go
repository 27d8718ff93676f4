package model

// Symbol describes one tradable instrument in the session universe.
type Symbol struct {
	Code    string `yaml:"code" json:"code"`
	Name    string `yaml:"name" json:"name"`
	Segment string `yaml:"segment" json:"segment"` // market segment, e.g. "tse" or "otc"
}

// RawQuote is a single provider record for one symbol at one poll instant.
// Every field is kept as the provider sent it; any of them may be empty
// or a placeholder such as "-".
type RawQuote struct {
	Code      string
	Name      string
	Trade     string // last trade price
	Open      string
	High      string
	Low       string
	Volume    string // cumulative session volume
	Date      string
	Timestamp string // millisecond epoch
}
