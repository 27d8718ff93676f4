package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"QuoteHarvester/internal/model"
)

const rtCodeOK = "0000"

// MISSource implements QuoteSource against a MIS style real-time quote
// endpoint, where symbols are addressed as "<segment>_<code>.tw" keys.
type MISSource struct {
	BaseURL   string
	UserAgent string
	// MaxSymbolsPerRequest splits one fetch into several HTTP requests.
	// 0 means no limit.
	MaxSymbolsPerRequest int
	// MaxConcurrency bounds concurrent sub-requests. Defaults to 1.
	MaxConcurrency int
	Client         *http.Client
}

// NewMISSource creates a source with optional proxy support. timeout bounds
// each HTTP request.
func NewMISSource(baseURL, proxyURL string, timeout time.Duration) *MISSource {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &MISSource{
		BaseURL:   baseURL,
		UserAgent: "Mozilla/5.0",
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (s *MISSource) Name() string { return "mis" }

// QueryKey builds the provider key for one symbol.
func QueryKey(sym model.Symbol) string {
	return fmt.Sprintf("%s_%s.tw", strings.ToLower(strings.TrimSpace(sym.Segment)), strings.TrimSpace(sym.Code))
}

// misRecord is the subset of the provider's per-symbol object we read.
type misRecord struct {
	Code      flexString `json:"c"`
	Name      flexString `json:"n"`
	Trade     flexString `json:"z"`
	Open      flexString `json:"o"`
	High      flexString `json:"h"`
	Low       flexString `json:"l"`
	Volume    flexString `json:"v"`
	Date      flexString `json:"d"`
	Timestamp flexString `json:"tlong"`
}

type misResponse struct {
	RtCode    string      `json:"rtcode"`
	RtMessage string      `json:"rtmessage"`
	MsgArray  []misRecord `json:"msgArray"`
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(data)
	}
	return nil
}

func (s *MISSource) FetchQuotes(ctx context.Context, symbols []model.Symbol) ([]model.RawQuote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	chunks := chunk(symbols, s.MaxSymbolsPerRequest)
	if len(chunks) == 1 {
		return s.fetchChunk(ctx, chunks[0])
	}

	results := make([][]model.RawQuote, len(chunks))
	var (
		mu       sync.Mutex
		firstErr error
		g        errgroup.Group
	)
	limit := s.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, c := range chunks {
		g.Go(func() error {
			qs, err := s.fetchChunk(ctx, c)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			results[i] = qs
			return nil
		})
	}
	_ = g.Wait()

	var out []model.RawQuote
	for _, qs := range results {
		out = append(out, qs...)
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (s *MISSource) fetchChunk(ctx context.Context, symbols []model.Symbol) ([]model.RawQuote, error) {
	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = QueryKey(sym)
	}
	q := url.Values{}
	q.Set("ex_ch", strings.Join(keys, "|"))
	q.Set("json", "1")
	q.Set("delay", "0")
	q.Set("_", strconv.FormatInt(time.Now().UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mis fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mis read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrProvider, resp.StatusCode, truncate(body, 256))
	}

	var parsed misResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("mis decode: %w", err)
	}
	if parsed.RtCode != "" && parsed.RtCode != rtCodeOK && len(parsed.MsgArray) == 0 {
		return nil, fmt.Errorf("%w: rtcode=%s msg=%q", ErrProvider, parsed.RtCode, parsed.RtMessage)
	}

	out := make([]model.RawQuote, 0, len(parsed.MsgArray))
	for _, r := range parsed.MsgArray {
		if strings.TrimSpace(string(r.Code)) == "" {
			continue
		}
		out = append(out, model.RawQuote{
			Code:      strings.TrimSpace(string(r.Code)),
			Name:      string(r.Name),
			Trade:     string(r.Trade),
			Open:      string(r.Open),
			High:      string(r.High),
			Low:       string(r.Low),
			Volume:    string(r.Volume),
			Date:      string(r.Date),
			Timestamp: string(r.Timestamp),
		})
	}
	return out, nil
}

func chunk(in []model.Symbol, size int) [][]model.Symbol {
	if size <= 0 || len(in) <= size {
		return [][]model.Symbol{in}
	}
	out := make([][]model.Symbol, 0, (len(in)+size-1)/size)
	for i := 0; i < len(in); i += size {
		j := i + size
		if j > len(in) {
			j = len(in)
		}
		out = append(out, in[i:j])
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
