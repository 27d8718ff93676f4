package poller_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"QuoteHarvester/internal/clock"
	"QuoteHarvester/internal/collector/mocks"
	"QuoteHarvester/internal/model"
	"QuoteHarvester/internal/poller"
)

var (
	symA = model.Symbol{Code: "A", Name: "Alpha", Segment: "tse"}
	symB = model.Symbol{Code: "B", Name: "Beta", Segment: "otc"}
)

type tick struct {
	quotes []model.RawQuote
	err    error
	cost   time.Duration // simulated call latency
}

func quote(code, trade, volume string) model.RawQuote {
	return model.RawQuote{Code: code, Date: "20250102", Trade: trade, Open: "100", Volume: volume}
}

// newPoller wires a mock source that replays ticks in order and an empty
// response once the script is exhausted.
func newPoller(t *testing.T, cfg poller.Config, ticks []tick) (*poller.Poller, *clock.Fake, *int) {
	t.Helper()
	ctrl := gomock.NewController(t)
	src := mocks.NewMockQuoteSource(ctrl)
	fake := clock.NewFake(time.Date(2025, 1, 2, 5, 0, 0, 0, time.UTC))
	calls := 0
	src.EXPECT().
		FetchQuotes(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []model.Symbol) ([]model.RawQuote, error) {
			calls++
			if calls > len(ticks) {
				return nil, nil
			}
			tk := ticks[calls-1]
			fake.Advance(tk.cost)
			return tk.quotes, tk.err
		}).
		AnyTimes()
	return poller.New(src, fake, cfg), fake, &calls
}

func TestPoll_EarlyExitAfterOneTick(t *testing.T) {
	t.Parallel()

	p, fake, calls := newPoller(t, poller.DefaultConfig(), []tick{
		{quotes: []model.RawQuote{quote("A", "10", "100"), quote("B", "20", "200")}},
	})

	res := p.Poll(context.Background(), []model.Symbol{symA, symB})

	assert.Equal(t, 1, res.Ticks)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, fake.Sleeps())
	assert.Empty(t, res.Unresolved)
	assert.True(t, res.Satisfied["A"])
	assert.True(t, res.Satisfied["B"])
	assert.Equal(t, model.Num(20), res.Best["B"].Close)
}

func TestPoll_StubbornSymbolWaitsOutDeadline(t *testing.T) {
	t.Parallel()

	p, fake, calls := newPoller(t, poller.DefaultConfig(), []tick{
		{quotes: []model.RawQuote{quote("A", "10", "100")}},
	})

	res := p.Poll(context.Background(), []model.Symbol{symA, symB})

	assert.Equal(t, 10, res.Ticks, "ticks at 0s,3s,...,27s")
	assert.Equal(t, 10, *calls)
	assert.Equal(t, 30*time.Second, res.Elapsed)
	assert.Equal(t, []string{"B"}, res.Unresolved)
	assert.Equal(t, model.Num(10), res.Best["A"].Close)
	assert.Equal(t, model.Num(100), res.Best["A"].Volume)
	for _, d := range fake.Sleeps() {
		assert.Equal(t, 3*time.Second, d)
	}
}

func TestPoll_SleepNeverPassesDeadline(t *testing.T) {
	t.Parallel()

	cfg := poller.Config{RetryInterval: 3 * time.Second, Deadline: 10 * time.Second, CallTimeout: time.Second}
	p, fake, _ := newPoller(t, cfg, nil)

	res := p.Poll(context.Background(), []model.Symbol{symA})

	assert.Equal(t, 4, res.Ticks)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second, 3 * time.Second, time.Second}, fake.Sleeps())
	assert.Equal(t, 10*time.Second, res.Elapsed)
	assert.Equal(t, []string{"A"}, res.Unresolved)
}

func TestPoll_FailedTickIsEmptyNotFatal(t *testing.T) {
	t.Parallel()

	p, _, calls := newPoller(t, poller.DefaultConfig(), []tick{
		{err: errors.New("connection reset")},
		{err: context.DeadlineExceeded},
		{quotes: []model.RawQuote{quote("A", "11", "300")}},
	})

	res := p.Poll(context.Background(), []model.Symbol{symA})

	assert.Equal(t, 3, res.Ticks)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, model.Num(11), res.Best["A"].Close)
}

func TestPoll_FirstPlaceholderWinsUntilValidPrice(t *testing.T) {
	t.Parallel()

	p, _, _ := newPoller(t, poller.DefaultConfig(), []tick{
		{quotes: []model.RawQuote{quote("A", "-", "100"), quote("B", "5", "1")}},
		{quotes: []model.RawQuote{quote("A", "-", "200")}},
	})

	res := p.Poll(context.Background(), []model.Symbol{symA, symB})

	require.Contains(t, res.Best, "A")
	assert.False(t, res.Satisfied["A"])
	assert.True(t, res.Best["A"].Close.IsMissing())
	assert.Equal(t, model.Num(100), res.Best["A"].Volume, "later placeholder must not replace the first")
	assert.Empty(t, res.Unresolved)
}

func TestPoll_LaterValidQuoteSupersedes(t *testing.T) {
	t.Parallel()

	p, _, _ := newPoller(t, poller.DefaultConfig(), []tick{
		{quotes: []model.RawQuote{quote("A", "-", "50"), quote("B", "10", "100")}},
		{quotes: []model.RawQuote{quote("B", "12", "150")}},
		{quotes: []model.RawQuote{quote("A", "7", "60"), quote("B", "13", "170")}},
	})

	res := p.Poll(context.Background(), []model.Symbol{symA, symB})

	assert.Equal(t, 3, res.Ticks)
	assert.Equal(t, model.Num(7), res.Best["A"].Close)
	assert.Equal(t, model.Num(13), res.Best["B"].Close)
	assert.Equal(t, model.Num(170), res.Best["B"].Volume)
}

func TestPoll_IgnoresUndatableAndForeignRecords(t *testing.T) {
	t.Parallel()

	undated := model.RawQuote{Code: "A", Trade: "10"}
	p, _, _ := newPoller(t, poller.Config{RetryInterval: time.Second, Deadline: 2 * time.Second}, []tick{
		{quotes: []model.RawQuote{undated, quote("Z", "1", "1")}},
	})

	res := p.Poll(context.Background(), []model.Symbol{symA})

	assert.Equal(t, []string{"A"}, res.Unresolved)
	assert.NotContains(t, res.Best, "Z")
}

func TestPoll_TerminatesWithinDeadlinePlusOneCall(t *testing.T) {
	t.Parallel()

	cfg := poller.DefaultConfig()
	slow := tick{err: context.DeadlineExceeded, cost: cfg.CallTimeout}
	p, _, _ := newPoller(t, cfg, []tick{slow, slow, slow, slow, slow, slow})

	res := p.Poll(context.Background(), []model.Symbol{symA, symB})

	assert.LessOrEqual(t, res.Elapsed, cfg.Deadline+cfg.CallTimeout)
	assert.Equal(t, 3, res.Ticks)
	assert.Equal(t, []string{"A", "B"}, res.Unresolved)
}

func TestPoll_EmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := mocks.NewMockQuoteSource(ctrl)
	p := poller.New(src, clock.NewFake(time.Unix(0, 0)), poller.DefaultConfig())

	res := p.Poll(context.Background(), nil)

	assert.Zero(t, res.Ticks)
	assert.Empty(t, res.Best)
	assert.Empty(t, res.Unresolved)
}

func TestPoll_CancelledContextStopsAtNextWait(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := mocks.NewMockQuoteSource(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	src.EXPECT().
		FetchQuotes(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []model.Symbol) ([]model.RawQuote, error) {
			cancel()
			return []model.RawQuote{quote("A", "-", "1")}, nil
		}).
		Times(1)

	p := poller.New(src, clock.NewFake(time.Unix(0, 0)), poller.DefaultConfig())
	res := p.Poll(ctx, []model.Symbol{symA})

	assert.Equal(t, 1, res.Ticks)
	assert.Contains(t, res.Best, "A")
}
