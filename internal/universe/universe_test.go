package universe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuoteHarvester/internal/model"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
symbols:
  - {code: "2330", name: TSMC, segment: TSE}
  - {code: "6488", name: GlobalWafers, segment: otc}
  - {code: "", name: Broken, segment: tse}
  - {code: "0050", name: NoSegment}
`)
	syms, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Symbol{
		{Code: "2330", Name: "TSMC", Segment: "tse"},
		{Code: "6488", Name: "GlobalWafers", Segment: "otc"},
	}, syms)
}

func TestLoad_Empty(t *testing.T) {
	_, err := Load(writeFile(t, "symbols: []\n"))
	require.ErrorIs(t, err, ErrEmpty)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	in := []model.Symbol{{Code: "3"}, {Code: "1"}, {Code: "2"}, {Code: "1"}}

	assert.Equal(t, []model.Symbol{{Code: "3"}, {Code: "1"}, {Code: "2"}}, Filter(in, nil))
	assert.Equal(t, []model.Symbol{{Code: "3"}, {Code: "1"}}, Filter(in, []string{"1", " 3", "9"}))
}
