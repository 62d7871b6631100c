package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits_RoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"20.00", "usd", 2000},
		{"10.005", "usd", 1001},
		{"10.004", "usd", 1000},
		{"0.125", "USD", 13},
		{"0.115", "eur", 12},
		{"1234.5", "jpy", 1235},
		{"0", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.amount+"_"+tc.currency, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tc.amount), tc.currency)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToMinorUnits_FloatWouldDrift(t *testing.T) {
	// 1.005 is 1.00499999999999989... as a float64; the decimal path must still give 101.
	got, err := ToMinorUnits(decimal.RequireFromString("1.005"), "usd")
	require.NoError(t, err)
	assert.Equal(t, int64(101), got)
}

func TestLineTotal_SumOfManySmallPricesIsExact(t *testing.T) {
	total := decimal.Zero
	price := decimal.RequireFromString("0.10")
	for i := 0; i < 1000; i++ {
		total = total.Add(LineTotal(price, 3))
	}
	assert.True(t, total.Equal(decimal.RequireFromString("300.00")), total.String())
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, FromMinorUnits(1001, "usd").Equal(decimal.RequireFromString("10.01")))
	assert.True(t, FromMinorUnits(500, "jpy").Equal(decimal.NewFromInt(500)))
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "usd", NormalizeCurrency(""))
	assert.Equal(t, "eur", NormalizeCurrency(" EUR "))
	assert.Equal(t, int32(0), Exponent("JPY"))
}
