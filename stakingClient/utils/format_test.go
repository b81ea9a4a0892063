package utils

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountToHuman(t *testing.T) {
	tests := []struct {
		name     string
		amount   math.Int
		decimals uint8
		digits   int
		want     string
	}{
		{"whole DOT", math.NewInt(10_000_000_000), 10, 4, "1"},
		{"fraction truncated", math.NewInt(12_345_678_901), 10, 4, "1.2345"},
		{"trailing zeros dropped", math.NewInt(1_500_000_000_000), 12, 4, "1.5"},
		{"below display precision", math.NewInt(1), 12, 4, "0"},
		{"zero digits", math.NewInt(2_999_999_999_999), 12, 0, "2"},
		{"nil amount", math.Int{}, 12, 4, "0"},
		{"zero decimals", math.NewInt(42), 0, 4, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AmountToHuman(tt.amount, tt.decimals, tt.digits))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.25 KSM", FormatAmount(math.NewInt(1_250_000_000_000), 12, "KSM"))
	assert.Equal(t, "1.25", FormatAmount(math.NewInt(1_250_000_000_000), 12, ""))
}

func TestAmountToMachine(t *testing.T) {
	v, err := AmountToMachine("1.5", 10)
	require.NoError(t, err)
	assert.Equal(t, "15000000000", v.String())

	v, err = AmountToMachine("20", 12)
	require.NoError(t, err)
	assert.Equal(t, "20000000000000", v.String())

	v, err = AmountToMachine("", 12)
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = AmountToMachine("0.0000000000001", 12)
	assert.Error(t, err)
	_, err = AmountToMachine("abc", 12)
	assert.Error(t, err)
	_, err = AmountToMachine("-1", 12)
	assert.Error(t, err)
}

func TestAmountRoundTrip(t *testing.T) {
	v, err := AmountToMachine("3.1415", 10)
	require.NoError(t, err)
	assert.Equal(t, "3.1415", AmountToHuman(v, 10, 4))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30s", FormatDuration(30*time.Second))
	assert.Equal(t, "-1m30s", FormatDuration(-90*time.Second))
	assert.Equal(t, "28 eras (672h0m0s)", FormatEras(28, 24*time.Hour))
}
