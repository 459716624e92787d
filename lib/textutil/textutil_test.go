package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "top gainers", NormalizeName("  Top \t Gainers\n"))
	require.Equal(t, "1 month performance", NormalizeName("1 Month Performance"))
	require.Equal(t, "", NormalizeName(" \n "))
}
