package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, 4, c.Len())
	require.Equal(t, "Top Gainers", c.Queries()[0].Label)
	require.Equal(t, "🚀", c.Queries()[0].Icon)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	_, err = New([]Query{{Label: " ", Query: "select 1"}})
	require.Error(t, err)
	_, err = New([]Query{{Label: "a", Query: ""}})
	require.Error(t, err)
	_, err = New([]Query{{Label: "a", Query: "x"}, {Label: "A", Query: "y"}})
	require.Error(t, err)

	c, err := New([]Query{{Label: " a ", Query: " x "}})
	require.NoError(t, err)
	require.Equal(t, []Query{{Label: "a", Query: "x"}}, c.Queries())
}

func TestQueriesIsACopy(t *testing.T) {
	c := Default()
	queries := c.Queries()
	queries[0].Label = "changed"
	require.Equal(t, "Top Gainers", c.Queries()[0].Label)
}

func TestSelect(t *testing.T) {
	c := Default()

	selected, err := c.Select("top losers", "Top Gainers")
	require.NoError(t, err)
	require.Equal(t, 2, selected.Len())
	require.Equal(t, "Top Gainers", selected.Queries()[0].Label)
	require.Equal(t, "Top Losers", selected.Queries()[1].Label)

	_, err = c.Select("unknown")
	require.Error(t, err)
}
