package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestMetaContent(t *testing.T) {
	doc := parse(t, `<html><head>
		<title>
			Stock   Screener
		</title>
		<meta name="viewport" content="width=device-width">
		<meta name="csrf-token" content=" abc123 ">
		<meta name="csrf-token" content="second">
	</head></html>`)

	require.Equal(t, "abc123", MetaContent(doc, "csrf-token"))
	require.Equal(t, "width=device-width", MetaContent(doc, "viewport"))
	require.Equal(t, "", MetaContent(doc, "missing"))
	require.Equal(t, "Stock Screener", Title(doc))
}

func TestMetaContentEmpty(t *testing.T) {
	doc := parse(t, `<html><head><meta name="csrf-token"></head></html>`)
	require.Equal(t, "", MetaContent(doc, "csrf-token"))
	require.Equal(t, "", Title(doc))
}
