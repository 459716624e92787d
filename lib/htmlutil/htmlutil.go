package htmlutil

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// MetaContent returns the trimmed content attribute of the first
// <meta name="..."> tag, or "" if there is none.
func MetaContent(doc *goquery.Document, name string) string {
	meta := doc.Find(fmt.Sprintf(`meta[name="%s"]`, name)).First()
	return strings.TrimSpace(meta.AttrOr("content", ""))
}

// Title returns the whitespace-collapsed text of the document <title>.
func Title(doc *goquery.Document) string {
	nodes := doc.Find("title").Nodes
	if len(nodes) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(GetText(nodes[0])), " ")
}
