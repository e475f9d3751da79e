// Package htmltext renders parsed HTML as the text a reader sees: block
// elements start new lines, table cells are spaced apart and source
// whitespace is collapsed.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Caption: true, atom.Dd: true, atom.Details: true, atom.Dialog: true,
	atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hgroup: true, atom.Hr: true, atom.Li: true,
	atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Summary: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true, atom.Body: true,
}

var hiddenElements = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Template: true, atom.Iframe: true,
}

// Text returns the visible text of every node in sel. Lines are trimmed,
// whitespace inside a line is collapsed and empty lines are dropped.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		walk(&b, n)
	}
	return Clean(b.String())
}

func walk(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(strings.Map(flattenSpace, n.Data))
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	var sep byte
	if n.Type == html.ElementNode {
		switch {
		case hiddenElements[n.DataAtom]:
			return
		case n.DataAtom == atom.Br:
			b.WriteByte('\n')
			return
		case blockElements[n.DataAtom]:
			sep = '\n'
		case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
			sep = ' '
		}
	}

	if sep != 0 {
		b.WriteByte(sep)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(b, c)
	}
	if sep != 0 {
		b.WriteByte(sep)
	}
}

// flattenSpace turns source line breaks and tabs into spaces; only element
// structure produces line breaks.
func flattenSpace(r rune) rune {
	switch r {
	case '\n', '\r', '\t', '\f', '\v':
		return ' '
	}
	return r
}

// Clean collapses whitespace within each line of s and drops empty lines.
func Clean(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
