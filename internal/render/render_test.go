// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestHTML_Basic(t *testing.T) {
	got, err := HTML("Texto de teste", "Obra Teste")
	require.NoError(t, err)

	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="pt-br">`,
		"<head>",
		"<body>",
		"Texto de teste",
		"<title>Obra Teste</title>",
	} {
		assert.Contains(t, got, want)
	}
	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
}

func TestHTML_Structure(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		title     string
		wantTitle string
	}{
		{name: "plain", text: "Texto simulado do PDF.", title: "sample", wantTitle: "sample"},
		{name: "empty title falls back", text: "x", title: "", wantTitle: DefaultTitle},
		{name: "empty text", text: "", title: "vazio", wantTitle: "vazio"},
		{name: "multiline text", text: "linha 1\nlinha 2\n\nlinha 4", title: "t", wantTitle: "t"},
		{name: "accents", text: "Ação educação pública", title: "Obra Nº 1", wantTitle: "Obra Nº 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := HTML(tt.text, tt.title)
			require.NoError(t, err)

			doc, err := html.Parse(strings.NewReader(out))
			require.NoError(t, err)

			require.NotNil(t, doc.FirstChild)
			assert.Equal(t, html.DoctypeNode, doc.FirstChild.Type)
			assert.Equal(t, "html", doc.FirstChild.Data)

			roots := findAll(doc, atom.Html)
			require.Len(t, roots, 1)
			assert.Equal(t, Lang, attrValue(roots[0], "lang"))

			metas := findAll(doc, atom.Meta)
			require.Len(t, metas, 2)
			assert.Equal(t, "UTF-8", attrValue(metas[0], "charset"))
			assert.Equal(t, "robots", attrValue(metas[1], "name"))
			assert.Equal(t, "noindex, nofollow", attrValue(metas[1], "content"))

			titles := findAll(doc, atom.Title)
			require.Len(t, titles, 1)
			assert.Equal(t, tt.wantTitle, textContent(titles[0]))

			mains := findAll(doc, atom.Main)
			require.Len(t, mains, 1)
			assert.Equal(t, tt.text, textContent(mains[0]))
		})
	}
}

func TestHTML_EscapesMarkup(t *testing.T) {
	text := `a < b & c <script>alert("x")</script>`
	title := `</title><b>bold</b>`

	out, err := HTML(text, title)
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, "a &lt; b &amp; c")

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Empty(t, findAll(doc, atom.Script))
	assert.Empty(t, findAll(doc, atom.B))
	assert.Equal(t, text, textContent(findAll(doc, atom.Main)[0]))
	assert.Equal(t, title, textContent(findAll(doc, atom.Title)[0]))
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	if n.Type == html.ElementNode && n.DataAtom == a {
		out = append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, findAll(c, a)...)
	}
	return out
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			b.WriteString(textContent(c))
		}
	}
	return b.String()
}
