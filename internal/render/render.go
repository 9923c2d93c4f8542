// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render builds the HTML5 document stored as index.html in a PNLD
// package. The document is assembled as a node tree and serialized by
// golang.org/x/net/html, so text and title are always escaped.
package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// Lang is the document language declared on the root element.
	Lang = "pt-br"

	// DefaultTitle is used when the caller passes an empty title.
	DefaultTitle = "PNLD Work"

	robots = "noindex, nofollow"
)

// HTML returns a complete HTML5 document whose <main> holds text and whose
// <title> is title.
func HTML(text, title string) (string, error) {
	if title == "" {
		title = DefaultTitle
	}

	head := element(atom.Head, nil,
		element(atom.Meta, attrs("charset", "UTF-8")),
		element(atom.Meta, attrs("name", "robots", "content", robots)),
		element(atom.Title, nil, textNode(title)),
	)
	body := element(atom.Body, nil,
		element(atom.Main, nil, textNode(text)),
	)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(textNode("\n"))
	doc.AppendChild(element(atom.Html, attrs("lang", Lang), head, body))

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return "", fmt.Errorf("rendering HTML: %w", err)
	}
	b.WriteByte('\n')
	return b.String(), nil
}

func element(a atom.Atom, attr []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attr}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// attrs builds an attribute list from key/value pairs.
func attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
