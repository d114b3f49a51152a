// Package summary renders the page returned to browsers after a flatten run.
package summary

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Link is one downloadable artifact.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Links are the artifacts of one flatten run. Archive and Report are
// optional; a zero Link is left out of the page.
type Links struct {
	Files   []Link
	Archive Link
	Report  Link
}

const title = "Summary"

// Markdown writes the summary as Markdown.
func Markdown(links Links) string {
	var sb strings.Builder
	sb.WriteString("## " + title + "\n\n")
	sb.WriteString("Your flattened JSON files can be downloaded from the following links:\n\n")
	for _, l := range links.Files {
		writeLink(&sb, l)
	}
	if links.Archive.URL != "" {
		sb.WriteString("\nAll files (zip):\n\n")
		writeLink(&sb, links.Archive)
	}
	if links.Report.URL != "" {
		sb.WriteString("\nAll collections as tables (docx):\n\n")
		writeLink(&sb, links.Report)
	}
	return sb.String()
}

func writeLink(sb *strings.Builder, l Link) {
	name := l.Name
	if name == "" {
		name = l.URL
	}
	fmt.Fprintf(sb, "- [%s](<%s>)\n", escape(name), l.URL)
}

// escape backslash-escapes Markdown punctuation so names render literally.
func escape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r < 128 && strings.ContainsRune("\\`*_{}[]<>()#+-.!|~", r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// HTML renders the summary page. Every link opens in a new tab.
func HTML(links Links) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(links)), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	doc, err := html.Parse(&body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if head := findElement(doc, atom.Head); head != nil {
		t := &html.Node{Type: html.ElementNode, DataAtom: atom.Title, Data: "title"}
		t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
		head.AppendChild(t)
	}
	openInNewTab(doc)

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return out.Bytes(), nil
}

func openInNewTab(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		setAttr(n, "target", "_blank")
		setAttr(n, "rel", "noopener noreferrer")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		openInNewTab(c)
	}
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
