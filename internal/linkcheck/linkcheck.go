// Package linkcheck verifies the trace and footnote links of rendered pages.
//
// Each page is rendered to HTML the way a book renderer would (GFM tables,
// raw HTML kept), then anchors and links are collected from the HTML tree.
// Only links whose fragment is a generated trace or note anchor are checked.
package linkcheck

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

// Page is one rendered page. Path is slash-separated and relative to the
// book source directory; empty for draft chapters.
type Page struct {
	Path    string
	Content string
}

// Broken is a link that does not resolve.
type Broken struct {
	From   string
	Href   string
	Reason string
}

func (b Broken) String() string {
	from := b.From
	if from == "" {
		from = "(draft)"
	}
	return fmt.Sprintf("%s: %s: %s", from, b.Href, b.Reason)
}

type link struct {
	href string
}

type parsedPage struct {
	anchors map[string]bool
	links   []link
}

// Check renders every page and returns the links that point to a missing
// page or anchor, in page order.
func Check(pages []Page) ([]Broken, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	parsed := make([]parsedPage, len(pages))
	byPath := make(map[string]*parsedPage, len(pages))
	for i, p := range pages {
		var buf bytes.Buffer
		if err := md.Convert([]byte(p.Content), &buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", p.Path, err)
		}
		pp, err := parseHTML(&buf)
		if err != nil {
			return nil, fmt.Errorf("parse rendered %s: %w", p.Path, err)
		}
		parsed[i] = pp
		if p.Path != "" {
			byPath[p.Path] = &parsed[i]
		}
	}

	var broken []Broken
	for i, p := range pages {
		for _, l := range parsed[i].links {
			u, err := url.Parse(l.href)
			if err != nil {
				broken = append(broken, Broken{From: p.Path, Href: l.href, Reason: "unparseable link"})
				continue
			}
			if u.IsAbs() || u.Host != "" || !generated(u.Fragment) {
				continue
			}

			target := &parsed[i]
			if u.Path != "" {
				resolved := resolve(p.Path, u.Path)
				var ok bool
				if target, ok = byPath[resolved]; !ok {
					broken = append(broken, Broken{From: p.Path, Href: l.href, Reason: "no page " + resolved})
					continue
				}
			}
			if !target.anchors[u.Fragment] {
				broken = append(broken, Broken{From: p.Path, Href: l.href, Reason: "no anchor " + u.Fragment})
			}
		}
	}
	return broken, nil
}

func generated(fragment string) bool {
	return strings.HasPrefix(fragment, "trace") || strings.HasPrefix(fragment, "note")
}

// resolve joins a relative link path with the directory of the page at from.
// Links to rendered .html pages resolve to their markdown sources.
func resolve(from, p string) string {
	dir := "."
	if from != "" {
		dir = path.Dir(from)
	}
	resolved := path.Join(dir, p)
	if strings.HasSuffix(resolved, ".html") {
		resolved = strings.TrimSuffix(resolved, ".html") + ".md"
	}
	return resolved
}

func parseHTML(buf *bytes.Buffer) (parsedPage, error) {
	doc, err := html.Parse(buf)
	if err != nil {
		return parsedPage{}, err
	}
	pp := parsedPage{anchors: make(map[string]bool)}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				switch {
				case a.Key == "id", a.Key == "name" && n.Data == "a":
					pp.anchors[a.Val] = true
				case a.Key == "href" && n.Data == "a":
					pp.links = append(pp.links, link{href: a.Val})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return pp, nil
}
