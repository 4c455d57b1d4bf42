package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxHTMLLength bounds the cleaned HTML returned by extract steps.
const DefaultMaxHTMLLength = 100_000

// CleanedHTML is page markup reduced to its semantic structure.
type CleanedHTML struct {
	HTML        string `json:"html"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
}

var (
	skippedElements = set("script", "style", "noscript", "iframe", "embed", "object", "svg", "template")

	blockElements = set("div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "td", "th",
		"form", "fieldset", "blockquote", "pre")

	voidElements = set("area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta",
		"param", "source", "track", "wbr")

	globalAttributes = set("id", "class", "role", "name", "aria-label", "aria-describedby")

	tagAttributes = map[string]map[string]bool{
		"a":        set("href", "target"),
		"img":      set("src", "alt"),
		"input":    set("type", "placeholder", "value"),
		"textarea": set("placeholder"),
		"select":   set("multiple"),
		"option":   set("value", "selected"),
		"button":   set("type"),
		"form":     set("action", "method"),
		"label":    set("for"),
	}
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}

// CleanHTML strips scripts, styles and presentational attributes from raw,
// keeping the elements and attributes useful for writing selectors. Output
// beyond maxLength is cut and marked truncated; maxLength <= 0 means
// DefaultMaxHTMLLength.
func CleanHTML(raw string, maxLength int) (*CleanedHTML, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxHTMLLength
	}

	c := &htmlCleaner{max: maxLength}
	c.node(doc, 0)

	return &CleanedHTML{
		HTML:        strings.TrimSpace(c.out.String()),
		Title:       findText(doc, "title"),
		Description: findMetaDescription(doc),
		Truncated:   c.truncated,
	}, nil
}

type htmlCleaner struct {
	out       strings.Builder
	max       int
	truncated bool
}

func (c *htmlCleaner) write(s string) {
	if c.truncated {
		return
	}
	if c.out.Len()+len(s) > c.max {
		c.out.WriteString(s[:c.max-c.out.Len()])
		c.out.WriteString("...")
		c.truncated = true
		return
	}
	c.out.WriteString(s)
}

func (c *htmlCleaner) node(n *html.Node, depth int) {
	if c.truncated {
		return
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			c.write(html.EscapeString(text))
		}
		return
	case html.ElementNode:
		c.element(n, depth)
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.node(child, depth)
	}
}

func (c *htmlCleaner) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if skippedElements[tag] {
		return
	}

	// html, head and body are structure only
	if tag == "html" || tag == "head" || tag == "body" {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if tag == "head" && !(child.Type == html.ElementNode && child.Data == "title") {
				continue
			}
			c.node(child, depth)
		}
		return
	}

	block := blockElements[tag]
	if block && depth > 0 {
		c.write("\n" + strings.Repeat("  ", depth))
	}

	var open strings.Builder
	open.WriteString("<" + tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, attr.Key) {
			fmt.Fprintf(&open, ` %s="%s"`, strings.ToLower(attr.Key), html.EscapeString(attr.Val))
		}
	}
	open.WriteString(">")
	c.write(open.String())

	if voidElements[tag] {
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.node(child, depth+1)
	}

	if block && n.FirstChild != nil && n.FirstChild.Type == html.ElementNode {
		c.write("\n" + strings.Repeat("  ", depth))
	}
	c.write("</" + tag + ">")
}

func keepAttribute(tag, key string) bool {
	key = strings.ToLower(key)
	if globalAttributes[key] || strings.HasPrefix(key, "data-") {
		return true
	}
	return tagAttributes[tag][key]
}

func findText(n *html.Node, tag string) string {
	if n.Type == html.ElementNode && n.Data == tag {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if text := findText(child, tag); text != "" {
			return text
		}
	}
	return ""
}

func findMetaDescription(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var name, content string
		for _, attr := range n.Attr {
			switch attr.Key {
			case "name":
				name = strings.ToLower(attr.Val)
			case "content":
				content = attr.Val
			}
		}
		if name == "description" {
			return strings.TrimSpace(content)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if desc := findMetaDescription(child); desc != "" {
			return desc
		}
	}
	return ""
}
