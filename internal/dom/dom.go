// Package dom is a small helper around golang.org/x/net/html node trees: it
// creates elements, clones named templates out of a template document and
// turns the link-only markdown used in audit descriptions into nodes.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrTemplateNotFound is returned when a template selector matches nothing.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrSelectorNotFound is returned when a query selector matches nothing.
	ErrSelectorNotFound = errors.New("selector not found")
)

// markdownLink matches [label](http(s) url).
var markdownLink = regexp.MustCompile(`\[(.*?)\]\((https?://.*?)\)`)

// Attrs maps attribute names to values. Nil values are skipped.
type Attrs map[string]*string

// String returns a pointer to s, for use in Attrs.
func String(s string) *string {
	return &s
}

// DOM creates nodes and clones templates from a parsed template document.
type DOM struct {
	templates *html.Node
}

// New parses the template document read from src.
func New(src io.Reader) (*DOM, error) {
	doc, err := html.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template document: %w", err)
	}

	return &DOM{templates: doc}, nil
}

// CreateElement returns a new element with the given class and attributes.
func (d *DOM) CreateElement(tag, className string, attrs Attrs) *html.Node {
	return CreateElement(tag, className, attrs)
}

// CreateElement returns a new element with the given class and attributes.
func CreateElement(tag, className string, attrs Attrs) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
	}

	if className != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: className})
	}

	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: *attrs[k]})
	}

	return n
}

// CloneTemplate returns a deep copy of the content of the template matching
// selector, as a fragment node whose children are the cloned content.
func (d *DOM) CloneTemplate(selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid template selector %q: %w", selector, err)
	}

	tmpl := sel.MatchFirst(d.templates)
	if tmpl == nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, selector)
	}

	frag := &html.Node{Type: html.DocumentNode}
	for c := tmpl.FirstChild; c != nil; c = c.NextSibling {
		frag.AppendChild(Clone(c))
	}

	return frag, nil
}

// CreateSpanFromMarkdown returns a span holding text, with [label](url) links
// converted to anchors. All other text is inserted literally.
func (d *DOM) CreateSpanFromMarkdown(text string) *html.Node {
	return CreateSpanFromMarkdown(text)
}

// CreateSpanFromMarkdown returns a span holding text, with [label](url) links
// converted to anchors. All other text is inserted literally.
func CreateSpanFromMarkdown(text string) *html.Node {
	span := CreateElement("span", "", nil)

	last := 0
	for _, m := range markdownLink.FindAllStringSubmatchIndex(text, -1) {
		appendText(span, text[last:m[0]])

		label := text[m[2]:m[3]]
		href, err := url.Parse(text[m[4]:m[5]])
		if err != nil || label == "" {
			appendText(span, text[m[0]:m[1]])
		} else {
			a := CreateElement("a", "", Attrs{
				"rel":    String("noopener"),
				"target": String("_blank"),
				"href":   String(href.String()),
			})
			SetText(a, label)
			span.AppendChild(a)
		}

		last = m[1]
	}
	appendText(span, text[last:])

	return span
}

func appendText(parent *html.Node, s string) {
	if s == "" {
		return
	}
	parent.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// Clone returns a deep copy of n, detached from any tree.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}

	return c
}

// Append adds child to parent. Fragment (document) nodes are flattened: their
// children are moved into parent. It returns child for chaining.
func Append(parent, child *html.Node) *html.Node {
	if child.Type != html.DocumentNode {
		parent.AppendChild(child)
		return child
	}

	for c := child.FirstChild; c != nil; {
		next := c.NextSibling
		child.RemoveChild(c)
		parent.AppendChild(c)
		c = next
	}

	return child
}

// Clear removes every child of n.
func Clear(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, s string) {
	Clear(n)
	appendText(n, s)
}

// TextContent concatenates all text beneath n.
func TextContent(n *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return sb.String()
}

// Attr returns the value of key on n and whether it was present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

// SetAttr sets key to val on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key from n.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")

	return strings.Fields(v)
}

// HasClass reports whether n carries class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}

	return false
}

// AddClass appends classes to n, skipping ones already present.
func AddClass(n *html.Node, classes ...string) {
	current := Classes(n)
	for _, class := range classes {
		if class == "" || HasClass(n, class) {
			continue
		}
		current = append(current, class)
		SetAttr(n, "class", strings.Join(current, " "))
	}
}

// QuerySelector returns the first node under root matching selector.
func QuerySelector(root *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	n := sel.MatchFirst(root)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrSelectorNotFound, selector)
	}

	return n, nil
}

// QuerySelectorAll returns every node under root matching selector.
func QuerySelectorAll(root *html.Node, selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	return sel.MatchAll(root), nil
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}

	return out
}

// Render writes the HTML serialisation of n to w.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// RenderString returns the HTML serialisation of n.
func RenderString(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}

	return buf.String(), nil
}
