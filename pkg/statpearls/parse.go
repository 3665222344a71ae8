package statpearls

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	xlinkNS      = "http://www.w3.org/1999/xlink"
	ccByNcNd4URL = "https://creativecommons.org/licenses/by-nc-nd/4.0/"
)

// Section is one titled block of an article, addressable on the NCBI
// Bookshelf through its id.
type Section struct {
	ID       string
	Title    string
	Contents string
}

// Article is one StatPearls chapter split into sections.
type Article struct {
	ID        string
	Title     string
	Sections  []Section
	Copyright string
	License   string
}

// node is one XML element. Text is the character data before the first
// child and Tail the character data between the element's end tag and
// the next sibling.
type node struct {
	tag      string
	attrs    []xml.Attr
	text     string
	tail     string
	children []*node
}

func parseTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = xml.HTMLEntity

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			t = t.Copy()
			n := &node{tag: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			if len(cur.children) == 0 {
				cur.text += string(t)
			} else {
				last := cur.children[len(cur.children)-1]
				last.tail += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

func (n *node) attr(name string) string {
	for _, a := range n.attrs {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// xlinkAttr looks up an xlink attribute by either the resolved
// namespace or the bare prefix, depending on whether the document
// declared the namespace.
func (n *node) xlinkAttr(name string) string {
	for _, a := range n.attrs {
		if a.Name.Local == name && (a.Name.Space == xlinkNS || a.Name.Space == "xlink") {
			return a.Value
		}
	}
	return ""
}

// path returns the first element reached by following the given chain
// of child tags.
func (n *node) path(tags ...string) *node {
	if len(tags) == 0 {
		return n
	}
	for _, c := range n.children {
		if c.tag != tags[0] {
			continue
		}
		if found := c.path(tags[1:]...); found != nil {
			return found
		}
	}
	return nil
}

// child returns the first direct child with the given tag.
func (n *node) child(tag string) *node {
	for _, c := range n.children {
		if c.tag == tag {
			return c
		}
	}
	return nil
}

// descendant returns the first matching element below n in document
// order.
func (n *node) descendant(match func(*node) bool) *node {
	for _, c := range n.children {
		if match(c) {
			return c
		}
		if found := c.descendant(match); found != nil {
			return found
		}
	}
	return nil
}

// iter calls fn for n and every element below it in document order.
// Children removed by fn are not visited.
func (n *node) iter(fn func(*node)) {
	fn(n)
	for _, c := range n.children {
		c.iter(fn)
	}
}

func (n *node) clear() {
	n.attrs = nil
	n.text = ""
	n.tail = ""
	n.children = nil
}

// textContent renders an element as plain text: its own text, every
// descendant's text and tail, and finally the element's own tail.
func textContent(n *node) string {
	var sb strings.Builder
	writeItertext(&sb, n)
	sb.WriteString(n.tail)
	return sb.String()
}

func writeItertext(sb *strings.Builder, n *node) {
	sb.WriteString(n.text)
	for _, c := range n.children {
		writeItertext(sb, c)
		sb.WriteString(c.tail)
	}
}

// transformBody rewrites inline markup in place so plain-text
// extraction yields markdown. List items turn into dashed lines, bold
// runs are fenced with asterisks, and cross references and external
// links disappear along with their trailing text.
func transformBody(body *node) {
	body.iter(func(n *node) {
		switch n.tag {
		case "list-item":
			n.text = "\n- " + strings.TrimSpace(n.text)
		case "list":
			n.tail = "\n" + n.tail
		case "bold":
			n.text = "**" + strings.TrimSpace(n.text)
			n.tail = "**" + strings.TrimSpace(n.tail)
		case "xref", "ext-link":
			n.clear()
		}
	})
}

// splitSections walks the body and cuts it into sections at each sec
// element. Paragraphs and list items become content blocks of the
// section open at that point; a section is kept once it has an id, a
// title, and at least one block. An empty list item reduces to a bare
// dash and is dropped.
func splitSections(body *node) []Section {
	var sections []Section
	var id, title string
	var contents []string

	flush := func() {
		if id != "" && title != "" && len(contents) > 0 {
			sections = append(sections, Section{
				ID:       id,
				Title:    title,
				Contents: strings.Join(contents, ""),
			})
		}
	}

	stack := []*node{body}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.tag == "sec" {
			flush()
			id = n.attr("id")
			title = ""
			contents = nil
		}
		if n.tag == "title" {
			title = strings.TrimSpace(textContent(n))
			continue
		}
		if n.tag == "p" || n.tag == "list-item" {
			block := strings.TrimSpace(textContent(n))
			if n.tag == "list-item" && block == "-" {
				continue
			}
			contents = append(contents, block+"\n\n")
			continue
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
	flush()

	return sections
}

// parseArticle converts one NXML file into an Article. It returns
// (nil, nil) for files that are not chapters or are not distributed
// under the CC BY-NC-ND 4.0 license.
func parseArticle(data []byte) (*Article, error) {
	root, err := parseTree(data)
	if err != nil {
		return nil, err
	}
	if root.tag != "book-part-wrapper" {
		return nil, nil
	}
	articleID := root.attr("id")
	if articleID == "" {
		return nil, nil
	}

	copyrightElem := root.path("book-meta", "permissions", "copyright-statement")
	if copyrightElem == nil {
		return nil, nil
	}
	licenseElem := root.path("book-meta", "permissions", "license")
	if licenseElem == nil {
		return nil, nil
	}
	if licenseElem.xlinkAttr("href") != ccByNcNd4URL {
		return nil, nil
	}

	chapter := root.descendant(func(n *node) bool {
		return n.tag == "book-part" && n.attr("book-part-type") == "chapter"
	})
	if chapter == nil {
		return nil, nil
	}
	titleGroup := chapter.descendant(func(n *node) bool { return n.tag == "title-group" })
	if titleGroup == nil {
		return nil, nil
	}
	titleElem := titleGroup.child("title")
	if titleElem == nil || titleElem.text == "" {
		return nil, nil
	}
	body := chapter.descendant(func(n *node) bool { return n.tag == "body" })
	if body == nil {
		return nil, nil
	}

	transformBody(body)

	return &Article{
		ID:        articleID,
		Title:     titleElem.text,
		Sections:  splitSections(body),
		Copyright: strings.TrimSpace(textContent(copyrightElem)),
		License:   licenseCCByNcNd4,
	}, nil
}
