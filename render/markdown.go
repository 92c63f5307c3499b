// Package render projects the editor's structured document into markdown.
//
// The document is first rebuilt as an HTML node tree, which is then handed to
// html-to-markdown, so the projection follows the same rules as any other
// HTML source.
package render

import (
	"fmt"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dododo1295/notetree/model"
)

// Markdown returns the markdown projection of doc.
func Markdown(doc model.Document) (string, error) {
	if len(doc) == 0 {
		return "", nil
	}
	root := element(atom.Div)
	appendBlock(root, map[string]interface{}(doc))

	out, err := htmltomarkdown.ConvertNode(root)
	if err != nil {
		return "", fmt.Errorf("failed to convert document to markdown: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// PlainText concatenates every text leaf of doc, one line per block.
func PlainText(doc model.Document) string {
	var b strings.Builder
	var walk func(v interface{})
	walk = func(v interface{}) {
		m, ok := asMap(v)
		if !ok {
			return
		}
		if text, ok := m["text"].(string); ok {
			b.WriteString(text)
		}
		for _, child := range children(m) {
			walk(child)
		}
		if isBlock(nodeType(m)) && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}
	walk(map[string]interface{}(doc))
	return strings.TrimSpace(b.String())
}

func appendBlock(parent *html.Node, v interface{}) {
	m, ok := asMap(v)
	if !ok {
		return
	}

	switch nodeType(m) {
	case "doc":
		appendChildren(parent, m)
	case "paragraph":
		p := element(atom.P)
		appendInline(p, m)
		parent.AppendChild(p)
	case "heading":
		level := clampLevel(intAttr(m, "level", 1))
		h := element(headingAtoms[level-1])
		appendInline(h, m)
		parent.AppendChild(h)
	case "blockquote":
		q := element(atom.Blockquote)
		appendChildren(q, m)
		parent.AppendChild(q)
	case "bulletList", "taskList":
		ul := element(atom.Ul)
		appendChildren(ul, m)
		parent.AppendChild(ul)
	case "orderedList":
		ol := element(atom.Ol)
		if start := intAttr(m, "start", 1); start != 1 {
			ol.Attr = append(ol.Attr, html.Attribute{Key: "start", Val: strconv.Itoa(start)})
		}
		appendChildren(ol, m)
		parent.AppendChild(ol)
	case "listItem":
		li := element(atom.Li)
		appendChildren(li, m)
		parent.AppendChild(li)
	case "taskItem":
		li := element(atom.Li)
		box := "[ ] "
		if checked, _ := attrs(m)["checked"].(bool); checked {
			box = "[x] "
		}
		li.AppendChild(text(box))
		appendChildren(li, m)
		parent.AppendChild(li)
	case "codeBlock":
		pre := element(atom.Pre)
		code := element(atom.Code)
		if lang, _ := attrs(m)["language"].(string); lang != "" {
			code.Attr = append(code.Attr, html.Attribute{Key: "class", Val: "language-" + lang})
		}
		code.AppendChild(text(PlainText(model.Document(m))))
		pre.AppendChild(code)
		parent.AppendChild(pre)
	case "horizontalRule":
		parent.AppendChild(element(atom.Hr))
	case "image":
		img := element(atom.Img)
		a := attrs(m)
		for _, key := range []string{"src", "alt", "title"} {
			if val, _ := a[key].(string); val != "" {
				img.Attr = append(img.Attr, html.Attribute{Key: key, Val: val})
			}
		}
		parent.AppendChild(img)
	case "text", "hardBreak":
		appendInlineNode(parent, m)
	default:
		// unknown blocks keep their content
		div := element(atom.Div)
		appendChildren(div, m)
		parent.AppendChild(div)
	}
}

func appendChildren(parent *html.Node, m map[string]interface{}) {
	for _, child := range children(m) {
		appendBlock(parent, child)
	}
}

func appendInline(parent *html.Node, m map[string]interface{}) {
	for _, child := range children(m) {
		if cm, ok := asMap(child); ok {
			appendInlineNode(parent, cm)
		}
	}
}

func appendInlineNode(parent *html.Node, m map[string]interface{}) {
	switch nodeType(m) {
	case "hardBreak":
		parent.AppendChild(element(atom.Br))
	case "text":
		s, _ := m["text"].(string)
		var node = text(s)
		marks, _ := asSlice(m["marks"])
		for _, mark := range marks {
			mm, ok := asMap(mark)
			if !ok {
				continue
			}
			node = wrapMark(node, mm)
		}
		parent.AppendChild(node)
	default:
		appendBlock(parent, m)
	}
}

func wrapMark(inner *html.Node, mark map[string]interface{}) *html.Node {
	var wrapper *html.Node
	switch nodeType(mark) {
	case "bold":
		wrapper = element(atom.Strong)
	case "italic":
		wrapper = element(atom.Em)
	case "strike":
		wrapper = element(atom.Del)
	case "code":
		wrapper = element(atom.Code)
	case "link":
		wrapper = element(atom.A)
		if href, _ := attrs(mark)["href"].(string); href != "" {
			wrapper.Attr = append(wrapper.Attr, html.Attribute{Key: "href", Val: href})
		}
	default:
		return inner
	}
	wrapper.AppendChild(inner)
	return wrapper
}

var headingAtoms = []atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func nodeType(m map[string]interface{}) string {
	t, _ := m["type"].(string)
	return t
}

func isBlock(t string) bool {
	switch t {
	case "paragraph", "heading", "codeBlock", "listItem", "taskItem", "blockquote":
		return true
	}
	return false
}

func attrs(m map[string]interface{}) map[string]interface{} {
	a, _ := asMap(m["attrs"])
	return a
}

func intAttr(m map[string]interface{}, key string, def int) int {
	switch v := attrs(m)[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return def
}

func clampLevel(l int) int {
	if l < 1 {
		return 1
	}
	if l > 6 {
		return 6
	}
	return l
}

func children(m map[string]interface{}) []interface{} {
	s, _ := asSlice(m["content"])
	return s
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case model.Document:
		return t, true
	}
	return nil, false
}

func asSlice(v interface{}) ([]interface{}, bool) {
	s, ok := v.([]interface{})
	return s, ok
}
