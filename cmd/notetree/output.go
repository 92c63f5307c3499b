package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/tree"
)

func displayTitle(n *model.Note) string {
	if strings.TrimSpace(n.Title) == "" {
		return "Untitled"
	}
	return n.Title
}

func formatNote(n *model.Note) string {
	line := fmt.Sprintf("%s  %s", n.ID, displayTitle(n))
	if len(n.Tags) > 0 {
		line += "  [" + strings.Join(n.Tags, ", ") + "]"
	}
	return line
}

func printNotes(w io.Writer, notes []*model.Note) {
	for _, n := range notes {
		fmt.Fprintln(w, formatNote(n))
	}
}

func printForest(w io.Writer, forest []*tree.Node) {
	tree.Walk(forest, func(n *tree.Node, depth int) bool {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), formatNote(&n.Note))
		return true
	})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// textDocument wraps plain text in a document, one paragraph per block
// separated by a blank line.
func textDocument(text string) model.Document {
	blocks := []interface{}{}
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		blocks = append(blocks, map[string]interface{}{
			"type": "paragraph",
			"content": []interface{}{
				map[string]interface{}{"type": "text", "text": para},
			},
		})
	}
	return model.Document{"type": "doc", "content": blocks}
}
