package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dododo1295/notetree/model"
)

func parseDoc(t *testing.T, raw string) model.Document {
	t.Helper()
	var doc model.Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		contains []string
	}{
		{
			name: "paragraph with marks",
			doc: `{"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"Hello "},
				{"type":"text","text":"world","marks":[{"type":"bold"}]}]}]}`,
			contains: []string{"Hello **world**"},
		},
		{
			name: "heading level",
			doc: `{"type":"doc","content":[{"type":"heading","attrs":{"level":2},
				"content":[{"type":"text","text":"Plans"}]}]}`,
			contains: []string{"## Plans"},
		},
		{
			name: "bullet list",
			doc: `{"type":"doc","content":[{"type":"bulletList","content":[
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"one"}]}]},
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"two"}]}]}]}]}`,
			contains: []string{"one", "two"},
		},
		{
			name: "link",
			doc: `{"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"site","marks":[{"type":"link","attrs":{"href":"https://example.com"}}]}]}]}`,
			contains: []string{"[site](https://example.com)"},
		},
		{
			name: "code block",
			doc: `{"type":"doc","content":[{"type":"codeBlock","attrs":{"language":"go"},
				"content":[{"type":"text","text":"fmt.Println(1)"}]}]}`,
			contains: []string{"```go", "fmt.Println(1)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := Markdown(parseDoc(t, tt.doc))
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, md, want)
			}
		})
	}
}

func TestMarkdownEmptyDocument(t *testing.T) {
	md, err := Markdown(model.EmptyDocument())
	require.NoError(t, err)
	assert.Equal(t, "", md)

	md, err = Markdown(nil)
	require.NoError(t, err)
	assert.Equal(t, "", md)
}

func TestMarkdownUnknownNodesKeepText(t *testing.T) {
	doc := parseDoc(t, `{"type":"doc","content":[{"type":"callout","content":[
		{"type":"paragraph","content":[{"type":"text","text":"inside"}]}]}]}`)

	md, err := Markdown(doc)
	require.NoError(t, err)
	assert.Contains(t, md, "inside")
}

func TestPlainText(t *testing.T) {
	doc := parseDoc(t, `{"type":"doc","content":[
		{"type":"paragraph","content":[{"type":"text","text":"first"}]},
		{"type":"paragraph","content":[{"type":"text","text":"second"}]}]}`)

	assert.Equal(t, "first\nsecond", PlainText(doc))
}
