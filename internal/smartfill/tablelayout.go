// File: internal/smartfill/tablelayout.go
// Table-layout detection over a document's structured (HTML) export. Many
// assignment templates place the answer box beside or beneath a prompt cell;
// the placement strategy has to match that to avoid writing into the wrong
// cell or over the prompt itself.
package smartfill

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/studyflow-cli/api/schemas"
)

// FetchDocLayout fetches the document's structured export through the page's
// network context and classifies it. Absence of a table, a non-200 status or
// a fetch failure all yield the plain classification, never an error.
func FetchDocLayout(ctx context.Context, page Page, exportURL string, minRows int) schemas.DocTableInfo {
	body, status, err := page.FetchText(ctx, exportURL)
	if err != nil || status != 200 {
		return schemas.DocTableInfo{Layout: schemas.LayoutPlain}
	}
	return DetectLayoutFromExport(body, minRows)
}

// DetectLayoutFromExport parses exported markup and classifies the first
// qualifying table: side when at least minRows rows pair a text cell with an
// empty right cell, below when at least minRows adjacent row pairs show a
// populated row over an empty one.
func DetectLayoutFromExport(markup string, minRows int) schemas.DocTableInfo {
	if minRows < 1 {
		minRows = 2
	}
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return schemas.DocTableInfo{Layout: schemas.LayoutPlain}
	}

	for _, table := range collectElements(doc, "table") {
		rows := tableRows(table)
		if len(rows) < 2 {
			continue
		}
		if info, ok := classifyRows(rows, minRows); ok {
			return info
		}
	}
	return schemas.DocTableInfo{Layout: schemas.LayoutPlain}
}

// classifyRows applies the side test first, then the below test, over one
// table's cell text.
func classifyRows(rows [][]string, minRows int) (schemas.DocTableInfo, bool) {
	sideCount := 0
	for _, cells := range rows {
		if len(cells) == 2 && cells[0] != "" && cells[1] == "" {
			sideCount++
		}
	}
	if sideCount >= minRows {
		return schemas.DocTableInfo{Layout: schemas.LayoutSide, Rows: len(rows)}, true
	}

	belowPairs := 0
	for i := 0; i+1 < len(rows); i++ {
		if rowPopulated(rows[i]) && !rowPopulated(rows[i+1]) {
			belowPairs++
		}
	}
	if belowPairs >= minRows {
		return schemas.DocTableInfo{Layout: schemas.LayoutBelow, Rows: len(rows)}, true
	}
	return schemas.DocTableInfo{}, false
}

func rowPopulated(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return true
		}
	}
	return false
}

// tableRows flattens a table node into per-row cell text, markup stripped and
// whitespace collapsed.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	for _, tr := range collectElements(table, "tr") {
		var cells []string
		for _, cell := range collectCells(tr) {
			cells = append(cells, strings.TrimSpace(whitespaceRe.ReplaceAllString(nodeText(cell), " ")))
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}

// collectElements gathers descendant elements by tag name, skipping nested
// tables so each table is classified on its own rows.
func collectElements(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
				if tag == "table" {
					continue
				}
			}
			if c.Type == html.ElementNode && c.Data == "table" && depth > 0 {
				continue
			}
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return out
}

func collectCells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			out = append(out, c)
		}
	}
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
