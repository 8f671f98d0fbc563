package fetch

import (
	"strings"
	"testing"
)

func TestCleanMarkdownRemovesPageFurniture(t *testing.T) {
	in := "FF301\nSome real content\nPage 3 of 12\nMore content\nv 1.2.3\n______\nEnd"
	out := CleanMarkdown(in)
	if strings.Contains(out, "FF301") {
		t.Fatal("Expected form code removed")
	}
	if strings.Contains(out, "Page 3 of 12") {
		t.Fatal("Expected page footer removed")
	}
	if strings.Contains(out, "v 1.2.3") {
		t.Fatal("Expected version footer removed")
	}
	if strings.Contains(out, "______") {
		t.Fatal("Expected decorative rule removed")
	}
	if !strings.Contains(out, "Some real content") || !strings.Contains(out, "More content") {
		t.Fatal("Expected real content kept")
	}
}

func TestCleanMarkdownNormalizesBullets(t *testing.T) {
	in := "• first\n● second\n(1) third\n(a) fourth"
	out := CleanMarkdown(in)
	if !strings.Contains(out, "- first") || !strings.Contains(out, "- second") {
		t.Fatalf("Expected bullets normalized, got:\n%s", out)
	}
	if !strings.Contains(out, "1. third") || !strings.Contains(out, "a. fourth") {
		t.Fatalf("Expected list numbering normalized, got:\n%s", out)
	}
}

func TestCleanMarkdownCollapsesBlankLines(t *testing.T) {
	out := CleanMarkdown("a\n\n\n\n\n\nb")
	if strings.Contains(out, "\n\n\n\n") {
		t.Fatal("Expected blank line runs collapsed")
	}
}

func TestCleanMarkdownEmpty(t *testing.T) {
	if CleanMarkdown("") != "" {
		t.Fatal("Expected empty output for empty input")
	}
}

func TestTableToMarkdown(t *testing.T) {
	md := tableToMarkdown(
		[]string{"Code", "Name"},
		[][]string{{"0005", "HSBC"}, {"0700", "Tencent", "extra"}, {"0941"}},
	)
	lines := strings.Split(md, "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d:\n%s", len(lines), md)
	}
	if lines[0] != "| Code | Name |" {
		t.Fatalf("Unexpected header line: %s", lines[0])
	}
	// Long rows are clipped, short rows padded.
	if lines[3] != "| 0700 | Tencent |" {
		t.Fatalf("Expected clipped row, got: %s", lines[3])
	}
	if lines[4] != "| 0941 |  |" {
		t.Fatalf("Expected padded row, got: %s", lines[4])
	}
}

func TestTableToMarkdownGeneratedHeaders(t *testing.T) {
	md := tableToMarkdown(nil, [][]string{{"a", "b"}, {"c", "d"}})
	if !strings.HasPrefix(md, "| Col1 | Col2 |") {
		t.Fatalf("Expected generated headers, got:\n%s", md)
	}
}

func TestTablesFromMarkdown(t *testing.T) {
	text := "intro\n\n| A | B |\n| --- | --- |\n| 1 | 2 |\n| 3 | 4 |\n\noutro"
	tables := tablesFromMarkdown(text)
	if len(tables) != 1 {
		t.Fatalf("Expected 1 table, got %d", len(tables))
	}
	tbl := tables[0]
	if tbl.TableIndex != 1 {
		t.Fatalf("Expected table index 1, got %d", tbl.TableIndex)
	}
	if len(tbl.Headers) != 2 || tbl.Headers[0] != "A" {
		t.Fatalf("Unexpected headers: %v", tbl.Headers)
	}
	if tbl.RowCount != 2 {
		t.Fatalf("Expected 2 data rows, got %d", tbl.RowCount)
	}
}

func TestTablesFromMarkdownIgnoresShortBlocks(t *testing.T) {
	// Header plus separator with no data rows is not a table.
	tables := tablesFromMarkdown("| A | B |\n| --- | --- |")
	if len(tables) != 0 {
		t.Fatalf("Expected no tables, got %d", len(tables))
	}
}
