package report

import (
	"strings"
	"testing"
)

func TestToHTMLHeadings(t *testing.T) {
	got := ToHTML("# Report\n## Diagnosis\n### Details")
	for _, want := range []string{"<h1>Report</h1>", "<h2>Diagnosis</h2>", "<h3>Details</h3>"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestToHTMLEmphasis(t *testing.T) {
	got := ToHTML("This is **important** and this is *subtle*.")
	if !strings.Contains(got, "<strong>important</strong>") {
		t.Fatalf("bold not converted: %q", got)
	}
	if !strings.Contains(got, "<em>subtle</em>") {
		t.Fatalf("italic not converted: %q", got)
	}
}

func TestToHTMLWrapsAdjacentListItems(t *testing.T) {
	got := ToHTML("- rest\n- fluids\n\n1. first\n2. second")
	if !strings.Contains(got, "<ul><li>rest</li><li>fluids</li></ul>") {
		t.Fatalf("dashed list not wrapped: %q", got)
	}
	if !strings.Contains(got, "<ol><li>first</li><li>second</li></ol>") {
		t.Fatalf("numbered list not wrapped in <ol>: %q", got)
	}
}

func TestToHTMLAdjacentListsOfDifferentKind(t *testing.T) {
	got := ToHTML("- rest\n1. first")
	if !strings.Contains(got, "<ul><li>rest</li></ul>") || !strings.Contains(got, "<ol><li>first</li></ol>") {
		t.Fatalf("marker change did not split the lists: %q", got)
	}
}

func TestToHTMLListAtEndOfInput(t *testing.T) {
	got := ToHTML("## Plan\n- rest")
	if !strings.HasSuffix(got, "</ul>") {
		t.Fatalf("trailing list left open: %q", got)
	}
}

func TestToHTMLNoRedundantBreaks(t *testing.T) {
	got := ToHTML("# Title\nBody line")
	if strings.Contains(got, "</h1><br><br>") {
		t.Fatalf("double break after heading: %q", got)
	}
	if !strings.Contains(got, "</h1>Body line") {
		t.Fatalf("break not collapsed after heading: %q", got)
	}
}

func TestToHTMLPlainLinesJoinedWithBreaks(t *testing.T) {
	got := ToHTML("line one\nline two")
	if got != "line one<br>line two" {
		t.Fatalf("got %q", got)
	}
}

func TestToHTMLEmpty(t *testing.T) {
	if got := ToHTML(""); got != "" {
		t.Fatalf("got %q", got)
	}
}
