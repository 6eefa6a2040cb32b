package report

import (
	"regexp"
	"strings"
)

// Minimal markdown-to-HTML conversion for report bodies. The model
// output only uses headings, bold, italics and lists, so a full
// markdown engine buys nothing here.

var (
	h1Re     = regexp.MustCompile(`(?m)^# (.+)$`)
	h2Re     = regexp.MustCompile(`(?m)^## (.+)$`)
	h3Re     = regexp.MustCompile(`(?m)^### (.+)$`)
	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.+?)\*`)
	dashRe   = regexp.MustCompile(`(?m)^- (.+)$`)
	numRe    = regexp.MustCompile(`(?m)^\d+\. (.+)$`)
	brFixRe  = regexp.MustCompile(`(</h[1-3]>|</p>|</li>|</ul>|</ol>)<br>`)
)

// ToHTML renders the supported subset: #/##/### headings, **bold**,
// *italic*, dashed and numbered lists, and line breaks.
func ToHTML(text string) string {
	if text == "" {
		return ""
	}

	text = h3Re.ReplaceAllString(text, "<h3>$1</h3>")
	text = h2Re.ReplaceAllString(text, "<h2>$1</h2>")
	text = h1Re.ReplaceAllString(text, "<h1>$1</h1>")
	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")
	text = dashRe.ReplaceAllString(text, "<li>$1</li>")
	// Numbered items get a temporary tag so the wrapping pass below can
	// tell which list element a run belongs in.
	text = numRe.ReplaceAllString(text, "<oli>$1</oli>")

	// Wrap adjacent list items: dashed runs in <ul>, numbered runs in
	// <ol>. A change of marker closes one list and opens the other.
	lines := strings.Split(text, "\n")
	list := ""
	for i := range lines {
		kind := ""
		switch {
		case strings.HasPrefix(lines[i], "<li>"):
			kind = "ul"
		case strings.HasPrefix(lines[i], "<oli>"):
			kind = "ol"
			lines[i] = strings.ReplaceAll(lines[i], "<oli>", "<li>")
			lines[i] = strings.ReplaceAll(lines[i], "</oli>", "</li>")
		}
		if kind != list {
			if list != "" {
				lines[i-1] += "</" + list + ">"
			}
			if kind != "" {
				lines[i] = "<" + kind + ">" + lines[i]
			}
			list = kind
		}
	}
	if list != "" {
		lines[len(lines)-1] += "</" + list + ">"
	}

	text = strings.Join(lines, "<br>")
	return brFixRe.ReplaceAllString(text, "$1")
}
