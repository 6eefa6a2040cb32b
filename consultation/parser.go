package consultation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Diagnosis extraction from differential-stage model output. The model
// is asked for a fenced JSON block but does not reliably produce one,
// so parsing degrades: structured block first, then a loose
// "<name> <int>%" scan, then empty. A block that parses is
// authoritative even when its list is empty; the regex only runs when
// the block is absent or malformed, so it cannot fabricate candidates
// out of prose that happens to contain percentages. This never returns
// an error; a total parse failure is the state machine's problem (it
// retries with a stricter prompt), not the caller's.

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	anyFenceRe    = regexp.MustCompile("(?s)```.*?```")
	blankRunsRe   = regexp.MustCompile(`\n{3,}`)

	// Matches "1. Migraine (72% confidence)", "- Tension headache: 40%",
	// "Cluster headache 15%". The percent sign is required; a bare
	// integer is too easy to find in prose.
	diagnosisLineRe = regexp.MustCompile(`(?:\d+\.\s*|-\s*)?([A-Za-z][A-Za-z \-']*[A-Za-z])\*{0,2}\s*(?:\(|:)?\s*(\d{1,3})\s*%\s*(?:confidence|probability|likelihood)?`)
)

// ExtractDiagnoses pulls {name, confidence} candidates out of raw model
// text. Order is preserved and duplicates are kept.
func ExtractDiagnoses(raw string) []Diagnosis {
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		if diags, ok := parseFencedJSON(m[1]); ok {
			return diags
		}
	}

	var out []Diagnosis
	for _, m := range diagnosisLineRe.FindAllStringSubmatch(raw, -1) {
		conf, err := strconv.Atoi(m[2])
		if err != nil || conf > 100 {
			continue
		}
		name := strings.TrimSpace(strings.Trim(m[1], "*"))
		if name == "" {
			continue
		}
		out = append(out, Diagnosis{Name: name, Confidence: conf})
	}
	return out
}

func parseFencedJSON(block string) ([]Diagnosis, bool) {
	var payload struct {
		Diagnoses []Diagnosis `json:"diagnoses"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(block)), &payload); err != nil {
		return nil, false
	}
	out := payload.Diagnoses[:0]
	for _, d := range payload.Diagnoses {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}
		out = append(out, d)
	}
	return out, true
}

// FormatForDisplay strips the fenced JSON block out of the raw reply so
// the patient never sees machine-readable text. If stripping leaves
// nothing, a numbered summary is synthesized from the parsed
// candidates. On input without a fenced block this is a no-op beyond
// trimming, and therefore idempotent.
func FormatForDisplay(raw string, diagnoses []Diagnosis) string {
	if len(diagnoses) == 0 {
		return strings.TrimSpace(raw)
	}

	formatted := fencedBlockRe.ReplaceAllString(raw, "")
	if strings.Contains(formatted, "```") {
		formatted = anyFenceRe.ReplaceAllString(raw, "")
	}
	formatted = blankRunsRe.ReplaceAllString(formatted, "\n\n")
	formatted = strings.TrimSpace(formatted)

	if formatted == "" {
		var b strings.Builder
		b.WriteString("Based on your symptoms, I've identified the following potential diagnoses:\n\n")
		for i, d := range diagnoses {
			fmt.Fprintf(&b, "%d. **%s** (%d%% confidence)\n", i+1, d.Name, d.Confidence)
		}
		b.WriteString("\nLet me ask you some additional questions to narrow down the diagnosis.")
		return b.String()
	}
	return formatted
}
