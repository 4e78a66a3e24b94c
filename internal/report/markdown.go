// Package report renders scoring reports for human and machine consumption:
// a markdown summary for terminals and an indented JSON document with the
// stable export shape downstream tooling consumes.
package report

import (
	"fmt"
	"strings"

	"github.com/brumelabs/orthophone/internal/scoring"
)

// Markdown renders the report as a human-readable markdown summary: header,
// production readiness verdict, per-metric scores with pass/fail marks
// against the gate, word analysis, and the sibilant analysis when anything
// was flagged.
func Markdown(r *scoring.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Pronunciation Analysis\n\n")
	fmt.Fprintf(&b, "**Reference**: %s\n", r.Reference)
	fmt.Fprintf(&b, "**Transcribed**: %s\n", r.Transcribed)
	fmt.Fprintf(&b, "**Language**: %s\n", r.Language)
	fmt.Fprintf(&b, "**Evaluated**: %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "## Production Readiness\n\n")
	fmt.Fprintf(&b, "%s (%d/%d criteria met)\n\n",
		statusLabel(r.Production.Status), r.Production.Passed, r.Production.Total)

	fmt.Fprintf(&b, "## Scoring Metrics\n\n")
	fmt.Fprintf(&b, "- **Global Score**: %.1f/100 %s\n",
		r.Scores.Global, passMark(r.Production.Criteria[scoring.CriterionGlobal]))
	fmt.Fprintf(&b, "- **Levenshtein**: %.1f/100 %s\n",
		r.Scores.Levenshtein, passMark(r.Production.Criteria[scoring.CriterionLevenshtein]))
	fmt.Fprintf(&b, "- **Jaccard**: %.1f/100 %s\n",
		r.Scores.Jaccard, passMark(r.Production.Criteria[scoring.CriterionJaccard]))
	fmt.Fprintf(&b, "- **Jaro-Winkler**: %.1f/100 %s\n\n",
		r.Scores.Jaro, passMark(r.Production.Criteria[scoring.CriterionJaro]))

	fmt.Fprintf(&b, "## Word Analysis\n\n")
	fmt.Fprintf(&b, "**Missing**: %s\n", joinOrNone(r.Diff.Missing))
	fmt.Fprintf(&b, "**Added**: %s\n", joinOrNone(r.Diff.Added))
	fmt.Fprintf(&b, "**Low Confidence**: %s\n", joinOrNone(r.Diff.LowConfidence))
	if len(r.Diff.NearMisses) > 0 {
		pairs := make([]string, len(r.Diff.NearMisses))
		for i, nm := range r.Diff.NearMisses {
			pairs[i] = nm.Reference + " → " + nm.Heard
		}
		fmt.Fprintf(&b, "**Near misses**: %s\n", strings.Join(pairs, ", "))
	}

	if len(r.Lisp.Candidates) > 0 {
		fmt.Fprintf(&b, "\n## Sibilant Analysis (Severity: %.1f/5.0)\n\n", r.Lisp.Severity)
		for _, c := range r.Lisp.Candidates {
			fmt.Fprintf(&b, "- **%s** (%s) - Severity: %.1f, Confidence: %.2f\n",
				c.Word, c.Type, c.Severity, c.Confidence)
		}
		if len(r.Lisp.MissingSibilants) > 0 {
			fmt.Fprintf(&b, "\n**Missing sibilants**: %s\n",
				strings.Join(r.Lisp.MissingSibilants, ", "))
		}
	} else {
		fmt.Fprintf(&b, "\n## Sibilant Analysis\n\nNo pronunciation issues detected in sibilant sounds.\n")
	}

	return b.String()
}

// ---- helpers ----

// statusLabel maps the canonical status values to their display wording.
func statusLabel(s scoring.Status) string {
	switch s {
	case scoring.StatusReady:
		return "PRODUCTION READY"
	case scoring.StatusMinorIssues:
		return "NEEDS MINOR IMPROVEMENTS"
	case scoring.StatusNotReady:
		return "NOT PRODUCTION READY"
	default:
		return string(s)
	}
}

// passMark returns the mark rendered next to a criterion's score.
func passMark(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

// joinOrNone joins words for display, or returns the "None" placeholder.
func joinOrNone(words []string) string {
	if len(words) == 0 {
		return "None"
	}
	return strings.Join(words, ", ")
}
