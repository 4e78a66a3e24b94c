package scoring

// minorIssuesRatio is the fraction of criteria that must pass for a
// MINOR_ISSUES verdict instead of NOT_READY.
const minorIssuesRatio = 0.8

// Assess reduces the similarity scores and the aggregate lisp severity to a
// production readiness verdict against the configured thresholds. Score
// criteria pass at or above their threshold; the lisp criterion passes at or
// below its severity ceiling.
func (s *Scorer) Assess(sc Scores, lispSeverity float64) Assessment {
	criteria := map[string]bool{
		CriterionGlobal:      sc.Global >= s.thresholds.Global,
		CriterionLevenshtein: sc.Levenshtein >= s.thresholds.Levenshtein,
		CriterionJaccard:     sc.Jaccard >= s.thresholds.Jaccard,
		CriterionJaro:        sc.Jaro >= s.thresholds.Jaro,
		CriterionLisp:        lispSeverity <= s.thresholds.LispSeverity,
	}

	passed := 0
	for _, ok := range criteria {
		if ok {
			passed++
		}
	}

	a := Assessment{
		Criteria: criteria,
		Passed:   passed,
		Total:    len(criteria),
	}
	switch {
	case a.Passed == a.Total:
		a.Status = StatusReady
	case float64(a.Passed) >= minorIssuesRatio*float64(a.Total):
		a.Status = StatusMinorIssues
	default:
		a.Status = StatusNotReady
	}
	return a
}
