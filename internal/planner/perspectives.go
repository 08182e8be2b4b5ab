package planner

import (
	"sort"
	"strings"
)

// Perspective is a scored analytical angle. Each surviving perspective becomes
// one chapter of the report.
type Perspective struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

const (
	explicitScore     = 1.0
	inferredScore     = 0.7
	researchBonus     = 0.2
	genericScore      = 0.3
	perspectiveCutoff = 0.4
	minPerspectives   = 2
	maxPerspectives   = 6
)

// perspectiveLexicon maps each analytical angle to the terms that signal it.
// The first keyword is the angle's own name; matching it in the query counts
// as an explicit request, matching only the others counts as inferred.
var perspectiveLexicon = []struct {
	name     string
	keywords []string
}{
	{"Technical", []string{"technical", "technology", "architecture", "implementation", "engineering", "algorithm", "infrastructure", "design"}},
	{"Economic", []string{"economic", "cost", "market", "financial", "investment", "pricing", "revenue", "industry"}},
	{"Historical", []string{"historical", "history", "evolution", "origin", "timeline", "development"}},
	{"Social", []string{"social", "society", "community", "public", "adoption", "workforce", "education"}},
	{"Regulatory", []string{"regulatory", "regulation", "policy", "legal", "law", "government", "compliance", "governance"}},
	{"Environmental", []string{"environmental", "environment", "climate", "energy", "sustainability", "emissions"}},
	{"Ethical", []string{"ethical", "ethics", "privacy", "fairness", "bias", "safety", "risk"}},
	{"Scientific", []string{"scientific", "research", "study", "evidence", "experiment", "clinical"}},
}

// genericPerspectives pad the plan when the query names too few angles.
var genericPerspectives = []string{"Overview and Background", "Analysis and Findings", "Implications and Outlook"}

// scorePerspectives derives the chapter perspectives for a query. Explicit
// angles score 1.0, inferred ones 0.7, and research support adds 0.2; angles
// at or below the cutoff are dropped, and the result is clamped to [2,6]
// perspectives, padding with generic angles when the query is too narrow.
func scorePerspectives(query, researchHighlights string) []Perspective {
	q := strings.ToLower(query)
	r := strings.ToLower(researchHighlights)

	var scored []Perspective
	for _, entry := range perspectiveLexicon {
		score := 0.0
		if strings.Contains(q, entry.keywords[0]) {
			score = explicitScore
		} else {
			for _, kw := range entry.keywords[1:] {
				if strings.Contains(q, kw) {
					score = inferredScore
					break
				}
			}
		}
		if score == 0 {
			continue
		}
		for _, kw := range entry.keywords {
			if strings.Contains(r, kw) {
				score += researchBonus
				break
			}
		}
		if score > explicitScore {
			score = explicitScore
		}
		if score > perspectiveCutoff {
			scored = append(scored, Perspective{Name: entry.name, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > maxPerspectives {
		scored = scored[:maxPerspectives]
	}
	for i := 0; len(scored) < minPerspectives && i < len(genericPerspectives); i++ {
		scored = append(scored, Perspective{Name: genericPerspectives[i], Score: genericScore})
	}
	return scored
}
