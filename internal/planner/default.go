package planner

import "fmt"

// defaultOutline is the deterministic fallback when outline generation fails:
// a two-chapter survey (overview, then analysis and outlook) with three
// sections each. Perspectives from the scoring pass still name the chapters
// when available.
func defaultOutline(query string, perspectives []Perspective) *outline {
	first, second := "Overview and Background", "Analysis and Implications"
	if len(perspectives) > 0 {
		first = perspectives[0].Name
	}
	if len(perspectives) > 1 {
		second = perspectives[1].Name
	}

	return &outline{
		Title: fmt.Sprintf("Research Report: %s", query),
		Chapters: []outlineChapter{
			{
				Title:       fmt.Sprintf("%s: %s", first, query),
				Perspective: first,
				Sections: []outlineSection{
					{Title: "Background and Definitions", Guidance: "Establish the core concepts and terminology the rest of the report relies on.", TargetWords: defaultTargetWords},
					{Title: "Current Landscape", Guidance: "Survey the present state, the main actors, and recent developments.", TargetWords: defaultTargetWords},
					{Title: "Key Developments", Guidance: "Trace the most consequential changes and what drove them.", TargetWords: defaultTargetWords},
				},
			},
			{
				Title:       fmt.Sprintf("%s: %s", second, query),
				Perspective: second,
				Sections: []outlineSection{
					{Title: "Core Findings", Guidance: "Present the central findings with supporting evidence.", TargetWords: defaultTargetWords},
					{Title: "Challenges and Limitations", Guidance: "Examine the open problems, trade-offs, and constraints.", TargetWords: defaultTargetWords},
					{Title: "Outlook", Guidance: "Assess likely trajectories and what would change them.", TargetWords: defaultTargetWords},
				},
			},
		},
	}
}
