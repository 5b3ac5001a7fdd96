package testcase

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		tokens[t] = true
	}
	return tokens
}

func normalize(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(strings.ToLower(text)), " "))
}

// Select picks the best matching case for a query. Tag overlap is weighted
// double, required terms are exclusionary (a case whose scenario+steps text
// does not contain all of them is disqualified), and query-token overlap with
// the steps counts half as much as overlap with the scenario. Returns nil when
// no case qualifies.
func Select(cases []TestCase, query string, requiredTags, requiredTerms []string) *TestCase {
	if len(cases) == 0 {
		return nil
	}

	tags := lowered(requiredTags)
	terms := lowered(requiredTerms)
	queryTokens := tokenize(query)

	var best *TestCase
	bestScore := -1.0

	for i := range cases {
		c := &cases[i]
		caseTags := make(map[string]bool)
		for _, t := range c.Tags {
			caseTags[strings.ToLower(strings.TrimSpace(t))] = true
		}
		steps := strings.Join(c.Steps, " ")
		caseText := normalize(c.Scenario + " " + steps)

		score := 0.0
		for _, t := range tags {
			if caseTags[t] {
				score += 2
			}
		}

		if len(terms) > 0 {
			disqualified := false
			for _, term := range terms {
				if !strings.Contains(caseText, term) {
					disqualified = true
					break
				}
			}
			if disqualified {
				continue
			}
			score += 3 * float64(len(terms))
		}

		score += overlap(tokenize(c.Scenario), queryTokens)
		score += overlap(tokenize(steps), queryTokens) * 0.5

		if score > bestScore {
			best = c
			bestScore = score
		}
	}

	return best
}

func overlap(a, b map[string]bool) float64 {
	n := 0.0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}

func lowered(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
