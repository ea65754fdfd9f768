package grade

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/stellarlinkco/riddle-bench/internal/dataset"
)

// DefaultFuzzyThreshold is the fuzzy score at or above which an answer
// counts as correct when it is neither exact nor an alias.
const DefaultFuzzyThreshold = 85

// Grade classifies one candidate answer against a dataset item.
type Grade struct {
	IsExact   bool `json:"is_exact"`
	IsAlias   bool `json:"is_alias"`
	Fuzzy     int  `json:"fuzzy"`
	IsCorrect bool `json:"is_correct"`
}

var (
	articleRE = regexp.MustCompile(`(?i)\b(a|an|the)\b`)
	punctRE   = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	wsRE      = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, removes English articles as whole words, replaces
// punctuation with spaces, and collapses whitespace runs.
func Normalize(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = articleRE.ReplaceAllString(t, " ")
	t = punctRE.ReplaceAllString(t, " ")
	t = wsRE.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Answer grades prediction against item. It is total over arbitrary string
// input: an empty or malformed prediction grades incorrect, never panics.
func Answer(item *dataset.QAItem, prediction string, fuzzyThreshold int) Grade {
	if item == nil {
		return Grade{}
	}

	gold := Normalize(item.Answer)
	pred := Normalize(prediction)

	isExact := pred != "" && pred == gold

	aliasNorms := make([]string, 0, len(item.Aliases))
	isAlias := false
	for _, a := range item.Aliases {
		n := Normalize(a)
		aliasNorms = append(aliasNorms, n)
		if pred != "" && pred == n {
			isAlias = true
		}
	}

	score := tokenSetScore(pred, gold)
	for _, n := range aliasNorms {
		if s := tokenSetScore(pred, n); s > score {
			score = s
		}
	}

	return Grade{
		IsExact:   isExact,
		IsAlias:   isAlias,
		Fuzzy:     score,
		IsCorrect: isExact || isAlias || score >= fuzzyThreshold,
	}
}

func tokenSetScore(pred, target string) int {
	if pred == "" || target == "" {
		return 0
	}
	s := fuzzy.TokenSetRatio(pred, target)
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
