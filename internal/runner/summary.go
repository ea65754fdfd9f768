package runner

import "math"

// Summarize aggregates rows into counts and rounded ratios. Accuracy keeps
// three decimals, AvgFuzzy one. A zero-row input is all zeros.
func Summarize(rows []ResultRow) Stats {
	s := Stats{Total: len(rows)}
	if s.Total == 0 {
		return s
	}

	fuzzySum := 0
	for i := range rows {
		r := &rows[i]
		if r.IsCorrect {
			s.Correct++
		}
		if r.IsExact {
			s.Exact++
		}
		if r.IsAlias {
			s.Alias++
		}
		fuzzySum += r.Fuzzy
	}

	s.Accuracy = math.Round(float64(s.Correct)/float64(s.Total)*1000) / 1000
	s.AvgFuzzy = math.Round(float64(fuzzySum)/float64(s.Total)*10) / 10
	return s
}
