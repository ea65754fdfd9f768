// Package analysis mines a results directory for question difficulty and
// per-model performance across an entire benchmark run.
package analysis

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stellarlinkco/riddle-bench/internal/runner"
)

const (
	questionPreviewLen = 80
	topWrongAnswers    = 3
)

// WrongAnswer is one incorrect answer string and how often models gave it.
type WrongAnswer struct {
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

// QuestionDifficulty aggregates one question's outcomes across all models.
type QuestionDifficulty struct {
	ID           string        `json:"id"`
	Question     string        `json:"question"`
	Expected     string        `json:"expected"`
	Attempts     int           `json:"attempts"`
	Correct      int           `json:"correct"`
	Accuracy     float64       `json:"accuracy"`
	AvgFuzzy     float64       `json:"avg_fuzzy"`
	WrongAnswers []WrongAnswer `json:"wrong_answers,omitempty"`
}

// ModelPerformance aggregates one model's rows.
type ModelPerformance struct {
	Model        string  `json:"model"`
	Total        int     `json:"total"`
	Accuracy     float64 `json:"accuracy"`
	ExactRate    float64 `json:"exact_rate"`
	ErrorRate    float64 `json:"error_rate"`
	AvgFuzzy     float64 `json:"avg_fuzzy"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// LoadResults reads every per-model JSONL file in dir, keyed by the model
// name recorded in the rows (file stem when rows carry none).
func LoadResults(dir string) (map[string][]runner.ResultRow, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("analysis: empty results dir")
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("analysis: glob %q: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("analysis: no result files in %q", dir)
	}

	out := make(map[string][]runner.ResultRow, len(paths))
	for _, path := range paths {
		rows, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		name := rows[0].Model
		if strings.TrimSpace(name) == "" {
			name = strings.TrimSuffix(filepath.Base(path), ".jsonl")
		}
		out[name] = append(out[name], rows...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("analysis: no rows in %q", dir)
	}
	return out, nil
}

func loadFile(path string) ([]runner.ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analysis: open %q: %w", path, err)
	}
	defer f.Close()

	var rows []runner.ResultRow
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 2*1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var row runner.ResultRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("analysis: %s line %d: %w", path, lineNum, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("analysis: read %q: %w", path, err)
	}
	return rows, nil
}

// Difficulty ranks questions hardest first by cross-model accuracy. Failed
// invocations count as attempts but never as wrong-answer text.
func Difficulty(results map[string][]runner.ResultRow) []QuestionDifficulty {
	type acc struct {
		question string
		expected string
		attempts int
		correct  int
		fuzzySum int
		wrong    map[string]int
	}

	byID := make(map[string]*acc)
	for _, rows := range results {
		for i := range rows {
			r := &rows[i]
			a := byID[r.ID]
			if a == nil {
				a = &acc{wrong: make(map[string]int)}
				byID[r.ID] = a
			}
			a.attempts++
			a.question = r.Question
			a.expected = r.AnswerRef
			a.fuzzySum += r.Fuzzy
			if r.IsCorrect {
				a.correct++
			} else if r.Succeeded {
				a.wrong[r.Answer]++
			}
		}
	}

	out := make([]QuestionDifficulty, 0, len(byID))
	for id, a := range byID {
		qd := QuestionDifficulty{
			ID:       id,
			Question: truncate(a.question, questionPreviewLen),
			Expected: a.expected,
			Attempts: a.attempts,
			Correct:  a.correct,
		}
		if a.attempts > 0 {
			qd.Accuracy = float64(a.correct) / float64(a.attempts)
			qd.AvgFuzzy = float64(a.fuzzySum) / float64(a.attempts)
		}
		qd.WrongAnswers = topWrong(a.wrong, topWrongAnswers)
		out = append(out, qd)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy < out[j].Accuracy
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Performance ranks models best first by accuracy.
func Performance(results map[string][]runner.ResultRow) []ModelPerformance {
	out := make([]ModelPerformance, 0, len(results))
	for model, rows := range results {
		if len(rows) == 0 {
			continue
		}

		var correct, exact, failed int
		var fuzzySum, latencySum int64
		for i := range rows {
			r := &rows[i]
			if r.IsCorrect {
				correct++
			}
			if r.IsExact {
				exact++
			}
			if !r.Succeeded {
				failed++
			}
			fuzzySum += int64(r.Fuzzy)
			latencySum += r.LatencyMs
		}

		total := len(rows)
		out = append(out, ModelPerformance{
			Model:        model,
			Total:        total,
			Accuracy:     float64(correct) / float64(total),
			ExactRate:    float64(exact) / float64(total),
			ErrorRate:    float64(failed) / float64(total),
			AvgFuzzy:     float64(fuzzySum) / float64(total),
			AvgLatencyMs: float64(latencySum) / float64(total),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy > out[j].Accuracy
		}
		return out[i].Model < out[j].Model
	})
	return out
}

func topWrong(counts map[string]int, n int) []WrongAnswer {
	if len(counts) == 0 {
		return nil
	}
	out := make([]WrongAnswer, 0, len(counts))
	for answer, count := range counts {
		out = append(out, WrongAnswer{Answer: answer, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Answer < out[j].Answer
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
