package sink

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"testing"
)

func TestSafeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"azure_openai:gpt-4o", "azure_openai_gpt-4o"},
		{"openrouter:meta-llama/llama-3.1-8b-instruct", "openrouter_meta-llama_llama-3.1-8b-instruct"},
		{"azure_openai:gpt-5-mini(gpt-5-mini-eastus)", "azure_openai_gpt-5-mini(gpt-5-mini-eastus)"},
		{"  spaced out  ", "spaced_out"},
		{"../../etc/passwd", "etc_passwd"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := SafeName(tc.in); got != tc.want {
			t.Fatalf("SafeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOpenModelTruncates(t *testing.T) {
	t.Parallel()

	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}

	f, err := d.OpenModel("groq:m")
	if err != nil {
		t.Fatalf("OpenModel: %v", err)
	}
	if err := f.Append(map[string]string{"id": "stale"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening for a new run must drop rows from the previous one.
	f, err = d.OpenModel("groq:m")
	if err != nil {
		t.Fatalf("OpenModel: %v", err)
	}
	if err := f.Append(map[string]string{"id": "fresh"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_ = f.Close()

	b, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != `{"id":"fresh"}`+"\n" {
		t.Fatalf("got %q", b)
	}
}

func TestConcurrentAppends(t *testing.T) {
	t.Parallel()

	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	f, err := d.OpenModel("p:m")
	if err != nil {
		t.Fatalf("OpenModel: %v", err)
	}

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.Append(map[string]int{"i": i}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(f.Path())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	seen := make(map[int]bool)
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		var row struct {
			I int `json:"i"`
		}
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			t.Fatalf("interleaved record: %q: %v", sc.Text(), err)
		}
		if seen[row.I] {
			t.Fatalf("duplicate record %d", row.I)
		}
		seen[row.I] = true
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(seen) != n {
		t.Fatalf("got %d records, want %d", len(seen), n)
	}
}

func TestSinkErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewDir(""); err == nil {
		t.Fatalf("expected empty dir error")
	}

	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if _, err := d.OpenModel("..."); err == nil {
		t.Fatalf("expected unusable name error")
	}

	f, err := d.OpenModel("p:m")
	if err != nil {
		t.Fatalf("OpenModel: %v", err)
	}
	_ = f.Close()
	if err := f.Append(map[string]int{"i": 1}); err == nil {
		t.Fatalf("expected append-after-close error")
	}

	var nilFile *File
	if err := nilFile.Append(1); err == nil {
		t.Fatalf("nil file: expected error")
	}
	if err := nilFile.Close(); err != nil {
		t.Fatalf("nil file close: %v", err)
	}
}
