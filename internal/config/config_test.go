package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `providers:
  azure_openai:
    base_url_env: AZURE_OPENAI_ENDPOINT
    api_key_env: AZURE_OPENAI_API_KEY
    query_param_envs:
      api-version: AZURE_OPENAI_API_VERSION
    models:
      - id: gpt-4o
      - id: gpt-5-mini
        deployment: gpt-5-mini-eastus
  openrouter:
    base_url: https://openrouter.ai/api/v1
    api_key_env: OPENROUTER_API_KEY
    default_headers:
      X-Title: riddle-bench
    workers: 3
    models:
      - id: meta-llama/llama-3.1-8b-instruct
  groq:
    base_url: https://api.groq.com/openai/v1
    api_key_env: GROQ_API_KEY
    models:
      - id: llama-3.1-8b-instant
  anthropic:
    family: anthropic
    api_key_env: ANTHROPIC_API_KEY
    models:
      - id: claude-sonnet-4-5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Providers) != 4 {
		t.Fatalf("got %d providers", len(cfg.Providers))
	}

	p := cfg.Providers["openrouter"]
	if p.BaseURL != "https://openrouter.ai/api/v1" || p.Workers != 3 {
		t.Fatalf("openrouter: %#v", p)
	}
	if p.Headers["X-Title"] != "riddle-bench" {
		t.Fatalf("headers: %#v", p.Headers)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"empty", "providers: {}\n"},
		{"missing api_key_env", "providers:\n  p:\n    models:\n      - id: m\n"},
		{"no models", "providers:\n  p:\n    api_key_env: K\n"},
		{"missing model id", "providers:\n  p:\n    api_key_env: K\n    models:\n      - deployment: d\n"},
		{"bad family", "providers:\n  p:\n    family: grpc\n    api_key_env: K\n    models:\n      - id: m\n"},
		{"bad yaml", ":\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	s := ModelSpec{ProviderKey: "azure_openai", ModelID: "gpt-5-mini", Deployment: "gpt-5-mini-eastus"}
	if got := s.DisplayName(); got != "azure_openai:gpt-5-mini(gpt-5-mini-eastus)" {
		t.Fatalf("got %q", got)
	}

	s = ModelSpec{ProviderKey: "groq", ModelID: "llama-3.1-8b-instant"}
	if got := s.DisplayName(); got != "groq:llama-3.1-8b-instant" {
		t.Fatalf("got %q", got)
	}

	// Deployment equal to the model id collapses to the short form.
	s = ModelSpec{ProviderKey: "azure_openai", ModelID: "gpt-4o", Deployment: "gpt-4o"}
	if got := s.DisplayName(); got != "azure_openai:gpt-4o" {
		t.Fatalf("got %q", got)
	}
}

func TestListAndResolve(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	all := List(cfg)
	if len(all) != 5 {
		t.Fatalf("List: got %d specs", len(all))
	}
	// Stable order: providers sorted by key.
	if all[0].ProviderKey != "anthropic" || all[1].ProviderKey != "azure_openai" {
		t.Fatalf("List order: %s, %s", all[0].DisplayName(), all[1].DisplayName())
	}

	specs, err := Resolve(cfg, "groq:llama-3.1-8b-instant, azure_openai:gpt-5-mini")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs", len(specs))
	}
	if specs[1].Deployment != "gpt-5-mini-eastus" {
		t.Fatalf("deployment not carried: %#v", specs[1])
	}

	if _, err := Resolve(cfg, "nope:model"); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if _, err := Resolve(cfg, "groq:nope"); err == nil {
		t.Fatalf("expected unknown model error")
	}
	if _, err := Resolve(cfg, "badformat"); err == nil {
		t.Fatalf("expected selector format error")
	}

	all2, err := Resolve(cfg, "")
	if err != nil || len(all2) != len(all) {
		t.Fatalf("empty selector: %v, %d", err, len(all2))
	}
}

func TestResolveEnvLookups(t *testing.T) {
	p := Provider{
		APIKeyEnv:      "RB_TEST_API_KEY",
		BaseURLEnv:     "RB_TEST_BASE_URL",
		QueryParamEnvs: map[string]string{"api-version": "RB_TEST_API_VERSION"},
		HeaderEnvs:     map[string]string{"X-Org": "RB_TEST_ORG"},
		Headers:        map[string]string{"X-Title": "riddle-bench"},
	}

	if _, err := p.ResolveAPIKey("p"); err == nil {
		t.Fatalf("expected missing key error")
	}
	t.Setenv("RB_TEST_API_KEY", "sk-test")
	key, err := p.ResolveAPIKey("p")
	if err != nil || key != "sk-test" {
		t.Fatalf("ResolveAPIKey: %q, %v", key, err)
	}

	if _, err := p.ResolveBaseURL("p"); err == nil {
		t.Fatalf("expected missing base url error")
	}
	t.Setenv("RB_TEST_BASE_URL", "https://example.test/v1")
	u, err := p.ResolveBaseURL("p")
	if err != nil || u != "https://example.test/v1" {
		t.Fatalf("ResolveBaseURL: %q, %v", u, err)
	}

	if _, err := p.ResolveQueryParams("p"); err == nil {
		t.Fatalf("expected missing query param error")
	}
	t.Setenv("RB_TEST_API_VERSION", "2024-08-01-preview")
	qp, err := p.ResolveQueryParams("p")
	if err != nil || qp["api-version"] != "2024-08-01-preview" {
		t.Fatalf("ResolveQueryParams: %#v, %v", qp, err)
	}

	// Env headers are optional.
	h := p.ResolveHeaders()
	if h["X-Title"] != "riddle-bench" {
		t.Fatalf("ResolveHeaders: %#v", h)
	}
	if _, ok := h["X-Org"]; ok {
		t.Fatalf("unset header env should be skipped: %#v", h)
	}
	t.Setenv("RB_TEST_ORG", "bench")
	if h := p.ResolveHeaders(); h["X-Org"] != "bench" {
		t.Fatalf("ResolveHeaders with env: %#v", h)
	}
}

func TestResolvedFamily(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key    string
		p      Provider
		want   Family
	}{
		{"azure_openai", Provider{}, FamilyAzure},
		{"anthropic", Provider{}, FamilyAnthropic},
		{"claude_proxy", Provider{}, FamilyAnthropic},
		{"openrouter", Provider{}, FamilyOpenAI},
		{"groq", Provider{}, FamilyOpenAI},
		{"custom", Provider{Family: FamilyAzure}, FamilyAzure},
	}
	for _, tc := range cases {
		if got := tc.p.ResolvedFamily(tc.key); got != tc.want {
			t.Fatalf("ResolvedFamily(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestWorkerLimits(t *testing.T) {
	t.Parallel()

	cfg := &Config{Providers: map[string]Provider{
		"azure_openai": {},
		"groq":         {},
		"openrouter":   {Workers: 9},
		"unknown":      {},
	}}

	limits := WorkerLimits(cfg)
	if limits["azure_openai"] != 20 {
		t.Fatalf("azure_openai: %d", limits["azure_openai"])
	}
	if limits["groq"] != 2 {
		t.Fatalf("groq: %d", limits["groq"])
	}
	if limits["openrouter"] != 9 {
		t.Fatalf("openrouter override: %d", limits["openrouter"])
	}
	if limits["unknown"] != DefaultWorkers {
		t.Fatalf("unknown: %d", limits["unknown"])
	}
	if got := WorkerLimits(nil); len(got) != 0 {
		t.Fatalf("nil config: %#v", got)
	}
}
