package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/models.yaml"

// Family selects the invoker construction path for a provider.
type Family string

const (
	FamilyOpenAI    Family = "openai"    // OpenAI-compatible chat completions
	FamilyAzure     Family = "azure"     // Azure OpenAI deployments
	FamilyAnthropic Family = "anthropic" // Anthropic messages API
)

// Config is the top-level providers file.
type Config struct {
	Providers map[string]Provider `yaml:"providers"`
}

// Provider describes one API family endpoint hosting one or more models.
type Provider struct {
	Family         Family            `yaml:"family,omitempty"`
	BaseURL        string            `yaml:"base_url,omitempty"`
	BaseURLEnv     string            `yaml:"base_url_env,omitempty"`
	APIKeyEnv      string            `yaml:"api_key_env"`
	QueryParams    map[string]string `yaml:"query_params,omitempty"`
	QueryParamEnvs map[string]string `yaml:"query_param_envs,omitempty"`
	Headers        map[string]string `yaml:"default_headers,omitempty"`
	HeaderEnvs     map[string]string `yaml:"header_envs,omitempty"`
	Workers        int               `yaml:"workers,omitempty"`
	Models         []ModelEntry      `yaml:"models"`
}

// ModelEntry names one model, optionally with a deployment override used
// instead of the model id when invoking.
type ModelEntry struct {
	ID         string `yaml:"id"`
	Deployment string `yaml:"deployment,omitempty"`
}

// ModelSpec identifies one evaluable target.
type ModelSpec struct {
	ProviderKey string
	Provider    Provider
	ModelID     string
	Deployment  string
}

// DisplayName returns the run-unique identifier provider:model[(deployment)].
func (s ModelSpec) DisplayName() string {
	if s.Deployment != "" && s.Deployment != s.ModelID {
		return fmt.Sprintf("%s:%s(%s)", s.ProviderKey, s.ModelID, s.Deployment)
	}
	return fmt.Sprintf("%s:%s", s.ProviderKey, s.ModelID)
}

// Load reads and validates a providers config file.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("config: %q: no providers", path)
	}

	for key, p := range cfg.Providers {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("config: %q: provider with empty key", path)
		}
		if strings.TrimSpace(p.APIKeyEnv) == "" {
			return nil, fmt.Errorf("config: %q: provider %q: missing api_key_env", path, key)
		}
		if len(p.Models) == 0 {
			return nil, fmt.Errorf("config: %q: provider %q: no models", path, key)
		}
		for i, m := range p.Models {
			if strings.TrimSpace(m.ID) == "" {
				return nil, fmt.Errorf("config: %q: provider %q: models[%d]: missing id", path, key, i)
			}
		}
		if p.Family != "" && p.Family != FamilyOpenAI && p.Family != FamilyAzure && p.Family != FamilyAnthropic {
			return nil, fmt.Errorf("config: %q: provider %q: unknown family %q", path, key, p.Family)
		}
	}

	return &cfg, nil
}

// ResolvedFamily returns the explicit family or one inferred from the
// provider key. Unrecognized keys default to the OpenAI-compatible path.
func (p Provider) ResolvedFamily(providerKey string) Family {
	if p.Family != "" {
		return p.Family
	}
	key := strings.ToLower(strings.TrimSpace(providerKey))
	switch {
	case strings.Contains(key, "azure"):
		return FamilyAzure
	case strings.Contains(key, "anthropic"), strings.Contains(key, "claude"):
		return FamilyAnthropic
	default:
		return FamilyOpenAI
	}
}

// ResolveAPIKey reads the provider's API key from the environment.
func (p Provider) ResolveAPIKey(providerKey string) (string, error) {
	env := strings.TrimSpace(p.APIKeyEnv)
	if env == "" {
		return "", fmt.Errorf("config: provider %q: missing api_key_env", providerKey)
	}
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return "", fmt.Errorf("config: provider %q: environment variable %s not set", providerKey, env)
	}
	return v, nil
}

// ResolveBaseURL returns the configured base URL, preferring the direct
// value over the env indirection. Empty means the SDK default endpoint.
func (p Provider) ResolveBaseURL(providerKey string) (string, error) {
	if v := strings.TrimSpace(p.BaseURL); v != "" {
		return v, nil
	}
	env := strings.TrimSpace(p.BaseURLEnv)
	if env == "" {
		return "", nil
	}
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return "", fmt.Errorf("config: provider %q: environment variable %s not set", providerKey, env)
	}
	return v, nil
}

// ResolveQueryParams merges literal query params with env-sourced ones.
// A missing env var here is an error: a provider that declares one (e.g. an
// Azure api-version) cannot be invoked without it.
func (p Provider) ResolveQueryParams(providerKey string) (map[string]string, error) {
	if len(p.QueryParams) == 0 && len(p.QueryParamEnvs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(p.QueryParams)+len(p.QueryParamEnvs))
	for k, v := range p.QueryParams {
		out[k] = v
	}
	for k, env := range p.QueryParamEnvs {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" {
			return nil, fmt.Errorf("config: provider %q: environment variable %s not set", providerKey, env)
		}
		out[k] = v
	}
	return out, nil
}

// ResolveHeaders merges literal default headers with env-sourced ones.
// Env headers are optional and skipped when the variable is unset.
func (p Provider) ResolveHeaders() map[string]string {
	if len(p.Headers) == 0 && len(p.HeaderEnvs) == 0 {
		return nil
	}
	out := make(map[string]string, len(p.Headers)+len(p.HeaderEnvs))
	for k, v := range p.Headers {
		out[k] = v
	}
	for k, env := range p.HeaderEnvs {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			out[k] = v
		}
	}
	return out
}

// List returns all model specs in the config in stable provider order.
func List(cfg *Config) []ModelSpec {
	if cfg == nil {
		return nil
	}

	keys := make([]string, 0, len(cfg.Providers))
	for k := range cfg.Providers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var specs []ModelSpec
	for _, key := range keys {
		p := cfg.Providers[key]
		for _, m := range p.Models {
			specs = append(specs, ModelSpec{
				ProviderKey: key,
				Provider:    p,
				ModelID:     m.ID,
				Deployment:  m.Deployment,
			})
		}
	}
	return specs
}

// Resolve parses a CSV selector of provider:model_id pairs. An empty
// selector returns every model in the config.
func Resolve(cfg *Config, selector string) ([]ModelSpec, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config: nil config")
	}
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return List(cfg), nil
	}

	var specs []ModelSpec
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prov, model, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("config: selector %q: expected provider:model_id", part)
		}
		prov = strings.TrimSpace(prov)
		model = strings.TrimSpace(model)

		p, ok := cfg.Providers[prov]
		if !ok {
			return nil, fmt.Errorf("config: unknown provider %q", prov)
		}

		found := false
		for _, m := range p.Models {
			if m.ID != model {
				continue
			}
			specs = append(specs, ModelSpec{
				ProviderKey: prov,
				Provider:    p,
				ModelID:     m.ID,
				Deployment:  m.Deployment,
			})
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("config: model %q not found under provider %q", model, prov)
		}
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("config: selector %q matched no models", selector)
	}
	return specs, nil
}

// defaultWorkerLimits are conservative per-provider in-flight request caps,
// tuned to each provider family's typical rate limits.
var defaultWorkerLimits = map[string]int{
	"azure_openai": 20,
	"openrouter":   5,
	"groq":         2,
	"anthropic":    4,
}

// DefaultWorkers is the pool size for providers without a configured or
// known default limit.
const DefaultWorkers = 5

// WorkerLimits builds the per-provider concurrency map: explicit workers
// from the config win, then known per-provider defaults, then DefaultWorkers.
func WorkerLimits(cfg *Config) map[string]int {
	out := make(map[string]int)
	if cfg == nil {
		return out
	}
	for key, p := range cfg.Providers {
		switch {
		case p.Workers > 0:
			out[key] = p.Workers
		case defaultWorkerLimits[key] > 0:
			out[key] = defaultWorkerLimits[key]
		default:
			out[key] = DefaultWorkers
		}
	}
	return out
}
