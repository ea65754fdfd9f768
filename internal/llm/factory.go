package llm

import (
	"fmt"

	"github.com/stellarlinkco/riddle-bench/internal/config"
)

// New builds a concrete invoker for a model spec. Credential or endpoint
// resolution failures are returned immediately; they abort only the model
// they belong to, never the run.
func New(spec config.ModelSpec) (Invoker, error) {
	apiKey, err := spec.Provider.ResolveAPIKey(spec.ProviderKey)
	if err != nil {
		return nil, err
	}
	baseURL, err := spec.Provider.ResolveBaseURL(spec.ProviderKey)
	if err != nil {
		return nil, err
	}

	model := spec.ModelID
	if spec.Deployment != "" {
		model = spec.Deployment
	}

	switch family := spec.Provider.ResolvedFamily(spec.ProviderKey); family {
	case config.FamilyAzure:
		params, err := spec.Provider.ResolveQueryParams(spec.ProviderKey)
		if err != nil {
			return nil, err
		}
		if baseURL == "" {
			return nil, fmt.Errorf("llm: provider %q: azure family requires a base url", spec.ProviderKey)
		}
		return NewAzureInvoker(apiKey, baseURL, params["api-version"], spec.ModelID, spec.Deployment), nil

	case config.FamilyAnthropic:
		params, err := spec.Provider.ResolveQueryParams(spec.ProviderKey)
		if err != nil {
			return nil, err
		}
		return NewClaudeInvoker(apiKey, model, ClaudeOptions{
			BaseURL:     baseURL,
			Headers:     spec.Provider.ResolveHeaders(),
			QueryParams: params,
		}), nil

	case config.FamilyOpenAI:
		params, err := spec.Provider.ResolveQueryParams(spec.ProviderKey)
		if err != nil {
			return nil, err
		}
		return NewOpenAIInvoker(apiKey, model, OpenAIOptions{
			BaseURL:     baseURL,
			Headers:     spec.Provider.ResolveHeaders(),
			QueryParams: params,
		}), nil

	default:
		return nil, fmt.Errorf("llm: provider %q: unknown family %q", spec.ProviderKey, family)
	}
}
