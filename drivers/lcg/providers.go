package lcg

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rickchristie/gentloop"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// ProviderOpenAI selects the OpenAI API or any compatible endpoint.
	ProviderOpenAI = "openai"

	// ProviderGitHub selects the GitHub Models API.
	ProviderGitHub = "github"

	// GitHubModelsBaseURL is the OpenAI-compatible endpoint of GitHub Models.
	GitHubModelsBaseURL = "https://models.github.ai/inference"

	githubAPIVersion = "2022-11-28"
)

// ErrMissingToken is returned when a provider is created without credentials.
var ErrMissingToken = errors.New("lcg: api token is required")

// githubTransport adds the headers GitHub Models expects to every request.
type githubTransport struct {
	base http.RoundTripper
}

func (t *githubTransport) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	return t.base.RoundTrip(req)
}

// NewOpenAI creates a driver for cfg.Model on the OpenAI API. A non-empty
// baseURL points it at a compatible endpoint. Extra options are applied last.
func NewOpenAI(cfg gentloop.ModelConfig, token, baseURL string, opts ...openai.Option) (*Driver, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingToken)
	}
	base := []openai.Option{openai.WithToken(token), openai.WithModel(cfg.Model)}
	if baseURL != "" {
		base = append(base, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return configured(New(llm), cfg), nil
}

// NewGitHubModels creates a driver for cfg.Model on GitHub Models. Model
// names use the publisher/model form, such as "openai/gpt-4.1". The token is
// a fine-grained personal access token with the models:read permission.
func NewGitHubModels(cfg gentloop.ModelConfig, token string, opts ...openai.Option) (*Driver, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: create a fine-grained token with models:read and set GITHUB_TOKEN", ErrMissingToken)
	}
	base := []openai.Option{
		openai.WithBaseURL(GitHubModelsBaseURL),
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&githubTransport{base: http.DefaultTransport}),
	}
	llm, err := openai.New(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Models client: %w", err)
	}
	return configured(New(llm), cfg), nil
}

func configured(d *Driver, cfg gentloop.ModelConfig) *Driver {
	c := *d
	c.config = cfg
	return &c
}
