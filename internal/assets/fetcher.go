package assets

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// TemplateFetcher is the pluggable upstream template source of spec
// §4.B.3/4. A "disable remote" signal always falls back to the
// deterministic literal, keeping tests reproducible without touching
// the network (Testable Property 1).
type TemplateFetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// RestyFetcher fetches named templates from a configurable base URL
// using go-resty/resty/v2.
type RestyFetcher struct {
	Client  *resty.Client
	BaseURL string
}

// NewRestyFetcher builds a fetcher pointed at baseURL.
func NewRestyFetcher(baseURL string) *RestyFetcher {
	return &RestyFetcher{Client: resty.New(), BaseURL: baseURL}
}

func (f *RestyFetcher) Fetch(ctx context.Context, name string) (string, error) {
	resp, err := f.Client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/%s", f.BaseURL, name))
	if err != nil {
		return "", fmt.Errorf("fetch template %s: %w", name, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch template %s: status %d", name, resp.StatusCode())
	}
	return resp.String(), nil
}

// FallbackFetcher always returns the deterministic literal fallback,
// never touching the network. InitAssets uses it whenever remote fetch
// is disabled or no fetcher is given, which is how the tests reach it.
type FallbackFetcher struct{}

func (FallbackFetcher) Fetch(ctx context.Context, name string) (string, error) {
	switch name {
	case skillTemplateName:
		return fallbackSkillTemplate, nil
	case skillAgentTemplateName:
		return fallbackSkillAgentTemplate, nil
	default:
		return "", fmt.Errorf("no fallback template registered for %q", name)
	}
}

// disabledFetcher wraps another fetcher but always defers to
// FallbackFetcher when disabled is true — the "disable remote template
// fetch" global made an explicit field (spec §9 Design Notes).
type disabledFetcher struct {
	inner    TemplateFetcher
	disabled bool
}

func (d disabledFetcher) Fetch(ctx context.Context, name string) (string, error) {
	if d.disabled || d.inner == nil {
		return FallbackFetcher{}.Fetch(ctx, name)
	}
	return d.inner.Fetch(ctx, name)
}
