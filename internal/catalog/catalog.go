// Package catalog supplies priced plan lists for data and cable purchases.
//
// Plans are merged from three sources, in order: admin-curated manual plans
// from the store, manual plans from an optional YAML overrides file, and the
// cached remote catalog last fetched from the provider with admin
// credentials. Manual plans always appear before remote plans; duplicates
// are kept so the displayed list matches what the administrator configured.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/store"
	"github.com/sregle/vtubot/internal/vprest"
)

// fetchAttempts are the catalog query selectors tried in order against the
// provider. Different provider versions answer different selectors.
var fetchAttempts = []string{"services", "list", "all_services", "products", "pricing"}

// Provider resolves plan lists for the dialogue engine.
type Provider struct {
	store     store.Store
	client    *vprest.Client
	adminCred models.Credential
	overrides []models.Plan // loaded from the YAML overrides file at startup
}

// Opts holds configuration options for the catalog provider.
type Opts struct {
	AdminCred     models.Credential
	OverridesPath string
}

// Option defines a configuration option for the catalog provider.
type Option func(*Opts)

// WithAdminCredential sets the admin (id, apikey) pair used only for
// catalog fetching, never for user purchases.
func WithAdminCredential(cred models.Credential) Option {
	return func(o *Opts) { o.AdminCred = cred }
}

// WithOverridesFile sets the path of the manual plan overrides YAML file.
func WithOverridesFile(path string) Option {
	return func(o *Opts) { o.OverridesPath = path }
}

// NewProvider creates a catalog provider. A missing or unreadable overrides
// file is reported but not fatal; the provider degrades to store and cache.
func NewProvider(st store.Store, client *vprest.Client, opts ...Option) *Provider {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Provider{store: st, client: client, adminCred: cfg.AdminCred}
	if cfg.OverridesPath != "" {
		overrides, err := LoadOverridesFile(cfg.OverridesPath)
		if err != nil {
			slog.Warn("catalog overrides file not loaded", "error", err, "path", cfg.OverridesPath)
		} else {
			p.overrides = overrides
			slog.Info("catalog overrides loaded", "path", cfg.OverridesPath, "count", len(overrides))
		}
	}
	return p
}

// Plans returns the ordered plan list for a kind ("data" or "cable") and its
// discriminator (network or provider name). Manual sources come first,
// preserving each source's internal order. An empty result is not an error;
// the engine degrades to manual plan-id entry.
func (p *Provider) Plans(ctx context.Context, kind, discriminator string) ([]models.Plan, error) {
	discriminator = strings.ToLower(discriminator)

	plans, err := p.store.ListManualPlans(kind, discriminator)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual plans: %w", err)
	}

	for _, o := range p.overrides {
		if o.Kind == kind && strings.EqualFold(planDiscriminator(o), discriminator) {
			plans = append(plans, o)
		}
	}

	remote, err := p.cachedPlans(kind, discriminator)
	if err != nil {
		slog.Warn("cached catalog unavailable", "error", err, "kind", kind)
	} else {
		plans = append(plans, remote...)
	}

	slog.Debug("catalog plans resolved", "kind", kind, "discriminator", discriminator, "count", len(plans))
	return plans, nil
}

// cachedPlans filters the stored (or embedded fallback) catalog snapshot.
func (p *Provider) cachedPlans(kind, discriminator string) ([]models.Plan, error) {
	cache, err := p.store.GetServicesCache()
	if err != nil {
		return nil, err
	}
	if cache == nil {
		embedded := EmbeddedServices()
		cache = &embedded
	}

	var raw []map[string]interface{}
	if kind == models.PlanKindData {
		raw = cache.Data
	} else {
		raw = cache.Cable
	}

	var plans []models.Plan
	for _, entry := range raw {
		plan := models.PlanFromMap(entry)
		plan.Kind = kind
		if matchesDiscriminator(plan, discriminator) {
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

// matchesDiscriminator accepts a plan whose network/provider (or, failing
// that, plan type or name substring) matches the requested discriminator.
func matchesDiscriminator(plan models.Plan, discriminator string) bool {
	if discriminator == "" {
		return true
	}
	for _, field := range []string{plan.Network, plan.Provider, plan.PlanType} {
		if field != "" {
			return strings.EqualFold(field, discriminator)
		}
	}
	return strings.Contains(strings.ToLower(plan.Name), discriminator)
}

func planDiscriminator(plan models.Plan) string {
	if plan.Kind == models.PlanKindData {
		return plan.Network
	}
	return plan.Provider
}

// RefreshServices fetches the provider catalog with the admin credentials
// and caches the first usable payload. It is invoked from the admin refresh
// endpoint and at startup when no cache exists yet.
func (p *Provider) RefreshServices(ctx context.Context) error {
	if p.adminCred.ExternalID == "" || p.adminCred.APIKey == "" {
		return fmt.Errorf("admin credentials not configured")
	}
	for _, q := range fetchAttempts {
		args := url.Values{}
		args.Set("q", q)
		args.Set("id", p.adminCred.ExternalID)
		args.Set("apikey", p.adminCred.APIKey)

		payload, err := p.client.CallAny(ctx, args)
		if err != nil {
			slog.Debug("catalog fetch attempt failed", "q", q, "error", err)
			continue
		}
		cache, ok := cacheFromPayload(payload)
		if !ok {
			continue
		}
		cache.FetchedAt = time.Now()
		cache.Source = q
		if err := p.store.SaveServicesCache(cache); err != nil {
			return fmt.Errorf("failed to cache services: %w", err)
		}
		slog.Info("services catalog refreshed", "source", q, "data_plans", len(cache.Data), "cable_plans", len(cache.Cable))
		return nil
	}
	return fmt.Errorf("no services could be fetched from provider")
}

// cacheFromPayload extracts plan arrays from the heterogeneous catalog
// payload shapes the provider is known to return.
func cacheFromPayload(payload interface{}) (models.ServicesCache, bool) {
	var cache models.ServicesCache
	switch t := payload.(type) {
	case map[string]interface{}:
		cache.Data = planMaps(firstPresent(t, "data", "plans", "services", "product"))
		cache.Cable = planMaps(t["cable"])
	case []interface{}:
		cache.Data = planMaps(t)
	}
	if len(cache.Data) == 0 && len(cache.Cable) == 0 {
		return cache, false
	}
	return cache, true
}

func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func planMaps(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
