// Package prefs persists settings and history subject to the user's consent tier.
package prefs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/impromptu/internal/model"
)

// Storage keys.
const (
	KeyConsent  = "consent"
	KeySettings = "settings"
)

// DefaultTTL matches a one-year retention for stored preferences.
const DefaultTTL = 365 * 24 * time.Hour

// Tier is the consent level chosen by the user.
type Tier string

// Consent tiers. TierUnset means the user has not been asked yet.
const (
	TierUnset     Tier = ""
	TierNone      Tier = "none"
	TierEssential Tier = "essential"
	TierAll       Tier = "all"
)

// ParseTier parses a tier name.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierNone:
		return TierNone, nil
	case TierEssential:
		return TierEssential, nil
	case TierAll:
		return TierAll, nil
	default:
		return TierUnset, fmt.Errorf("unknown consent tier %q (want none, essential or all)", s)
	}
}

// AllowsSettings reports whether settings may be persisted.
func (t Tier) AllowsSettings() bool {
	return t == TierEssential || t == TierAll
}

// AllowsHistory reports whether history may be persisted.
func (t Tier) AllowsHistory() bool {
	return t == TierAll
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	if t == TierUnset {
		return "unset"
	}
	return string(t)
}

// KV is a string store with expiration.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// HistoryStore persists history entries.
type HistoryStore interface {
	InsertHistory(ctx context.Context, entry model.HistoryEntry) (string, error)
	ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}

// Backend is the persistence medium used by Prefs.
type Backend interface {
	KV
	HistoryStore
}

// Prefs gates persistence on the consent tier.
type Prefs struct {
	backend Backend
	logger  *slog.Logger
	tier    Tier
	ttl     time.Duration
}

// New loads the stored consent tier. A missing or unreadable tier is unset.
func New(ctx context.Context, backend Backend, logger *slog.Logger) *Prefs {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Prefs{backend: backend, logger: logger, ttl: DefaultTTL}
	raw, ok, err := backend.Get(ctx, KeyConsent)
	if err != nil {
		logger.Warn("failed to read consent", "error", err)
		return p
	}
	if !ok {
		return p
	}
	tier, err := ParseTier(raw)
	if err != nil {
		logger.Warn("ignoring stored consent", "error", err)
		return p
	}
	p.tier = tier
	return p
}

// Tier returns the current consent tier.
func (p *Prefs) Tier() Tier {
	return p.tier
}

// SetTier records the tier and deletes data the new tier does not permit.
func (p *Prefs) SetTier(ctx context.Context, tier Tier) error {
	if err := p.backend.Set(ctx, KeyConsent, string(tier), p.ttl); err != nil {
		return fmt.Errorf("failed to save consent: %w", err)
	}
	p.tier = tier
	if !tier.AllowsHistory() {
		if err := p.backend.ClearHistory(ctx); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
	}
	if !tier.AllowsSettings() {
		if err := p.backend.Delete(ctx, KeySettings); err != nil {
			return fmt.Errorf("failed to delete settings: %w", err)
		}
	}
	return nil
}

// LoadSettings overlays stored settings on base. Unreadable settings are
// logged and base is returned.
func (p *Prefs) LoadSettings(ctx context.Context, base model.Settings) model.Settings {
	raw, ok, err := p.backend.Get(ctx, KeySettings)
	if err != nil {
		p.logger.Warn("failed to read settings", "error", err)
		return base
	}
	if !ok {
		return base
	}
	out := base
	if _, err := toml.Decode(raw, &out); err != nil {
		p.logger.Warn("stored settings are corrupt, using defaults", "error", err)
		return base
	}
	return out.Sanitized()
}

// SaveSettings persists settings when the tier allows it.
func (p *Prefs) SaveSettings(ctx context.Context, s model.Settings) error {
	if !p.tier.AllowsSettings() {
		return nil
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := p.backend.Set(ctx, KeySettings, buf.String(), p.ttl); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// LoadHistory returns stored history, newest first. Read failures yield an
// empty history.
func (p *Prefs) LoadHistory(ctx context.Context, limit int) []model.HistoryEntry {
	entries, err := p.backend.ListHistory(ctx, limit)
	if err != nil {
		p.logger.Warn("failed to load history", "error", err)
		return nil
	}
	return entries
}

// AppendHistory stores entry when the tier allows it and reports whether a
// write happened.
func (p *Prefs) AppendHistory(ctx context.Context, entry model.HistoryEntry) (bool, error) {
	if !p.tier.AllowsHistory() {
		return false, nil
	}
	if _, err := p.backend.InsertHistory(ctx, entry); err != nil {
		return false, fmt.Errorf("failed to save history: %w", err)
	}
	return true, nil
}

// ClearHistory removes stored history.
func (p *Prefs) ClearHistory(ctx context.Context) error {
	if err := p.backend.ClearHistory(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
