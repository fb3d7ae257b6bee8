// Package plugins hosts the wellness features layered on top of chat. Each
// plugin can contribute a context block that is injected into the system
// prompt, and owns its own persisted state.
package plugins

import (
	"context"
	"log/slog"
	"strings"

	"havenai/pkg/store"
)

// Plugin is one wellness feature. Context returns a text block describing
// the user's recent activity for the model, or "" when there is nothing
// worth saying.
type Plugin interface {
	Name() string
	DisplayName() string
	Description() string
	Context(ctx context.Context, userID string) (string, error)
}

// Info is the wire shape for listing plugins with their per-user toggle.
type Info struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Manager keeps the plugin registry in registration order and resolves
// per-user enablement. Plugins are enabled by default until a user turns
// them off.
type Manager struct {
	store   store.Store
	plugins []Plugin
}

func NewManager(st store.Store) *Manager {
	return &Manager{store: st}
}

func (m *Manager) Register(p Plugin) {
	m.plugins = append(m.plugins, p)
}

// Lookup returns the registered plugin with the given name.
func (m *Manager) Lookup(name string) (Plugin, bool) {
	for _, p := range m.plugins {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Enabled resolves the per-user toggle, defaulting to on when no row exists.
func (m *Manager) Enabled(userID, name string) (bool, error) {
	enabled, exists, err := m.store.GetPluginEnabled(userID, name)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	return enabled, nil
}

// SetEnabled flips a plugin toggle for one user.
func (m *Manager) SetEnabled(userID, name string, enabled bool) error {
	if _, ok := m.Lookup(name); !ok {
		return ErrUnknownPlugin
	}
	return m.store.SetPluginEnabled(userID, name, enabled)
}

// List returns every registered plugin with its resolved toggle for userID.
func (m *Manager) List(userID string) ([]Info, error) {
	infos := make([]Info, 0, len(m.plugins))
	for _, p := range m.plugins {
		enabled, err := m.Enabled(userID, p.Name())
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{
			Name:        p.Name(),
			DisplayName: p.DisplayName(),
			Description: p.Description(),
			Enabled:     enabled,
		})
	}
	return infos, nil
}

// CollectContext gathers context blocks from all enabled plugins in
// registration order and joins the non-empty ones with blank lines. A
// failing plugin never breaks chat: errors and panics are logged and the
// plugin is skipped.
func (m *Manager) CollectContext(ctx context.Context, userID string) string {
	var blocks []string
	for _, p := range m.plugins {
		enabled, err := m.Enabled(userID, p.Name())
		if err != nil {
			slog.Warn("plugin enablement lookup failed", "plugin", p.Name(), "error", err)
			continue
		}
		if !enabled {
			continue
		}
		block, err := safeContext(ctx, p, userID)
		if err != nil {
			slog.Warn("plugin context failed", "plugin", p.Name(), "error", err)
			continue
		}
		if block = strings.TrimSpace(block); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func safeContext(ctx context.Context, p Plugin, userID string) (block string, err error) {
	defer func() {
		if r := recover(); r != nil {
			block = ""
			err = &panicError{plugin: p.Name(), value: r}
		}
	}()
	return p.Context(ctx, userID)
}
