// Package app implements the application flows behind the HTTP surface:
// accounts, chat with the configured LLM provider, conversations, provider
// administration and wellness insights.
package app

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"havenai/internal/plugins"
	"havenai/internal/util"
	"havenai/pkg/ai"
	"havenai/pkg/auth"
	"havenai/pkg/domain"
	"havenai/pkg/store"
)

// ChatClient is the outbound LLM dispatch dependency.
type ChatClient interface {
	Chat(ctx context.Context, messages []ai.Message, settings ai.Settings) (string, error)
}

// App wires the store, sessions, plugin manager and LLM client together.
type App struct {
	store    store.Store
	sessions store.SessionStore
	llm      ChatClient
	plugins  *plugins.Manager

	reuseWindow  time.Duration
	historyLimit int
	now          func() time.Time
}

// Options tunes the chat heuristics. Zero values select the defaults.
type Options struct {
	// ReuseWindow bounds how stale a conversation may be and still absorb
	// the next message instead of spawning a new one.
	ReuseWindow time.Duration
	// HistoryLimit caps how many prior messages are replayed to the model.
	HistoryLimit int
}

const (
	defaultReuseWindow  = 20 * time.Minute
	defaultHistoryLimit = 20
)

func New(st store.Store, sessions store.SessionStore, llm ChatClient, pm *plugins.Manager, opts Options) *App {
	if opts.ReuseWindow <= 0 {
		opts.ReuseWindow = defaultReuseWindow
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return &App{
		store:        st,
		sessions:     sessions,
		llm:          llm,
		plugins:      pm,
		reuseWindow:  opts.ReuseWindow,
		historyLimit: opts.HistoryLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Plugins exposes the plugin manager to the HTTP layer.
func (a *App) Plugins() *plugins.Manager { return a.plugins }

// Register creates an account and opens a session.
func (a *App) Register(email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	taken, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", err
	}
	if taken {
		return domain.User{}, "", ErrEmailTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}
	now := a.now()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", err
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Login verifies credentials and opens a session.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", err
	}
	if !found || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrBadCredentials
	}
	if user.Status != domain.StatusActive {
		return domain.User{}, "", ErrAccountDisabled
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Logout revokes a session token. Unknown tokens are not an error.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserByToken resolves a session token to its account.
func (a *App) UserByToken(token string) (domain.User, bool, error) {
	userID, ok, err := a.sessions.UserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	user, found, err := a.store.GetUserByID(userID)
	if err != nil || !found {
		return domain.User{}, false, err
	}
	if user.Status != domain.StatusActive {
		return domain.User{}, false, nil
	}
	return user, true, nil
}

// BootstrapAdmin creates the admin account from config when it does not
// exist yet. A no-op when email or password is empty.
func (a *App) BootstrapAdmin(email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	taken, err := a.store.HasUserEmail(email)
	if err != nil || taken {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := a.now()
	return a.store.SaveUser(domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
