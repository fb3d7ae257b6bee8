// Package ai routes chat requests to whichever LLM provider the operator
// has configured, translating between a normalized message list and the
// provider's wire format.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"havenai/pkg/domain"
)

// Format selects the wire-format adapter used for a provider.
type Format string

const (
	FormatOpenAI    Format = "openai"
	FormatAnthropic Format = "anthropic"
	FormatOllama    Format = "ollama"
	FormatCustom    Format = "custom"
)

// Auth schemes accepted in provider settings.
const (
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
	AuthNone   = "none"
)

var (
	// ErrNotConfigured is returned before any network call when no
	// endpoint has been configured.
	ErrNotConfigured = errors.New("llm provider not configured")

	// ErrUnknownFormat is returned for an unrecognized format tag.
	// There is no silent default.
	ErrUnknownFormat = errors.New("unknown api format")

	// ErrUpstreamTimeout marks a provider that accepted the request but
	// took too long to answer. Callers treat it as recoverable.
	ErrUpstreamTimeout = errors.New("llm response timed out")
)

// UpstreamError carries the provider's diagnostic for a failed call.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("llm upstream error (status %d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("llm upstream error: %s", e.Body)
}

// Message is one normalized chat turn. Image is an optional data URL;
// adapters that support vision emit multipart content for it.
type Message struct {
	Role  string
	Text  string
	Image string
}

// Settings is the resolved provider configuration handed to the adapters.
type Settings struct {
	Format        Format
	Endpoint      string
	APIKey        string
	AuthType      string
	Model         string
	Temperature   float64
	MaxTokens     int
	ExtraHeaders  map[string]string
	ExtraParams   map[string]any
	VisionEnabled bool
}

// Defaults applied when the provider row is absent or partially filled.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
	defaultModel       = "default"
)

// ResolveSettings normalizes a stored provider row into adapter settings.
// A nil row yields an unconfigured value with safe defaults; it never
// fails, so callers can probe configuration state without error handling.
// A stored temperature is kept verbatim, including 0 for deterministic
// sampling; the 0.7 default only applies when no row exists.
func ResolveSettings(rec *domain.ProviderSettings) Settings {
	if rec == nil {
		return Settings{
			Format:      FormatOpenAI,
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
			AuthType:    AuthNone,
		}
	}
	s := Settings{
		Format:        Format(rec.APIFormat),
		Endpoint:      rec.APIEndpoint,
		APIKey:        rec.APIKey,
		AuthType:      rec.AuthType,
		Model:         rec.ModelName,
		Temperature:   rec.Temperature,
		MaxTokens:     rec.MaxTokens,
		ExtraHeaders:  rec.CustomHeaders,
		ExtraParams:   rec.ExtraParams,
		VisionEnabled: rec.VisionEnabled,
	}
	if s.Format == "" {
		s.Format = FormatOpenAI
	}
	if s.Model == "" {
		s.Model = defaultModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultMaxTokens
	}
	if s.AuthType == "" {
		s.AuthType = AuthBearer
	}
	return s
}

// Configured reports whether the settings point at a reachable provider.
func (s Settings) Configured() bool {
	return s.Endpoint != ""
}

// Short dial timeout so unreachable hosts fail fast; long overall timeout
// so slow local models still get to finish.
const (
	connectTimeout = 10 * time.Second
	readTimeout    = 300 * time.Second
)

// Client dispatches chat requests to the configured provider format.
// One outbound POST per call, no retries.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a dispatcher with the shared timeout policy.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
	}
}

// Chat sends the conversation to the configured provider and returns the
// assistant's reply text. Adapter selection is a pure function of the
// format tag; unrecognized tags fail instead of defaulting.
func (c *Client) Chat(ctx context.Context, messages []Message, settings Settings) (string, error) {
	if !settings.Configured() {
		return "", ErrNotConfigured
	}
	switch settings.Format {
	case FormatOpenAI:
		return c.chatOpenAI(ctx, messages, settings)
	case FormatAnthropic:
		return c.chatAnthropic(ctx, messages, settings)
	case FormatOllama:
		return c.chatOllama(ctx, messages, settings)
	case FormatCustom:
		return c.chatCustom(ctx, messages, settings)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, settings.Format)
	}
}

// isTimeout classifies transport errors so the chat flow can handle a
// slow model differently from a broken one.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
