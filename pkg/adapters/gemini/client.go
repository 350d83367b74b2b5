package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/aretw0/intheflow/pkg/ports"
)

const (
	// DefaultBaseURL is the public Generative Language API endpoint. A
	// trailing version segment selects the API version.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultPollInterval is how often a pending video operation is polled.
	DefaultPollInterval = 5 * time.Second
)

// Models names the model used for each content kind.
type Models struct {
	Image  string `yaml:"image"`
	Text   string `yaml:"text"`
	Speech string `yaml:"speech"`
	Video  string `yaml:"video"`
}

// DefaultModels returns the models used when none are configured.
func DefaultModels() Models {
	return Models{
		Image:  "gemini-2.5-flash-image",
		Text:   "gemini-2.5-flash",
		Speech: "gemini-2.5-flash-preview-tts",
		Video:  "veo-3.1-fast-generate-preview",
	}
}

// KeySource supplies the API key for each request.
type KeySource interface {
	APIKey() string
}

// StaticKey is a fixed API key.
type StaticKey string

func (k StaticKey) APIKey() string { return string(k) }

// Client implements ports.Generator on top of a genai.Client built per call.
type Client struct {
	baseURL      string
	apiVersion   string
	keys         KeySource
	http         *http.Client
	models       Models
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, e.g. https://proxy.local/v1beta.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL, c.apiVersion = splitVersion(u)
		}
	}
}

// WithHTTPClient sets the HTTP client used by the SDK and for start frames.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithModels overrides individual models; empty fields keep their default.
func WithModels(m Models) Option {
	return func(c *Client) {
		if m.Image != "" {
			c.models.Image = m.Image
		}
		if m.Text != "" {
			c.models.Text = m.Text
		}
		if m.Speech != "" {
			c.models.Speech = m.Speech
		}
		if m.Video != "" {
			c.models.Video = m.Video
		}
	}
}

// WithPollInterval sets how often video operations are polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New creates a client. The base URL defaults to GEMINI_API_BASE_URL when set.
func New(keys KeySource, opts ...Option) *Client {
	c := &Client{
		keys:         keys,
		http:         &http.Client{Timeout: 5 * time.Minute},
		models:       DefaultModels(),
		pollInterval: DefaultPollInterval,
	}
	c.baseURL, c.apiVersion = splitVersion(DefaultBaseURL)
	if env := os.Getenv("GEMINI_API_BASE_URL"); env != "" {
		c.baseURL, c.apiVersion = splitVersion(env)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Models returns the configured models.
func (c *Client) Models() Models { return c.models }

var versionSegment = regexp.MustCompile(`^v\d+((alpha|beta)\d*)?$`)

// splitVersion separates a trailing API version segment from u. The SDK
// joins them back as BaseURL + APIVersion.
func splitVersion(u string) (base, version string) {
	u = strings.TrimRight(u, "/")
	parsed, err := url.Parse(u)
	if err != nil {
		return u + "/", ""
	}
	if last := path.Base(parsed.Path); versionSegment.MatchString(last) {
		parsed.Path = strings.TrimSuffix(parsed.Path, last)
		version = last
	}
	base = strings.TrimRight(parsed.String(), "/") + "/"
	return base, version
}

// sdk builds a genai client bound to the current API key.
func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	key := c.keys.APIKey()
	if key == "" {
		return nil, fmt.Errorf("%w: %w", ports.ErrCredentialRejected, ErrNoCredential)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.http,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.baseURL,
			APIVersion: c.apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return client, nil
}
