package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"walletlink/internal/domain"
	"walletlink/internal/domain/types"
)

var (
	// ErrDisabled is returned by a client built without a service URL.
	ErrDisabled = errors.New("verification disabled")
)

// Options configures the client.
type Options struct {
	URL       string
	Timeout   time.Duration
	CacheSize int
	HTTP      *http.Client
}

// Client implements domain.Verifier over the verification service's
// HTTP API: GET {url}/attestation/{fingerprint}.
type Client struct {
	base  string
	http  *http.Client
	cache *lru.Cache[string, domain.Attestation]
	log   zerolog.Logger
}

var _ domain.Verifier = (*Client)(nil)

// New returns a client. An empty URL yields a client whose Assess always
// fails with ErrDisabled, so callers fall back to unverified contexts.
func New(opts Options, log zerolog.Logger) *Client {
	httpClient := opts.HTTP
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 256
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, domain.Attestation](size)
	return &Client{
		base:  strings.TrimRight(opts.URL, "/"),
		http:  httpClient,
		cache: cache,
		log:   log.With().Str("component", "verify").Logger(),
	}
}

// URL returns the service base URL.
func (c *Client) URL() string { return c.base }

// Assess fetches the attestation for fingerprint.
func (c *Client) Assess(ctx context.Context, fingerprint string) (domain.Attestation, error) {
	if c.base == "" {
		return domain.Attestation{}, ErrDisabled
	}
	if a, ok := c.cache.Get(fingerprint); ok {
		return a, nil
	}

	u := c.base + "/attestation/" + url.PathEscape(fingerprint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Attestation{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Attestation{}, fmt.Errorf("verify get %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return domain.Attestation{}, fmt.Errorf("verify get %s: %s", u, resp.Status)
	}

	var a domain.Attestation
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return domain.Attestation{}, fmt.Errorf("decode attestation: %w", err)
	}
	c.cache.Add(fingerprint, a)
	c.log.Debug().Str("fingerprint", fingerprint).Bool("origin", a.Origin != nil).Msg("attestation fetched")
	return a, nil
}

// BuildContext turns an attestation into the context shown to the user.
// domain is the URL the requester claims in its metadata.
func (c *Client) BuildContext(id string, a domain.Attestation, claimed string) domain.VerifyContext {
	return domain.VerifyContext{
		ID:         id,
		Origin:     a.Origin,
		Domain:     claimed,
		IsScam:     a.IsScam,
		Validation: Validate(a, claimed),
		VerifyURL:  c.base,
	}
}

// Validate classifies an attestation against the claimed domain.
func Validate(a domain.Attestation, claimed string) domain.Validation {
	switch {
	case a.IsScam != nil && *a.IsScam:
		return types.ValidationScam
	case a.Origin == nil || *a.Origin == "":
		return types.ValidationUnknown
	case sameHost(*a.Origin, claimed):
		return types.ValidationValid
	default:
		return types.ValidationInvalid
	}
}

func sameHost(a, b string) bool {
	ha, hb := host(a), host(b)
	return ha != "" && strings.EqualFold(ha, hb)
}

func host(s string) string {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return u.Host
}
