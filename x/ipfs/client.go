package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config points the client at an IPFS node API and a public gateway.
type Config struct {
	// API endpoint of an IPFS node, e.g. http://127.0.0.1:5001.
	// Empty disables pinning.
	APIEndpoint string `mapstructure:"api_endpoint" yaml:"api_endpoint"`

	// Gateway base used to build shareable URLs.
	Gateway string `mapstructure:"gateway" yaml:"gateway"`
}

func DefaultConfig() Config {
	return Config{
		Gateway: "https://ipfs.io",
	}
}

// Client uploads content to an IPFS node over its HTTP API.
type Client struct {
	apiURL     *url.URL
	gateway    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient constructs a pinning client for the given node API endpoint.
func NewClient(cfg Config, httpClient *http.Client, log zerolog.Logger) (*Client, error) {
	if cfg.APIEndpoint == "" {
		return nil, errors.New("IPFS API endpoint is required")
	}
	parsed, err := url.Parse(cfg.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid IPFS API endpoint: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := log.With().Str("component", "ipfs-client").Logger()

	client := &Client{
		apiURL:     parsed,
		gateway:    strings.TrimRight(cfg.Gateway, "/"),
		httpClient: httpClient,
		log:        logger,
	}

	logger.Info().
		Str("api_endpoint", cfg.APIEndpoint).
		Str("gateway", cfg.Gateway).
		Msg("IPFS client initialized")

	return client, nil
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Add streams data to the node's /api/v0/add endpoint and returns the
// resulting CID plus a gateway URL for it.
func (c *Client) Add(ctx context.Context, name string, data io.Reader) (string, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", "", fmt.Errorf("copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", "", fmt.Errorf("finalize multipart body: %w", err)
	}

	endpoint := c.buildURL("api", "v0", "add")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", "", fmt.Errorf("prepare add request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("post to IPFS node: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", "", fmt.Errorf("IPFS node returned %s: %s", res.Status, string(msg))
	}

	var added addResponse
	if err := json.NewDecoder(res.Body).Decode(&added); err != nil {
		return "", "", fmt.Errorf("decode add response: %w", err)
	}
	if added.Hash == "" {
		return "", "", errors.New("IPFS add response missing CID")
	}

	gatewayURL := fmt.Sprintf("%s/ipfs/%s", c.gateway, added.Hash)

	c.log.Debug().
		Str("file", name).
		Str("cid", added.Hash).
		Msg("file pinned")

	return added.Hash, gatewayURL, nil
}

func (c *Client) buildURL(elem ...string) string {
	clone := *c.apiURL
	clone.Path = path.Join(append([]string{c.apiURL.Path}, elem...)...)
	return clone.String()
}
