package oz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the production catalog endpoint.
const DefaultBaseURL = "https://core.oz.com"

// Config carries everything needed to build a channel-scoped client. The
// channel id is fixed at construction; nothing on the client mutates after
// that.
type Config struct {
	BaseURL   string
	ChannelID string

	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

// Client talks to the catalog API on behalf of one channel. The bearer
// token is obtained once, when the client is built.
type Client struct {
	httpClient *http.Client
	baseURL    string
	channelID  string
}

// Query is an extra query parameter for a catalog request, e.g.
// include=video on a fetch or vodify=true on an update.
type Query struct {
	Key   string
	Value string
}

// NewClient exchanges the password-grant credentials for a token and
// returns a client scoped to the given channel.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, &AuthError{Err: errors.New("missing credentials")}
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/")

	conf := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  base + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	token, err := conf.PasswordCredentialsToken(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	httpClient := conf.Client(ctx, token)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		channelID:  cfg.ChannelID,
	}, nil
}

// Responses come back wrapped in a data envelope: a list for queries, a
// single object for writes.
type (
	listResponse struct {
		Data []Properties `json:"data"`
	}
	objectResponse struct {
		Data Properties `json:"data"`
	}
)

// FetchByExternalID queries the channel for a record of the given kind by
// its external id. It returns nil when nothing matches.
func (c *Client) FetchByExternalID(ctx context.Context, kind Kind, externalID string, extra ...Query) (*Entity, error) {
	q := url.Values{}
	q.Set("externalId", externalID)
	q.Set("all", "true")
	for _, e := range extra {
		q.Set(e.Key, e.Value)
	}

	u := fmt.Sprintf("%s/channels/%s/%s?%s", c.baseURL, c.channelID, kind.resource, q.Encode())
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, &RemoteError{Op: "fetch " + kind.name, Status: resp.StatusCode}
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("error decoding %s response: %w", kind.name, err)
	}
	if len(lr.Data) == 0 {
		return nil, nil
	}

	return entityFromProps(lr.Data[0]), nil
}

// Create posts a new record of the given kind. The payload must not carry
// an id; the catalog assigns one and it comes back on the entity.
func (c *Client) Create(ctx context.Context, kind Kind, props Properties) (*Entity, error) {
	u := fmt.Sprintf("%s/channels/%s/%s", c.baseURL, c.channelID, kind.resource)
	resp, err := c.do(ctx, http.MethodPost, u, props)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, &RemoteError{Op: "create " + kind.name, Status: resp.StatusCode}
	}

	var or objectResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("error decoding created %s: %w", kind.name, err)
	}

	return entityFromProps(or.Data), nil
}

// Update patches an existing record; props must carry the catalog id from a
// prior fetch. It returns nil when the record no longer exists — a soft
// miss, not a failure.
func (c *Client) Update(ctx context.Context, kind Kind, props Properties, extra ...Query) (*Entity, error) {
	id := props.String("id")
	if id == "" {
		return nil, fmt.Errorf("update %s: payload carries no id", kind.name)
	}

	u := fmt.Sprintf("%s/channels/%s/%s/%s", c.baseURL, c.channelID, kind.resource, url.PathEscape(id))
	if len(extra) > 0 {
		q := url.Values{}
		for _, e := range extra {
			q.Set(e.Key, e.Value)
		}
		u += "?" + q.Encode()
	}

	resp, err := c.do(ctx, http.MethodPatch, u, props)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, &RemoteError{Op: "update " + kind.name, Status: resp.StatusCode}
	}

	var or objectResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("error decoding updated %s: %w", kind.name, err)
	}

	return entityFromProps(or.Data), nil
}

func (c *Client) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating catalog request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling catalog: %w", err)
	}

	return resp, nil
}
