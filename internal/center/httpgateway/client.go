// Package httpgateway binds a center.Center to a remote RosterHub API: the Store is served
// by the notifications routes and the Channel by the websocket stream.
package httpgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/rosterhub-backend/internal/center"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/types"
	"github.com/google/uuid"
)

const (
	notificationsPath     = "/api/v1/notifications"
	responseBodyReadLimit = 4096
	defaultTimeout        = 10 * time.Second
)

var (
	errBaseURLRequired = errors.New("api base url is required")
	errTokenRequired   = errors.New("access token is required")
)

// Client talks to the notifications API on behalf of the token's subject.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a gateway for baseURL authenticated with token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		baseURL:    trimmed,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

var _ center.Store = (*Client)(nil)

func (c *Client) List(ctx context.Context, limit int, cursor string) (center.Page, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page center.Page
	var body struct {
		Items  json.RawMessage `json:"items"`
		Cursor string          `json:"cursor"`
	}
	if err := c.do(ctx, http.MethodGet, notificationsPath, query, &body); err != nil {
		return page, err
	}
	if len(body.Items) > 0 {
		if err := json.Unmarshal(body.Items, &page.Items); err != nil {
			return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode notifications page")
		}
	}
	page.Cursor = body.Cursor
	return page, nil
}

func (c *Client) SetRead(ctx context.Context, id uuid.UUID, read bool) error {
	action := "read"
	if !read {
		action = "unread"
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s/%s", notificationsPath, id, action), nil, nil)
}

func (c *Client) SetAllRead(ctx context.Context) (int64, error) {
	var body struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, notificationsPath+"/read-all", nil, &body); err != nil {
		return 0, err
	}
	return body.Updated, nil
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%s", notificationsPath, id), nil, nil)
}

// UnreadCount reads the server-side badge count.
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var body struct {
		Unread int64 `json:"unread"`
	}
	if err := c.do(ctx, http.MethodGet, notificationsPath+"/unread-count", nil, &body); err != nil {
		return 0, err
	}
	return body.Unread, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, dest any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, http.NoBody)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build notifications request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute notifications request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if dest == nil {
		return nil
	}

	envelope := types.SuccessEnvelope{Data: dest}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode notifications response")
	}
	return nil
}

// decodeError maps the API error envelope back onto the shared error codes so callers can
// branch with pkgerrors.Is.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "notifications request failed")
	}
	return pkgerrors.New(pkgerrors.Code(envelope.Error.Code), envelope.Error.Message)
}
