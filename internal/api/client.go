// Package api is the REST client for the chat endpoints. Failures surface as
// errors for the caller to turn into a transient notice; nothing here is
// retried beyond the transport-level backoff.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/rubamahdi10-eng/youruni-chat-client/internal/chat"
)

type Config struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	RetryMaxElapsed time.Duration
}

type Client struct {
	base     *url.URL
	token    string
	http     *http.Client
	retryMax time.Duration
	log      *zap.SugaredLogger
}

func New(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryMaxElapsed == 0 {
		cfg.RetryMaxElapsed = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Client{
		base:     base,
		token:    cfg.Token,
		http:     &http.Client{Transport: tr, Timeout: cfg.Timeout},
		retryMax: cfg.RetryMaxElapsed,
		log:      log,
	}, nil
}

// Conversations fetches the sidebar summary list.
func (c *Client) Conversations(ctx context.Context) ([]chat.ConversationSummary, error) {
	var out struct {
		Conversations []chat.ConversationSummary `json:"conversations"`
	}
	if err := c.get(ctx, "/api/chat/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// Messages fetches the thread with counterpartID. A non-zero withID asks for
// the thread between counterpartID and withID instead of defaulting to the
// viewer, which would name the wrong pair when the viewer is only observing.
func (c *Client) Messages(ctx context.Context, counterpartID, withID int64) ([]chat.Message, error) {
	var q url.Values
	if withID != 0 {
		q = url.Values{"with": []string{fmt.Sprint(withID)}}
	}
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	path := fmt.Sprintf("/api/chat/messages/%d", counterpartID)
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Users fetches the directory of users the viewer may start a chat with.
func (c *Client) Users(ctx context.Context) ([]chat.UserSummary, error) {
	var out struct {
		Users []chat.UserSummary `json:"users"`
	}
	if err := c.get(ctx, "/api/chat/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// get runs a GET with exponential backoff on network errors and 5xx.
// Non-2xx statuses map onto the sentinel errors above.
func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return backoff.Permanent(statusError(resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.retryMax
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		c.log.Warnw("request failed", "path", path, "error", err)
		return err
	}
	return nil
}

func statusError(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
