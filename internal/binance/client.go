package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Config carries REST credentials and endpoints for USDⓈ-M futures.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // e.g. https://testnet.binancefuture.com
}

// Client is a minimal REST client for /fapi. All methods are safe for
// concurrent use; the client keeps no per-request state.
type Client struct {
	key    string
	secret string
	base   string
	http   *http.Client
	log    *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		key:    cfg.APIKey,
		secret: cfg.APISecret,
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		log:    log,
	}
}

// sign computes the lowercase-hex HMAC-SHA256 of the encoded query string.
func (c *Client) sign(query string) string {
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// do issues one HTTP call. Signed calls get a millisecond timestamp injected
// before encoding and `&signature=<hex>` appended after. Any status >= 400
// surfaces as *APIError with the raw body.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}

	endpoint := c.base + path
	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		query := params.Encode()
		endpoint += "?" + query + "&signature=" + c.sign(query)
	} else if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if signed || c.key != "" {
		req.Header.Set("X-MBX-APIKEY", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug("binance request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
