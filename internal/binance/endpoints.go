package binance

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"

	"binance_trader/internal/models"
)

// Account is the signed /fapi/v2/account answer, trimmed to what we read.
type Account struct {
	TotalWalletBalance string `json:"totalWalletBalance"`
	TotalUnrealized    string `json:"totalUnrealizedProfit"`
	AvailableBalance   string `json:"availableBalance"`
}

// Equity returns the wallet balance as a float, 0 when unparsable.
func (a Account) Equity() float64 {
	v, _ := strconv.ParseFloat(a.TotalWalletBalance, 64)
	return v
}

type AssetBalance struct {
	Asset            string `json:"asset"`
	Balance          string `json:"balance"`
	AvailableBalance string `json:"availableBalance"`
}

type PositionRisk struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	Leverage         string `json:"leverage"`
	MarginType       string `json:"marginType"`
}

// OrderAck is the exchange's answer to a new order.
type OrderAck struct {
	OrderID       int64  `json:"orderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
}

type ExchangeSymbol struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"`
}

type ExchangeInfo struct {
	Symbols []ExchangeSymbol `json:"symbols"`
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/fapi/v1/ping", nil, false)
	return err
}

func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	body, err := c.do(ctx, http.MethodGet, "/fapi/v1/time", nil, false)
	if err != nil {
		return 0, err
	}
	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := sonic.Unmarshal(body, &out); err != nil {
		return 0, err
	}
	return out.ServerTime, nil
}

func (c *Client) ExchangeInfo(ctx context.Context) (ExchangeInfo, error) {
	var out ExchangeInfo
	body, err := c.do(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false)
	if err != nil {
		return out, err
	}
	err = sonic.Unmarshal(body, &out)
	return out, err
}

// Klines fetches up to limit bars. startMs/endMs of 0 are omitted.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]models.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if startMs > 0 {
		params.Set("startTime", strconv.FormatInt(startMs, 10))
	}
	if endMs > 0 {
		params.Set("endTime", strconv.FormatInt(endMs, 10))
	}
	body, err := c.do(ctx, http.MethodGet, "/fapi/v1/klines", params, false)
	if err != nil {
		return nil, err
	}

	// Rows are heterogeneous arrays: [openTime, "o", "h", "l", "c", "v", closeTime, ...].
	var rows [][]any
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, err
	}
	bars := make([]models.Bar, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		bars = append(bars, models.Bar{
			OpenTime:  asInt64(row[0]),
			Open:      asFloat(row[1]),
			High:      asFloat(row[2]),
			Low:       asFloat(row[3]),
			Close:     asFloat(row[4]),
			Volume:    asFloat(row[5]),
			CloseTime: asInt64(row[6]),
		})
	}
	return bars, nil
}

func (c *Client) Account(ctx context.Context) (Account, error) {
	var out Account
	body, err := c.do(ctx, http.MethodGet, "/fapi/v2/account", nil, true)
	if err != nil {
		return out, err
	}
	err = sonic.Unmarshal(body, &out)
	return out, err
}

func (c *Client) Balance(ctx context.Context) ([]AssetBalance, error) {
	body, err := c.do(ctx, http.MethodGet, "/fapi/v2/balance", nil, true)
	if err != nil {
		return nil, err
	}
	var out []AssetBalance
	err = sonic.Unmarshal(body, &out)
	return out, err
}

func (c *Client) PositionRisk(ctx context.Context, symbol string) ([]PositionRisk, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	body, err := c.do(ctx, http.MethodGet, "/fapi/v2/positionRisk", params, true)
	if err != nil {
		return nil, err
	}
	var out []PositionRisk
	err = sonic.Unmarshal(body, &out)
	return out, err
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))
	_, err := c.do(ctx, http.MethodPost, "/fapi/v1/leverage", params, true)
	return err
}

func (c *Client) SetMarginType(ctx context.Context, symbol, marginType string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("marginType", marginType)
	_, err := c.do(ctx, http.MethodPost, "/fapi/v1/marginType", params, true)
	return err
}

func (c *Client) NewOrder(ctx context.Context, o models.OrderRequest) (OrderAck, error) {
	params := url.Values{}
	params.Set("symbol", o.Symbol)
	params.Set("side", o.Side)
	params.Set("type", o.Type)
	params.Set("quantity", formatQty(o.Quantity))
	if o.Price > 0 {
		params.Set("price", formatQty(o.Price))
	}
	if o.TimeInForce != "" {
		params.Set("timeInForce", o.TimeInForce)
	}
	if o.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if o.ClientOrderID != "" {
		params.Set("newClientOrderId", o.ClientOrderID)
	}

	var ack OrderAck
	body, err := c.do(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return ack, err
	}
	err = sonic.Unmarshal(body, &ack)
	return ack, err
}

func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64, clientOrderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	if orderID > 0 {
		params.Set("orderId", strconv.FormatInt(orderID, 10))
	}
	if clientOrderID != "" {
		params.Set("origClientOrderId", clientOrderID)
	}
	_, err := c.do(ctx, http.MethodDelete, "/fapi/v1/order", params, true)
	return err
}

func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]OrderAck, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	body, err := c.do(ctx, http.MethodGet, "/fapi/v1/openOrders", params, true)
	if err != nil {
		return nil, err
	}
	var out []OrderAck
	err = sonic.Unmarshal(body, &out)
	return out, err
}

// CreateListenKey opens a user-data session. The key is valid for a limited
// window and must be renewed via KeepAliveListenKey.
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/fapi/v1/listenKey", nil, false)
	if err != nil {
		return "", err
	}
	var out struct {
		ListenKey string `json:"listenKey"`
	}
	if err := sonic.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.ListenKey, nil
}

func (c *Client) KeepAliveListenKey(ctx context.Context, key string) error {
	params := url.Values{}
	params.Set("listenKey", key)
	_, err := c.do(ctx, http.MethodPut, "/fapi/v1/listenKey", params, false)
	return err
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	}
	return 0
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}
