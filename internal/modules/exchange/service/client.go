package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/scanner"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// StreamObserver получает состояние потока тикеров (health, метрики).
type StreamObserver interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

type Options struct {
	BaseURL string
	WSURL   string
	Timeout time.Duration
	// Снимок из потока старше StreamMaxAge не используется, 0 — поток не читаем
	StreamMaxAge time.Duration
	DetailTTL    time.Duration
}

// Client — публичный REST и поток тикеров MEXC contract.
type Client struct {
	baseURL  string
	wsURL    string
	http     *http.Client
	wsDialer *websocket.Dialer
	maxAge   time.Duration

	mu         sync.RWMutex
	snapshot   map[string]models.Ticker
	snapshotAt time.Time

	detailMu  sync.Mutex
	details   map[string]bool // symbol -> торгуется
	detailsAt time.Time
	detailTTL time.Duration

	observer StreamObserver
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://contract.mexc.com"
	}
	if opts.WSURL == "" {
		opts.WSURL = "wss://contract.mexc.com/edge"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.DetailTTL <= 0 {
		opts.DetailTTL = 10 * time.Minute
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		wsURL:     opts.WSURL,
		http:      &http.Client{Timeout: opts.Timeout},
		wsDialer:  &websocket.Dialer{HandshakeTimeout: opts.Timeout},
		maxAge:    opts.StreamMaxAge,
		snapshot:  make(map[string]models.Ticker),
		detailTTL: opts.DetailTTL,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func (c *Client) SetObserver(o StreamObserver) { c.observer = o }

type envelope struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response[T any] struct {
	Data T `json:"data"`
}

// getData делает GET и разбирает поле data. 429, 5xx и сетевые ошибки —
// временные; прочие 4xx и success=false — Permanent.
func getData[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var zero T

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, scanner.Permanent(errors.Wrap(err, "build request"))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, errors.Wrapf(err, "read %s", path)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return zero, fmt.Errorf("mexc %s: http %d", path, resp.StatusCode)
	case resp.StatusCode/100 != 2:
		return zero, scanner.Permanent(fmt.Errorf("mexc %s: http %d: %s", path, resp.StatusCode, truncate(body, 200)))
	}

	var head envelope
	if err := sonic.Unmarshal(body, &head); err != nil {
		return zero, errors.Wrapf(err, "decode %s", path)
	}
	if !head.Success {
		return zero, scanner.Permanent(fmt.Errorf("mexc %s: code=%d msg=%s", path, head.Code, head.Message))
	}

	var out response[T]
	if err := sonic.Unmarshal(body, &out); err != nil {
		return zero, errors.Wrapf(err, "decode %s data", path)
	}
	return out.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
