// Client for the OneBot v11 "forward websocket" protocol, as served by go-cqhttp, NapCat, Lagrange and friends.
//
// A single connection carries both the inbound event stream and outbound action calls. Action responses are matched to their call by the "echo" field.
package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cubewhy/ZzxBot/automod/event"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// Returned by action calls made while there is no live connection, or when the connection drops before a response arrives.
var ErrNotConnected = errors.New("onebot: not connected")

type Client struct {
	URL         string
	AccessToken string
	Logger      *slog.Logger
	// outbound actions per second; nil means unlimited
	Limiter        *rate.Limiter
	ActionTimeout  time.Duration
	ReconnectDelay time.Duration
	MaxReconnect   time.Duration

	events  chan event.Event
	pending *xsync.MapOf[string, chan *actionResponse]
	seq     atomic.Uint64

	connLk  sync.RWMutex
	conn    *websocket.Conn
	writeLk sync.Mutex
}

func NewClient(url, accessToken string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		URL:            url,
		AccessToken:    accessToken,
		Logger:         logger.With("component", "onebot"),
		Limiter:        rate.NewLimiter(rate.Limit(10), 5),
		ActionTimeout:  30 * time.Second,
		ReconnectDelay: time.Second,
		MaxReconnect:   time.Minute,
		events:         make(chan event.Event, 256),
		pending:        xsync.NewMapOf[string, chan *actionResponse](),
	}
}

// Decoded inbound events. Never closed.
func (c *Client) Events() <-chan event.Event {
	return c.events
}

func (c *Client) Connected() bool {
	c.connLk.RLock()
	defer c.connLk.RUnlock()
	return c.conn != nil
}

// Connects and reads events until the context is cancelled, reconnecting with exponential backoff whenever the connection drops.
func (c *Client) Run(ctx context.Context) error {
	delay := c.ReconnectDelay
	for {
		start := time.Now()
		err := c.runConn(ctx)
		if ctx.Err() != nil {
			return nil
		}
		// a connection which stayed up for a while resets the backoff
		if time.Since(start) > c.MaxReconnect {
			delay = c.ReconnectDelay
		}
		c.Logger.Warn("onebot connection lost, reconnecting", "err", err, "delay", delay)
		reconnects.Inc()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, c.MaxReconnect)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{
		"User-Agent": []string{fmt.Sprintf("zzxbot/%s", versioninfo.Short())},
	}
	if c.AccessToken != "" {
		header.Set("Authorization", "Bearer "+c.AccessToken)
	}
	con, resp, err := websocket.DefaultDialer.DialContext(ctx, c.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing onebot (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing onebot: %w", err)
	}
	return con, nil
}

func (c *Client) runConn(ctx context.Context) error {
	con, err := c.dial(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.connLk.Lock()
	c.conn = con
	c.connLk.Unlock()
	connected.Set(1)
	c.Logger.Info("connected to onebot", "url", c.URL)

	defer func() {
		c.connLk.Lock()
		c.conn = nil
		c.connLk.Unlock()
		connected.Set(0)
		con.Close()
		c.failPending()
	}()

	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.writeLk.Lock()
				err := con.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
				c.writeLk.Unlock()
				if err != nil {
					c.Logger.Warn("failed to ping", "err", err)
				}
			case <-ctx.Done():
				con.Close()
				return
			}
		}
	}()

	for {
		mt, msg, err := con.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage {
			continue
		}
		if err := c.handleFrame(ctx, msg); err != nil {
			c.Logger.Warn("dropping malformed onebot frame", "err", err)
			framesDropped.Inc()
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, msg []byte) error {
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return err
	}
	if f.PostType == "" {
		if f.Echo == "" {
			return fmt.Errorf("frame is neither an event nor an action response")
		}
		resp := &actionResponse{
			Status:  f.Status,
			Retcode: f.Retcode,
			Message: f.errorMessage(),
			Wording: f.Wording,
			Data:    f.Data,
		}
		if ch, ok := c.pending.LoadAndDelete(f.Echo); ok {
			ch <- resp
		} else {
			c.Logger.Debug("action response without a pending call", "echo", f.Echo)
		}
		return nil
	}

	evt, err := decodeEvent(msg)
	if err != nil {
		return err
	}
	if evt == nil {
		// meta events and unhandled notices
		return nil
	}
	eventsReceived.WithLabelValues(evt.Kind()).Inc()
	select {
	case c.events <- evt:
	case <-ctx.Done():
	}
	return nil
}

func (c *Client) failPending() {
	c.pending.Range(func(echo string, ch chan *actionResponse) bool {
		if _, ok := c.pending.LoadAndDelete(echo); ok {
			close(ch)
		}
		return true
	})
}

// Invokes a OneBot action, and decodes the response data in to `out` (if not nil).
//
// A response with a non-zero retcode is returned as an error wrapping engine.ErrActionRejected.
func (c *Client) Call(ctx context.Context, action string, params any, out any) error {
	ctx, span := tracer.Start(ctx, "Call")
	defer span.End()
	start := time.Now()
	status := "ok"
	defer func() {
		actionDuration.WithLabelValues(action, status).Observe(time.Since(start).Seconds())
	}()

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			status = "cancelled"
			return err
		}
	}

	c.connLk.RLock()
	con := c.conn
	c.connLk.RUnlock()
	if con == nil {
		status = "disconnected"
		return fmt.Errorf("%s: %w", action, ErrNotConnected)
	}

	echo := strconv.FormatUint(c.seq.Add(1), 10)
	ch := make(chan *actionResponse, 1)
	c.pending.Store(echo, ch)
	defer c.pending.Delete(echo)

	req := actionRequest{Action: action, Params: params, Echo: echo}
	c.writeLk.Lock()
	con.SetWriteDeadline(time.Now().Add(10 * time.Second))
	err := con.WriteJSON(req)
	c.writeLk.Unlock()
	if err != nil {
		status = "error"
		return fmt.Errorf("sending %s: %w", action, err)
	}

	timeout := time.NewTimer(c.ActionTimeout)
	defer timeout.Stop()
	var resp *actionResponse
	select {
	case resp = <-ch:
	case <-timeout.C:
		status = "timeout"
		return fmt.Errorf("%s: no response after %s", action, c.ActionTimeout)
	case <-ctx.Done():
		status = "cancelled"
		return ctx.Err()
	}
	if resp == nil {
		status = "disconnected"
		return fmt.Errorf("%s: %w", action, ErrNotConnected)
	}
	if err := resp.err(action); err != nil {
		status = "rejected"
		return err
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			status = "error"
			return fmt.Errorf("decoding %s response: %w", action, err)
		}
	}
	return nil
}
