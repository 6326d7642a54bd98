// Package transport wires a real connection (NATS, here standing in
// for the broker's wire socket) to the Frame Decoder and Pattern
// Repository, demonstrating the data flow spec.md §2 describes without
// implementing the session/producer/consumer layers it places out of
// scope.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/yourfrienddhruv/hornetq/internal/metrics"
	"github.com/yourfrienddhruv/hornetq/pkg/stomp"
	"github.com/yourfrienddhruv/hornetq/pkg/wildcard"
)

// AddressPolicy is the per-destination settings value the Pattern
// Repository resolves for a decoded frame.
type AddressPolicy struct {
	MaxFrameBytes int
}

// MergeAddressPolicies reduces two matching policies to the tighter of
// the two: a wildcard default and a more specific override combine by
// taking the smaller limit rather than one discarding the other.
func MergeAddressPolicies(acc, next AddressPolicy) AddressPolicy {
	if next.MaxFrameBytes > 0 && (acc.MaxFrameBytes == 0 || next.MaxFrameBytes < acc.MaxFrameBytes) {
		acc.MaxFrameBytes = next.MaxFrameBytes
	}
	return acc
}

// Config configures both the NATS connection and the per-connection
// frame rate limit.
type Config struct {
	Address         string  `json:"address"`
	Username        string  `json:"username,omitempty"`
	Password        string  `json:"password,omitempty"`
	CredsFilePath   string  `json:"credsFilePath,omitempty"`
	FramesPerSecond float64 `json:"framesPerSecond"`
	Burst           int     `json:"burst"`
}

// Connect opens a NATS connection using cfg, logging reconnect and
// error events the way pkg/nats/client.go does.
func Connect(cfg Config) (*nats.Conn, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("transport: address is required")
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				cclog.Warnf("[TRANSPORT]> disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			cclog.Infof("[TRANSPORT]> reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			if err != nil {
				cclog.Errorf("[TRANSPORT]> %v", err)
			}
		}),
	)

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: connect: %w", err)
	}
	cclog.Infof("[TRANSPORT]> connected to %s", cfg.Address)
	return nc, nil
}

// Connection feeds every message payload received on one NATS subject
// into a dedicated Decoder (Frame Decoder instances are single-threaded
// per spec.md §5, so each Connection owns exactly one), resolves the
// decoded frame's destination against repo, and republishes a
// resolved-address event. Frame decode attempts are rate-limited per
// connection via golang.org/x/time/rate.
type Connection struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	limiter *rate.Limiter

	mu      sync.Mutex
	decoder *stomp.Decoder
	repo    *wildcard.Repository[AddressPolicy]
}

// NewConnection subscribes to subject on conn.
func NewConnection(conn *nats.Conn, subject string, repo *wildcard.Repository[AddressPolicy], cfg Config) (*Connection, error) {
	limit := rate.Limit(cfg.FramesPerSecond)
	if cfg.FramesPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Connection{
		conn:    conn,
		decoder: stomp.NewDecoder(),
		repo:    repo,
		limiter: rate.NewLimiter(limit, burst),
	}

	sub, err := conn.Subscribe(subject, c.handle)
	if err != nil {
		return nil, fmt.Errorf("transport: subscribe %q: %w", subject, err)
	}
	c.sub = sub
	cclog.Infof("[TRANSPORT]> subscribed to %q", subject)
	return c, nil
}

func (c *Connection) handle(msg *nats.Msg) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		cclog.Warnf("[TRANSPORT]> rate limiter: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	frame, err := c.decoder.Decode(msg.Data)
	if err != nil {
		if err == stomp.ErrIncomplete {
			return
		}
		metrics.DecodeErrors.WithLabelValues(errorKind(err)).Inc()
		cclog.Warnf("[TRANSPORT]> decode %q: %v", msg.Subject, err)
		return
	}
	metrics.FramesDecoded.Inc()

	dest, ok := frame.Get("destination")
	if !ok {
		return
	}

	policy := c.repo.Get(dest)
	if policy.MaxFrameBytes > 0 && len(frame.Body) > policy.MaxFrameBytes {
		cclog.Warnf("[TRANSPORT]> frame for %q exceeds policy limit (%d > %d bytes)", dest, len(frame.Body), policy.MaxFrameBytes)
		return
	}

	if err := c.conn.Publish("resolved."+dest, frame.Body); err != nil {
		cclog.Warnf("[TRANSPORT]> publish resolved.%s: %v", dest, err)
	}
}

func errorKind(err error) string {
	switch err {
	case stomp.ErrInvalidCommand:
		return "invalid_command"
	case stomp.ErrTwoCarriageReturns:
		return "two_carriage_returns"
	case stomp.ErrBadCarriageReturns:
		return "bad_carriage_returns"
	default:
		var eol *stomp.InvalidEndOfLineError
		if errors.As(err, &eol) {
			return "invalid_end_of_line"
		}
		return "other"
	}
}

// Close unsubscribes from the connection's subject. The underlying
// *nats.Conn is owned by the caller of Connect and outlives individual
// Connections.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	err := c.sub.Unsubscribe()
	c.sub = nil
	return err
}
