// Package simbridge connects the launcher to a simulator or visualization
// backend over socket.io. On start it announces the application topology;
// afterwards it accepts config events from the backend and applies them to
// the node configuration store, which gives the far side live tuning of node
// parameters.
package simbridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/appgraphgo/internal/ctxlog"
	"github.com/vk/appgraphgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Name returns the module namespace.
func (m *Module) Name() string { return "simbridge" }

// Config defines the configuration keys of the Client component.
type Config struct {
	URL                string `cfg:"url"`
	Namespace          string `cfg:"namespace"`
	ConnectTimeout     string `cfg:"connect_timeout"`
	InsecureSkipVerify bool   `cfg:"insecure_skip_verify"`
}

// client is a live bridge connection.
type client struct {
	io *socket.Socket
}

// handshake carries the first connection outcome to StartClient. The connect
// handlers stay registered for the client's lifetime and fire again on every
// reconnect; only the first outcome is delivered, so the handlers never
// block inside socket.io event dispatch.
type handshake struct {
	once sync.Once
	ch   chan error
}

func newHandshake() *handshake {
	return &handshake{ch: make(chan error, 1)}
}

// deliver reports one connection outcome. Outcomes after the first are
// dropped.
func (h *handshake) deliver(err error) {
	h.once.Do(func() { h.ch <- err })
}

// Stop implements registry.Instance.
func (c *client) Stop(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Disconnecting bridge client.")
	c.io.Disconnect()
	return nil
}

// StartClient is the start handler for the 'simbridge.Client' component type.
func StartClient(ctx context.Context, env *registry.Env, cfg *Config) (registry.Instance, error) {
	logger := ctxlog.FromContext(ctx).With("component", "simbridge.Client", "url", cfg.URL)
	logger.Debug("Handler started")

	if cfg.URL == "" {
		return nil, fmt.Errorf("simbridge: url is required")
	}
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("simbridge: failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("simbridge: URL %q must carry a scheme and host", cfg.URL)
	}

	timeout := 10 * time.Second
	if cfg.ConnectTimeout != "" {
		parsed, err := time.ParseDuration(cfg.ConnectTimeout)
		if err != nil {
			logger.Warn("Failed to parse connect_timeout, using default 10s", "connect_timeout", cfg.ConnectTimeout, "error", err)
		} else {
			timeout = parsed
		}
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	var isConnected atomic.Bool
	hs := newHandshake()
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Bridge connected", "namespace", cfg.Namespace, "sid", io.Id())
		io.Emit("register", buildRegisterPayload(env))
		hs.deliver(nil)
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				hs.deliver(err)
				return
			}
		}
		hs.deliver(fmt.Errorf("simbridge: connection refused"))
	})

	io.On(types.EventName("config"), func(data ...any) {
		if err := applyConfigEvent(env, data...); err != nil {
			logger.Warn("Ignoring malformed config event.", "error", err)
			return
		}
		logger.Debug("Applied config event from backend.")
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("simbridge: timed out waiting for connection to %s", baseURL)
	case err := <-hs.ch:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("simbridge: %w", err)
		}
	}

	return &client{io: io}, nil
}

// Register registers the component handlers with the launcher.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("simbridge.Client", &registry.RegisteredComponent{
		NewConfig: func() any { return new(Config) },
		StartFn:   StartClient,
	})
}
