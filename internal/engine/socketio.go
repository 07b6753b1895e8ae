package engine

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/dwigrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Events exchanged with the engine.
const (
	SubmitEvent = "submit_graph"
	ResultEvent = "graph_result"
)

const (
	defaultConnectTimeout = 15 * time.Second
	defaultResultTimeout  = 10 * time.Minute
)

// SocketIOSubmitter emits the manifest to an engine listening on a socket.io
// endpoint and waits for its result.
type SocketIOSubmitter struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	// ConnectTimeout and ResultTimeout default to 15s and 10m.
	ConnectTimeout time.Duration
	ResultTimeout  time.Duration
}

var _ Submitter = (*SocketIOSubmitter)(nil)

// NewSocketIOSubmitter creates a submitter for the engine at rawURL.
func NewSocketIOSubmitter(rawURL string) *SocketIOSubmitter {
	return &SocketIOSubmitter{URL: rawURL, Namespace: "/"}
}

type opResult struct {
	value Result
	err   error
}

// Submit connects, emits submit_graph with m and returns the decoded
// graph_result. The connection is closed before returning.
func (s *SocketIOSubmitter) Submit(ctx context.Context, m Manifest) (Result, error) {
	logger := ctxlog.FromContext(ctx).With("submitter", "socketio", "url", s.URL)

	parsedURL, err := url.Parse(s.URL)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse engine URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return Result{}, fmt.Errorf("engine URL %q needs a scheme and a host", s.URL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if s.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetReconnection(false)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(orDefault(s.Namespace, "/"), opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	connected := make(chan error, 1)
	done := make(chan opResult, 1)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Engine: connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})
	io.Once(types.EventName(ResultEvent), func(data ...any) {
		logger.Debug("EVENT HANDLER: result event received", "event", ResultEvent)
		if len(data) == 0 {
			done <- opResult{err: fmt.Errorf("engine sent an empty %s", ResultEvent)}
			return
		}
		res, err := decodeResult(data[0])
		done <- opResult{value: res, err: err}
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			return Result{}, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		return Result{}, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(orDefault(s.ConnectTimeout, defaultConnectTimeout)):
		return Result{}, fmt.Errorf("timed out after %v waiting for socket.io connection", orDefault(s.ConnectTimeout, defaultConnectTimeout))
	}

	payload, err := toPayload(m)
	if err != nil {
		return Result{}, err
	}
	logger.Info("Engine: submitting graph.", "workflow", m.Workflow, "nodes", len(m.Nodes))
	if err := io.Emit(SubmitEvent, payload); err != nil {
		return Result{}, fmt.Errorf("failed to emit %s: %w", SubmitEvent, err)
	}

	timeout := orDefault(s.ResultTimeout, defaultResultTimeout)
	select {
	case res := <-done:
		if res.err != nil {
			return Result{}, res.err
		}
		logger.Info("Engine: result received.", "status", res.value.Status, "failed", len(res.value.FailedNodes))
		return res.value, nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("context cancelled while waiting for %s: %w", ResultEvent, ctx.Err())
	case <-time.After(timeout):
		return Result{}, fmt.Errorf("timed out after %v waiting for event '%s'", timeout, ResultEvent)
	}
}

// toPayload converts m into the generic JSON shape socket.io transmits.
func toPayload(m Manifest) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest of %s: %w", m.Workflow, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to encode manifest of %s: %w", m.Workflow, err)
	}
	return payload, nil
}

// decodeResult converts the generic JSON value received from the engine.
func decodeResult(data any) (Result, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Result{}, fmt.Errorf("invalid %s payload: %w", ResultEvent, err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("invalid %s payload: %w", ResultEvent, err)
	}
	switch res.Status {
	case StatusSuccess, StatusFailure:
		return res, nil
	default:
		return Result{}, fmt.Errorf("invalid %s payload: unknown status %q", ResultEvent, res.Status)
	}
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
