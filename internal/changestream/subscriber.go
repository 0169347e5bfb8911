package changestream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/catalog-feed/internal/metrics"
)

// Sink receives changed item ids.
type Sink interface {
	Submit(itemIDs ...int64) error
}

// Subscriber keeps a change stream connection open and feeds a Sink.
type Subscriber struct {
	cfg     Config
	sink    Sink
	metrics *metrics.Metrics
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	current  *client
	received int64
	invalid  int64
}

// NewSubscriber creates a subscriber. m may be nil.
func NewSubscriber(cfg Config, sink Sink, m *metrics.Metrics, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Channel == "" {
		cfg.Channel = def.Channel
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = def.ReconnectMaxWait
	}
	return &Subscriber{
		cfg:     cfg,
		sink:    sink,
		metrics: m,
		logger:  logger,
	}
}

// Start runs the subscription in the background. Connection failures are
// retried, so Start only returns an error for invalid setup.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("change stream subscriber started", "url", s.cfg.URL, "channel", s.cfg.Channel)
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (s *Subscriber) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	if s.current != nil {
		_ = s.current.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("change stream subscriber stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports whether a stream connection is open.
func (s *Subscriber) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.isConnected()
}

// Stats returns message counters.
func (s *Subscriber) Stats() (received, invalid int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received, s.invalid
}

// run connects, consumes and reconnects with exponential backoff.
func (s *Subscriber) run() {
	defer s.wg.Done()

	wait := s.cfg.ReconnectBaseWait
	for {
		connected := s.session()
		if s.ctx.Err() != nil {
			return
		}
		if connected {
			wait = s.cfg.ReconnectBaseWait
		}

		s.logger.Info("change stream reconnecting", "wait", wait)
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}

		wait *= 2
		if wait > s.cfg.ReconnectMaxWait {
			wait = s.cfg.ReconnectMaxWait
		}
	}
}

// session runs one connection until it fails. It reports whether the
// connection was established.
func (s *Subscriber) session() bool {
	c := newClient(s.cfg, s.logger)
	if err := c.connect(s.ctx); err != nil {
		s.logger.Warn("change stream connect failed", "error", err)
		return false
	}

	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	s.metrics.SetStreamConnected(true)

	defer func() {
		_ = c.close()
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		s.metrics.SetStreamConnected(false)
	}()

	sub := SubscribeCommand{ID: uuid.NewString(), Cmd: "subscribe", Channel: s.cfg.Channel}
	if err := c.sendJSON(sub); err != nil {
		s.logger.Warn("change stream subscribe failed", "error", err)
		return true
	}
	s.logger.Info("change stream subscribed", "channel", s.cfg.Channel, "subscription_id", sub.ID)

	for {
		select {
		case <-s.ctx.Done():
			return true
		case err := <-c.errors:
			s.logger.Warn("change stream connection lost", "error", err)
			s.drain(c)
			return true
		case data := <-c.messages:
			s.handle(data)
		}
	}
}

// drain handles messages read before the connection failed.
func (s *Subscriber) drain(c *client) {
	for {
		select {
		case data := <-c.messages:
			s.handle(data)
		default:
			return
		}
	}
}

func (s *Subscriber) handle(data []byte) {
	s.metrics.StreamMessage()

	ids, err := parseEvent(data)
	s.mu.Lock()
	s.received++
	if err != nil {
		s.invalid++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("ignoring malformed change event", "error", err, "len", len(data))
		return
	}
	if len(ids) == 0 {
		return
	}
	if err := s.sink.Submit(ids...); err != nil {
		s.logger.Error("dropping change event", "error", err, "item_ids", ids)
	}
}
