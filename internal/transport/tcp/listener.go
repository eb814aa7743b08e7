package tcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Handler serves one accepted connection and returns when it is finished.
type Handler interface {
	Handle(ctx context.Context, conn net.Conn)
}

// Closer interrupts every connection still being served.
type Closer interface {
	CloseAll()
}

// Listener accepts command connections and runs each on its own goroutine.
type Listener struct {
	listener net.Listener
	handler  Handler
	logger   *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Listener.
type Option func(*Listener)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Listen binds address (":0" picks a free port).
func Listen(address string, handler Handler, opts ...Option) (*Listener, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		listener: ln,
		handler:  handler,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Addr returns the bound address in host:port form.
func (l *Listener) Addr() string {
	return l.listener.Addr().String()
}

// Serve accepts connections until ctx is cancelled or Close is called. On
// return the listener is closed; if the handler is a Closer its live
// connections are interrupted and Serve waits for them to finish.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	l.logger.InfoContext(ctx, "accepting connections", "addr", l.Addr())
	var tempDelay time.Duration
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				l.drain()
				return nil
			}
			// transient accept errors (EMFILE and friends) back off like net/http
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				tempDelay = backoff(tempDelay)
				l.logger.WarnContext(ctx, "accept failed, retrying", "error", err, "delay", tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			l.drain()
			return err
		}
		tempDelay = 0

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handler.Handle(ctx, conn)
		}()
	}
}

// Close stops accepting. Connections already accepted keep running until
// Serve drains them.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.listener.Close()
	})
	return err
}

func (l *Listener) drain() {
	if c, ok := l.handler.(Closer); ok {
		c.CloseAll()
	}
	l.wg.Wait()
}

func backoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}
