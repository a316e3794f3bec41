package switcher

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/term"

	"github.com/rjboer/GoAOA/internal/logging"
)

const (
	defaultReadTimeout  = time.Second
	defaultSettleDelay  = 2 * time.Second
	defaultOpenAttempts = 3
	maxLineLength       = 256
)

// SerialConfig describes how to reach the board.
type SerialConfig struct {
	Device       string
	Baud         int
	OpenAttempts int

	// ReadTimeout bounds the wait for an acknowledgment line.
	ReadTimeout time.Duration

	// SettleDelay is waited after opening; boards with a USB serial bridge
	// reset when the port opens and ignore input while booting. Negative
	// disables the wait.
	SettleDelay time.Duration
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	} else if c.SettleDelay == 0 {
		c.SettleDelay = defaultSettleDelay
	}
	if c.OpenAttempts <= 0 {
		c.OpenAttempts = defaultOpenAttempts
	}
	return c
}

// Port is the byte stream to the board. *term.Term satisfies it.
type Port interface {
	io.ReadWriteCloser
}

// inputFlusher is implemented by ports that can discard unread input.
type inputFlusher interface {
	Flush() error
}

// Serial talks to the board over a serial port.
type Serial struct {
	mu      sync.Mutex
	port    Port
	timeout time.Duration
	logger  logging.Logger
	closed  bool
}

// OpenSerial opens cfg.Device in raw mode, retrying with exponential
// backoff, and waits for the board to boot.
func OpenSerial(ctx context.Context, cfg SerialConfig, logger logging.Logger) (*Serial, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With(logging.Field{Key: "subsystem", Value: "switcher"}, logging.Field{Key: "device", Value: cfg.Device})

	opts := []func(*term.Term) error{term.RawMode, term.ReadTimeout(cfg.ReadTimeout)}
	if cfg.Baud > 0 {
		opts = append(opts, term.Speed(cfg.Baud))
	}

	var t *term.Term
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(cfg.OpenAttempts-1)), ctx)
	err := backoff.Retry(func() error {
		var err error
		t, err = term.Open(cfg.Device, opts...)
		if err != nil {
			logger.Debug("open attempt failed", logging.Field{Key: "error", Value: err})
		}
		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}

	logger.Info("serial port open", logging.Field{Key: "baud", Value: cfg.Baud})
	select {
	case <-ctx.Done():
		t.Close()
		return nil, ctx.Err()
	case <-time.After(cfg.SettleDelay):
	}
	return NewSerial(t, cfg.ReadTimeout, logger), nil
}

// NewSerial wraps an already open port.
func NewSerial(port Port, readTimeout time.Duration, logger logging.Logger) *Serial {
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Serial{port: port, timeout: readTimeout, logger: logger}
}

// SetDwellTime sets how long each antenna stays connected.
func (s *Serial) SetDwellTime(d time.Duration) error { return s.Send(DwellCommand(d)) }

// StartCycle starts the antenna rotation.
func (s *Serial) StartCycle() error { return s.Send(CmdCycle) }

// StopCycle parks the switch with all ports off.
func (s *Serial) StopCycle() error { return s.Send(CmdStop) }

// Send writes cmd and waits for its acknowledgment.
func (s *Serial) Send(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.send(cmd)
}

func (s *Serial) send(cmd string) error {
	if f, ok := s.port.(inputFlusher); ok {
		if err := f.Flush(); err != nil {
			s.logger.Debug("flush input failed", logging.Field{Key: "error", Value: err})
		}
	}
	if _, err := io.WriteString(s.port, cmd+"\n"); err != nil {
		return fmt.Errorf("write %s: %w", cmd, err)
	}
	line, err := s.readLine()
	if err != nil {
		return fmt.Errorf("read ack for %s: %w", cmd, err)
	}
	if err := checkAck(cmd, line); err != nil {
		return err
	}
	s.logger.Debug("command acknowledged", logging.Field{Key: "command", Value: cmd})
	return nil
}

// readLine reads until '\n', an empty read (the port's read timeout
// expired) or s.timeout passes.
func (s *Serial) readLine() (string, error) {
	deadline := time.Now().Add(s.timeout)
	line := make([]byte, 0, 32)
	buf := make([]byte, 1)
	for len(line) < maxLineLength && time.Now().Before(deadline) {
		n, err := s.port.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				return string(line), nil
			}
			line = append(line, buf[0])
			continue
		}
		if err != nil && err != io.EOF {
			return string(line), err
		}
		break
	}
	return string(line), nil
}

// Close parks the switch and releases the port. A failing stop command is
// logged, not returned.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.send(CmdStop); err != nil {
		s.logger.Warn("stop on close failed", logging.Field{Key: "error", Value: err})
	}
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("close serial port: %w", err)
	}
	s.logger.Info("serial port closed")
	return nil
}
