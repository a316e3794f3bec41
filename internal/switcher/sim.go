package switcher

import (
	"sync"
	"time"
)

// Nop is a Controller for setups without switch control; every command
// succeeds without doing anything.
type Nop struct{}

func (Nop) SetDwellTime(time.Duration) error { return nil }
func (Nop) StartCycle() error                { return nil }
func (Nop) StopCycle() error                 { return nil }
func (Nop) Close() error                     { return nil }

// Sim records commands and mirrors the state a real board would be in.
// It is safe for concurrent use.
type Sim struct {
	mu       sync.Mutex
	commands []string
	dwell    time.Duration
	cycling  bool
	closed   bool

	// Fail, when set, is returned by every command after being recorded.
	Fail error
}

// NewSim returns a parked simulated switch.
func NewSim() *Sim { return &Sim{} }

func (s *Sim) record(cmd string, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.commands = append(s.commands, cmd)
	if s.Fail != nil {
		return s.Fail
	}
	apply()
	return nil
}

func (s *Sim) SetDwellTime(d time.Duration) error {
	return s.record(DwellCommand(d), func() { s.dwell = d })
}

func (s *Sim) StartCycle() error {
	return s.record(CmdCycle, func() { s.cycling = true })
}

func (s *Sim) StopCycle() error {
	return s.record(CmdStop, func() { s.cycling = false })
}

// Close parks the switch like Serial.Close does.
func (s *Sim) Close() error {
	_ = s.StopCycle()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Commands returns the command lines issued so far.
func (s *Sim) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Cycling reports whether the simulated switch is rotating.
func (s *Sim) Cycling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycling
}

// Dwell returns the last dwell time set.
func (s *Sim) Dwell() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dwell
}
