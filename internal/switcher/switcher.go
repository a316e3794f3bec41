// Package switcher drives the antenna switch board over its line based
// command protocol.
//
// A command is one ASCII line terminated by '\n'. The board answers each
// command with "<command> set" on a line of its own:
//
//	T45    -> "T45 set"    dwell time per antenna in microseconds
//	CYCLE  -> "CYCLE set"  start rotating through the antennas
//	RFX    -> "RFX set"    park the switch with every port off
package switcher

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	CmdCycle = "CYCLE"
	CmdStop  = "RFX"

	ackSuffix = " set"
)

var (
	// ErrNoAck means the board did not answer within the read timeout.
	ErrNoAck = errors.New("switcher: no acknowledgment")
	// ErrClosed is returned for commands issued after Close.
	ErrClosed = errors.New("switcher: controller closed")
)

// AckError reports an answer that does not acknowledge the command sent.
type AckError struct {
	Command string
	Got     string
}

func (e *AckError) Error() string {
	return fmt.Sprintf("switcher: expected %q, got %q", e.Command+ackSuffix, e.Got)
}

// Controller is the narrow capability the AOA pipeline needs from the
// switch hardware. Close parks the switch on a best-effort basis before
// releasing it.
type Controller interface {
	SetDwellTime(d time.Duration) error
	StartCycle() error
	StopCycle() error
	Close() error
}

// DwellCommand renders the set-dwell command for d, rounded to whole
// microseconds.
func DwellCommand(d time.Duration) string {
	us := math.Round(float64(d) / float64(time.Microsecond))
	return fmt.Sprintf("T%d", int64(us))
}

// checkAck compares a reply line against the acknowledgment expected for cmd.
func checkAck(cmd, line string) error {
	got := strings.TrimSpace(line)
	if got == "" {
		return ErrNoAck
	}
	if !strings.EqualFold(got, cmd+ackSuffix) {
		return &AckError{Command: cmd, Got: got}
	}
	return nil
}
