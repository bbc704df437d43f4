package sender

import (
	"fmt"

	"github.com/Raikerian/go-audio-sender/internal/config"
)

// ConnectionError reports a failed connect (TCP) or bind/associate (UDP).
// No frame has been sent when it is returned.
type ConnectionError struct {
	Protocol config.Protocol
	Addr     string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connect to %s: %v", e.Protocol, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SendError reports a failed write of one frame. Fatal errors end the run;
// non-fatal ones are only logged and counted.
type SendError struct {
	Protocol config.Protocol
	Addr     string
	// Packet is the 1-based number of the frame that failed.
	Packet uint64
	Fatal  bool
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send packet %d to %s: %v", e.Protocol, e.Packet, e.Addr, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
