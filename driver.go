package serial

import "errors"

var (
	// ErrClosed is returned by a Handle used after Close.
	ErrClosed = errors.New("serial: port closed")
	// ErrUnsupportedBaudRate is returned by drivers that cannot program the requested speed.
	ErrUnsupportedBaudRate = errors.New("serial: unsupported baud rate")
	// ErrFlowControlUnsupported is returned by drivers that cannot honor Config.FlowControl.
	ErrFlowControlUnsupported = errors.New("serial: flow control not supported by driver")
)

// Driver acquires connections to named ports. It is the only thing a Serial
// needs from the platform, so a real tty driver, a go.bug.st/serial backed
// driver or an in-memory fake are interchangeable.
type Driver interface {
	Open(port string, cfg Config) (Handle, error)
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(port string, cfg Config) (Handle, error)

// Open calls f(port, cfg).
func (f DriverFunc) Open(port string, cfg Config) (Handle, error) {
	return f(port, cfg)
}

// Handle is an open connection owned by exactly one Serial.
//
// Receive fills a prefix of p and returns its length. Send transmits all of p
// or fails. Receive and Send may be called concurrently with each other, but
// never concurrently with themselves when driven through the locked Serial
// methods. Close may be called while Receive or Send is in flight and must be
// safe against both; it should also unblock a pending Receive where the
// platform allows it.
type Handle interface {
	Receive(p []byte) (int, error)
	Send(p []byte) error
	Close() error
}
