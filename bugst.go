package serial

import (
	"fmt"
	"time"

	bugst "go.bug.st/serial"
)

// bugstOpen is replaced in tests.
var bugstOpen = bugst.Open

// BugstDriver opens ports through go.bug.st/serial, which works on Linux,
// macOS, the BSDs and Windows.
//
// go.bug.st/serial cannot configure flow control, so only FlowControlNone is
// accepted.
type BugstDriver struct {
	// ReadTimeout bounds each Receive; zero blocks until data arrives. A
	// Receive that times out returns 0 bytes, which byte reads report as OK
	// and fixed-layout reads as ReadFail.
	ReadTimeout time.Duration
}

// Open opens port with 8 data bits and the parity and stop bits of cfg.
func (d BugstDriver) Open(port string, cfg Config) (Handle, error) {
	if cfg.FlowControl != FlowControlNone {
		return nil, fmt.Errorf("%w: %s", ErrFlowControlUnsupported, cfg.FlowControl)
	}
	mode := &bugst.Mode{
		BaudRate: int(cfg.BaudRate),
		DataBits: 8,
		Parity:   bugstParity(cfg.Parity),
		StopBits: bugstStopBits(cfg.StopBits),
	}

	p, err := bugstOpen(port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	if d.ReadTimeout > 0 {
		if err := p.SetReadTimeout(d.ReadTimeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", port, err)
		}
	}
	return &bugstHandle{port: p, name: port}, nil
}

func bugstParity(p Parity) bugst.Parity {
	switch p {
	case ParityOdd:
		return bugst.OddParity
	case ParityEven:
		return bugst.EvenParity
	default:
		return bugst.NoParity
	}
}

func bugstStopBits(s StopBits) bugst.StopBits {
	switch s {
	case StopBitsTwo:
		return bugst.TwoStopBits
	default:
		return bugst.OneStopBit
	}
}

type bugstHandle struct {
	port bugst.Port
	name string
}

func (h *bugstHandle) Receive(p []byte) (int, error) {
	n, err := h.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("read %s: %w", h.name, err)
	}
	return n, nil
}

// Send loops until the port has accepted all of p.
func (h *bugstHandle) Send(p []byte) error {
	for len(p) > 0 {
		n, err := h.port.Write(p)
		if err != nil {
			return fmt.Errorf("write %s: %w", h.name, err)
		}
		if n == 0 {
			return fmt.Errorf("write %s: port accepted no bytes", h.name)
		}
		p = p[n:]
	}
	return nil
}

func (h *bugstHandle) Close() error {
	return h.port.Close()
}
