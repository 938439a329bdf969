//go:build linux

package serial

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Default XON/XOFF characters.
const (
	xON  = 0x11
	xOFF = 0x13
)

// TermiosDriver opens Linux tty devices with raw syscalls.
//
// The line is put in raw mode with VMIN=1 and VTIME=0, so Receive returns as
// soon as at least one byte is available. Closing a handle wakes a Receive
// blocked in poll through a self-pipe.
type TermiosDriver struct{}

// Open configures and opens the tty at device.
func (TermiosDriver) Open(device string, cfg Config) (Handle, error) {
	h, err := openTermios(device, cfg)
	if err != nil {
		return nil, err
	}
	return h, nil
}

type termiosHandle struct {
	fd    int
	file  *os.File
	pipeR int // self-pipe read fd
	pipeW int // self-pipe write fd

	// mu is held shared by Receive and Send and exclusively by Close, so the
	// descriptors outlive every call that polls or writes them.
	mu        sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
}

func openTermios(device string, cfg Config) (_ *termiosHandle, err error) {
	speed, err := baudToUnix(cfg.BaudRate)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
		}
	}()

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL |
		unix.IXON | unix.IXOFF | unix.IXANY
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed

	switch cfg.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
		termios.Iflag |= unix.INPCK
	case ParityEven:
		termios.Cflag |= unix.PARENB
		termios.Iflag |= unix.INPCK
	}

	if cfg.StopBits == StopBitsTwo {
		termios.Cflag |= unix.CSTOPB
	}

	switch cfg.FlowControl {
	case FlowControlHardware:
		termios.Cflag |= unix.CRTSCTS
	case FlowControlSoftware:
		termios.Iflag |= unix.IXON | unix.IXOFF
		termios.Cc[unix.VSTART] = xON
		termios.Cc[unix.VSTOP] = xOFF
	}

	// Block until at least one byte is available
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Turn back into blocking mode now that config is done
	if err := unix.SetNonblock(fd, false); err != nil {
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	// Create self-pipe for killability
	var pipeFds [2]int
	if err := unix.Pipe2(pipeFds[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &termiosHandle{
		fd:    fd,
		file:  os.NewFile(uintptr(fd), device),
		pipeR: pipeFds[0],
		pipeW: pipeFds[1],
		done:  make(chan struct{}),
	}, nil
}

// Receive waits for data or Close and reads whatever is available, up to len(p).
func (h *termiosHandle) Receive(p []byte) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(p) == 0 {
		return 0, nil
	}
	for {
		if h.closed() {
			return 0, ErrClosed
		}
		// Use poll to wait for data or kill signal
		pfd := []unix.PollFd{
			{Fd: int32(h.fd), Events: unix.POLLIN},
			{Fd: int32(h.pipeR), Events: unix.POLLIN},
		}
		if _, err := unix.Poll(pfd, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, fmt.Errorf("poll: %w", err)
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			return 0, ErrClosed
		}
		if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			n, err := h.file.Read(p)
			if err != nil {
				return n, fmt.Errorf("read %s: %w", h.file.Name(), err)
			}
			return n, nil
		}
	}
}

// Send writes all of p.
func (h *termiosHandle) Send(p []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed() {
		return ErrClosed
	}
	if _, err := h.file.Write(p); err != nil {
		return fmt.Errorf("write %s: %w", h.file.Name(), err)
	}
	return nil
}

// Close wakes any pending Receive, then releases the tty and the self-pipe.
// Safe to call multiple times; subsequent calls are no-ops.
func (h *termiosHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.done)
		// Wake up poll using self-pipe
		_, _ = unix.Write(h.pipeW, []byte{1})

		h.mu.Lock()
		defer h.mu.Unlock()
		err = multierr.Combine(
			h.file.Close(),
			unix.Close(h.pipeR),
			unix.Close(h.pipeW),
		)
	})
	return err
}

func (h *termiosHandle) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func baudToUnix(baud uint32) (uint32, error) {
	switch baud {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, baud)
}
