package serial

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultChunkSize is used when Open is given a non-positive chunk size.
const DefaultChunkSize = 256

// Option configures a Serial.
type Option func(*Serial)

// WithLogger sets the logger that receives lifecycle events and the driver
// errors behind failed result codes.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Serial) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Serial is a concurrency-safe facade over one serial connection.
//
// Read and Write each hold their own lock, so one reader and one writer make
// progress independently while two readers (or two writers) are serialized.
// ReadUnsafe and WriteUnsafe skip the lock and reuse a buffer owned by the
// Serial; they are only sound when the caller guarantees exclusive access.
type Serial struct {
	driver Driver
	logger *zap.Logger

	mu        sync.Mutex // serializes Open and Close
	open      atomic.Bool
	handle    Handle // non-nil iff open; written with rmu and wmu held
	port      string
	config    Config
	chunkSize int

	rmu     sync.Mutex
	readBuf []byte

	wmu      sync.Mutex
	writeBuf []byte
}

// New returns a closed Serial that opens ports through driver. A Serial must
// be created with New.
func New(driver Driver, opts ...Option) *Serial {
	s := &Serial{
		driver: driver,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to port with cfg. chunkSize sizes the reusable buffers and is
// reported by ChunkSize; it does not limit the length of reads or writes.
//
// On failure the Serial stays closed.
func (s *Serial) Open(port string, cfg Config, chunkSize int) Code {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open.Load() {
		s.logger.Warn("open on already open port", zap.String("port", s.port), zap.String("requested", port))
		return OpenAlreadyOpened
	}
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("open rejected", zap.String("port", port), zap.Error(err))
		return OpenInvalidConfig
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	h, err := s.openHandle(port, cfg)
	if err != nil {
		s.logger.Warn("open failed", zap.String("port", port), zap.Stringer("config", cfg), zap.Error(err))
		return OpenFail
	}

	s.rmu.Lock()
	s.wmu.Lock()
	s.handle = h
	s.port = port
	s.config = cfg
	s.chunkSize = chunkSize
	s.readBuf = make([]byte, 0, chunkSize)
	s.writeBuf = make([]byte, 0, chunkSize)
	s.open.Store(true)
	s.wmu.Unlock()
	s.rmu.Unlock()

	// Release the handle if the Serial is dropped while open.
	runtime.SetFinalizer(s, (*Serial).Close)

	s.logger.Info("port opened", zap.String("port", port), zap.Stringer("config", cfg), zap.Int("chunk_size", chunkSize))
	return OK
}

// Close releases the connection. Closing a closed Serial is a no-op.
//
// The handle is closed first so a driver blocked in Receive can return, then
// Close waits for in-flight Read and Write calls before dropping the handle.
// A locked call racing Close therefore fails with ReadFail or WriteFail and
// never touches a released handle. The unsafe variants get no such guarantee.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open.CompareAndSwap(true, false) {
		return nil
	}
	err := closeHandle(s.handle)

	s.rmu.Lock()
	s.wmu.Lock()
	s.handle = nil
	s.readBuf = nil
	s.writeBuf = nil
	s.wmu.Unlock()
	s.rmu.Unlock()

	runtime.SetFinalizer(s, nil)

	if err != nil {
		s.logger.Warn("close failed", zap.String("port", s.port), zap.Error(err))
		return fmt.Errorf("close %s: %w", s.port, err)
	}
	s.logger.Info("port closed", zap.String("port", s.port))
	return nil
}

// IsOpen reports whether the Serial holds an open connection.
func (s *Serial) IsOpen() bool {
	return s.open.Load()
}

// Port returns the name passed to the last successful Open.
func (s *Serial) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Config returns the configuration passed to the last successful Open.
func (s *Serial) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// ChunkSize returns the chunk size hint in effect since the last successful Open.
func (s *Serial) ChunkSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkSize
}

// Read receives up to len(p) bytes in a single driver call and copies them
// into p. p is left untouched unless the receive succeeds.
func (s *Serial) Read(p []byte) (int, Code) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return s.read(p, false, false)
}

// ReadUnsafe is Read without locking, staging through the Serial's own buffer.
func (s *Serial) ReadUnsafe(p []byte) (int, Code) {
	return s.read(p, true, false)
}

// Write sends all of p in a single driver call. p is never modified.
func (s *Serial) Write(p []byte) Code {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.write(p, false)
}

// WriteUnsafe is Write without locking, staging through the Serial's own buffer.
func (s *Serial) WriteUnsafe(p []byte) Code {
	return s.write(p, true)
}

func (s *Serial) readExact(p []byte) Code {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	_, code := s.read(p, false, true)
	return code
}

func (s *Serial) readExactUnsafe(p []byte) Code {
	_, code := s.read(p, true, true)
	return code
}

// read stages a receive in a scratch buffer and copies it to p on success.
// With full set it keeps receiving until len(p) bytes have arrived.
func (s *Serial) read(p []byte, reuse, full bool) (int, Code) {
	if !s.open.Load() {
		return 0, ReadNotOpened
	}
	h := s.handle
	if h == nil {
		return 0, ReadNotOpened
	}
	if len(p) == 0 {
		return 0, OK
	}

	var buf []byte
	if reuse {
		if cap(s.readBuf) < len(p) {
			s.readBuf = make([]byte, len(p))
		}
		buf = s.readBuf[:len(p)]
	} else {
		buf = make([]byte, len(p))
	}

	var (
		n   int
		err error
	)
	if full {
		n, err = receiveFull(h, buf)
	} else {
		n, err = receive(h, buf)
	}
	if err != nil {
		s.logger.Debug("receive failed", zap.String("port", s.port), zap.Int("requested", len(p)), zap.Error(err))
		return 0, ReadFail
	}
	return copy(p, buf[:n]), OK
}

func (s *Serial) write(p []byte, reuse bool) Code {
	if !s.open.Load() {
		return WriteNotOpened
	}
	h := s.handle
	if h == nil {
		return WriteNotOpened
	}
	if len(p) == 0 {
		return OK
	}

	var buf []byte
	if reuse {
		if cap(s.writeBuf) < len(p) {
			s.writeBuf = make([]byte, len(p))
		}
		buf = s.writeBuf[:len(p)]
	} else {
		buf = make([]byte, len(p))
	}
	copy(buf, p)

	if err := send(h, buf); err != nil {
		s.logger.Debug("send failed", zap.String("port", s.port), zap.Int("length", len(p)), zap.Error(err))
		return WriteFail
	}
	return OK
}

// The helpers below turn driver panics into errors so nothing raised by a
// driver crosses the Serial boundary.

func (s *Serial) openHandle(port string, cfg Config) (h Handle, err error) {
	defer recoverDriver(&err)
	h, err = s.driver.Open(port, cfg)
	if err == nil && h == nil {
		err = fmt.Errorf("driver returned no handle for %s", port)
	}
	return h, err
}

func closeHandle(h Handle) (err error) {
	defer recoverDriver(&err)
	return h.Close()
}

func receive(h Handle, p []byte) (n int, err error) {
	defer recoverDriver(&err)
	n, err = h.Receive(p)
	if err == nil && (n < 0 || n > len(p)) {
		err = fmt.Errorf("driver reported %d bytes for a %d byte buffer", n, len(p))
	}
	return n, err
}

func receiveFull(h Handle, p []byte) (int, error) {
	off := 0
	for off < len(p) {
		n, err := receive(h, p[off:])
		if err != nil {
			return off, err
		}
		if n == 0 {
			return off, io.ErrNoProgress
		}
		off += n
	}
	return off, nil
}

func send(h Handle, p []byte) (err error) {
	defer recoverDriver(&err)
	return h.Send(p)
}

func recoverDriver(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("driver panic: %v", r)
	}
}
