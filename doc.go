// Package serial provides a thread-safe facade over a serial link, letting
// independent reader and writer goroutines exchange raw bytes or fixed-layout
// binary records with a device without blocking or corrupting each other.
//
// Features:
//   - Independent read and write locks: one reader and one writer run
//     concurrently, concurrent readers (or writers) are serialized
//   - Unlocked ReadUnsafe/WriteUnsafe variants reusing internal buffers for
//     single-goroutine hot paths
//   - Fixed-layout value I/O through Layout[T], checked once at construction
//   - Result codes instead of errors crossing the facade; driver errors and
//     panics are translated and logged with zap
//   - Pluggable drivers: raw termios on Linux, go.bug.st/serial elsewhere
//   - PTY-based tests for reliability
//
// Values written with Layout are sent in host byte order. Both ends of the
// link must share architecture and struct layout.
//
// Example usage:
//
//	s := serial.New(serial.TermiosDriver{}, serial.WithLogger(logger))
//	if code := s.Open("/dev/ttyUSB0", serial.DefaultConfig(), 256); !code.Ok() {
//	    log.Fatal(code)
//	}
//	defer s.Close()
//
//	// Read chunks in a goroutine
//	go func() {
//	    buf := make([]byte, 256)
//	    for running.Load() {
//	        n, code := s.Read(buf)
//	        if !code.Ok() {
//	            log.Println("read:", code)
//	            continue
//	        }
//	        os.Stdout.Write(buf[:n])
//	    }
//	}()
//
//	// Write a command
//	if code := s.Write([]byte("C,START\r\n")); !code.Ok() {
//	    log.Println("write:", code)
//	}
//
//	// Send a fixed-layout record
//	type sample struct {
//	    Seq   uint32
//	    Value float32
//	}
//	samples := serial.MustLayout[sample]()
//	samples.Write(s, sample{Seq: 1, Value: 0.5})
//
// Close may be called while a Read is blocked: the handle is closed first,
// which unblocks drivers that support it, and the pending Read returns
// ReadFail.
package serial
