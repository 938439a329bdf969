package serial

import "fmt"

// Code is the outcome of a Serial operation. The zero value is OK.
//
// Codes carry no payload; the driver error behind a failure is logged by the
// Serial that produced it. Code implements error so a failed code can be
// returned up a call chain and matched with errors.Is. Do not return a Code
// directly as an error: OK would then be a non-nil error. Use Err.
type Code uint8

// Result codes.
const (
	OK Code = iota
	ReadNotOpened
	ReadFail
	WriteNotOpened
	WriteFail
	OpenFail
	OpenInvalidConfig
	OpenAlreadyOpened
)

// Ok reports whether c is OK.
func (c Code) Ok() bool {
	return c == OK
}

// Err returns nil for OK and c otherwise.
func (c Code) Err() error {
	if c == OK {
		return nil
	}
	return c
}

func (c Code) Error() string {
	return "serial: " + c.String()
}

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case ReadNotOpened:
		return "read on closed port"
	case ReadFail:
		return "read failed"
	case WriteNotOpened:
		return "write on closed port"
	case WriteFail:
		return "write failed"
	case OpenFail:
		return "open failed"
	case OpenInvalidConfig:
		return "open with invalid config"
	case OpenAlreadyOpened:
		return "port already open"
	}
	return fmt.Sprintf("Code(%d)", uint8(c))
}
