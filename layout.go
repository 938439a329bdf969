package serial

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

// ErrNotFixedLayout is returned by NewLayout for types whose bytes do not
// fully describe their value.
var ErrNotFixedLayout = errors.New("serial: type is not fixed-layout")

// Layout moves values of T over a Serial as their in-memory image.
//
// T must be self-contained: sized or platform integers, floats, complex
// numbers, and arrays or structs built only from those. Pointers, slices,
// strings, maps, channels, funcs, interfaces, uintptr and unsafe.Pointer are
// rejected by NewLayout, so a Layout can never copy an address or a reference
// across the wire. bool is rejected too, since a peer can send a byte that is
// neither 0 nor 1; use uint8 for flags.
//
// Bytes are sent in host byte order and include any padding between struct
// fields. Both ends must agree on architecture and struct layout.
type Layout[T any] struct {
	size  int
	valid bool
}

// NewLayout checks that T is fixed-layout.
func NewLayout[T any]() (Layout[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if err := checkFixedLayout(t); err != nil {
		return Layout[T]{}, fmt.Errorf("%v: %w", t, err)
	}
	return Layout[T]{size: int(t.Size()), valid: true}, nil
}

// MustLayout is like NewLayout but panics if T is not fixed-layout.
// It is meant for package-level variables.
func MustLayout[T any]() Layout[T] {
	l, err := NewLayout[T]()
	if err != nil {
		panic(err)
	}
	return l
}

func checkFixedLayout(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		if err := checkFixedLayout(t.Elem()); err != nil {
			return fmt.Errorf("array element: %w", err)
		}
		return nil
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if err := checkFixedLayout(f.Type); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: contains %s", ErrNotFixedLayout, t.Kind())
}

// Size is the number of bytes a value of T occupies on the wire.
func (l Layout[T]) Size() int {
	l.check()
	return l.size
}

// Bytes returns a copy of the wire image of *v.
func (l Layout[T]) Bytes(v *T) []byte {
	return append([]byte(nil), l.view(v)...)
}

// Read receives exactly Size bytes and stores them in *out. *out is only
// written once all of them have arrived.
func (l Layout[T]) Read(s *Serial, out *T) Code {
	return s.readExact(l.view(out))
}

// ReadUnsafe is Read without the read lock.
func (l Layout[T]) ReadUnsafe(s *Serial, out *T) Code {
	return s.readExactUnsafe(l.view(out))
}

// Write sends the wire image of in.
func (l Layout[T]) Write(s *Serial, in T) Code {
	return s.Write(l.view(&in))
}

// WriteUnsafe is Write without the write lock.
func (l Layout[T]) WriteUnsafe(s *Serial, in T) Code {
	return s.WriteUnsafe(l.view(&in))
}

// view aliases the memory of *v. It must not escape to callers.
func (l Layout[T]) view(v *T) []byte {
	l.check()
	if l.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), l.size)
}

func (l Layout[T]) check() {
	if !l.valid {
		panic("serial: Layout used without NewLayout")
	}
}
