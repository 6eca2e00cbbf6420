// Package kfmt provides the minimal formatted output support used by kernel
// code at any point during the boot sequence. Output is buffered into a ring
// buffer until an output sink is registered.
package kfmt

import "io"

const digits = "0123456789abcdef"

// intBufSize is large enough for a 64-bit value in base 10 plus a sign.
const intBufSize = 21

var (
	missingArgMarker = []byte("(MISSING)")
	badTypeMarker    = []byte("%!(WRONGTYPE)")
	badVerbMarker    = []byte("%!(NOVERB)")
	extraArgMarker   = []byte("%!(EXTRA)")

	// byteWindow is the shared one-byte buffer that all sink writes go
	// through. Routing every byte through a package-level buffer keeps
	// Printf free of memory allocations: a stack-allocated buffer handed
	// to an unknown io.Writer would be moved to the heap by escape
	// analysis, which would crash the kernel if Printf ran before the Go
	// allocator is initialized.
	byteWindow = []byte{0}

	// intBuf is the scratch buffer numbers are rendered into.
	intBuf [intBufSize]byte

	// earlyPrintBuffer captures Printf output emitted before an output
	// sink is registered.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. While
	// nil, output is redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf formats its arguments to the registered output sink without
// allocating any memory, which makes it safe to call before the Go runtime
// has been properly initialized.
//
// Only the verbs that kernel code emits are implemented:
//
//	%s the uninterpreted bytes of a string or byte slice
//	%d base 10 integer
//	%x base 16 integer, with lower-case letters for a-f
//
// An optional decimal width immediately preceding the verb left-pads the
// value: %d and %s pad with spaces, %x pads with zeroes. Any other verb
// produces a %!(NOVERB) marker in the output.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	nextArg := 0

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			emitByte(w, format[i])
			continue
		}

		width := 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = (width * 10) + int(format[i]-'0')
		}

		if i == len(format) {
			emit(w, badVerbMarker)
			break
		}

		switch verb := format[i]; verb {
		case '%':
			emitByte(w, '%')
		case 's', 'd', 'x':
			if nextArg == len(args) {
				emit(w, missingArgMarker)
				continue
			}

			if verb == 's' {
				emitString(w, args[nextArg], width)
			} else {
				emitInt(w, args[nextArg], verb, width)
			}
			nextArg++
		default:
			emit(w, badVerbMarker)
		}
	}

	// Flag unused args
	for ; nextArg < len(args); nextArg++ {
		emit(w, extraArgMarker)
	}
}

// emitString emits a string or []byte value, left-padded with spaces up to
// width.
func emitString(w io.Writer, arg interface{}, width int) {
	switch v := arg.(type) {
	case string:
		for pad := width - len(v); pad > 0; pad-- {
			emitByte(w, ' ')
		}
		// converting the string to a byte slice would allocate, so the
		// bytes are forwarded one at a time.
		for i := 0; i < len(v); i++ {
			emitByte(w, v[i])
		}
	case []byte:
		for pad := width - len(v); pad > 0; pad-- {
			emitByte(w, ' ')
		}
		emit(w, v)
	default:
		emit(w, badTypeMarker)
	}
}

// emitInt renders an integer value right-to-left into the shared scratch
// buffer and emits it, applying the padding character selected by the verb.
func emitInt(w io.Writer, arg interface{}, verb byte, width int) {
	var (
		uval     uint64
		negative bool
	)

	switch v := arg.(type) {
	case uint8:
		uval = uint64(v)
	case uint16:
		uval = uint64(v)
	case uint32:
		uval = uint64(v)
	case uint64:
		uval = v
	case uintptr:
		uval = uint64(v)
	case int:
		negative = v < 0
		if negative {
			uval = uint64(-v)
		} else {
			uval = uint64(v)
		}
	case int32:
		negative = v < 0
		if negative {
			uval = uint64(-v)
		} else {
			uval = uint64(v)
		}
	case int64:
		negative = v < 0
		if negative {
			uval = uint64(-v)
		} else {
			uval = uint64(v)
		}
	default:
		emit(w, badTypeMarker)
		return
	}

	base := uint64(10)
	padCh := byte(' ')
	if verb == 'x' {
		base = 16
		padCh = '0'
	}

	pos := intBufSize
	for {
		pos--
		intBuf[pos] = digits[uval%base]
		uval /= base
		if uval == 0 {
			break
		}
	}

	if negative {
		pos--
		intBuf[pos] = '-'
	}

	for pad := width - (intBufSize - pos); pad > 0; pad-- {
		emitByte(w, padCh)
	}

	emit(w, intBuf[pos:])
}

// emit forwards a byte slice to the sink through the shared byte window.
func emit(w io.Writer, p []byte) {
	for _, b := range p {
		emitByte(w, b)
	}
}

// emitByte forwards a single byte to w, falling back to the early print
// buffer while no sink is registered.
func emitByte(w io.Writer, b byte) {
	byteWindow[0] = b
	if w != nil {
		w.Write(byteWindow)
	} else {
		earlyPrintBuffer.Write(byteWindow)
	}
}
