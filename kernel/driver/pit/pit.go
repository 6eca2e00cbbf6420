// Package pit drives the legacy 8254 programmable interval timer. The core
// computes the divisor for a requested tick frequency and accounts ticks;
// programming the chip and acknowledging the interrupt belong to the
// architecture layer.
package pit

import "sync/atomic"

// InputHz is the fixed input clock of the legacy PIT.
const InputHz = 1193182

// maxDivisor is the largest reload value the 16-bit PIT counter can hold.
const maxDivisor = 65535

// ticks counts timer interrupts since Init. It only ever moves forward;
// wrap-around is not handled.
var ticks uint64

// Config captures the outcome of a PIT configuration request.
type Config struct {
	// FrequencyHz is the effective requested frequency after clamping.
	FrequencyHz uint32

	// Divisor is the reload value the architecture layer must program
	// into the chip.
	Divisor uint16
}

// Configure computes the PIT divisor for a requested timer frequency.
// Frequencies below 1Hz are clamped to 1 and the divisor is clamped to the
// range the 16-bit counter register can represent.
func Configure(frequencyHz uint32) Config {
	if frequencyHz < 1 {
		frequencyHz = 1
	}

	divisor := uint64(InputHz) / uint64(frequencyHz)
	if divisor < 1 {
		divisor = 1
	} else if divisor > maxDivisor {
		divisor = maxDivisor
	}

	return Config{
		FrequencyHz: frequencyHz,
		Divisor:     uint16(divisor),
	}
}

// Init resets the tick counter and returns the configuration that the
// architecture layer must program into the chip.
func Init(frequencyHz uint32) Config {
	atomic.StoreUint64(&ticks, 0)
	return Configure(frequencyHz)
}

// HandleTimerInterrupt accounts one timer interrupt and returns the updated
// tick count.
func HandleTimerInterrupt() uint64 {
	return atomic.AddUint64(&ticks, 1)
}

// UptimeTicks returns the number of ticks accounted since Init.
func UptimeTicks() uint64 {
	return atomic.LoadUint64(&ticks)
}
