package errcode

// Code is a stable error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"
	InitFailed    Code = "init_failed"
	Timeout       Code = "timeout"

	Error Code = "error" // generic fallback
)

// Radio interface variant failures.
const (
	RadioReset Code = "radio_reset"
	RfSwitchRx Code = "rf_switch_rx"
	RfSwitchTx Code = "rf_switch_tx"
	Irq        Code = "irq"
)

// Radio PHY failures.
const (
	RadioNotFound Code = "radio_not_found"
	CRC           Code = "crc"
)

// P2P protocol loop failures.
const (
	PrepareForTx Code = "prepare_for_tx"
	Tx           Code = "tx"
	PrepareForRx Code = "prepare_for_rx"
	Rx           Code = "rx"
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

// Wrap tags err with c. A nil err still yields a tagged error.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match on the tag.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
