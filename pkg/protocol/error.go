package protocol

// ErrorCode says which client frame or event the server could not accept.
type ErrorCode uint16

const (
	ErrUnknown        ErrorCode = 0x0000
	ErrInvalidFrame   ErrorCode = 0x0001 // Bad header, unknown frame type or a text message
	ErrInvalidEvent   ErrorCode = 0x0002 // Event payload did not decode
	ErrEventQueueFull ErrorCode = 0x0003 // Event dropped; the page sent more than the session could hold
	ErrEventFailed    ErrorCode = 0x0100 // Event decoded but applying it failed
)

// String returns the code name used in logs and in ErrorMessage.Error.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrInvalidEvent:
		return "InvalidEvent"
	case ErrEventQueueFull:
		return "EventQueueFull"
	case ErrEventFailed:
		return "EventFailed"
	default:
		return "Unknown"
	}
}

// ErrorMessage is the payload of an Error frame. The page logs it; none of
// the codes touch the pad. Fatal means the server closes the session next.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool
}

// EncodeErrorMessage returns the payload of an Error frame:
// [Code: uint16][Message: string][Fatal: bool].
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoderWithCap(4 + len(em.Message))
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage parses the payload of an Error frame.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &ErrorMessage{Code: ErrorCode(code), Message: message, Fatal: fatal}, nil
}

// NewError returns an error message after which the session carries on.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError returns an error message that ends the session.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code.String() + ": " + em.Message
	}
	return em.Code.String() + ": " + em.Message
}
