package protocol

// ControlType identifies a connection-level message. Control frames never
// touch the pad; the session answers them from its read loop.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01 // Heartbeat, sent by either side
	ControlPong  ControlType = 0x02 // Echoes a ping timestamp
	ControlClose ControlType = 0x20 // Page or server ends the session
)

// String returns the control type name used in logs.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason tells the page why its session ended, and so whether it
// should reconnect.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00 // Page closed or navigated away
	CloseGoingAway      CloseReason = 0x01 // Tab hidden or unloading
	CloseServerShutdown CloseReason = 0x03 // Pending writes flushed; reconnect later
	CloseError          CloseReason = 0x04 // Session failed
)

// String returns the close reason name used in logs.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	case CloseServerShutdown:
		return "ServerShutdown"
	case CloseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// PingPong carries the heartbeat timestamp. The pong echoes the ping's
// value unchanged.
type PingPong struct {
	Timestamp uint64 // Unix milliseconds when the ping was sent
}

// CloseMessage is the payload of a Close control frame. Message is shown
// in the browser console.
type CloseMessage struct {
	Reason  CloseReason
	Message string
}

// EncodeControl returns the payload of a control frame.
func EncodeControl(ct ControlType, payload any) []byte {
	e := NewEncoderWithCap(16)
	EncodeControlTo(e, ct, payload)
	return e.Bytes()
}

// EncodeControlTo writes a control payload to e. A payload of the wrong
// type is written as the zero payload.
func EncodeControlTo(e *Encoder, ct ControlType, payload any) {
	e.WriteByte(byte(ct))

	switch ct {
	case ControlPing, ControlPong:
		if pp, ok := payload.(*PingPong); ok {
			e.WriteUint64(pp.Timestamp)
		} else {
			e.WriteUint64(0)
		}

	case ControlClose:
		if cm, ok := payload.(*CloseMessage); ok {
			e.WriteByte(byte(cm.Reason))
			e.WriteString(cm.Message)
		} else {
			e.WriteByte(byte(CloseNormal))
			e.WriteString("")
		}
	}
}

// DecodeControl parses a control payload into its type and a *PingPong or
// *CloseMessage.
func DecodeControl(data []byte) (ControlType, any, error) {
	return DecodeControlFrom(NewDecoder(data))
}

// DecodeControlFrom parses a control payload from d. Unknown control types
// decode with a nil payload so newer pages can add them.
func DecodeControlFrom(d *Decoder) (ControlType, any, error) {
	typeByte, err := d.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	ct := ControlType(typeByte)

	switch ct {
	case ControlPing, ControlPong:
		ts, err := d.ReadUint64()
		if err != nil {
			return ct, nil, err
		}
		return ct, &PingPong{Timestamp: ts}, nil

	case ControlClose:
		reason, err := d.ReadByte()
		if err != nil {
			return ct, nil, err
		}
		message, err := d.ReadString()
		if err != nil {
			return ct, nil, err
		}
		return ct, &CloseMessage{
			Reason:  CloseReason(reason),
			Message: message,
		}, nil

	default:
		return ct, nil, nil
	}
}

// NewPing returns a heartbeat stamped with timestamp.
func NewPing(timestamp uint64) (ControlType, *PingPong) {
	return ControlPing, &PingPong{Timestamp: timestamp}
}

// NewPong returns the answer to a ping carrying timestamp.
func NewPong(timestamp uint64) (ControlType, *PingPong) {
	return ControlPong, &PingPong{Timestamp: timestamp}
}

// NewClose returns a close message for the page.
func NewClose(reason CloseReason, message string) (ControlType, *CloseMessage) {
	return ControlClose, &CloseMessage{Reason: reason, Message: message}
}
