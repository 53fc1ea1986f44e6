package protocol

import (
	"errors"
	"fmt"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchReplaceURL PatchOp = 0x01 // history.replaceState(href)
	PatchSetText    PatchOp = 0x02 // Set textarea value
	PatchFocus      PatchOp = 0x03 // Focus textarea
	PatchNotice     PatchOp = 0x04 // Show a non-blocking notice
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchReplaceURL:
		return "ReplaceURL"
	case PatchSetText:
		return "SetText"
	case PatchFocus:
		return "Focus"
	case PatchNotice:
		return "Notice"
	default:
		return "Unknown"
	}
}

// NoticeLevel is the severity of a Notice patch.
type NoticeLevel uint8

const (
	NoticeInfo NoticeLevel = 0
	NoticeWarn NoticeLevel = 1
)

// String returns the string representation of the level.
func (l NoticeLevel) String() string {
	switch l {
	case NoticeInfo:
		return "info"
	case NoticeWarn:
		return "warn"
	default:
		return "unknown"
	}
}

// ErrUnknownPatch is returned for a patch op byte this version does not know.
var ErrUnknownPatch = errors.New("protocol: unknown patch op")

// Patch is a single client-side operation.
type Patch struct {
	Op    PatchOp
	Value string      // Href for ReplaceURL, text for SetText, message for Notice
	Level NoticeLevel // Notice only
}

// PatchesFrame represents a batch of patches with sequence number.
//
// Ack is the Seq of the last client event the server had applied when it
// produced the batch, or 0 before the first one. A page that has sent a
// newer event treats ReplaceURL and SetText in the batch as stale.
type PatchesFrame struct {
	Seq     uint64
	Ack     uint64
	Patches []Patch
}

// Stale reports whether the batch predates the client event lastSent.
func (pf *PatchesFrame) Stale(lastSent uint64) bool {
	return pf.Ack < lastSent
}

// NewReplaceURLPatch creates a ReplaceURL patch.
func NewReplaceURLPatch(href string) Patch {
	return Patch{Op: PatchReplaceURL, Value: href}
}

// NewSetTextPatch creates a SetText patch.
func NewSetTextPatch(text string) Patch {
	return Patch{Op: PatchSetText, Value: text}
}

// NewFocusPatch creates a Focus patch.
func NewFocusPatch() Patch {
	return Patch{Op: PatchFocus}
}

// NewNoticePatch creates a Notice patch.
func NewNoticePatch(level NoticeLevel, message string) Patch {
	return Patch{Op: PatchNotice, Level: level, Value: message}
}

// EncodePatches encodes a patches frame to bytes.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame using the provided encoder.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(pf.Ack)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	switch p.Op {
	case PatchReplaceURL, PatchSetText:
		e.WriteString(p.Value)
	case PatchFocus:
	case PatchNotice:
		e.WriteByte(byte(p.Level))
		e.WriteString(p.Value)
	}
}

// DecodePatches decodes a patches frame from bytes.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	return DecodePatchesFrom(NewDecoder(data))
}

// DecodePatchesFrom decodes a patches frame from a decoder.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	ack, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCount(MaxPatchCount)
	if err != nil {
		return nil, err
	}

	pf := &PatchesFrame{Seq: seq, Ack: ack, Patches: make([]Patch, count)}
	for i := range pf.Patches {
		if err := decodePatch(d, &pf.Patches[i]); err != nil {
			return nil, err
		}
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return pf, nil
}

func decodePatch(d *Decoder, p *Patch) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = PatchOp(op)

	switch p.Op {
	case PatchReplaceURL, PatchSetText:
		p.Value, err = d.ReadString()
		return err
	case PatchFocus:
		return nil
	case PatchNotice:
		level, err := d.ReadByte()
		if err != nil {
			return err
		}
		p.Level = NoticeLevel(level)
		p.Value, err = d.ReadString()
		return err
	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnknownPatch, op)
	}
}
