package parse

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/bemasher/rtl5800/crc"
	"github.com/bemasher/rtl5800/csv"
	"github.com/bemasher/rtl5800/decode"
)

const (
	TimeFormat = "2006-01-02T15:04:05.000"
)

var ErrFrameLength = xerrors.New("frame length")

// Frame is the byte-aligned form of a completed bit frame.
type Frame struct {
	Bits  string
	Bytes []byte
}

// NewFrameFromBits packs bits, one per byte, into a frame. Anything other
// than exactly decode.FrameBits bits is malformed.
func NewFrameFromBits(bits []byte) (f Frame, err error) {
	if len(bits) != decode.FrameBits {
		return f, xerrors.Errorf("expected %d bits got %d: %w", decode.FrameBits, len(bits), ErrFrameLength)
	}

	buf := make([]byte, len(bits))
	f.Bytes = make([]byte, len(bits)>>3)
	for idx, bit := range bits {
		f.Bytes[idx>>3] = f.Bytes[idx>>3]<<1 | bit&1
		buf[idx] = '0' + bit&1
	}
	f.Bits = string(buf)

	return
}

func NewFrameFromBytes(data []byte) (f Frame, err error) {
	if len(data)<<3 != decode.FrameBits {
		return f, xerrors.Errorf("expected %d bytes got %d: %w", decode.FrameBits>>3, len(data), ErrFrameLength)
	}

	f.Bytes = make([]byte, len(data))
	copy(f.Bytes, data)
	for _, b := range data {
		f.Bits += fmt.Sprintf("%08b", b)
	}

	return
}

func (f Frame) DeviceID() uint32 {
	return uint32(f.Bytes[0])<<16 | uint32(f.Bytes[1])<<8 | uint32(f.Bytes[2])
}

func (f Frame) Status() uint8 {
	return f.Bytes[3]
}

func (f Frame) Checksum() uint16 {
	return uint16(f.Bytes[4])<<8 | uint16(f.Bytes[5])
}

func (f Frame) String() string {
	return fmt.Sprintf("{ID:%06X Status:%02X Checksum:0x%04X}", f.DeviceID(), f.Status(), f.Checksum())
}

// Validator checks the trailing checksum of frames.
type Validator struct {
	crc.CRC
}

func NewValidator() Validator {
	return Validator{crc.NewBuypass()}
}

// Validate reports whether the frame's checksum matches its id and status.
// Rejections are routine under noisy reception and only logged at debug.
func (v Validator) Validate(f Frame) bool {
	if len(f.Bytes)<<3 != decode.FrameBits {
		return false
	}

	// An all zero checksum is what a run of short pulses produces, don't
	// mistake it for a frame.
	if f.Checksum() == 0 {
		logrus.WithField("frame", f).Debug("degenerate checksum")
		return false
	}

	if !v.Valid(f.Bytes) {
		logrus.WithField("frame", f).Debug("checksum mismatch")
		return false
	}

	return true
}

type Message interface {
	csv.Recorder
	DeviceID() uint32
	StatusByte() uint8
	TypeName() string
}

// A LogMessage associates a message with the time it was decoded.
type LogMessage struct {
	Time time.Time
	Message
}

func (msg LogMessage) String() string {
	return fmt.Sprintf("{Time:%s %s:%s}", msg.Time.Format(TimeFormat), msg.TypeName(), msg.Message)
}

func (msg LogMessage) Record() (r []string) {
	r = append(r, msg.Time.Format(time.RFC3339Nano))
	r = append(r, msg.TypeName())
	r = append(r, msg.Message.Record()...)
	return r
}

// FormatID renders a device id the way payloads and subjects carry it.
func FormatID(id uint32) string {
	return fmt.Sprintf("%06X", id&0xFFFFFF)
}

// A FilterChain takes a list of filters and applies them iteratively to
// messages sent through the chain.
type FilterChain []MessageFilter

func (fc *FilterChain) Add(filter MessageFilter) {
	*fc = append(*fc, filter)
}

func (fc FilterChain) Match(msg Message) bool {
	if len(fc) == 0 {
		return true
	}

	for _, filter := range fc {
		if !filter.Filter(msg) {
			return false
		}
	}

	return true
}

type MessageFilter interface {
	Filter(Message) bool
}
