package canport

// maxLineLength bounds the accumulation buffer. The longest valid line is an
// extended frame with eight data bytes (26 characters); anything past the
// bound is reported as malformed when its terminator arrives.
const maxLineLength = 64

// Decoder reassembles frames from an slcan byte stream.
//
// A 't' or 'T' always starts a fresh line, dropping whatever was buffered,
// so the decoder resynchronizes on the next start marker after corrupted or
// lost input. Every other byte is appended, including bytes seen before the
// first marker; those are rejected by the line parser once a terminator
// arrives. A terminator on an empty buffer yields nothing, which is how the
// adapter acknowledges commands.
//
// A Decoder is owned by a single reader and is not safe for concurrent use.
type Decoder struct {
	buf      []byte
	overflow bool
	parse    func([]byte) (*CANFrame, error)
}

type DecoderOption func(*Decoder)

// WithCompactIDs makes the decoder read standard identifiers as three hex
// digits instead of four.
func WithCompactIDs() DecoderOption {
	return func(d *Decoder) {
		d.parse = DecodeCompactLine
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		buf:   make([]byte, 0, maxLineLength),
		parse: DecodeLine,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reset drops any partially received line.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.overflow = false
}

// Buffered returns the number of bytes held for the line in progress.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Step consumes one byte. done is true when b terminated a line, in which
// case exactly one of frame and err is set.
func (d *Decoder) Step(b byte) (frame *CANFrame, done bool, err error) {
	switch b {
	case 't', 'T':
		d.Reset()
		d.buf = append(d.buf, b)
		return nil, false, nil
	case CR:
		if len(d.buf) == 0 && !d.overflow {
			return nil, false, nil
		}
		defer d.Reset()
		if d.overflow {
			return nil, true, &MalformedFrameError{Text: string(d.buf), Reason: "line too long"}
		}
		frame, err = d.parse(d.buf)
		return frame, true, err
	default:
		if len(d.buf) >= maxLineLength {
			d.overflow = true
			return nil, false, nil
		}
		d.buf = append(d.buf, b)
		return nil, false, nil
	}
}

// Feed consumes p and calls fn once per terminated line, in stream order.
// A partial line at the end of p is kept for the next call.
func (d *Decoder) Feed(p []byte, fn func(*CANFrame, error)) {
	for _, b := range p {
		if frame, done, err := d.Step(b); done {
			fn(frame, err)
		}
	}
}
