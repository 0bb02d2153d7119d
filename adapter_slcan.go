package canport

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/albenik/bcd"
	"github.com/avast/retry-go"
	"go.bug.st/serial"
)

// SystemMsg marks a standard frame whose Data is a raw adapter command rather
// than a CAN payload. Extended frames never carry commands.
const SystemMsg = 0xFFFFFFFF

func isRawCommand(f *CANFrame) bool {
	return f.Identifier == SystemMsg && !f.Extended
}

// NewRawCommand wraps an adapter command such as "V" or "S6".
func NewRawCommand(cmd string) *CANFrame {
	return &CANFrame{
		Identifier: SystemMsg,
		Data:       []byte(cmd),
		FrameType:  Outgoing,
	}
}

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "SLCan",
		Description:        "CANable slcan adapter",
		RequiresSerialPort: true,
		Capabilities: AdapterCapabilities{
			HSCAN:      true,
			ExtendedID: true,
		},
		New: NewSLCan,
	}); err != nil {
		panic(err)
	}
}

type serialPort interface {
	io.ReadWriteCloser
}

var openPort = func(name string, baudrate int) (serialPort, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open com port %q : %v", name, err)
	}
	if err := p.SetReadTimeout(5 * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	p.ResetOutputBuffer()
	p.ResetInputBuffer()
	return p, nil
}

// commandDelay is the pause the adapter firmware needs between commands.
var commandDelay = 10 * time.Millisecond

type SLCan struct {
	BaseAdapter
	decoder *Decoder

	mu       sync.Mutex
	port     serialPort
	sendDone chan struct{} // closed when sendManager returns
	canRate  string
	version  string
}

func NewSLCan(cfg *AdapterConfig) (Adapter, error) {
	sl := &SLCan{
		BaseAdapter: NewBaseAdapter("SLCan", cfg),
	}
	if sl.cfg.CompactIDs {
		sl.decoder = NewDecoder(WithCompactIDs())
	} else {
		sl.decoder = NewDecoder()
	}
	rate, err := BitrateCommand(sl.cfg.CANRate)
	if err != nil {
		return nil, err
	}
	sl.canRate = rate
	return sl, nil
}

func (sl *SLCan) Open(ctx context.Context) error {
	var p serialPort
	err := retry.Do(func() error {
		var err error
		p, err = openPort(sl.cfg.Port, sl.cfg.PortBaudrate)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(sl.cfg.OpenRetries),
		retry.Delay(100*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			sl.cfg.OnMessage(fmt.Sprintf("retry #%d: %v", n, err))
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return err
	}

	sendDone := make(chan struct{})
	sl.mu.Lock()
	sl.port = p
	sl.sendDone = sendDone
	rate := sl.canRate
	sl.mu.Unlock()

	for _, cmd := range []string{"C", rate, "O"} {
		if err := sl.command(cmd); err != nil {
			sl.mu.Lock()
			sl.port = nil
			sl.mu.Unlock()
			p.Close()
			return err
		}
	}

	go sl.recvManager(ctx, p)
	go sl.sendManager(ctx, sendDone)

	if sl.cfg.PrintVersion {
		sl.sendChan <- NewRawCommand("V")
		sl.sendChan <- NewRawCommand("N")
	}
	return nil
}

// SetBitrate validates rate and, when the adapter is open, reopens the CAN
// channel at the new rate. Nothing is written for an unsupported rate.
func (sl *SLCan) SetBitrate(rate int) error {
	cmd, err := BitrateCommand(rate)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	sl.canRate = cmd
	open := sl.port != nil
	sl.mu.Unlock()
	if !open {
		return nil
	}
	for _, c := range []string{"C", cmd, "O"} {
		if err := sl.command(c); err != nil {
			return err
		}
	}
	return nil
}

// Version returns the last hardware/software version reported by the adapter.
func (sl *SLCan) Version() string {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.version
}

// Close writes frames still queued on Send, closes the CAN channel and then
// the serial port.
func (sl *SLCan) Close() error {
	sl.BaseAdapter.Close()
	sl.mu.Lock()
	open, sendDone := sl.port != nil, sl.sendDone
	sl.mu.Unlock()
	if !open {
		return nil
	}
	<-sendDone
	sl.flush()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.port == nil {
		return nil
	}
	p := sl.port
	sl.port = nil
	if _, err := p.Write([]byte{'C', CR}); err != nil {
		sl.cfg.OnError(fmt.Errorf("failed to close CAN channel: %w", err))
	}
	time.Sleep(commandDelay)
	if err := p.Close(); err != nil {
		return fmt.Errorf("failed to close com port: %w", err)
	}
	return nil
}

func (sl *SLCan) write(b []byte) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.port == nil {
		return ErrAdapterClosed
	}
	if _, err := sl.port.Write(b); err != nil {
		return fmt.Errorf("failed to write to com port: %w", err)
	}
	return nil
}

func (sl *SLCan) command(cmd string) error {
	if err := sl.write(append([]byte(cmd), CR)); err != nil {
		return err
	}
	sl.Debug(">> " + cmd)
	time.Sleep(commandDelay)
	return nil
}

func (sl *SLCan) recvManager(ctx context.Context, port serialPort) {
	readBuf := make([]byte, 64)
	for ctx.Err() == nil && !sl.closed() {
		n, err := port.Read(readBuf)
		if err != nil {
			if ctx.Err() == nil && !sl.closed() {
				sl.Fatal(fmt.Errorf("failed to read com port: %w", err))
			}
			return
		}
		if n == 0 {
			continue
		}
		sl.decoder.Feed(sl.stripBells(readBuf[:n]), sl.onLine)
	}
}

// stripBells reports and removes BELL bytes, the adapter's reply to a
// command it rejected. They are never part of a line.
func (sl *SLCan) stripBells(chunk []byte) []byte {
	if bytes.IndexByte(chunk, BELL) < 0 {
		return chunk
	}
	out := chunk[:0]
	for _, b := range chunk {
		if b == BELL {
			sl.Error(ErrCommandError)
			continue
		}
		out = append(out, b)
	}
	return out
}

func (sl *SLCan) onLine(frame *CANFrame, err error) {
	if err == nil {
		sl.Debug("<< " + frame.String())
		sl.deliver(frame)
		return
	}
	var mf *MalformedFrameError
	if errors.As(err, &mf) && sl.handleReply(mf.Text) {
		return
	}
	sl.Error(fmt.Errorf("failed to decode frame: %w", err))
}

// handleReply consumes adapter responses that share the line format with
// frames. A known reply with a bad body is reported as a warning. It reports
// false for lines it does not recognize.
func (sl *SLCan) handleReply(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case 'z', 'Z':
		return len(line) == 1
	case 'V':
		v, err := decodeVersion(line)
		if err != nil {
			sl.Warn(err.Error())
			return true
		}
		sl.mu.Lock()
		sl.version = v
		sl.mu.Unlock()
		sl.Info("H/W version " + v)
		return true
	case 'N':
		sl.Info("H/W serial " + strings.TrimSpace(line[1:]))
		return true
	case 'F':
		flags, err := parseHex("status", []byte(line[1:]))
		if err != nil || len(line) != 3 {
			sl.Warn(fmt.Sprintf("unexpected status reply %q", line))
			return true
		}
		if err := decodeStatus(uint8(flags)); err != nil {
			sl.Error(fmt.Errorf("CAN status error: %w", err))
		}
		return true
	}
	return false
}

// flush writes whatever is left on the send channel once sendManager is gone.
func (sl *SLCan) flush() {
	outBuf := make([]byte, 0, 32)
	for {
		select {
		case frame := <-sl.sendChan:
			if err := sl.handleSend(frame, &outBuf); err != nil {
				sl.cfg.OnError(err)
				if !IsRecoverable(err) || errors.Is(err, ErrAdapterClosed) {
					return
				}
			}
		default:
			return
		}
	}
}

func (sl *SLCan) sendManager(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	outBuf := make([]byte, 0, 32) // reused scratch buffer for frames
	for {
		select {
		case <-ctx.Done():
			return
		case <-sl.closeChan:
			return
		case frame := <-sl.sendChan:
			if err := sl.handleSend(frame, &outBuf); err != nil {
				if errors.Is(err, ErrAdapterClosed) {
					return
				}
				if !IsRecoverable(err) {
					sl.Fatal(err)
					return
				}
				sl.Error(err)
			}
		}
	}
}

func (sl *SLCan) handleSend(frame *CANFrame, outBuf *[]byte) error {
	if frame == nil {
		return ErrNilFrame
	}
	if isRawCommand(frame) {
		return sl.command(string(frame.Data))
	}
	buf, err := AppendEncode((*outBuf)[:0], frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	*outBuf = buf
	if err := sl.write(buf); err != nil {
		if errors.Is(err, ErrAdapterClosed) {
			return err
		}
		return Unrecoverable(err)
	}
	sl.Debug(">> " + string(buf[:len(buf)-1]))
	return nil
}

// decodeVersion turns "Vhhss" into "hw h.h sw s.s". The digits are packed
// decimal, one byte per version.
func decodeVersion(line string) (string, error) {
	if len(line) != 5 {
		return "", fmt.Errorf("unexpected version reply %q", line)
	}
	b, err := hex.DecodeString(line[1:])
	if err != nil {
		return "", fmt.Errorf("unexpected version reply %q: %w", line, err)
	}
	hw, sw := bcd.ToUint8(b[0]), bcd.ToUint8(b[1])
	return fmt.Sprintf("hw %d.%d sw %d.%d", hw/10, hw%10, sw/10, sw%10), nil
}

var statusFlags = []struct {
	bit uint8
	err string
}{
	{0, "CAN receive FIFO queue full"},
	{1, "CAN transmit FIFO queue full"},
	{2, "error warning (EI)"},
	{3, "data overrun (DOI)"},
	{5, "error passive (EPI)"},
	{6, "arbitration lost (ALI)"},
	{7, "bus error (BEI)"},
}

// decodeStatus maps the SJA1000 style flag byte of an 'F' reply to errors.
func decodeStatus(flags uint8) error {
	var errs []error
	for _, f := range statusFlags {
		if flags&(1<<f.bit) != 0 {
			errs = append(errs, errors.New(f.err))
		}
	}
	return errors.Join(errs...)
}
