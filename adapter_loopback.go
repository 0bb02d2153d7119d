package canport

import (
	"context"
	"fmt"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "Loopback",
		Description:        "echoes sent frames through the slcan codec",
		RequiresSerialPort: false,
		Capabilities: AdapterCapabilities{
			HSCAN:      true,
			ExtendedID: true,
		},
		New: NewLoopback,
	}); err != nil {
		panic(err)
	}
}

// Loopback encodes every sent frame to its wire form and decodes it again,
// delivering the result on Recv.
type Loopback struct {
	BaseAdapter
	decoder *Decoder
}

func NewLoopback(cfg *AdapterConfig) (Adapter, error) {
	return &Loopback{
		BaseAdapter: NewBaseAdapter("Loopback", cfg),
		decoder:     NewDecoder(),
	}, nil
}

func (lb *Loopback) Open(ctx context.Context) error {
	go lb.sendManager(ctx)
	return nil
}

func (lb *Loopback) Close() error {
	lb.BaseAdapter.Close()
	return nil
}

func (lb *Loopback) sendManager(ctx context.Context) {
	buf := make([]byte, 0, 32)
	for {
		select {
		case <-ctx.Done():
			return
		case <-lb.closeChan:
			return
		case frame := <-lb.sendChan:
			if frame == nil {
				lb.Error(ErrNilFrame)
				continue
			}
			if isRawCommand(frame) {
				lb.Debug(">> " + string(frame.Data))
				continue
			}
			var err error
			buf, err = AppendEncode(buf[:0], frame)
			if err != nil {
				lb.Error(fmt.Errorf("failed to encode frame: %w", err))
				continue
			}
			lb.Debug(">> " + string(buf[:len(buf)-1]))
			lb.decoder.Feed(buf, func(f *CANFrame, err error) {
				if err != nil {
					lb.Error(fmt.Errorf("failed to decode frame: %w", err))
					return
				}
				lb.deliver(f)
			})
		}
	}
}
