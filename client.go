package canport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const subscriberBuffer = 64

// Client owns an opened adapter and fans its incoming frames out to subscribers.
type Client struct {
	adapter     Adapter
	fh          *handler
	sendTimeout time.Duration
}

// New opens the adapter and starts delivering frames to subscribers.
func New(ctx context.Context, adapter Adapter) (*Client, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	if err := adapter.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open adapter %s: %w", adapter.Name(), err)
	}
	c := &Client{
		adapter:     adapter,
		sendTimeout: 2 * time.Second,
	}
	c.fh = newHandler(adapter)
	go c.fh.run(ctx)
	return c, nil
}

func (c *Client) Adapter() Adapter {
	return c.adapter
}

// Err delivers the adapter's fatal error, if any.
func (c *Client) Err() <-chan error {
	return c.adapter.Err()
}

// Event delivers non fatal adapter events such as frames that failed to decode.
func (c *Client) Event() <-chan Event {
	return c.adapter.Event()
}

func (c *Client) Close() error {
	c.fh.Close()
	return c.adapter.Close()
}

// Send queues a frame for the adapter. Frames that cannot be encoded are
// rejected here rather than by the adapter's send loop.
func (c *Client) Send(frame *CANFrame) error {
	if frame == nil {
		return ErrNilFrame
	}
	if !isRawCommand(frame) {
		if err := frame.Validate(); err != nil {
			return err
		}
	}
	t := time.NewTimer(c.sendTimeout)
	defer t.Stop()
	select {
	case c.adapter.Send() <- frame:
		return nil
	case <-t.C:
		return ErrSendTimeout
	}
}

// SendFrame sends a standard frame
func (c *Client) SendFrame(identifier uint32, data []byte) error {
	return c.Send(NewFrame(identifier, data, Outgoing))
}

// SendExtendedFrame sends an extended frame
func (c *Client) SendExtendedFrame(identifier uint32, data []byte) error {
	return c.Send(NewExtendedFrame(identifier, data, Outgoing))
}

// SendString bypasses the frame encoder and sends a raw adapter command
func (c *Client) SendString(str string) error {
	return c.Send(NewRawCommand(str))
}

// Subscribe returns a subscriber receiving frames with one of the given
// identifiers, or every frame when none are given. It is closed when ctx is done.
func (c *Client) Subscribe(ctx context.Context, identifiers ...uint32) *Subscriber {
	sub := &Subscriber{
		cl:           c,
		identifiers:  make(map[uint32]struct{}, len(identifiers)),
		responseChan: make(chan *CANFrame, subscriberBuffer),
		done:         make(chan struct{}),
	}
	for _, id := range identifiers {
		sub.identifiers[id] = struct{}{}
	}
	c.fh.register(sub)
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub
}

// Wait returns the first frame matching identifiers received within timeout.
func (c *Client) Wait(ctx context.Context, timeout time.Duration, identifiers ...uint32) (*CANFrame, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	sub := c.Subscribe(ctx, identifiers...)
	defer sub.Close()
	frame, err := sub.wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &TimeoutError{Timeout: timeout.Milliseconds(), Frames: identifiers}
	}
	return frame, err
}
