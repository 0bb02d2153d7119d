package canport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newLoopbackClient(t *testing.T) (*Client, context.Context) {
	t.Helper()
	a, err := NewAdapter("Loopback", quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c, err := New(ctx, a)
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		c.Close()
		cancel()
	})
	return c, ctx
}

func TestNewNilAdapter(t *testing.T) {
	if _, err := New(context.Background(), nil); !errors.Is(err, ErrNilAdapter) {
		t.Errorf("New(nil) error = %v, want ErrNilAdapter", err)
	}
}

func TestClientLoopback(t *testing.T) {
	c, ctx := newLoopbackClient(t)
	if name := c.Adapter().Name(); name != "Loopback" {
		t.Errorf("Adapter().Name() = %q", name)
	}
	sub := c.Subscribe(ctx)
	defer sub.Close()

	if err := c.SendFrame(0x7DF, []byte{0x02, 0x01, 0x0C}); err != nil {
		t.Fatal(err)
	}
	if err := c.SendExtendedFrame(0x18DAF110, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	if err := c.SendString("V"); err != nil {
		t.Fatal(err)
	}

	want := []*CANFrame{
		NewFrame(0x7DF, []byte{0x02, 0x01, 0x0C}, Incoming),
		NewExtendedFrame(0x18DAF110, []byte{1, 2, 3, 4, 5, 6, 7, 8}, Incoming),
	}
	for i, w := range want {
		select {
		case got := <-sub.Chan():
			if !got.Equal(w) || got.FrameType != Incoming {
				t.Errorf("frame %d = %v, want %v", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("frame %d not received", i)
		}
	}
	select {
	case got := <-sub.Chan():
		t.Errorf("unexpected frame %v", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestClientSendRejectsInvalidFrames(t *testing.T) {
	c, _ := newLoopbackClient(t)
	if err := c.Send(nil); !errors.Is(err, ErrNilFrame) {
		t.Errorf("Send(nil) error = %v", err)
	}
	if err := c.SendFrame(0x10000, nil); !errors.Is(err, ErrIdentifierRange) {
		t.Errorf("SendFrame(0x10000) error = %v", err)
	}
	if err := c.SendFrame(0x1, make([]byte, 9)); !errors.Is(err, ErrDataLength) {
		t.Errorf("SendFrame(9 bytes) error = %v", err)
	}
	if err := c.SendExtendedFrame(SystemMsg, []byte{1}); !errors.Is(err, ErrIdentifierRange) {
		t.Errorf("SendExtendedFrame(0x%X) error = %v", uint32(SystemMsg), err)
	}
}

func TestClientFilteredSubscriber(t *testing.T) {
	c, ctx := newLoopbackClient(t)
	sub := c.Subscribe(ctx, 0x7E8)
	defer sub.Close()

	c.SendFrame(0x7E0, []byte{0x01})
	c.SendFrame(0x7E8, []byte{0x02})

	select {
	case got := <-sub.Chan():
		if got.Identifier != 0x7E8 {
			t.Errorf("filtered subscriber got 0x%X", got.Identifier)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame not received")
	}
}

func TestClientWait(t *testing.T) {
	c, ctx := newLoopbackClient(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.SendFrame(0x7E8, []byte{0x41, 0x0C})
	}()
	f, err := c.Wait(ctx, 2*time.Second, 0x7E8)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if f.Identifier != 0x7E8 || f.DLC() != 2 {
		t.Errorf("Wait() = %v", f)
	}

	_, err = c.Wait(ctx, 20*time.Millisecond, 0x123)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Wait() error = %v, want *TimeoutError", err)
	}
	if te.Timeout != 20 || len(te.Frames) != 1 || te.Frames[0] != 0x123 {
		t.Errorf("TimeoutError = %+v", te)
	}
}

func TestTimeoutErrorMessage(t *testing.T) {
	tests := []struct {
		err  *TimeoutError
		want string
	}{
		{&TimeoutError{Timeout: 200, Frames: []uint32{0x1FFFFFFF}}, "timeout (200ms) waiting for frame 0x1FFFFFFF"},
		{&TimeoutError{Timeout: 50, Frames: []uint32{0x7E8, 0x1}}, "timeout (50ms) waiting for frame 0x7E8, 0x001"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestClientWidestExtendedFrame(t *testing.T) {
	c, ctx := newLoopbackClient(t)
	sub := c.Subscribe(ctx, maxExtendedID)
	defer sub.Close()
	if err := c.SendExtendedFrame(maxExtendedID, []byte{1}); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-sub.Chan():
		if !got.Extended || got.Identifier != maxExtendedID {
			t.Errorf("frame = %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("extended frame not looped back")
	}
}

func TestSubscriberClosedWithContext(t *testing.T) {
	c, ctx := newLoopbackClient(t)
	subCtx, cancel := context.WithCancel(ctx)
	sub := c.Subscribe(subCtx)
	cancel()
	select {
	case _, ok := <-sub.Chan():
		if ok {
			t.Error("received frame on cancelled subscriber")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber not closed")
	}
	sub.Close()
}

func TestRegistry(t *testing.T) {
	names := ListAdapterNames()
	if len(names) < 2 || names[0] != "Loopback" || names[1] != "SLCan" {
		t.Errorf("ListAdapterNames() = %v", names)
	}
	if err := RegisterAdapter(&AdapterInfo{Name: "SLCan"}); err == nil {
		t.Error("duplicate registration accepted")
	}
	if _, err := NewAdapter("nope", nil); err == nil {
		t.Error("unknown adapter created")
	}
	if _, err := NewAdapter("SLCan", &AdapterConfig{CANRate: 1}); !errors.Is(err, ErrUnsupportedRate) {
		t.Errorf("NewAdapter() error = %v, want ErrUnsupportedRate", err)
	}
}
