package canport

import (
	"errors"
	"strings"
	"testing"
)

func TestNewFrameCopiesData(t *testing.T) {
	data := []byte{1, 2, 3}
	f := NewFrame(0x123, data, Outgoing)
	data[0] = 0xFF
	if f.Data[0] != 1 {
		t.Errorf("NewFrame() shares the caller's slice")
	}
	if f.DLC() != 3 {
		t.Errorf("DLC() = %d, want 3", f.DLC())
	}
	if f.Extended {
		t.Errorf("NewFrame() created an extended frame")
	}
	if !NewExtendedFrame(0x123, nil, Outgoing).Extended {
		t.Errorf("NewExtendedFrame() created a standard frame")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame *CANFrame
		want  error
	}{
		{"standard", NewFrame(0x7FF, make([]byte, 8), Outgoing), nil},
		{"standard four digits", NewFrame(0xFFFF, nil, Outgoing), nil},
		{"standard too wide", NewFrame(0x10000, nil, Outgoing), ErrIdentifierRange},
		{"extended wide", NewExtendedFrame(0x1FFFFFFF, nil, Outgoing), nil},
		{"extended above 29 bits", NewExtendedFrame(0x20000000, nil, Outgoing), ErrIdentifierRange},
		{"extended command marker", NewExtendedFrame(SystemMsg, []byte{1}, Outgoing), ErrIdentifierRange},
		{"too much data", NewExtendedFrame(0x1, make([]byte, 9), Outgoing), ErrDataLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := NewFrame(0x1, []byte{1, 2}, Outgoing)
	if !a.Equal(NewFrame(0x1, []byte{1, 2}, Incoming)) {
		t.Error("frames differing only in direction are not equal")
	}
	if a.Equal(NewExtendedFrame(0x1, []byte{1, 2}, Outgoing)) {
		t.Error("standard and extended frames are equal")
	}
	if a.Equal(NewFrame(0x1, []byte{1, 3}, Outgoing)) {
		t.Error("frames with different data are equal")
	}
	if a.Equal(nil) {
		t.Error("frame equals nil")
	}
}

func TestString(t *testing.T) {
	s := NewFrame(0x7E8, []byte{0x41, 0x0C}, Incoming).String()
	for _, want := range []string{"<i>", "0x7E8", "41 0C", "01000001 00001100", "A·"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
	s = NewExtendedFrame(0x18DAF110, nil, Outgoing).String()
	if !strings.Contains(s, "<o> || 0x18DAF110 || 0") {
		t.Errorf("String() = %q", s)
	}
}
