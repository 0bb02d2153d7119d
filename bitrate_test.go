package canport

import (
	"errors"
	"testing"
)

func TestBitrateCommand(t *testing.T) {
	tests := []struct {
		rate    int
		want    string
		wantErr bool
	}{
		{10000, "S0", false},
		{20000, "S1", false},
		{50000, "S2", false},
		{100000, "S3", false},
		{125000, "S4", false},
		{250000, "S5", false},
		{500000, "S6", false},
		{750000, "S7", false},
		{1000000, "S8", false},
		{300000, "", true},
		{0, "", true},
		{-125000, "", true},
		{800000, "", true},
	}
	for _, tt := range tests {
		got, err := BitrateCommand(tt.rate)
		if (err != nil) != tt.wantErr {
			t.Errorf("BitrateCommand(%d) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			var ue *UnsupportedRateError
			if !errors.As(err, &ue) || ue.Rate != tt.rate || !errors.Is(err, ErrUnsupportedRate) {
				t.Errorf("BitrateCommand(%d) error = %#v", tt.rate, err)
			}
		}
		if got != tt.want {
			t.Errorf("BitrateCommand(%d) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestBitrates(t *testing.T) {
	rates := Bitrates()
	if len(rates) != 9 {
		t.Fatalf("Bitrates() returned %d rates", len(rates))
	}
	for i := 1; i < len(rates); i++ {
		if rates[i-1] >= rates[i] {
			t.Errorf("Bitrates() not sorted: %v", rates)
		}
	}
	if rates[0] != 10000 || rates[8] != 1000000 {
		t.Errorf("Bitrates() = %v", rates)
	}
}
