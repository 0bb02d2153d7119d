package canport

import (
	"errors"
	"testing"

	"go.bug.st/serial/enumerator"
)

func testPorts() []*enumerator.PortDetails {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "ad50", PID: "60c4", SerialNumber: "0031"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
		{Name: "COM25", IsUSB: true, VID: "AD50", PID: "60C4"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "AD50", PID: "0000"},
	}
}

func TestFilterPorts(t *testing.T) {
	got := FilterPorts(testPorts(), VendorID, ProductID)
	if len(got) != 2 {
		t.Fatalf("FilterPorts() returned %d ports, want 2", len(got))
	}
	if got[0].Name != "/dev/ttyACM0" || got[1].Name != "COM25" {
		t.Errorf("FilterPorts() = %s, %s", got[0].Name, got[1].Name)
	}
}

func TestListPorts(t *testing.T) {
	orig := enumeratePorts
	defer func() { enumeratePorts = orig }()
	enumeratePorts = func() ([]*enumerator.PortDetails, error) {
		return testPorts(), nil
	}

	all, err := ListPorts(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("ListPorts(true) returned %d ports, want 5", len(all))
	}
	adapters, err := ListPorts(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(adapters) != 2 {
		t.Errorf("ListPorts(false) returned %d ports, want 2", len(adapters))
	}

	wantErr := errors.New("enumeration failed")
	enumeratePorts = func() ([]*enumerator.PortDetails, error) {
		return nil, wantErr
	}
	if _, err := ListPorts(false); !errors.Is(err, wantErr) {
		t.Errorf("ListPorts() error = %v, want %v", err, wantErr)
	}
}
