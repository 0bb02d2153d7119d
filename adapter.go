package canport

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
)

type Adapter interface {
	Name() string
	Open(context.Context) error
	Close() error
	Send() chan<- *CANFrame
	Recv() <-chan *CANFrame
	Err() <-chan error
	Event() <-chan Event
}

type AdapterInfo struct {
	Name               string
	Description        string
	RequiresSerialPort bool
	Capabilities       AdapterCapabilities
	New                func(*AdapterConfig) (Adapter, error)
}

func (a *AdapterInfo) String() string {
	return fmt.Sprintf("%s | %s, requires serial port: %v ", a.Name, a.Description, a.RequiresSerialPort)
}

type AdapterCapabilities struct {
	HSCAN      bool
	ExtendedID bool
}

func (a *AdapterCapabilities) String() string {
	return fmt.Sprintf("HSCAN: %v, ExtendedID: %v", a.HSCAN, a.ExtendedID)
}

const (
	DefaultPortBaudrate = 115200
	DefaultCANRate      = 500000
	DefaultOpenRetries  = 3
)

type AdapterConfig struct {
	Debug        bool
	Port         string
	PortBaudrate int
	CANRate      int // bit/s
	OpenRetries  uint
	PrintVersion bool // query version and serial number after open
	CompactIDs   bool // firmware sends standard ids as three hex digits
	OnMessage    func(string)
	OnError      func(error)
}

func (cfg *AdapterConfig) setDefaults() {
	if cfg.PortBaudrate == 0 {
		cfg.PortBaudrate = DefaultPortBaudrate
	}
	if cfg.CANRate == 0 {
		cfg.CANRate = DefaultCANRate
	}
	if cfg.OpenRetries == 0 {
		cfg.OpenRetries = DefaultOpenRetries
	}
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) {
			_, file, no, ok := runtime.Caller(1)
			if ok {
				log.Printf("%s#%d %v\n", filepath.Base(file), no, msg)
			} else {
				log.Println(msg)
			}
		}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			log.Printf("adapter error: %v", err)
		}
	}
}

var (
	adapterMu  sync.RWMutex
	adapterMap = make(map[string]*AdapterInfo)
)

func NewAdapter(adapterName string, cfg *AdapterConfig) (Adapter, error) {
	if cfg == nil {
		cfg = &AdapterConfig{}
	}
	cfg.setDefaults()
	adapterMu.RLock()
	adapter, found := adapterMap[adapterName]
	adapterMu.RUnlock()
	if found {
		return adapter.New(cfg)
	}
	return nil, fmt.Errorf("unknown adapter %q", adapterName)
}

func RegisterAdapter(adapter *AdapterInfo) error {
	adapterMu.Lock()
	defer adapterMu.Unlock()
	if _, found := adapterMap[adapter.Name]; !found {
		adapterMap[adapter.Name] = adapter
		return nil
	}
	return fmt.Errorf("adapter %s already registered", adapter.Name)
}

func ListAdapterNames() []string {
	adapterMu.RLock()
	defer adapterMu.RUnlock()
	return listNames()
}

func ListAdapters() []AdapterInfo {
	var out []AdapterInfo
	adapterMu.RLock()
	defer adapterMu.RUnlock()
	for _, name := range listNames() {
		out = append(out, *adapterMap[name])
	}
	return out
}

func listNames() []string {
	var out []string
	for name := range adapterMap {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}
