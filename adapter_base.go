package canport

import (
	"log"
	"path/filepath"
	"runtime"
	"sync"
)

type BaseAdapter struct {
	name               string
	cfg                *AdapterConfig
	sendChan, recvChan chan *CANFrame

	errOnce sync.Once
	errChan chan error

	evtChan chan Event

	closeOnce sync.Once
	closeChan chan struct{}
}

func NewBaseAdapter(name string, cfg *AdapterConfig) BaseAdapter {
	if cfg == nil {
		cfg = &AdapterConfig{}
	}
	cfg.setDefaults()
	return BaseAdapter{
		name:      name,
		cfg:       cfg,
		sendChan:  make(chan *CANFrame, 40),
		recvChan:  make(chan *CANFrame, 1024),
		errChan:   make(chan error, 1),
		evtChan:   make(chan Event, 100),
		closeChan: make(chan struct{}),
	}
}

// Name returns the adapter name.
func (base *BaseAdapter) Name() string {
	return base.name
}

// Return the send channel for the adapter
func (base *BaseAdapter) Send() chan<- *CANFrame {
	return base.sendChan
}

// Return the receive channel for the adapter
func (base *BaseAdapter) Recv() <-chan *CANFrame {
	return base.recvChan
}

// Return the error channel for the adapter
func (base *BaseAdapter) Err() <-chan error {
	return base.errChan
}

func (base *BaseAdapter) Event() <-chan Event {
	return base.evtChan
}

func (base *BaseAdapter) Close() {
	base.closeOnce.Do(func() {
		close(base.closeChan)
	})
}

func (base *BaseAdapter) closed() bool {
	select {
	case <-base.closeChan:
		return true
	default:
		return false
	}
}

// Set a fatal adapter error, meaning communication is broken and cannot continue.
func (base *BaseAdapter) Fatal(err error) {
	base.errOnce.Do(func() {
		select {
		case base.errChan <- Unrecoverable(err):
		default:
			_, file, no, ok := runtime.Caller(1)
			if ok {
				log.Printf("%s:%d error channel full: %v\n", filepath.Base(file), no, err)
			} else {
				log.Printf("error channel full: %v", err)
			}
		}
	})
}

func (base *BaseAdapter) sendEvent(evt Event) {
	select {
	case base.evtChan <- evt:
	default:
		_, file, no, ok := runtime.Caller(2)
		if ok {
			log.Printf("%s#%d event channel full: %s\n", filepath.Base(file), no, evt.Details)
		} else {
			log.Printf("event channel full: %s", evt.Details)
		}
	}
}

// deliver hands a decoded frame to the receive channel without blocking the reader.
func (base *BaseAdapter) deliver(frame *CANFrame) {
	select {
	case base.recvChan <- frame:
	default:
		base.Error(ErrDroppedFrame)
	}
}

// Send an error event
func (base *BaseAdapter) Error(err error) {
	base.cfg.OnError(err)
	base.sendEvent(Event{Type: EventTypeError, Details: err.Error(), Err: err})
}

// Send a warning event
func (base *BaseAdapter) Warn(warn string) {
	base.cfg.OnMessage(warn)
	base.sendEvent(Event{Type: EventTypeWarning, Details: warn})
}

// Send an info event
func (base *BaseAdapter) Info(info string) {
	base.cfg.OnMessage(info)
	base.sendEvent(Event{Type: EventTypeInfo, Details: info})
}

// Debug traces go to OnMessage when Debug is set, never to the event channel.
func (base *BaseAdapter) Debug(debug string) {
	if base.cfg.Debug {
		base.cfg.OnMessage(debug)
	}
}
