package notifier

import (
	"sync"

	"signalbot/internal/logger"
)

const defaultQueueSize = 64

// Dispatcher decouples the cycle from the transport: Send enqueues and returns
// immediately, a single worker delivers in order. When the queue is full the
// message is dropped and logged.
type Dispatcher struct {
	sink  TextNotifier
	queue chan string

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	onResult func(err error)
}

// NewDispatcher starts the delivery worker. onResult, when non-nil, runs on the
// worker after every delivery attempt with the send error (nil on success).
func NewDispatcher(sink TextNotifier, size int, onResult func(err error)) *Dispatcher {
	if sink == nil {
		sink = LogNotifier{}
	}
	if size <= 0 {
		size = defaultQueueSize
	}
	d := &Dispatcher{sink: sink, queue: make(chan string, size), onResult: onResult}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) Send(text string) {
	if d == nil || text == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.Warnf("notifier: dispatcher closed, dropping message")
		return
	}
	select {
	case d.queue <- text:
	default:
		logger.Warnf("notifier: queue full (%d), dropping message", cap(d.queue))
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for text := range d.queue {
		err := d.sink.SendText(text)
		if err != nil {
			logger.Errorf("notifier: send failed: %v", err)
		}
		if d.onResult != nil {
			d.onResult(err)
		}
	}
}
