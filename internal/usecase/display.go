package usecase

import "sync"

// displayBuffer holds one visible text region and pushes every change to the
// page. Writes are serialised so the page sees them in order.
type displayBuffer struct {
	mu   sync.Mutex
	text string
	emit func(string)
}

func newDisplayBuffer(emit func(string)) *displayBuffer {
	return &displayBuffer{emit: emit}
}

func (d *displayBuffer) Set(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.emit(d.text)
}

func (d *displayBuffer) Append(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text += text
	d.emit(d.text)
}

func (d *displayBuffer) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}
