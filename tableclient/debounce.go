package tableclient

import (
	"context"
	"sync"
	"time"
)

//SearchDebouncer holds back search requests until the input has been quiet
//for the configured delay, so typing does not turn into a request storm.
type SearchDebouncer struct {
	client *Client
	delay  time.Duration

	mu    sync.Mutex
	timer *time.Timer
	term  string
}

func NewSearchDebouncer(client *Client, delay time.Duration) *SearchDebouncer {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &SearchDebouncer{client: client, delay: delay}
}

//Type records a keystroke. The search fires once the delay passes without
//another call.
func (d *SearchDebouncer) Type(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.term = term
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.term
		d.mu.Unlock()
		d.client.Search(context.Background(), current)
	})
}

//Flush fires the pending search immediately.
func (d *SearchDebouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	term := d.term
	d.mu.Unlock()
	return d.client.Search(ctx, term)
}

func (d *SearchDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
