// Package textgroup joins bursts of text messages from one sender in one
// chat. Telegram splits long pastes into several messages; the burst is
// flushed once no new part arrives within the debounce window.
package textgroup

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type Item struct {
	ChatID   int64
	UserID   int64
	Username string
	Text     string
}

type Batch struct {
	ChatID   int64
	UserID   int64
	Username string
	Parts    []string
}

// Text joins the parts in arrival order without separators, since a split
// paste resumes exactly where the previous part ended.
func (b Batch) Text() string {
	return strings.Join(b.Parts, "")
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Batch)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Batch)
	pending  map[string]*pendingBatch
	closed   bool
}

type pendingBatch struct {
	batch Batch
	timer *time.Timer
	// gen identifies the live timer; callbacks of replaced timers are ignored.
	gen uint64
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		pending:  make(map[string]*pendingBatch),
	}
}

// Add buffers one message and restarts the sender's debounce timer. Blank
// messages and messages after Close are ignored.
func (a *Aggregator) Add(item Item) {
	if strings.TrimSpace(item.Text) == "" {
		return
	}

	key := makeKey(item.ChatID, item.UserID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	pb, ok := a.pending[key]
	if !ok {
		pb = &pendingBatch{
			batch: Batch{
				ChatID:   item.ChatID,
				UserID:   item.UserID,
				Username: item.Username,
			},
		}
		a.pending[key] = pb
	}
	pb.batch.Parts = append(pb.batch.Parts, item.Text)

	if pb.timer != nil {
		pb.timer.Stop()
	}
	pb.gen++
	gen := pb.gen
	pb.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key, gen)
	})
}

// Pending reports how many senders have a buffered burst.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Close stops all timers and drops buffered bursts.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	for key, pb := range a.pending {
		if pb.timer != nil {
			pb.timer.Stop()
		}
		delete(a.pending, key)
	}
}

func (a *Aggregator) flush(key string, gen uint64) {
	a.mu.Lock()
	pb, ok := a.pending[key]
	if !ok || pb.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	batch := pb.batch
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(batch)
	}
}

func makeKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}
