package backend

import (
	"sync"
	"time"

	"github.com/oba-ldap/oba/internal/server"
)

// defaultIteratorCapacity is the default bounded-queue size for a
// streamingIterator, per §4.8.
const defaultIteratorCapacity = 100

// offerPollInterval is how often a blocked producer retries offer() against
// a full queue.
const offerPollInterval = 100 * time.Millisecond

// consumePollInterval is how often nextEntry() retries against an empty,
// not-yet-closed queue.
const consumePollInterval = 10 * time.Millisecond

// streamItem is one slot in a streamingIterator's bounded queue: either an
// entry, a terminal error, or the end-of-results sentinel.
type streamItem struct {
	entry *server.Entry
	err   error
	end   bool
}

// streamingIterator is a bounded FIFO between a search's producer (walking
// the store) and its consumer (the connection goroutine draining results
// onto the wire), giving the producer back-pressure instead of requiring the
// whole result set to be materialized up front. Capacity defaults to
// defaultIteratorCapacity.
type streamingIterator struct {
	mu           sync.Mutex
	items        []streamItem
	capacity     int
	shutdown     bool
	producerDone bool

	current *server.Entry
	err     error
}

// newStreamingIterator creates an iterator with the default capacity.
func newStreamingIterator() *streamingIterator {
	return &streamingIterator{capacity: defaultIteratorCapacity}
}

// failedIterator returns an iterator that immediately reports err from
// Error(), before any call to Next(), matching the missing-base-DN contract.
func failedIterator(err error) *streamingIterator {
	return &streamingIterator{capacity: defaultIteratorCapacity, producerDone: true, err: err}
}

// offer enqueues item, spinning at offerPollInterval while the queue is full.
// It returns false if the iterator was closed before room became available.
func (it *streamingIterator) offer(item streamItem) bool {
	for {
		it.mu.Lock()
		if it.shutdown {
			it.mu.Unlock()
			return false
		}
		if len(it.items) < it.capacity {
			it.items = append(it.items, item)
			it.mu.Unlock()
			return true
		}
		it.mu.Unlock()
		time.Sleep(offerPollInterval)
	}
}

// finish marks the producer as having offered every entry it will ever
// offer (successfully or not).
func (it *streamingIterator) finish() {
	it.mu.Lock()
	it.producerDone = true
	it.mu.Unlock()
}

// startProducer runs the given entries through offer() on a separate
// goroutine, standing in for a true streaming source while memoryStore's
// search still fetches eagerly; the bounded queue and back-pressure are what
// the server-facing Iterator contract actually depends on.
func (it *streamingIterator) startProducer(entries []*server.Entry) {
	go func() {
		for _, e := range entries {
			if !it.offer(streamItem{entry: e}) {
				return
			}
		}
		it.finish()
	}()
}

// nextEntry blocks, polling at consumePollInterval, until an entry is
// available, the queue is closed and drained, or the producer has finished
// and the queue is empty.
func (it *streamingIterator) nextEntry() (*server.Entry, bool) {
	for {
		it.mu.Lock()
		if len(it.items) > 0 {
			item := it.items[0]
			it.items = it.items[1:]
			it.mu.Unlock()
			if item.end {
				return nil, false
			}
			if item.err != nil {
				it.mu.Lock()
				it.err = item.err
				it.mu.Unlock()
				return nil, false
			}
			return item.entry, true
		}
		done := it.shutdown || it.producerDone
		it.mu.Unlock()
		if done {
			return nil, false
		}
		time.Sleep(consumePollInterval)
	}
}

// Next advances to the next entry, blocking until one is available or the
// search is exhausted/abandoned.
func (it *streamingIterator) Next() bool {
	entry, ok := it.nextEntry()
	it.mu.Lock()
	if ok {
		it.current = entry
	} else {
		it.current = nil
	}
	it.mu.Unlock()
	return ok
}

// Entry returns the entry produced by the most recent successful Next.
func (it *streamingIterator) Entry() *server.Entry {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.current
}

// Error returns the first error encountered, if any.
func (it *streamingIterator) Error() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

// Close abandons the search: any blocked or future offer() fails
// immediately, and a pending consumer unblocks via the sentinel.
func (it *streamingIterator) Close() {
	it.mu.Lock()
	it.shutdown = true
	it.items = append(it.items, streamItem{end: true})
	it.mu.Unlock()
}
