package core

import (
	"container/heap"
	"sync"
	"time"
)

// delayedItem is a work item scheduled for future submission.
type delayedItem struct {
	runAt time.Time
	item  WorkItem
	wait  time.Duration // send budget applied when the item fires
	index int           // for heap interface
}

// delayHeap implements heap.Interface ordered by runAt.
type delayHeap []*delayedItem

func (h delayHeap) Len() int           { return len(h) }
func (h delayHeap) Less(i, j int) bool { return h[i].runAt.Before(h[j].runAt) }
func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayHeap) Push(x any) {
	n := len(*h)
	item := x.(*delayedItem)
	item.index = n
	*h = append(*h, item)
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *delayHeap) Peek() *delayedItem {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// delayedSubmitter holds future work items in a min-heap and feeds them to
// the dispatcher's submit function when their time comes. One goroutine and
// one timer serve all delays.
type delayedSubmitter struct {
	mu     sync.Mutex
	pq     delayHeap
	wakeup chan struct{}
	stopCh chan struct{}
	once   sync.Once

	submit func(WorkItem, time.Duration)
}

func newDelayedSubmitter(submit func(WorkItem, time.Duration)) *delayedSubmitter {
	s := &delayedSubmitter{
		pq:     make(delayHeap, 0),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		submit: submit,
	}
	heap.Init(&s.pq)
	go s.loop()
	return s
}

// schedule queues item to be submitted after delay with the given send
// budget.
func (s *delayedSubmitter) schedule(item WorkItem, delay, wait time.Duration) {
	s.mu.Lock()
	entry := &delayedItem{
		runAt: time.Now().Add(delay),
		item:  item,
		wait:  wait,
	}
	heap.Push(&s.pq, entry)
	front := entry.index == 0
	s.mu.Unlock()

	// Only a new front entry moves the next deadline
	if front {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}
}

func (s *delayedSubmitter) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		next, ok := s.nextDelay()
		if ok && next <= 0 {
			s.fireExpired()
			continue
		}
		if !ok {
			// Nothing queued, sleep until a schedule wakes us
			next = 1000 * time.Hour
		}
		timer.Reset(next)

		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.fireExpired()
		case <-s.wakeup:
			// Front entry changed, recalculate
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// nextDelay returns how long until the front entry is due.
func (s *delayedSubmitter) nextDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.pq.Peek()
	if entry == nil {
		return 0, false
	}
	return time.Until(entry.runAt), true
}

// fireExpired pops every due entry and submits it outside the lock.
func (s *delayedSubmitter) fireExpired() {
	s.mu.Lock()
	now := time.Now()
	var expired []*delayedItem
	for s.pq.Len() > 0 {
		entry := s.pq.Peek()
		if entry.runAt.After(now) {
			break
		}
		heap.Pop(&s.pq)
		expired = append(expired, entry)
	}
	s.mu.Unlock()

	for _, entry := range expired {
		s.submit(entry.item, entry.wait)
	}
}

func (s *delayedSubmitter) stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})

	// Drop queued entries so work items release their references
	s.mu.Lock()
	s.pq = make(delayHeap, 0)
	heap.Init(&s.pq)
	s.mu.Unlock()
}

func (s *delayedSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pq)
}
