package capture

import "sync"

// Merge funnels Chunks from several producers into one consumer, in the
// order the sends happened. The queue is unbounded: Send never blocks on the
// consumer. Chunks closes once every producer is closed and everything sent
// has been delivered.
//
// Register all producers with Producer before calling Chunks.
type Merge struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []Chunk
	open  int

	start sync.Once
	out   chan Chunk
}

func NewMerge() *Merge {
	m := &Merge{out: make(chan Chunk)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Producer registers a new sending end.
func (m *Merge) Producer() *Producer {
	m.mu.Lock()
	m.open++
	m.mu.Unlock()
	return &Producer{merge: m}
}

// Chunks returns the receiving end. It is safe to call more than once; all
// calls return the same channel.
func (m *Merge) Chunks() <-chan Chunk {
	m.start.Do(func() { go m.pump() })
	return m.out
}

func (m *Merge) pump() {
	defer close(m.out)
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && m.open > 0 {
			m.cond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		batch := m.queue
		m.queue = nil
		m.mu.Unlock()

		for _, chunk := range batch {
			m.out <- chunk
		}
	}
}

func (m *Merge) enqueue(chunk Chunk) {
	m.mu.Lock()
	m.queue = append(m.queue, chunk)
	m.mu.Unlock()
	m.cond.Signal()
}

func (m *Merge) release() {
	m.mu.Lock()
	m.open--
	m.mu.Unlock()
	m.cond.Signal()
}

// Producer is one sending end of a Merge. It must not be used from more than
// one goroutine at a time.
type Producer struct {
	merge  *Merge
	closed bool
}

// Send queues chunk. Sends after Close are dropped.
func (p *Producer) Send(chunk Chunk) {
	if p.closed {
		return
	}
	p.merge.enqueue(chunk)
}

// Close marks this producer as finished. Calling it twice is harmless.
func (p *Producer) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.merge.release()
}
