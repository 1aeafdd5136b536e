package capture

// Fragment is a contiguous run of retained bytes from one stream.
type Fragment struct {
	Stream Stream
	Data   []byte
}

// Captured is the finalized content of an OutputBuffer.
type Captured struct {
	Limit     int
	HeadLimit int
	TailLimit int
	TotalLen  int
	Truncated bool
	Head      []Fragment
	Tail      []Fragment
}

// EmptyCaptured returns a Captured with the limits of a buffer of the given
// size and no content.
func EmptyCaptured(limit int) Captured {
	headLimit, tailLimit := splitLimit(limit)
	return Captured{
		Limit:     limit,
		HeadLimit: headLimit,
		TailLimit: tailLimit,
	}
}

// Omitted returns how many bytes were dropped between head and tail.
func (c Captured) Omitted() int {
	if c.TotalLen <= c.Limit {
		return 0
	}
	return c.TotalLen - c.Limit
}

// Bytes concatenates head and tail, ignoring stream tags.
func (c Captured) Bytes() []byte {
	var out []byte
	for _, f := range c.Head {
		out = append(out, f.Data...)
	}
	for _, f := range c.Tail {
		out = append(out, f.Data...)
	}
	return out
}

// OutputBuffer keeps the first limit/2 bytes pushed into it (the head) and
// the most recent limit-limit/2 bytes after that (the tail). Everything in
// between is counted but dropped.
//
// An OutputBuffer is not safe for concurrent use.
type OutputBuffer struct {
	limit     int
	headLimit int
	tailLimit int

	totalLen int
	headLen  int
	tailLen  int

	head []Fragment
	// tail is used as a deque: appended at the back, trimmed at the front.
	tail []Fragment

	finished bool
}

func NewOutputBuffer(limit int) *OutputBuffer {
	if limit < 0 {
		limit = 0
	}
	headLimit, tailLimit := splitLimit(limit)
	return &OutputBuffer{
		limit:     limit,
		headLimit: headLimit,
		tailLimit: tailLimit,
	}
}

func splitLimit(limit int) (head, tail int) {
	head = limit / 2
	return head, limit - head
}

// TotalLen returns the number of bytes pushed so far, including dropped ones.
func (b *OutputBuffer) TotalLen() int { return b.totalLen }

// HeadLen returns the number of bytes held in the head.
func (b *OutputBuffer) HeadLen() int { return b.headLen }

// TailLen returns the number of bytes held in the tail.
func (b *OutputBuffer) TailLen() int { return b.tailLen }

// Push appends data read from stream. A chunk that crosses the end of the
// head is split: the part that fits stays in the head, the rest goes to the
// tail. Pushes after Finish are ignored.
func (b *OutputBuffer) Push(stream Stream, data []byte) {
	if len(data) == 0 || b.finished {
		return
	}

	b.totalLen += len(data)

	if b.headLen < b.headLimit {
		keep := min(b.headLimit-b.headLen, len(data))
		b.pushHead(stream, data[:keep])
		b.headLen += keep
		data = data[keep:]
	}

	if len(data) > 0 {
		b.pushTail(stream, data)
	}
}

func (b *OutputBuffer) pushHead(stream Stream, data []byte) {
	if len(data) == 0 {
		return
	}
	if n := len(b.head); n > 0 && b.head[n-1].Stream == stream {
		b.head[n-1].Data = append(b.head[n-1].Data, data...)
		return
	}
	b.head = append(b.head, Fragment{Stream: stream, Data: append([]byte(nil), data...)})
}

func (b *OutputBuffer) pushTail(stream Stream, data []byte) {
	if len(data) == 0 || b.tailLimit == 0 {
		return
	}
	if n := len(b.tail); n > 0 && b.tail[n-1].Stream == stream {
		b.tail[n-1].Data = append(b.tail[n-1].Data, data...)
	} else {
		b.tail = append(b.tail, Fragment{Stream: stream, Data: append([]byte(nil), data...)})
	}
	b.tailLen += len(data)
	b.trimTail()
}

// trimTail drops the oldest tail bytes until the tail fits its limit. Only
// the front fragment is ever shortened.
func (b *OutputBuffer) trimTail() {
	for b.tailLen > b.tailLimit {
		overflow := b.tailLen - b.tailLimit
		front := &b.tail[0]
		if len(front.Data) <= overflow {
			b.tailLen -= len(front.Data)
			front.Data = nil
			b.tail = b.tail[1:]
			continue
		}
		front.Data = front.Data[overflow:]
		b.tailLen -= overflow
	}
}

// Finish freezes the buffer and returns its content.
func (b *OutputBuffer) Finish() Captured {
	b.finished = true
	return Captured{
		Limit:     b.limit,
		HeadLimit: b.headLimit,
		TailLimit: b.tailLimit,
		TotalLen:  b.totalLen,
		Truncated: b.totalLen > b.limit,
		Head:      b.head,
		Tail:      b.tail,
	}
}
