package capture

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMerge_PreservesOrderPerProducer(t *testing.T) {
	const perProducer = 1000

	m := NewMerge()
	producers := []*Producer{m.Producer(), m.Producer()}
	chunks := m.Chunks()

	var wg sync.WaitGroup
	for i, p := range producers {
		wg.Add(1)
		go func(stream Stream, p *Producer) {
			defer wg.Done()
			defer p.Close()
			for n := 0; n < perProducer; n++ {
				p.Send(Chunk{Stream: stream, Data: []byte(fmt.Sprint(n))})
			}
		}(Stream(i), p)
	}

	next := map[Stream]int{}
	for c := range chunks {
		require.Equal(t, fmt.Sprint(next[c.Stream]), string(c.Data), "stream %s out of order", c.Stream)
		next[c.Stream]++
	}
	wg.Wait()

	require.Equal(t, perProducer, next[Stdout])
	require.Equal(t, perProducer, next[Stderr])
}

func TestMerge_SendNeverWaitsForConsumer(t *testing.T) {
	m := NewMerge()
	p := m.Producer()

	// Nobody is receiving yet; an unbounded queue must accept all of these.
	for n := 0; n < 10000; n++ {
		p.Send(Chunk{Stream: Stdout, Data: []byte{byte(n)}})
	}
	p.Close()

	count := 0
	for range m.Chunks() {
		count++
	}
	require.Equal(t, 10000, count)
}

func TestMerge_ClosesOnlyAfterAllProducers(t *testing.T) {
	m := NewMerge()
	first := m.Producer()
	second := m.Producer()
	chunks := m.Chunks()

	first.Send(Chunk{Stream: Stdout, Data: []byte("a")})
	first.Close()
	first.Close()

	c, ok := <-chunks
	require.True(t, ok)
	require.Equal(t, "a", string(c.Data))

	second.Send(Chunk{Stream: Stderr, Data: []byte("b")})
	second.Close()
	second.Send(Chunk{Stream: Stderr, Data: []byte("dropped")})

	c, ok = <-chunks
	require.True(t, ok)
	require.Equal(t, "b", string(c.Data))

	_, ok = <-chunks
	require.False(t, ok)
}

func TestMerge_NoProducers(t *testing.T) {
	m := NewMerge()
	_, ok := <-m.Chunks()
	require.False(t, ok)
}
