package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobsInSubmissionOrder(t *testing.T) {
	q := New(4)
	defer q.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		q.Enqueue(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestEnqueueAfterClosePanics(t *testing.T) {
	q := New(1)
	q.Close()

	require.Panics(t, func() {
		q.Enqueue(func() {})
	})
}

func TestPoolGivesEachKeyItsOwnQueue(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	a := p.For("stream-a")
	b := p.For("stream-a")
	c := p.For("stream-b")

	require.Same(t, a, b)
	require.NotSame(t, a, c)
}

func TestCloseDrainsBacklogBeforeReturning(t *testing.T) {
	q := New(8)

	ran := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		q.Enqueue(func() {
			time.Sleep(time.Millisecond)
			ran <- struct{}{}
		})
	}

	q.Close()

	require.Len(t, ran, 8)
}
