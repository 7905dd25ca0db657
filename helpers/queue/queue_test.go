package queue

import (
	"context"
	"testing"
	"time"
)

func TestQueuePushPop(t *testing.T) {
	q := New(4)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	buf, ok := q.Pop(ctx)
	if !ok || string(buf) != "a" {
		t.Fatalf("pop = %q, %v; want a, true", buf, ok)
	}
}

// TestQueueOldestDrop matches the oldest-drop scenario: a bound=3 queue
// fed 5 labeled buffers yields exactly 3, 4, 5 on the consumer side.
func TestQueueOldestDrop(t *testing.T) {
	q := New(3)
	for i := 1; i <= 5; i++ {
		q.Push([]byte{byte(i)})
	}
	if got := q.Dropped(); got != 2 {
		t.Fatalf("dropped = %d, want 2", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	want := []byte{3, 4, 5}
	for _, w := range want {
		buf, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("pop failed, want %d", w)
		}
		if len(buf) != 1 || buf[0] != w {
			t.Fatalf("pop = %v, want [%d]", buf, w)
		}
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := New(2)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resCh := make(chan []byte, 1)
	go func() {
		buf, ok := q.Pop(ctx)
		if !ok {
			resCh <- nil
			return
		}
		resCh <- buf
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push([]byte("x"))

	select {
	case buf := <-resCh:
		if string(buf) != "x" {
			t.Fatalf("got %q, want x", buf)
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not unblock after push")
	}
}

func TestQueuePopCanceled(t *testing.T) {
	q := New(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := q.Pop(ctx)
	if ok {
		t.Fatal("pop on canceled context should return ok=false")
	}
}

func TestQueueCloseUnblocksPop(t *testing.T) {
	q := New(2)
	done := make(chan struct{})
	go func() {
		_, ok := q.Pop(context.Background())
		if ok {
			t.Error("pop after close with nothing queued should return ok=false")
		}
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	q.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close did not unblock pop")
	}
}
