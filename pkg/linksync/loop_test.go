package linksync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hashpad-dev/hashpad/pkg/fragment"
	"github.com/hashpad-dev/hashpad/pkg/linksync"
	"github.com/hashpad-dev/hashpad/pkg/linktest"
)

func startLoop(t *testing.T) (*linksync.Loop, context.CancelFunc) {
	t.Helper()
	loop := linksync.NewLoop(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	})
	return loop, cancel
}

func TestLoopRunsInOrder(t *testing.T) {
	loop, _ := startLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		loop.Dispatch(func() { got = append(got, i) })
	}
	loop.Do(func() {})

	if len(got) != 100 {
		t.Fatalf("ran %d callbacks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, callbacks ran out of order", i, v)
		}
	}
}

func TestLoopRecoversPanic(t *testing.T) {
	loop, _ := startLoop(t)

	loop.Dispatch(func() { panic("boom") })
	ran := false
	if !loop.Do(func() { ran = true }) {
		t.Fatal("Do() = false, loop stopped after panic")
	}
	if !ran {
		t.Error("callback after panic did not run")
	}
}

func TestLoopStopped(t *testing.T) {
	loop, cancel := startLoop(t)
	cancel()
	<-loop.Done()

	// Neither call may block once the loop is gone.
	loop.Dispatch(func() { t.Error("dispatched after stop") })
	if loop.Do(func() { t.Error("ran after stop") }) {
		t.Error("Do() = true after stop")
	}
}

func TestLoopTryDispatch(t *testing.T) {
	loop := linksync.NewLoop(1, nil)

	if !loop.TryDispatch(func() {}) {
		t.Fatal("TryDispatch() = false with an empty queue")
	}
	if loop.TryDispatch(func() {}) {
		t.Error("TryDispatch() = true with a full queue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = loop.Run(ctx)
	if loop.TryDispatch(func() {}) {
		t.Error("TryDispatch() = true after stop")
	}
}

func TestLoopConcurrentDispatch(t *testing.T) {
	loop, _ := startLoop(t)

	count := 0
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				loop.Dispatch(func() { count++ })
			}
		}()
	}
	wg.Wait()
	loop.Do(func() {})

	if count != 400 {
		t.Errorf("count = %d, want 400", count)
	}
}

// TestControllerOnLoop drives a controller with the real clock and a Loop,
// the way a host without its own event loop would.
func TestControllerOnLoop(t *testing.T) {
	loop, _ := startLoop(t)

	editor := linktest.NewEditor("")
	loc := fragment.NewMemoryLocation(base)
	c := linksync.New(editor, loc, loop.Dispatch, linksync.WithDebounce(20*time.Millisecond))
	defer c.Close()

	loop.Do(c.Ready)
	for _, text := range []string{"h", "he", "hel", "hell", "hello"} {
		text := text
		loop.Do(func() {
			editor.Type(text)
			c.Input()
		})
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var pending bool
		loop.Do(func() { pending = c.Pending() })
		if !pending {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced write never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var href string
	loop.Do(func() { href = loc.Href() })
	if want := base + "#" + mustEncode(t, "hello"); href != want {
		t.Errorf("Href() = %q, want %q", href, want)
	}
}
