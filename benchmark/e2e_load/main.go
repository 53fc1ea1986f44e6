// Hashpad E2E Load Benchmark
//
// This benchmark answers the questions we care about in production:
//   - What is the p50/p95/p99 roundtrip latency under concurrent load?
//   - How much allocation + GC work does that load generate?
//
// It runs the real hashpad WebSocket server and drives N concurrent clients
// that send real protocol frames and wait for the patch that answers them.
//
// Two modes are measured:
//
//	hashchange  send a HashChange to a freshly encoded link and wait for the
//	            SetText patch (decode path: base64url → inflate → UTF-8 check)
//	input       send an Input and wait for the ReplaceURL patch
//	            (encode path: deflate → base64url, after the debounce)
//
// Run:
//
//	cd benchmark/e2e_load
//	go run . -clients=200 -duration=30s -rps=5 -text-bytes=2048
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"net"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hashpad-dev/hashpad/pkg/codec"
	"github.com/hashpad-dev/hashpad/pkg/protocol"
	"github.com/hashpad-dev/hashpad/pkg/server"
)

func main() {
	var (
		clients   = flag.Int("clients", 100, "number of concurrent websocket clients")
		duration  = flag.Duration("duration", 15*time.Second, "how long to run the load test")
		rps       = flag.Float64("rps", 2, "target events/sec per client (best-effort, response-gated)")
		textBytes = flag.Int("text-bytes", 512, "bytes of text per event (affects codec cost and frame size)")
		mode      = flag.String("mode", "hashchange", "hashchange or input")
		debounce  = flag.Duration("debounce", time.Millisecond, "server debounce for input mode")
	)
	flag.Parse()

	if *clients <= 0 {
		log.Fatal("-clients must be > 0")
	}
	if *duration <= 0 {
		log.Fatal("-duration must be > 0")
	}
	if *rps <= 0 {
		log.Fatal("-rps must be > 0")
	}
	if *textBytes < 0 {
		log.Fatal("-text-bytes must be >= 0")
	}
	if *mode != "hashchange" && *mode != "input" {
		log.Fatal("-mode must be hashchange or input")
	}

	// Reduce incidental variability a bit.
	debug.SetGCPercent(100)

	srv := server.New(&server.Config{
		Address: "127.0.0.1:0",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Session: &server.SessionConfig{
			Debounce:          *debounce,
			HeartbeatInterval: time.Hour,
			ReadTimeout:       2 * time.Hour,
		},
	})

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	serveCtx, stopServe := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = srv.Serve(serveCtx, ln)
	}()
	defer func() {
		stopServe()
		<-served
	}()

	base := "http://" + ln.Addr().String() + "/"
	wsURL := "ws://" + ln.Addr().String() + server.SocketPath

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	samplesCh := make(chan time.Duration, 1024)
	var samples []time.Duration
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samples = append(samples, rtt)
		}
	}()

	var (
		totalEvents atomic.Uint64
		totalErrors atomic.Uint64
	)

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	c := &client{
		wsURL:     wsURL,
		base:      base,
		input:     *mode == "input",
		rps:       *rps,
		textBytes: *textBytes,
		samples:   samplesCh,
		events:    &totalEvents,
		errors:    &totalErrors,
	}

	var wg sync.WaitGroup
	wg.Add(*clients)
	for i := 0; i < *clients; i++ {
		clientID := i
		go func() {
			defer wg.Done()
			if err := c.run(ctx, clientID); err != nil {
				totalErrors.Add(1)
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	latencies := samples
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	total := totalEvents.Load()
	errs := totalErrors.Load()
	runSeconds := math.Max(0.001, (*duration).Seconds())

	fmt.Println("=== Hashpad E2E Load Benchmark ===")
	fmt.Printf("Mode: %s\n", *mode)
	fmt.Printf("Clients: %d\n", *clients)
	fmt.Printf("Duration: %s\n", (*duration).String())
	fmt.Printf("Target per-client rate: %.2f events/s\n", *rps)
	fmt.Printf("Text bytes: %d\n", *textBytes)
	if *mode == "input" {
		fmt.Printf("Debounce: %s\n", *debounce)
	}
	fmt.Printf("Total events: %d\n", total)
	fmt.Printf("Errors: %d\n", errs)
	fmt.Printf("Throughput: %.1f events/s\n", float64(total)/runSeconds)
	fmt.Println()

	if len(latencies) == 0 {
		fmt.Println("No latency samples recorded.")
	} else {
		fmt.Println("RTT (client send → server → client receive+decode):")
		fmt.Printf("  min: %s\n", latencies[0])
		fmt.Printf("  p50: %s\n", percentile(latencies, 0.50))
		fmt.Printf("  p95: %s\n", percentile(latencies, 0.95))
		fmt.Printf("  p99: %s\n", percentile(latencies, 0.99))
		fmt.Printf("  max: %s\n", latencies[len(latencies)-1])
	}
	fmt.Println()

	fmt.Println("Go runtime / GC (process-wide):")
	fmt.Printf("  alloc:     %.2f MB\n", float64(after.TotalAlloc-before.TotalAlloc)/(1024*1024))
	fmt.Printf("  heap_live: %.2f MB\n", float64(after.HeapAlloc)/(1024*1024))
	fmt.Printf("  num_gc:    %d\n", after.NumGC-before.NumGC)
	fmt.Printf("  gc_pause:  %s (total)\n", time.Duration(after.PauseTotalNs-before.PauseTotalNs))
	fmt.Printf("  gc_pause:  %s (avg)\n", avgPause(after, before))
	fmt.Printf("  gc_cpu:    %.2f%%\n", 100*cpuFraction(afterMetrics, beforeMetrics))
	fmt.Printf("  allocs:    %.2f M objects\n", float64(afterMetrics.heapAllocsObjects-beforeMetrics.heapAllocsObjects)/1_000_000)
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

// client holds the settings shared by every simulated page.
type client struct {
	wsURL     string
	base      string
	input     bool
	rps       float64
	textBytes int
	samples   chan<- time.Duration
	events    *atomic.Uint64
	errors    *atomic.Uint64
}

func (c *client) run(ctx context.Context, clientID int) error {
	conn, _, err := websocket.DefaultDialer.Dial(c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Abort blocked reads when the run ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	var seq uint64
	send := func(ev *protocol.Event) error {
		frame := protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(ev))
		return conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
	}

	seq++
	if err := send(protocol.NewReadyEvent(seq, c.base, "")); err != nil {
		return fmt.Errorf("ready write: %w", err)
	}
	if _, err := waitForPatch(conn, func(protocol.Patch) bool { return true }); err != nil {
		return fmt.Errorf("ready: %w", err)
	}

	period := time.Duration(float64(time.Second) / c.rps)
	href := c.base

	for {
		if ctx.Err() != nil {
			return nil
		}

		seq++
		text := makeText(clientID, seq, c.textBytes)
		token, err := codec.Encode(text)
		if err != nil {
			return err
		}
		link := c.base + "#" + token

		start := time.Now()

		var (
			ev    *protocol.Event
			match func(protocol.Patch) bool
		)
		if c.input {
			ev = protocol.NewInputEvent(seq, href, text)
			match = func(p protocol.Patch) bool { return p.Op == protocol.PatchReplaceURL && p.Value == link }
		} else {
			ev = protocol.NewHashChangeEvent(seq, link)
			match = func(p protocol.Patch) bool { return p.Op == protocol.PatchSetText && p.Value == text }
		}
		if err := send(ev); err != nil {
			c.errors.Add(1)
			return fmt.Errorf("event write: %w", err)
		}

		found, err := waitForPatch(conn, match)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.errors.Add(1)
			return fmt.Errorf("wait for patch: %w", err)
		}
		if !found {
			c.errors.Add(1)
			return fmt.Errorf("patch not observed")
		}

		rtt := time.Since(start)
		href = link
		c.events.Add(1)
		c.samples <- rtt

		// Best-effort pacing. We intentionally gate on response to measure real queueing/tail behavior.
		if sleep := period - time.Since(start); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

// waitForPatch reads frames until a patch satisfies match.
func waitForPatch(conn *websocket.Conn, match func(protocol.Patch) bool) (bool, error) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}
		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			return false, err
		}

		switch frame.Type {
		case protocol.FramePatches:
			pf, err := protocol.DecodePatches(frame.Payload)
			if err != nil {
				return false, err
			}
			for _, p := range pf.Patches {
				if match(p) {
					return true, nil
				}
			}

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				return false, err
			}
			return false, fmt.Errorf("server error frame: %s", em.Message)

		default:
			// Ignore control frames.
		}
	}
}

// makeText builds text of n bytes that starts with client and sequence
// numbers. Half of it is random hex so it does not compress to nothing.
func makeText(clientID int, seq uint64, n int) string {
	prefix := fmt.Sprintf("c%d:%d:", clientID, seq)
	if n <= len(prefix) {
		return prefix[:n]
	}

	var b strings.Builder
	b.WriteString(prefix)
	raw := make([]byte, (n-len(prefix))/4+1)
	_, _ = rand.Read(raw)
	b.WriteString(hex.EncodeToString(raw))
	for b.Len() < n {
		b.WriteString(" the quick brown fox")
	}
	return b.String()[:n]
}
