package server

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

func drain(b *backlog) []uint64 {
	var seqs []uint64
	for {
		ev, ok := b.pop()
		if !ok {
			return seqs
		}
		seqs = append(seqs, ev.Seq)
	}
}

func TestBacklog_Collapse(t *testing.T) {
	const href = "https://pad.example/"
	ready := func(seq uint64) *protocol.Event { return protocol.NewReadyEvent(seq, href, "") }
	input := func(seq uint64) *protocol.Event { return protocol.NewInputEvent(seq, href, "x") }
	hash := func(seq uint64) *protocol.Event { return protocol.NewHashChangeEvent(seq, href) }
	resume := func(seq uint64) *protocol.Event { return protocol.NewResumeEvent(seq, href, "x") }

	tests := []struct {
		name   string
		events []*protocol.Event
		want   []uint64
	}{
		{"inputs_keep_latest", []*protocol.Event{input(1), input(2), input(3)}, []uint64{3}},
		{"hashchange_supersedes_inputs", []*protocol.Event{input(1), input(2), hash(3)}, []uint64{3}},
		{"hashchange_supersedes_hashchange", []*protocol.Event{hash(1), hash(2)}, []uint64{2}},
		{"hashchange_supersedes_resume", []*protocol.Event{resume(1), input(2), hash(3)}, []uint64{3}},
		{"input_after_hashchange_kept", []*protocol.Event{hash(1), input(2), input(3)}, []uint64{1, 3}},
		{"input_after_resume_kept", []*protocol.Event{resume(1), input(2)}, []uint64{1, 2}},
		{"ready_never_collapsed", []*protocol.Event{ready(1), input(2), hash(3)}, []uint64{1, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b backlog
			for _, ev := range tc.events {
				if ok, _ := b.push(ev, 16); !ok {
					t.Fatalf("push(%v %d) rejected", ev.Type, ev.Seq)
				}
			}
			if diff := cmp.Diff(tc.want, drain(&b)); diff != "" {
				t.Errorf("drained seqs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBacklog_StartsOneDrain(t *testing.T) {
	var b backlog
	if !b.idle() {
		t.Fatal("new backlog is not idle")
	}

	_, start := b.push(protocol.NewInputEvent(1, "", "a"), 0)
	if !start {
		t.Error("first push did not start a drain")
	}
	_, start = b.push(protocol.NewHashChangeEvent(2, "https://pad.example/"), 0)
	if start {
		t.Error("second push started another drain")
	}
	if b.idle() {
		t.Error("backlog idle while events wait")
	}

	drain(&b)
	if !b.idle() {
		t.Error("backlog not idle after draining")
	}
	if _, start = b.push(protocol.NewInputEvent(3, "", "b"), 0); !start {
		t.Error("push after a finished drain did not start a new one")
	}
}

func TestBacklog_LimitSparesHashChange(t *testing.T) {
	var b backlog
	for seq := uint64(1); seq <= 2; seq++ {
		if ok, _ := b.push(protocol.NewReadyEvent(seq, "https://pad.example/", ""), 2); !ok {
			t.Fatalf("push(Ready %d) rejected under the limit", seq)
		}
	}
	if ok, _ := b.push(protocol.NewReadyEvent(3, "https://pad.example/", ""), 2); ok {
		t.Error("push over the limit accepted a Ready")
	}
	if ok, _ := b.push(protocol.NewHashChangeEvent(4, "https://pad.example/#x"), 2); !ok {
		t.Error("push over the limit rejected a HashChange")
	}
	if diff := cmp.Diff([]uint64{1, 2, 4}, drain(&b)); diff != "" {
		t.Errorf("drained seqs mismatch (-want +got):\n%s", diff)
	}
}
