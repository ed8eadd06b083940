package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskmind/internal/workspace"
)

func oldMessages(n int) []workspace.Message {
	msgs := make([]workspace.Message, n)
	for i := range msgs {
		msgs[i] = workspace.Message{Role: workspace.RoleUser, Content: "msg"}
	}
	return msgs
}

func TestShouldCompact(t *testing.T) {
	m := NewMemoryManager(&fakeMemoryStore{}, &fakeSummarizer{})

	cases := []struct {
		count int
		want  bool
	}{
		{0, false},
		{59, false},
		{60, true},
		{61, false},
		{65, false},
		{70, true},
		{123, false},
		{130, true},
	}
	for _, tc := range cases {
		if got := m.ShouldCompact(tc.count); got != tc.want {
			t.Errorf("ShouldCompact(%d) = %v, want %v", tc.count, got, tc.want)
		}
	}
}

func TestMaintainCompactsWhenDue(t *testing.T) {
	cutoff := time.Now().Add(-time.Hour)
	store := &fakeMemoryStore{
		count:   70,
		old:     oldMessages(20),
		summary: "earlier context",
		nthAt:   cutoff,
	}
	summarizer := &fakeSummarizer{summary: "new combined summary"}
	m := NewMemoryManager(store, summarizer)

	m.Maintain(context.Background(), "conv-1")

	if summarizer.invocation != 1 {
		t.Fatalf("summarizer invoked %d times", summarizer.invocation)
	}
	if summarizer.gotPrior != "earlier context" {
		t.Errorf("prior summary = %q", summarizer.gotPrior)
	}
	if summarizer.gotOldLen != 20 {
		t.Errorf("summarized %d messages, want 20", summarizer.gotOldLen)
	}
	if !store.saveCalled || store.savedSummary != "new combined summary" {
		t.Errorf("summary not saved: %+v", store)
	}
	if !store.deleteCalled || !store.deletedAt.Equal(cutoff) {
		t.Errorf("prune cutoff = %v, want %v", store.deletedAt, cutoff)
	}
}

func TestMaintainSkipsWhenNotDue(t *testing.T) {
	store := &fakeMemoryStore{count: 65, old: oldMessages(15)}
	summarizer := &fakeSummarizer{summary: "s"}
	m := NewMemoryManager(store, summarizer)

	m.Maintain(context.Background(), "conv-1")

	if summarizer.invocation != 0 {
		t.Errorf("summarizer invoked off-interval")
	}
	if store.saveCalled || store.deleteCalled {
		t.Errorf("store mutated off-interval: %+v", store)
	}
}

func TestMaintainSummarizerFailurePreservesHistory(t *testing.T) {
	store := &fakeMemoryStore{count: 70, old: oldMessages(20)}
	m := NewMemoryManager(store, &fakeSummarizer{err: errors.New("provider down")})

	m.Maintain(context.Background(), "conv-1")

	if store.saveCalled {
		t.Error("summary saved despite summarizer failure")
	}
	if store.deleteCalled {
		t.Error("messages pruned despite summarizer failure")
	}
}

func TestMaintainSaveFailureSkipsPrune(t *testing.T) {
	store := &fakeMemoryStore{
		count:   70,
		old:     oldMessages(20),
		saveErr: errors.New("disk full"),
	}
	m := NewMemoryManager(store, &fakeSummarizer{summary: "s"})

	m.Maintain(context.Background(), "conv-1")

	if store.deleteCalled {
		t.Error("messages pruned even though the summary was never saved")
	}
}

func TestMaintainNothingToCompact(t *testing.T) {
	// Due by count, but every message is within the keep-recent window.
	store := &fakeMemoryStore{count: 60, old: nil}
	summarizer := &fakeSummarizer{summary: "s"}
	m := NewMemoryManager(store, summarizer)

	m.Maintain(context.Background(), "conv-1")

	if summarizer.invocation != 0 || store.saveCalled || store.deleteCalled {
		t.Errorf("no-op expected: summarizer=%d store=%+v", summarizer.invocation, store)
	}
}

func TestMaintainCountFailureIsSwallowed(t *testing.T) {
	store := &fakeMemoryStore{countErr: errors.New("db closed")}
	m := NewMemoryManager(store, &fakeSummarizer{})

	// Must not panic or mutate anything.
	m.Maintain(context.Background(), "conv-1")

	if store.saveCalled || store.deleteCalled {
		t.Errorf("store mutated after count failure")
	}
}

func TestCompactRunsEvenWhenNotDue(t *testing.T) {
	store := &fakeMemoryStore{count: 12, old: oldMessages(2), nthAt: time.Now()}
	summarizer := &fakeSummarizer{summary: "forced"}
	m := NewMemoryManager(store, summarizer, WithCompactionPolicy(60, 10, 10))

	m.Compact(context.Background(), "conv-1")

	if summarizer.invocation != 1 || !store.saveCalled {
		t.Errorf("forced compaction did not run: summarizer=%d store=%+v", summarizer.invocation, store)
	}
}

func TestCompactionPolicyOverride(t *testing.T) {
	m := NewMemoryManager(&fakeMemoryStore{}, &fakeSummarizer{}, WithCompactionPolicy(20, 5, 10))

	if !m.ShouldCompact(20) || !m.ShouldCompact(25) {
		t.Error("custom threshold/interval not applied")
	}
	if m.ShouldCompact(21) {
		t.Error("interval ignored")
	}
}

func TestMaintainConcurrentRunsSerialize(t *testing.T) {
	// Two concurrent passes on the same conversation must not interleave;
	// the fake store's mutex would catch torn state, and the invocation
	// count shows both ran.
	store := &fakeMemoryStore{count: 60, old: oldMessages(10), nthAt: time.Now()}
	summarizer := &fakeSummarizer{summary: "s"}
	m := NewMemoryManager(store, summarizer)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Maintain(context.Background(), "conv-1")
		}()
	}
	wg.Wait()

	if summarizer.invocation != 2 {
		t.Errorf("expected both passes to run, got %d", summarizer.invocation)
	}
}
