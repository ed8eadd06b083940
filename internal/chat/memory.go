package chat

import (
	"context"
	"sync"
	"time"

	"taskmind/internal/logging"
	"taskmind/internal/workspace"
)

// Default compaction parameters.
const (
	DefaultCompactionThreshold = 60
	DefaultCompactionInterval  = 10
	DefaultKeepRecent          = 50
)

// Summarizer produces a new compacted summary from old messages and the
// prior summary, so summaries compound rather than replace.
type Summarizer interface {
	Summarize(ctx context.Context, messages []workspace.Message, priorSummary string) (string, error)
}

// MemoryStore is the slice of the workspace store the memory manager
// mutates. *workspace.Store satisfies it.
type MemoryStore interface {
	CountMessages(conversationID string) (int, error)
	MessagesExceptRecent(conversationID string, keep int) ([]workspace.Message, error)
	ConversationSummary(conversationID string) (string, error)
	NthRecentCreatedAt(conversationID string, n int) (time.Time, error)
	SaveSummary(conversationID, summary string, at time.Time) error
	DeleteMessagesBefore(conversationID string, cutoff time.Time) (int64, error)
}

// MemoryManager keeps long conversations bounded by compacting old
// messages into a running summary and pruning them. All of its work is
// best-effort background maintenance: failures are logged and swallowed,
// never surfaced to the chat request that triggered them.
type MemoryManager struct {
	store      MemoryStore
	summarizer Summarizer

	threshold  int
	interval   int
	keepRecent int

	// Per-conversation locks: a compaction run must not race another run
	// (or the chat flow) on pruning the same conversation.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// MemoryOption customizes a MemoryManager.
type MemoryOption func(*MemoryManager)

// WithCompactionPolicy overrides threshold, interval, and keep-recent count.
func WithCompactionPolicy(threshold, interval, keepRecent int) MemoryOption {
	return func(m *MemoryManager) {
		if threshold > 0 {
			m.threshold = threshold
		}
		if interval > 0 {
			m.interval = interval
		}
		if keepRecent > 0 {
			m.keepRecent = keepRecent
		}
	}
}

// NewMemoryManager creates a manager over the given store and summarizer.
func NewMemoryManager(store MemoryStore, summarizer Summarizer, opts ...MemoryOption) *MemoryManager {
	m := &MemoryManager{
		store:      store,
		summarizer: summarizer,
		threshold:  DefaultCompactionThreshold,
		interval:   DefaultCompactionInterval,
		keepRecent: DefaultKeepRecent,
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShouldCompact reports whether a conversation with the given message
// count is due for compaction. The interval re-arms the trigger every few
// messages so it does not fire on every single turn.
func (m *MemoryManager) ShouldCompact(messageCount int) bool {
	return messageCount >= m.threshold && messageCount%m.interval == 0
}

// Maintain runs one compaction pass for a conversation if it is due.
// Never returns an error: every failure in the flow is logged and the
// conversation is left exactly as it was.
func (m *MemoryManager) Maintain(ctx context.Context, conversationID string) {
	lock := m.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	count, err := m.store.CountMessages(conversationID)
	if err != nil {
		logging.MemoryError("Compaction skipped for %s: count failed: %v", conversationID, err)
		return
	}
	if !m.ShouldCompact(count) {
		logging.MemoryDebug("Conversation %s not due for compaction (count=%d)", conversationID, count)
		return
	}

	m.compact(ctx, conversationID, count)
}

// Compact runs a compaction pass regardless of whether one is due.
// Like Maintain, failures are logged rather than returned.
func (m *MemoryManager) Compact(ctx context.Context, conversationID string) {
	lock := m.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	count, err := m.store.CountMessages(conversationID)
	if err != nil {
		logging.MemoryError("Compaction skipped for %s: count failed: %v", conversationID, err)
		return
	}
	m.compact(ctx, conversationID, count)
}

// compact holds the caller's per-conversation lock.
func (m *MemoryManager) compact(ctx context.Context, conversationID string, count int) {
	timer := logging.StartTimer(logging.CategoryMemory, "Compact "+conversationID)
	defer timer.Stop()

	old, err := m.store.MessagesExceptRecent(conversationID, m.keepRecent)
	if err != nil {
		logging.MemoryError("Compaction aborted for %s: fetch failed: %v", conversationID, err)
		return
	}
	if len(old) == 0 {
		logging.MemoryDebug("Conversation %s already compact (count=%d)", conversationID, count)
		return
	}

	prior, err := m.store.ConversationSummary(conversationID)
	if err != nil {
		logging.MemoryError("Compaction aborted for %s: summary load failed: %v", conversationID, err)
		return
	}

	summary, err := m.summarizer.Summarize(ctx, old, prior)
	if err != nil {
		logging.MemoryError("Compaction aborted for %s: summarization failed: %v", conversationID, err)
		return
	}

	// Ordering invariant: the summary must be durably saved before any
	// message is deleted. Pruning first would be silent data loss.
	if err := m.store.SaveSummary(conversationID, summary, time.Now()); err != nil {
		logging.MemoryError("Compaction aborted for %s: summary save failed: %v", conversationID, err)
		return
	}

	cutoff, err := m.store.NthRecentCreatedAt(conversationID, m.keepRecent)
	if err != nil {
		logging.MemoryError("Prune skipped for %s: boundary lookup failed: %v", conversationID, err)
		return
	}

	pruned, err := m.store.DeleteMessagesBefore(conversationID, cutoff)
	if err != nil {
		logging.MemoryError("Prune failed for %s: %v", conversationID, err)
		return
	}

	logging.Memory("Compacted conversation %s: summarized %d messages, pruned %d, summary_len=%d",
		conversationID, len(old), pruned, len(summary))
}

func (m *MemoryManager) conversationLock(conversationID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[conversationID] = lock
	}
	return lock
}
