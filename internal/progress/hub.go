package progress

import "sync"

// snapshotKey is the change-detection tuple for a task. Publishes that do not
// move any of these fields are suppressed.
type snapshotKey struct {
	status  string
	success int
	failed  int
	total   int
}

// Hub fans task snapshots out to per-task and all-task subscribers.
//
// Delivery never blocks the publisher: each subscriber channel holds one
// pending snapshot and a newer snapshot replaces an undelivered older one.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	taskSubs map[int64]map[int]chan TaskSnapshot
	allSubs  map[int]chan TaskSnapshot
	last     map[int64]snapshotKey
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		taskSubs: make(map[int64]map[int]chan TaskSnapshot),
		allSubs:  make(map[int]chan TaskSnapshot),
		last:     make(map[int64]snapshotKey),
	}
}

// Publish delivers a snapshot to all interested subscribers. Snapshots whose
// change-detection tuple matches the previous publish for the task are
// dropped.
func (h *Hub) Publish(snap TaskSnapshot) {
	key := snapshotKey{
		status:  snap.Status,
		success: snap.SuccessCount,
		failed:  snap.FailedCount,
		total:   snap.TotalAccounts,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.last[snap.TaskID]; ok && prev == key {
		return
	}
	h.last[snap.TaskID] = key

	for _, ch := range h.taskSubs[snap.TaskID] {
		offer(ch, snap)
	}
	for _, ch := range h.allSubs {
		offer(ch, snap)
	}
}

// Forget clears change-detection state for a task, typically after deletion,
// so a recreated task with the same identifier publishes cleanly.
func (h *Hub) Forget(taskID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.last, taskID)
}

// Subscribe registers for snapshots of a single task. The returned cancel
// function closes the channel and must be called exactly once.
func (h *Hub) Subscribe(taskID int64) (<-chan TaskSnapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan TaskSnapshot, 1)

	subs, ok := h.taskSubs[taskID]
	if !ok {
		subs = make(map[int]chan TaskSnapshot)
		h.taskSubs[taskID] = subs
	}
	subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.taskSubs[taskID]; ok {
			if existing, ok := subs[id]; ok {
				delete(subs, id)
				close(existing)
			}
			if len(subs) == 0 {
				delete(h.taskSubs, taskID)
			}
		}
	}
	return ch, cancel
}

// SubscribeAll registers for snapshots of every task.
func (h *Hub) SubscribeAll() (<-chan TaskSnapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan TaskSnapshot, 1)
	h.allSubs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if existing, ok := h.allSubs[id]; ok {
			delete(h.allSubs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// offer replaces any undelivered snapshot with the newer one.
func offer(ch chan TaskSnapshot, snap TaskSnapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
