// Package session coordinates one user's focus session of one type across
// devices. A Coordinator holds the local view (Idle, Building or Active),
// persists the session document on start and after every queue change, and
// follows remote writes through a subscription. Conflicting writes from
// other devices are last-write-wins on the whole document.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/jobs"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/repository"
	"github.com/vytor/studyflow/internal/scheduler"
	"github.com/vytor/studyflow/internal/worker"
)

type State int

const (
	Idle State = iota
	Building
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LogWriter records the side effects of a completion.
type LogWriter interface {
	AppendHistory(ctx context.Context, user string, entry models.HistoryEntry) error
	LogAchievement(ctx context.Context, user string, at time.Time, entry models.AchievementEntry) error
}

// Options wires a Coordinator. Jobs is optional: without it failed log
// writes are only logged.
type Options struct {
	User     string
	Type     string
	Sessions repository.SessionRepository
	Items    repository.ItemRepository
	Logs     LogWriter
	Engine   scheduler.Engine
	Jobs     jobs.JobQueue
	Retry    worker.RetryPolicy
	Now      func() time.Time

	// AttachTimeout bounds how long Attach waits for the current remote value.
	AttachTimeout time.Duration
}

const defaultAttachTimeout = 10 * time.Second

// pendingWrite is what Sync still has to make durable.
type pendingWrite int

const (
	pendingNone pendingWrite = iota
	pendingSave
	pendingDelete
)

// deletion marks an own delete in the list of unacknowledged writes.
const deletion = ""

type Coordinator struct {
	opts Options
	log  *logger.Logger

	mu          sync.Mutex
	state       State
	queue       []models.Item
	startTime   time.Time
	isFree      bool
	revision    string
	inflight    []string
	pending     pendingWrite
	unreadable  bool
	attached    bool
	unsubscribe func()
	version     uint64

	listenersMu  sync.Mutex
	listeners    map[uint64]func(Snapshot)
	nextListener uint64

	// notifyMu orders deliveries; notified is guarded by it.
	notifyMu sync.Mutex
	notified uint64
}

// New creates an Idle, detached Coordinator.
func New(opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AttachTimeout <= 0 {
		opts.AttachTimeout = defaultAttachTimeout
	}
	return &Coordinator{
		opts: opts,
		log: logger.Default().WithPrefix("session").WithFields(map[string]any{
			"user_id": opts.User,
			"type":    opts.Type,
		}),
		listeners: make(map[uint64]func(Snapshot)),
	}
}

// Attach subscribes to the session document and returns once the current
// remote value has been applied, so a caller acts on fresh state. It gives up
// with a transient error after Options.AttachTimeout.
func (c *Coordinator) Attach(ctx context.Context) error {
	c.mu.Lock()
	if c.attached {
		c.mu.Unlock()
		return nil
	}
	c.attached = true
	c.mu.Unlock()

	first := make(chan struct{})
	var once sync.Once
	unsubscribe, err := c.opts.Sessions.Subscribe(ctx, c.opts.User, c.opts.Type, func(remote *models.FocusSession) {
		c.onRemote(remote)
		once.Do(func() { close(first) })
	})
	if err != nil {
		c.mu.Lock()
		c.attached = false
		c.mu.Unlock()
		c.log.Error("failed to subscribe: %v", err)
		return err
	}

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	timer := time.NewTimer(c.opts.AttachTimeout)
	defer timer.Stop()
	select {
	case <-first:
		return nil
	case <-ctx.Done():
		c.Detach()
		return ctx.Err()
	case <-timer.C:
		c.Detach()
		c.log.Error("no session delivery within %s", c.opts.AttachTimeout)
		return apperrors.NewTransientStoreError("attach", fmt.Errorf("no session delivery within %s", c.opts.AttachTimeout))
	}
}

// Detach stops following remote changes. Local state is kept.
func (c *Coordinator) Detach() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.attached = false
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// onRemote applies a delivered session document. Echoes of this
// coordinator's own writes are recognised by revision; anything else wins.
func (c *Coordinator) onRemote(remote *models.FocusSession) {
	c.mu.Lock()
	if !c.attached {
		c.mu.Unlock()
		return
	}

	rev := deletion
	if remote != nil {
		rev = remote.Revision
	}
	if remote == nil || rev != "" {
		if i := indexOf(c.inflight, rev); i >= 0 {
			newer := i < len(c.inflight)-1
			c.inflight = c.inflight[i+1:]
			c.mu.Unlock()
			if newer {
				c.log.Debug("skipping echo superseded by a newer local write")
			}
			return
		}
	}

	if remote != nil && remote.Type != c.opts.Type {
		c.mu.Unlock()
		c.log.Warn("ignoring session document of type %q", remote.Type)
		return
	}

	c.inflight = nil
	c.pending = pendingNone
	c.unreadable = remote != nil && remote.Unreadable
	if c.unreadable {
		c.log.Warn("session document is unreadable, treating it as absent")
		remote = nil
	}
	switch {
	case remote == nil && c.state == Active:
		c.log.Info("session closed remotely")
		c.reset()
	case remote == nil:
		c.mu.Unlock()
		return
	default:
		c.log.Debug("adopting remote session: queue=%d, is_free=%t", len(remote.Queue), remote.IsFree)
		c.state = Active
		c.queue = append([]models.Item(nil), remote.Queue...)
		c.startTime = remote.StartTime
		c.isFree = remote.IsFree
		c.revision = remote.Revision
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Coordinator) reset() {
	c.state = Idle
	c.queue = nil
	c.startTime = time.Time{}
	c.isFree = false
	c.revision = ""
}

// State returns the current local state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Queue returns a copy of the local queue.
func (c *Coordinator) Queue() []models.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Item(nil), c.queue...)
}

// Add puts item on the building queue. Adding a queued id again does nothing.
func (c *Coordinator) Add(item models.Item) error {
	c.mu.Lock()
	if c.state == Active {
		c.mu.Unlock()
		return apperrors.NewInvariantViolation("cannot add %s: session %s is active", item.ID, c.opts.Type)
	}
	if item.ID == "" {
		c.mu.Unlock()
		return apperrors.NewValidationError("id", "must not be empty")
	}
	c.state = Building
	if queueIndex(c.queue, item.ID) >= 0 {
		c.mu.Unlock()
		return nil
	}
	c.queue = append(c.queue, item)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Remove takes id off the building queue. Unknown ids are ignored.
func (c *Coordinator) Remove(id string) error {
	c.mu.Lock()
	if c.state == Active {
		c.mu.Unlock()
		return apperrors.NewInvariantViolation("cannot remove %s: session %s is active", id, c.opts.Type)
	}
	c.state = Building
	if i := queueIndex(c.queue, id); i >= 0 {
		c.queue = append(c.queue[:i:i], c.queue[i+1:]...)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Start persists the building queue as the active session. A free session
// always starts with an empty queue.
func (c *Coordinator) Start(ctx context.Context, isFree bool) (Snapshot, error) {
	log := logger.FromContext(ctx).WithPrefix("session")

	c.mu.Lock()
	if c.state == Active {
		c.mu.Unlock()
		return Snapshot{}, apperrors.NewInvariantViolation("session %s is already active", c.opts.Type)
	}
	if !isFree && len(c.queue) == 0 {
		c.mu.Unlock()
		return Snapshot{}, apperrors.NewInvariantViolation("cannot start session %s with an empty queue", c.opts.Type)
	}

	queue := []models.Item{}
	if !isFree {
		queue = append(queue, c.queue...)
	}
	doc := models.FocusSession{
		Type:      c.opts.Type,
		StartTime: c.opts.Now(),
		IsFree:    isFree,
		Queue:     queue,
		Revision:  uuid.NewString(),
	}
	log.Info("starting session: queue=%d, is_free=%t", len(queue), isFree)

	c.inflight = append(c.inflight, doc.Revision)
	if err := c.save(ctx, doc); err != nil {
		c.inflight = removeValue(c.inflight, doc.Revision)
		c.mu.Unlock()
		log.Error("failed to start session: %v", err)
		return Snapshot{}, err
	}

	c.state = Active
	c.queue = queue
	c.startTime = doc.StartTime
	c.isFree = isFree
	c.revision = doc.Revision
	c.pending = pendingNone
	c.unreadable = false
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return snap, nil
}

// Result reports the outcome of Complete. AlreadyCompleted is set when the
// item's effects were applied by an earlier attempt and only the queue
// removal was left to do.
type Result struct {
	Item             models.Item `json:"item"`
	Deleted          bool        `json:"deleted"`
	AlreadyCompleted bool        `json:"already_completed,omitempty"`
	Ended            bool        `json:"session_ended"`
	Session          Snapshot    `json:"session"`
}

// Complete records the study of a queued item: review items advance a stage
// and get a history entry, tasks are deleted. Either way an achievement is
// logged and the item leaves the queue. A non-free session whose queue
// empties ends.
//
// Failing to save or delete the item leaves everything unchanged. Log
// failures are logged and handed to the job queue. If the session document
// cannot be re-persisted the local removal is kept and a transient error is
// returned; Sync retries the write. Completing an item whose effects already
// landed in this session only removes it from the queue, so a retried
// request never counts twice.
func (c *Coordinator) Complete(ctx context.Context, itemID string) (Result, error) {
	c.mu.Lock()
	res, changed, err := c.completeLocked(ctx, itemID)
	c.mu.Unlock()

	if changed {
		c.notify(res.Session)
	}
	return res, err
}

func (c *Coordinator) completeLocked(ctx context.Context, itemID string) (res Result, changed bool, err error) {
	log := logger.FromContext(ctx).WithPrefix("session")

	if c.state != Active {
		return Result{}, false, apperrors.NewInvariantViolation("no active %s session", c.opts.Type)
	}
	idx := queueIndex(c.queue, itemID)
	if idx < 0 {
		return Result{}, false, apperrors.NewInvariantViolation("item %s is not in the %s session queue", itemID, c.opts.Type)
	}
	queued := c.queue[idx]
	now := c.opts.Now()
	log.Info("completing item: item_id=%s", itemID)

	achievement := models.AchievementEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		ItemID:    queued.ID,
		Subject:   queued.Subject,
		Ordinal:   queued.Ordinal,
		Title:     queued.Title,
	}

	switch {
	case queued.Recurring():
		stored, _, err := c.opts.Items.Get(ctx, c.opts.User, queued.ID)
		if err != nil {
			log.Error("failed to load item: %v", err)
			return Result{}, false, err
		}
		if completedSince(stored, queued, c.startTime) {
			log.Info("item already completed in this session: item_id=%s, stage=%d", itemID, stored.Stage)
			res.Item = stored
			res.AlreadyCompleted = true
			break
		}
		stored = withMetadata(stored, queued)
		updated := c.opts.Engine.AdvanceStage(stored, now)
		if err := c.opts.Items.Save(ctx, c.opts.User, updated); err != nil {
			log.Error("failed to save advanced item: %v", err)
			return Result{}, false, err
		}
		res.Item = updated

		c.appendHistory(ctx, models.HistoryEntry{
			ID:             uuid.NewString(),
			ItemID:         updated.ID,
			Subject:        updated.Subject,
			Ordinal:        updated.Ordinal,
			TitleSnapshot:  updated.Title,
			CompletedAt:    now,
			StageCompleted: stored.Stage,
		})
		achievement.Type = models.AchievementStudy
		achievement.Stage = updated.Stage
		c.logAchievement(ctx, now, achievement)
	default:
		res.Item = queued
		res.Deleted = true
		if _, _, err := c.opts.Items.Get(ctx, c.opts.User, queued.ID); err != nil {
			if !apperrors.IsNotFound(err) {
				log.Error("failed to load task: %v", err)
				return Result{}, false, err
			}
			log.Info("task already deleted: item_id=%s", itemID)
			res.AlreadyCompleted = true
			break
		}
		if err := c.opts.Items.Delete(ctx, c.opts.User, queued.ID); err != nil {
			log.Error("failed to delete task: %v", err)
			return Result{}, false, err
		}
		achievement.Type = models.AchievementTask
		c.logAchievement(ctx, now, achievement)
	}

	c.queue = append(c.queue[:idx:idx], c.queue[idx+1:]...)
	if len(c.queue) == 0 && !c.isFree {
		log.Info("queue empty, ending session")
		err = c.endLocked(ctx)
		res.Ended = true
	} else {
		err = c.persistLocked(ctx)
	}
	res.Session = c.snapshotLocked()

	if err != nil {
		log.Error("completion applied but session not persisted: %v", err)
	}
	return res, true, err
}

// Close ends the session. Closing an Idle coordinator does nothing unless the
// remote document is unreadable, in which case it is removed. A Building
// queue is discarded without touching the store.
func (c *Coordinator) Close(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("session")

	c.mu.Lock()
	switch c.state {
	case Idle:
		if !c.unreadable {
			c.mu.Unlock()
			log.Debug("close on idle session is a no-op")
			return nil
		}
		log.Warn("removing unreadable session document")
		err := c.deleteLocked(ctx)
		if err == nil {
			c.unreadable = false
		}
		c.mu.Unlock()
		return err
	case Building:
		c.reset()
	case Active:
		log.Info("closing session")
		if err := c.endLocked(ctx); err != nil {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			c.notify(snap)
			log.Error("failed to delete session: %v", err)
			return err
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Sync retries the session write left pending by a failed Complete or Close.
func (c *Coordinator) Sync(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.pending {
	case pendingSave:
		if c.state != Active {
			c.pending = pendingNone
			return nil
		}
		return c.persistLocked(ctx)
	case pendingDelete:
		return c.deleteLocked(ctx)
	default:
		return nil
	}
}

// Snapshot is a point-in-time view of the coordinator.
type Snapshot struct {
	State     State         `json:"state"`
	Type      string        `json:"type"`
	StartTime *time.Time    `json:"start_time,omitempty"`
	IsFree    bool          `json:"is_free"`
	Queue     []models.Item `json:"queue"`
	Revision  string        `json:"revision,omitempty"`
	Pending   bool          `json:"pending"`
	Version   uint64        `json:"version"`
}

// Snapshot returns the current view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	c.version++
	snap := Snapshot{
		State:    c.state,
		Type:     c.opts.Type,
		IsFree:   c.isFree,
		Queue:    append([]models.Item{}, c.queue...),
		Revision: c.revision,
		Pending:  c.pending != pendingNone,
		Version:  c.version,
	}
	if c.state == Active {
		start := c.startTime
		snap.StartTime = &start
	}
	return snap
}

// OnChange registers fn for every later state change. Listeners never see
// an older snapshot after a newer one. The returned func removes fn.
func (c *Coordinator) OnChange(fn func(Snapshot)) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// notify delivers snap to the listeners registered at that moment. The
// listener set is copied first so a listener may unsubscribe itself.
// Listeners must not call the coordinator's mutating methods.
func (c *Coordinator) notify(snap Snapshot) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if snap.Version <= c.notified {
		return
	}
	c.notified = snap.Version

	c.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// persistLocked writes the local Active session under a new revision.
func (c *Coordinator) persistLocked(ctx context.Context) error {
	doc := models.FocusSession{
		Type:      c.opts.Type,
		StartTime: c.startTime,
		IsFree:    c.isFree,
		Queue:     append([]models.Item{}, c.queue...),
		Revision:  uuid.NewString(),
	}
	c.inflight = append(c.inflight, doc.Revision)
	c.revision = doc.Revision
	if err := c.save(ctx, doc); err != nil {
		c.pending = pendingSave
		return err
	}
	c.pending = pendingNone
	return nil
}

// endLocked moves to Idle and deletes the remote document.
func (c *Coordinator) endLocked(ctx context.Context) error {
	c.reset()
	return c.deleteLocked(ctx)
}

func (c *Coordinator) deleteLocked(ctx context.Context) error {
	c.inflight = append(c.inflight, deletion)
	err := worker.Retry(ctx, c.opts.Retry, func(ctx context.Context) error {
		return c.opts.Sessions.Delete(ctx, c.opts.User, c.opts.Type)
	})
	if err != nil {
		c.pending = pendingDelete
		return err
	}
	c.pending = pendingNone
	return nil
}

func (c *Coordinator) save(ctx context.Context, doc models.FocusSession) error {
	return worker.Retry(ctx, c.opts.Retry, func(ctx context.Context) error {
		return c.opts.Sessions.Save(ctx, c.opts.User, doc)
	})
}

func (c *Coordinator) appendHistory(ctx context.Context, entry models.HistoryEntry) {
	err := c.opts.Logs.AppendHistory(ctx, c.opts.User, entry)
	if err == nil {
		return
	}
	log := logger.FromContext(ctx).WithPrefix("session")
	log.Warn("failed to append history for %s: %v", entry.ItemID, err)
	if c.opts.Jobs == nil {
		return
	}
	if err := c.opts.Jobs.EnqueueHistory(c.opts.User, entry); err != nil {
		log.Warn("failed to enqueue history retry: %v", err)
	}
}

func (c *Coordinator) logAchievement(ctx context.Context, at time.Time, entry models.AchievementEntry) {
	err := c.opts.Logs.LogAchievement(ctx, c.opts.User, at, entry)
	if err == nil {
		return
	}
	log := logger.FromContext(ctx).WithPrefix("session")
	log.Warn("failed to log achievement for %s: %v", entry.ItemID, err)
	if c.opts.Jobs == nil {
		return
	}
	if err := c.opts.Jobs.EnqueueAchievement(c.opts.User, at, entry); err != nil {
		log.Warn("failed to enqueue achievement retry: %v", err)
	}
}

// completedSince reports whether stored already carries a completion made
// after the session started, compared with the stage queued at start.
func completedSince(stored, queued models.Item, start time.Time) bool {
	if stored.Stage <= queued.Stage || stored.LastStudiedAt == nil {
		return false
	}
	return stored.LastStudiedAt.After(start)
}

// withMetadata fills display fields the stored record lacks from the queued
// snapshot.
func withMetadata(stored, queued models.Item) models.Item {
	if stored.Title == "" {
		stored.Title = queued.Title
	}
	if stored.Description == "" {
		stored.Description = queued.Description
	}
	if stored.Difficulty == "" {
		stored.Difficulty = queued.Difficulty
	}
	return stored
}

func queueIndex(queue []models.Item, id string) int {
	for i, it := range queue {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}

func removeValue(values []string, v string) []string {
	if i := indexOf(values, v); i >= 0 {
		return append(values[:i:i], values[i+1:]...)
	}
	return values
}
