// Package selector implements the per-view controller over a vfs tree.
//
// A Selector owns the view state (selection, multi-selection, expansion,
// filter, sort mode) and mediates every structural mutation. Mutations
// requested while the tree is being walked are queued and replayed in FIFO
// order once the walk completes. A Selector is not safe for concurrent use.
package selector

import (
	"errors"

	"github.com/CageChen/marktree/internal/launch"
	"github.com/CageChen/marktree/internal/vfs"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultQuickMoveSlots is the number of quick-move slots a selector starts with.
const DefaultQuickMoveSlots = 3

// Action outcomes reported to an Observer.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Observer receives queue statistics. The metrics package implements it.
type Observer interface {
	ActionCompleted(action, outcome string)
	QueueDrained(actions int)
}

// Opener opens an external resource such as a URL or a file.
type Opener interface {
	Open(target string) error
}

// Option configures a Selector.
type Option func(*config)

type config struct {
	sortMode vfs.SortMode
	logger   *zap.Logger
	notifier Notifier
	opener   Opener
	observer Observer
	slots    int
	defaults bool
}

// WithSortMode sets the initial sort mode.
func WithSortMode(mode vfs.SortMode) Option {
	return func(c *config) { c.sortMode = mode }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNotifier sets the collaborator that receives user-facing messages.
func WithNotifier(n Notifier) Option {
	return func(c *config) { c.notifier = n }
}

// WithOpener sets the collaborator used by OpenExternal.
func WithOpener(o Opener) Option {
	return func(c *config) { c.opener = o }
}

// WithObserver registers queue statistics collection.
func WithObserver(o Observer) Option {
	return func(c *config) { c.observer = o }
}

// WithQuickMoveSlots sets the number of quick-move slots.
func WithQuickMoveSlots(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.slots = n
		}
	}
}

// WithoutDefaults skips registration of the built-in actions and buttons.
func WithoutDefaults() Option {
	return func(c *config) { c.defaults = false }
}

type pending struct {
	name string
	pass int
	row  int
	run  func() error
}

// Selector is the controller of one view over a tree.
type Selector[T any] struct {
	id       uuid.UUID
	fs       *vfs.FileSystem[T]
	logger   *zap.Logger
	notifier Notifier
	opener   Opener
	observer Observer
	sortMode vfs.SortMode

	primary    vfs.Identifier
	hasPrimary bool
	multi      map[vfs.Identifier]struct{}
	expanded   map[vfs.Identifier]struct{}

	filter      string
	filterDirty bool
	visible     map[vfs.Identifier]struct{} // nil when no filter is active

	pass       int
	currentRow int
	walking    bool
	queue      []pending

	folderActions prioritized[FolderAction[T]]
	leafActions   prioritized[LeafAction[T]]
	mainActions   prioritized[Command]
	buttons       prioritized[Command]

	quickMove         []string
	onQuickMoveChange func(slots []string)

	unsubscribe func()
}

// New creates a selector over fs with the default actions registered.
func New[T any](fs *vfs.FileSystem[T], opts ...Option) *Selector[T] {
	c := config{
		logger:   zap.NewNop(),
		slots:    DefaultQuickMoveSlots,
		defaults: true,
	}
	for _, opt := range opts {
		opt(&c)
	}

	id := uuid.New()
	s := &Selector[T]{
		id:         id,
		fs:         fs,
		logger:     c.logger.With(zap.String("selector", id.String())),
		notifier:   c.notifier,
		opener:     c.opener,
		observer:   c.observer,
		sortMode:   c.sortMode,
		multi:      make(map[vfs.Identifier]struct{}),
		expanded:   make(map[vfs.Identifier]struct{}),
		currentRow: -1,
		quickMove:  make([]string, c.slots),
	}
	if s.notifier == nil {
		s.notifier = logNotifier{logger: s.logger}
	}
	if s.opener == nil {
		s.opener = launch.System{}
	}

	s.unsubscribe = fs.Subscribe(func(vfs.Change[T]) {
		if s.filter != "" {
			s.filterDirty = true
		}
	})

	if c.defaults {
		s.registerDefaults()
	}
	return s
}

// ID identifies the selector in logs.
func (s *Selector[T]) ID() uuid.UUID { return s.id }

// FileSystem returns the tree the selector controls.
func (s *Selector[T]) FileSystem() *vfs.FileSystem[T] { return s.fs }

// Close detaches the selector from the tree's change notifications.
func (s *Selector[T]) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// SortMode returns the active sort mode.
func (s *Selector[T]) SortMode() vfs.SortMode { return s.sortMode }

// SetSortMode changes the ordering used by Children and Walk.
func (s *Selector[T]) SetSortMode(mode vfs.SortMode) {
	if !mode.Valid() {
		return
	}
	s.sortMode = mode
}

// Pass returns the index of the most recent render pass.
func (s *Selector[T]) Pass() int { return s.pass }

// CurrentRow returns the index of the last row visited by a walk, -1 before the first walk.
func (s *Selector[T]) CurrentRow() int { return s.currentRow }

// Walking reports whether mutations are currently being deferred.
func (s *Selector[T]) Walking() bool { return s.walking }

// Pending returns the number of queued actions.
func (s *Selector[T]) Pending() int { return len(s.queue) }

// Row is one visible node of a render pass.
type Row[T any] struct {
	Index         int
	Depth         int
	Node          vfs.Node[T]
	Expanded      bool
	Selected      bool
	MultiSelected bool
}

// Walk performs a render pass: it visits every visible row in sort order,
// recursing into expanded folders, and drains the queued actions afterwards.
// visit must not mutate the tree directly; it may call any selector method,
// structural ones are deferred until the walk ends.
func (s *Selector[T]) Walk(visit func(Row[T])) {
	s.pass++
	s.refreshFilter()
	s.currentRow = -1

	s.during(func() {
		index := 0
		var walk func(folder *vfs.Folder[T])
		walk = func(folder *vfs.Folder[T]) {
			for _, child := range s.Children(folder) {
				row := Row[T]{
					Index:         index,
					Depth:         child.Depth(),
					Node:          child,
					Selected:      s.hasPrimary && s.primary == child.Identifier(),
					MultiSelected: s.IsMultiSelected(child),
				}
				sub, isFolder := child.(*vfs.Folder[T])
				if isFolder {
					row.Expanded = s.IsExpanded(sub) || s.visible != nil
				}
				s.currentRow = index
				index++
				visit(row)
				if isFolder && row.Expanded {
					walk(sub)
				}
			}
		}
		walk(s.fs.Root())
	})
}

// Interact runs fn as if it were fired from inside a render pass, then drains the queue.
func (s *Selector[T]) Interact(fn func()) {
	s.during(fn)
}

func (s *Selector[T]) during(fn func()) {
	if s.walking {
		fn()
		return
	}
	s.walking = true
	func() {
		defer func() { s.walking = false }()
		fn()
	}()
	s.drain()
}

// Defer queues action while a walk is in progress and runs it immediately otherwise.
// Errors are logged at debug level and otherwise dropped.
func (s *Selector[T]) Defer(name string, action func() error) {
	p := pending{name: name, pass: s.pass, row: s.currentRow, run: action}
	if s.walking {
		s.queue = append(s.queue, p)
		return
	}
	s.execute(p)
	s.reconcile()
}

func (s *Selector[T]) drain() {
	count := 0
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = pending{}
		s.queue = s.queue[1:]
		s.execute(next)
		count++
	}
	s.queue = nil
	s.reconcile()
	if count > 0 && s.observer != nil {
		s.observer.QueueDrained(count)
	}
}

func (s *Selector[T]) execute(p pending) {
	err := p.run()
	outcome := OutcomeApplied
	switch {
	case errors.Is(err, errSkipped):
		outcome = OutcomeSkipped
		s.logger.Debug("deferred action skipped, target detached",
			zap.String("action", p.name),
			zap.Int("pass", p.pass),
			zap.Int("row", p.row),
		)
	case err != nil:
		outcome = OutcomeFailed
		s.logger.Debug("deferred action abandoned",
			zap.String("action", p.name),
			zap.Int("pass", p.pass),
			zap.Int("row", p.row),
			zap.Error(err),
		)
	}
	if s.observer != nil {
		s.observer.ActionCompleted(p.name, outcome)
	}
}

// reconcile drops references to nodes that are no longer in the tree.
func (s *Selector[T]) reconcile() {
	if s.hasPrimary {
		if _, ok := s.fs.ByID(s.primary); !ok {
			s.hasPrimary = false
			s.primary = 0
		}
	}
	for id := range s.multi {
		if _, ok := s.fs.ByID(id); !ok {
			delete(s.multi, id)
		}
	}
	for id := range s.expanded {
		if _, ok := s.fs.ByID(id); !ok {
			delete(s.expanded, id)
		}
	}
}

// Children returns folder's children in sort order, restricted to the filter's matches.
func (s *Selector[T]) Children(folder *vfs.Folder[T]) []vfs.Node[T] {
	children := folder.ChildrenBy(s.sortMode)
	if s.visible == nil {
		return children
	}
	visible := children[:0]
	for _, child := range children {
		if _, ok := s.visible[child.Identifier()]; ok {
			visible = append(visible, child)
		}
	}
	return visible
}
