package vfs

// ChangeType classifies a structural change.
type ChangeType uint8

// Change types delivered to subscribers.
const (
	FolderAdded ChangeType = iota + 1
	LeafAdded
	ObjectMoved
	ObjectRemoved
	LockChanged
	FolderMerged
	PartialMerge
)

var changeTypeNames = map[ChangeType]string{
	FolderAdded:   "folder_added",
	LeafAdded:     "leaf_added",
	ObjectMoved:   "object_moved",
	ObjectRemoved: "object_removed",
	LockChanged:   "lock_changed",
	FolderMerged:  "folder_merged",
	PartialMerge:  "partial_merge",
}

func (c ChangeType) String() string {
	if name, ok := changeTypeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Change describes one mutation. For merges Node is the target folder.
type Change[T any] struct {
	Type    ChangeType
	Node    Node[T]
	OldPath string
	NewPath string
}

type observer[T any] struct {
	id int
	fn func(Change[T])
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it again. Callbacks run synchronously on the mutating goroutine
// and must not mutate the tree.
func (fs *FileSystem[T]) Subscribe(fn func(Change[T])) (unsubscribe func()) {
	fs.nextObserver++
	id := fs.nextObserver
	fs.observers = append(fs.observers, observer[T]{id: id, fn: fn})

	return func() {
		for i, o := range fs.observers {
			if o.id == id {
				fs.observers = append(fs.observers[:i:i], fs.observers[i+1:]...)
				return
			}
		}
	}
}

func (fs *FileSystem[T]) emit(change Change[T]) {
	for _, o := range fs.observers {
		o.fn(change)
	}
}
