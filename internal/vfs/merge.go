package vfs

import "go.uber.org/zap"

// MergeResult summarises how many children a merge managed to move.
type MergeResult uint8

const (
	// MergeNone means no child could be moved.
	MergeNone MergeResult = iota
	// MergePartial means some children were skipped; the source folder survives.
	MergePartial
	// MergeSuccess means every child moved (possibly none) and the source folder was deleted.
	MergeSuccess
)

func (r MergeResult) String() string {
	switch r {
	case MergeSuccess:
		return "success"
	case MergePartial:
		return "partial"
	default:
		return "none"
	}
}

// Merge moves every child of src into dst. Children whose name is already
// taken in dst are skipped. src is deleted once it is empty.
// Merging into src itself or one of its descendants fails with ErrInvalidOperation
// and leaves both folders untouched.
func (fs *FileSystem[T]) Merge(src, dst *Folder[T]) (MergeResult, error) {
	fs.mustOwn(src)
	fs.mustOwn(dst)
	if err := fs.checkMovable(src, "merge"); err != nil {
		return MergeNone, err
	}
	if !fs.Attached(dst) {
		return MergeNone, &NotFoundError{Path: dst.FullName()}
	}
	if src.Contains(dst) {
		return MergeNone, invalidOp("merge", src.FullName(), "cannot merge a folder into itself or its descendants")
	}

	srcPath := src.FullName()
	moved, skipped := 0, 0
	for _, child := range src.Children() {
		if err := fs.relocate(child, dst, child.Name()); err != nil {
			fs.logger.Debug("merge skipped child",
				zap.String("path", child.FullName()),
				zap.String("target", dst.FullName()),
				zap.Error(err),
			)
			skipped++
			continue
		}
		moved++
	}

	if src.Len() == 0 {
		src.Parent().remove(src)
		fs.unregister(src)
		fs.emit(Change[T]{Type: ObjectRemoved, Node: src, OldPath: srcPath})
	}

	result := MergeNone
	switch {
	case skipped == 0:
		result = MergeSuccess
	case moved > 0:
		result = MergePartial
	}

	changeType := FolderMerged
	if result != MergeSuccess {
		changeType = PartialMerge
	}
	fs.logger.Debug("folders merged",
		zap.String("source", srcPath),
		zap.String("target", dst.FullName()),
		zap.Stringer("result", result),
		zap.Int("moved", moved),
		zap.Int("skipped", skipped),
	)
	fs.emit(Change[T]{Type: changeType, Node: dst, OldPath: srcPath, NewPath: dst.FullName()})
	return result, nil
}

// MergeInto merges src into the folder at path, creating missing folders on
// the way. A destination that is src itself or lies below it fails with
// ErrInvalidOperation before anything is created.
func (fs *FileSystem[T]) MergeInto(src *Folder[T], path string) (MergeResult, error) {
	fs.mustOwn(src)
	if err := fs.checkMovable(src, "merge"); err != nil {
		return MergeNone, err
	}
	deepest, missing, err := fs.resolveChain(SplitPath(path))
	if err != nil {
		return MergeNone, err
	}
	if src.Contains(deepest) {
		return MergeNone, invalidOp("merge", src.FullName(), "cannot merge a folder into itself or its descendants")
	}
	return fs.Merge(src, fs.createChain(deepest, missing))
}

// Dissolve merges folder into its parent, removing one level of nesting.
func (fs *FileSystem[T]) Dissolve(folder *Folder[T]) (MergeResult, error) {
	fs.mustOwn(folder)
	if err := fs.checkMovable(folder, "dissolve"); err != nil {
		return MergeNone, err
	}
	return fs.Merge(folder, folder.Parent())
}
