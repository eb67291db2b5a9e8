package library

// Op is the kind of change applied to an entity.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one entity write inside a commit. Before and After hold
// entity values (Photo, Person, Album or Face); Before is nil for creates and
// After is nil for deletes.
type Change struct {
	Op     Op
	Kind   Kind
	ID     string
	Before any
	After  any
}

// Commit groups the writes of one command, including its cascades.
type Commit struct {
	Seq     uint64
	Changes []Change
}

// Observer receives every commit in order. OnCommit runs inside the commit's
// critical section: it must not block and must not call back into the Library.
type Observer interface {
	OnCommit(c Commit)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(c Commit)

func (f ObserverFunc) OnCommit(c Commit) { f(c) }

// Restorer is implemented by observers that keep derived state and need to
// reload it when the library content is replaced by Restore.
type Restorer interface {
	OnRestore(s Snapshot)
}
