package repository

import "github.com/aidanlsb/pubs/internal/paper"

// EventKind names an event variant.
type EventKind string

const (
	KindAdded    EventKind = "added"
	KindModified EventKind = "modified"
	KindRemoved  EventKind = "removed"
	KindRenamed  EventKind = "renamed"
)

// Event is one of Added, Modified, Removed or Renamed.
type Event interface {
	Kind() EventKind
	Citekey() string
}

// Added is sent after a new paper is stored.
type Added struct {
	Paper *paper.Paper
}

// Modified is sent after an existing paper is overwritten.
type Modified struct {
	Paper *paper.Paper
}

// Removed is sent after a paper's files are gone, so a subscriber such as
// the git plugin sees the deletion on disk. Paper is the last stored state,
// read before deletion, or nil when it could not be read.
type Removed struct {
	Key   string
	Paper *paper.Paper
}

// Renamed is sent once after a paper moved from OldKey to Paper.Citekey.
type Renamed struct {
	Paper  *paper.Paper
	OldKey string
}

func (Added) Kind() EventKind      { return KindAdded }
func (e Added) Citekey() string    { return e.Paper.Citekey }
func (Modified) Kind() EventKind   { return KindModified }
func (e Modified) Citekey() string { return e.Paper.Citekey }
func (Removed) Kind() EventKind    { return KindRemoved }
func (e Removed) Citekey() string  { return e.Key }
func (Renamed) Kind() EventKind    { return KindRenamed }
func (e Renamed) Citekey() string  { return e.Paper.Citekey }

// Subscriber receives repository events synchronously, in registration order.
type Subscriber interface {
	Handle(Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Event) error

func (f SubscriberFunc) Handle(e Event) error { return f(e) }
