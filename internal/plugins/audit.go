package plugins

import (
	"github.com/aidanlsb/pubs/internal/audit"
	"github.com/aidanlsb/pubs/internal/repository"
)

// Audit appends every event to the repository's audit log.
type Audit struct {
	log *audit.Logger
}

// NewAudit returns an audit plugin writing under env.Root.
func NewAudit(env Env) (Plugin, error) {
	return &Audit{log: audit.New(env.Fs, env.Root)}, nil
}

func (a *Audit) Name() string { return "audit" }

// Log exposes the underlying audit log for readers.
func (a *Audit) Log() *audit.Logger { return a.log }

func (a *Audit) Handle(e repository.Event) error {
	entry := audit.Entry{Citekey: e.Citekey()}
	switch ev := e.(type) {
	case repository.Added:
		entry.Operation = audit.OpAdd
		entry.Title = ev.Paper.Bib.Title()
	case repository.Modified:
		entry.Operation = audit.OpModify
		entry.Title = ev.Paper.Bib.Title()
	case repository.Removed:
		entry.Operation = audit.OpRemove
		if ev.Paper != nil {
			entry.Title = ev.Paper.Bib.Title()
		}
	case repository.Renamed:
		entry.Operation = audit.OpRename
		entry.From = ev.OldKey
		entry.Title = ev.Paper.Bib.Title()
	default:
		return nil
	}
	return a.log.Log(entry)
}
