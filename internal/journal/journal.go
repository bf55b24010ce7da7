// Package journal remembers the in-memory state of records touched by a transaction scope,
// so that rolling the scope back also restores the records held by callers.
package journal

import "github.com/askiada/go-multi/pkg/multi/model"

type entry struct {
	rec   *model.Record
	state *model.Record
}

// Journal is not safe for concurrent use. A scope owns its journal.
type Journal struct {
	entries []entry
	seen    map[*model.Record]struct{}
}

func New() *Journal {
	return &Journal{seen: make(map[*model.Record]struct{})}
}

// Remember keeps the current state of rec. Only the first call per record counts.
func (j *Journal) Remember(rec *model.Record) {
	j.add(rec, rec.Clone())
}

// RememberNew registers a record created in the scope: restoring it leaves it unpersisted.
func (j *Journal) RememberNew(rec *model.Record) {
	j.add(rec, &model.Record{Model: rec.Model, Attributes: rec.Attributes.Clone()})
}

func (j *Journal) add(rec *model.Record, state *model.Record) {
	if _, ok := j.seen[rec]; ok {
		return
	}

	j.seen[rec] = struct{}{}
	j.entries = append(j.entries, entry{rec: rec, state: state})
}

// Restore puts every remembered record back in its remembered state, latest first.
func (j *Journal) Restore() {
	for i := len(j.entries) - 1; i >= 0; i-- {
		j.entries[i].rec.Restore(j.entries[i].state)
	}

	j.Reset()
}

// MergeInto hands the remembered states to parent, keeping the oldest state per record.
func (j *Journal) MergeInto(parent *Journal) {
	for _, e := range j.entries {
		parent.add(e.rec, e.state)
	}

	j.Reset()
}

func (j *Journal) Reset() {
	j.entries = nil
	j.seen = make(map[*model.Record]struct{})
}

func (j *Journal) Len() int {
	return len(j.entries)
}
