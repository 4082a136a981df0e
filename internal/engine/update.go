package engine

import (
	"time"

	"github.com/tinyflux/tinyflux/internal/query"
	"github.com/tinyflux/tinyflux/internal/serialize"
	"github.com/tinyflux/tinyflux/internal/storage"
	"github.com/tinyflux/tinyflux/pkg/types"
)

// UpdateSpec describes how matching points are rewritten. Every field is
// optional (nil means "leave unchanged"); a static replacement is simply a
// callable that ignores its argument and returns a constant.
//
// Tags and Fields use merge semantics: the callable receives the point's
// current map and returns the new one, but keys the callable's result
// omits are retained from the original, not dropped. UnsetTags/UnsetFields
// remove keys explicitly, after the merge.
type UpdateSpec struct {
	Measurement func(string) string
	Time        func(time.Time) time.Time
	Tags        func(types.TagSet) types.TagSet
	UnsetTags   []string
	Fields      func(types.FieldSet) types.FieldSet
	UnsetFields []string
}

// Apply produces the updated point for p, validating the result the same
// way a fresh insert would.
func (s UpdateSpec) Apply(p *types.Point) (*types.Point, error) {
	np := p.Clone()

	if s.Measurement != nil {
		np.Measurement = s.Measurement(np.Measurement)
	}
	if s.Time != nil {
		np.Time = s.Time(np.Time).UTC()
		np.HasTime = true
	}
	if s.Tags != nil {
		merged := s.Tags(cloneTagSet(np.Tags))
		for k, v := range merged {
			np.Tags[k] = v
		}
	}
	for _, k := range s.UnsetTags {
		delete(np.Tags, k)
	}
	if s.Fields != nil {
		merged := s.Fields(cloneFieldSet(np.Fields))
		for k, v := range merged {
			np.Fields[k] = v
		}
	}
	for _, k := range s.UnsetFields {
		delete(np.Fields, k)
	}

	if err := types.ValidateTags(np.Tags); err != nil {
		return nil, err
	}
	if err := types.ValidateFields(np.Fields); err != nil {
		return nil, err
	}
	return np, nil
}

func cloneTagSet(m types.TagSet) types.TagSet {
	cp := make(types.TagSet, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneFieldSet(m types.FieldSet) types.FieldSet {
	cp := make(types.FieldSet, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Update rewrites every point matching q according to spec, via
// stream-scan-and-swap: the whole backend is read, each row is passed
// through unchanged or rewritten, the result is handed to the backend's
// atomic Rewrite, and the index is fully rebuilt. An update that matches
// nothing still forces a rebuild; detecting "nothing changed" isn't worth
// the complexity.
func (e *Engine) Update(q query.Query, spec UpdateSpec) error {
	rows, err := e.backend.ReadAll()
	if err != nil {
		return err
	}

	newRows := make([]storage.RawRow, len(rows))
	for i, row := range rows {
		p, err := serialize.Deserialize(row.Raw)
		if err != nil {
			return err
		}
		if !q.Eval(p) {
			newRows[i] = row.Raw
			continue
		}
		updated, err := spec.Apply(p)
		if err != nil {
			return err
		}
		newRows[i] = serialize.Serialize(updated, e.cfg.CompactKeys)
	}

	if err := e.backend.Rewrite(newRows); err != nil {
		return err
	}
	return e.idx.Rebuild(e.backend)
}

// UpdateAll applies spec to every point.
func (e *Engine) UpdateAll(spec UpdateSpec) error {
	return e.Update(query.Always, spec)
}

// Remove drops every point matching q via stream-scan-and-swap, then
// rebuilds the index.
func (e *Engine) Remove(q query.Query) error {
	rows, err := e.backend.ReadAll()
	if err != nil {
		return err
	}

	kept := make([]storage.RawRow, 0, len(rows))
	for _, row := range rows {
		p, err := serialize.Deserialize(row.Raw)
		if err != nil {
			return err
		}
		if !q.Eval(p) {
			kept = append(kept, row.Raw)
		}
	}

	if err := e.backend.Rewrite(kept); err != nil {
		return err
	}
	return e.idx.Rebuild(e.backend)
}

// RemoveAll truncates the backend and empties the index.
func (e *Engine) RemoveAll() error {
	if err := e.backend.Rewrite(nil); err != nil {
		return err
	}
	return e.idx.Rebuild(e.backend)
}
