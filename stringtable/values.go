package stringtable

import "github.com/clems4ever/exi-encoder/infoset"

// ValueHit says where a value was found.
type ValueHit uint8

const (
	ValueMiss ValueHit = iota
	ValueLocal
	ValueGlobal
)

// ValueRef is the outcome of looking a value up. LocalSize and
// GlobalSize are the partition lengths at lookup time.
type ValueRef struct {
	Hit        ValueHit
	Index      int
	LocalSize  int
	GlobalSize int
}

// LocalValues returns the value partition scoped to q, or nil when no
// value has been recorded for q yet.
func (t *Table) LocalValues(q infoset.QName) *Partition {
	return t.local[q]
}

// GlobalValues exposes the document-wide value partition.
func (t *Table) GlobalValues() *Partition {
	return t.global
}

// InternValue resolves value for the partition scoped to q: the local
// partition first, then the global one. A non-empty miss is appended to
// both.
func (t *Table) InternValue(q infoset.QName, value string) ValueRef {
	ref := t.LookupValue(q, value)
	if ref.Hit == ValueMiss {
		t.AddValue(q, value)
	}
	return ref
}

// LookupValue resolves value without modifying the table.
func (t *Table) LookupValue(q infoset.QName, value string) ValueRef {
	ref := ValueRef{GlobalSize: t.global.Len()}
	if lp := t.local[q]; lp != nil {
		ref.LocalSize = lp.Len()
		if i, ok := lp.Lookup(value); ok {
			ref.Hit, ref.Index = ValueLocal, i
			return ref
		}
	}
	if i, ok := t.global.Lookup(value); ok {
		ref.Hit, ref.Index = ValueGlobal, i
	}
	return ref
}

// AddValue records a value that missed both partitions. Empty strings
// are never recorded.
func (t *Table) AddValue(q infoset.QName, value string) {
	if value == "" {
		return
	}
	lp := t.local[q]
	if lp == nil {
		lp = newPartition()
		t.local[q] = lp
	}
	lp.Add(value)
	t.global.Add(value)
}

// Stats summarises the table size.
type Stats struct {
	URIs         int `json:"uris"`
	LocalNames   int `json:"localNames"`
	Prefixes     int `json:"prefixes"`
	GlobalValues int `json:"globalValues"`
	ValueScopes  int `json:"valueScopes"`
}

func (t *Table) Stats() Stats {
	s := Stats{
		URIs:         t.uris.Len(),
		GlobalValues: t.global.Len(),
		ValueScopes:  len(t.local),
	}
	for _, e := range t.perURI {
		s.LocalNames += e.locals.Len()
		s.Prefixes += e.prefixes.Len()
	}
	return s
}
