// Package stringtable keeps the per-session EXI string table: URIs,
// prefixes and local names per URI, and the global and per-QName value
// partitions. Entries are append-only and indexed in first-occurrence
// order, so an encoder and a decoder that perform the same operations in
// the same order hold identical tables.
package stringtable

import "github.com/clems4ever/exi-encoder/infoset"

// Well-known namespace URIs pre-populated in every table.
const (
	XMLNamespace         = "http://www.w3.org/XML/1998/namespace"
	XMLSchemaInstanceURI = "http://www.w3.org/2001/XMLSchema-instance"
)

// Partition is one append-only dictionary.
type Partition struct {
	entries []string
	index   map[string]int
}

func newPartition(initial ...string) *Partition {
	p := &Partition{index: make(map[string]int, len(initial))}
	for _, s := range initial {
		p.Add(s)
	}
	return p
}

// Len returns the number of entries.
func (p *Partition) Len() int {
	return len(p.entries)
}

// Lookup returns the index of s.
func (p *Partition) Lookup(s string) (int, bool) {
	i, ok := p.index[s]
	return i, ok
}

// At returns the entry at index i.
func (p *Partition) At(i int) (string, bool) {
	if i < 0 || i >= len(p.entries) {
		return "", false
	}
	return p.entries[i], true
}

// Add appends s and returns its index. Adding a string that is already
// present returns the existing index.
func (p *Partition) Add(s string) int {
	if i, ok := p.index[s]; ok {
		return i
	}
	i := len(p.entries)
	p.entries = append(p.entries, s)
	p.index[s] = i
	return i
}

// Entries returns a copy of the partition in index order.
func (p *Partition) Entries() []string {
	return append([]string(nil), p.entries...)
}

// Ref is the outcome of interning a string. Size is the partition length
// before the string was interned; it determines the code width.
type Ref struct {
	Index int
	Hit   bool
	Size  int
}

func intern(p *Partition, s string) Ref {
	size := p.Len()
	if i, ok := p.Lookup(s); ok {
		return Ref{Index: i, Hit: true, Size: size}
	}
	return Ref{Index: p.Add(s), Size: size}
}

type uriEntry struct {
	prefixes *Partition
	locals   *Partition
}

// Table is the string table of one encode or decode session.
type Table struct {
	uris   *Partition
	perURI []*uriEntry
	global *Partition
	local  map[infoset.QName]*Partition
}

// New returns a table holding the initial entries of the built-in
// grammar: the empty, xml and xsi namespaces with their prefixes and
// local names.
func New() *Table {
	t := &Table{
		uris:   newPartition(),
		global: newPartition(),
		local:  make(map[infoset.QName]*Partition),
	}
	t.addURI("", []string{""}, nil)
	t.addURI(XMLNamespace, []string{"xml"}, []string{"base", "id", "lang", "space"})
	t.addURI(XMLSchemaInstanceURI, []string{"xsi"}, []string{"nil", "type"})
	return t
}

func (t *Table) addURI(uri string, prefixes, locals []string) int {
	i := t.uris.Add(uri)
	if i == len(t.perURI) {
		t.perURI = append(t.perURI, &uriEntry{
			prefixes: newPartition(prefixes...),
			locals:   newPartition(locals...),
		})
	}
	return i
}

// URIs exposes the URI partition.
func (t *Table) URIs() *Partition {
	return t.uris
}

// InternURI looks uri up, appending it on a miss.
func (t *Table) InternURI(uri string) Ref {
	size := t.uris.Len()
	if i, ok := t.uris.Lookup(uri); ok {
		return Ref{Index: i, Hit: true, Size: size}
	}
	return Ref{Index: t.addURI(uri, nil, nil), Size: size}
}

// AddURI appends uri after a decoded miss and returns its index.
func (t *Table) AddURI(uri string) int {
	return t.addURI(uri, nil, nil)
}

// LocalNames returns the local-name partition of the URI at uriID.
func (t *Table) LocalNames(uriID int) *Partition {
	if uriID < 0 || uriID >= len(t.perURI) {
		return nil
	}
	return t.perURI[uriID].locals
}

// Prefixes returns the prefix partition of the URI at uriID.
func (t *Table) Prefixes(uriID int) *Partition {
	if uriID < 0 || uriID >= len(t.perURI) {
		return nil
	}
	return t.perURI[uriID].prefixes
}

// InternLocalName looks name up in the local-name partition of uriID.
func (t *Table) InternLocalName(uriID int, name string) Ref {
	return intern(t.perURI[uriID].locals, name)
}

// InternPrefix looks prefix up in the prefix partition of uriID.
func (t *Table) InternPrefix(uriID int, prefix string) Ref {
	return intern(t.perURI[uriID].prefixes, prefix)
}
