// Package page implements the bucket storage layer: an in-memory page image
// with a small header (tuple count, free bytes, overflow link) plus a
// contiguous body of length-delimited tuples, and a page-indexed file pager
// used to read/write pages to the three files backing a relation.
package page

import (
	"encoding/binary"
	"errors"

	"malhf/pkg/config"
)

// NoPage is the sentinel PageID meaning "no such page" / "end of chain".
const NoPage int64 = -1

// ErrPageFull is returned by Add when a tuple doesn't fit in the page's
// remaining free space. It is not itself a relation-level error: the
// relation layer catches it and walks/extends the overflow chain.
var ErrPageFull = errors.New("page: full")

const (
	ntuplesOffset = 0
	ntuplesSize   = binary.MaxVarintLen64
	freeOffset    = ntuplesOffset + ntuplesSize
	freeSize      = binary.MaxVarintLen64
	ovflowOffset  = freeOffset + freeSize
	ovflowSize    = binary.MaxVarintLen64

	// HeaderSize is the fixed number of bytes at the start of every page
	// occupied by (ntuples, free, ovflow), each stored in its own
	// MaxVarintLen64-wide slot so that field offsets never depend on the
	// varint-encoded width of the value they hold.
	HeaderSize = ntuplesOffset + ntuplesSize + freeSize + ovflowSize

	// BodySize is the number of bytes available for tuple storage.
	BodySize = config.PageSize - HeaderSize
)

// Page is a transient, in-memory image of one page: materialised on read,
// possibly mutated, then written back. The caller of Pager.Get exclusively
// owns the returned Page until it releases it via Pager.Put.
type Page struct {
	ntuples int64
	free    int64
	ovflow  int64
	body    [BodySize]byte
}

// New returns an empty page image: zero tuples, no overflow link, and the
// full body available as free space.
func New() *Page {
	return &Page{free: BodySize, ovflow: NoPage}
}

// NTuples returns the number of tuples currently stored in the page.
func (p *Page) NTuples() int64 { return p.ntuples }

// FreeSpace returns the number of unused bytes left in the page's body.
func (p *Page) FreeSpace() int64 { return p.free }

// Ovflow returns the page ID of the next page in this bucket's overflow
// chain, or NoPage if this is the chain's tail.
func (p *Page) Ovflow() int64 { return p.ovflow }

// SetOvflow links this page to the next page in an overflow chain.
func (p *Page) SetOvflow(id int64) { p.ovflow = id }

// used returns the number of body bytes currently occupied by tuples.
func (p *Page) used() int64 { return BodySize - p.free }

// Add appends tuple (plus its null terminator) to the page if it fits,
// returning ErrPageFull otherwise. Tuples may not themselves contain a null
// byte; callers are expected to pass validated attribute-delimited tuples.
func (p *Page) Add(tuple string) error {
	need := int64(len(tuple)) + 1
	if need > p.free {
		return ErrPageFull
	}
	offset := p.used()
	copy(p.body[offset:], tuple)
	p.body[offset+int64(len(tuple))] = 0
	p.free -= need
	p.ntuples++
	return nil
}

// Fits reports whether a tuple of the given length could ever fit in a
// freshly created page's body — used to distinguish "page full" (try the
// next page in the chain) from "tuple too large" (a surfaced user error).
func Fits(tupleLen int) bool {
	return int64(tupleLen)+1 <= BodySize
}

// ReadAt returns the tuple starting at the given byte offset within the
// page's body, along with the offset of the tuple immediately following it.
func (p *Page) ReadAt(offset int64) (tuple string, next int64) {
	end := offset
	for end < BodySize && p.body[end] != 0 {
		end++
	}
	return string(p.body[offset:end]), end + 1
}

// Tuples returns every tuple stored in the page, in storage order.
func (p *Page) Tuples() []string {
	out := make([]string, 0, p.ntuples)
	offset := int64(0)
	for i := int64(0); i < p.ntuples; i++ {
		var t string
		t, offset = p.ReadAt(offset)
		out = append(out, t)
	}
	return out
}

// marshal serialises the page into a fixed config.PageSize-byte slice.
func (p *Page) marshal() []byte {
	buf := make([]byte, config.PageSize)
	binary.PutVarint(buf[ntuplesOffset:], p.ntuples)
	binary.PutVarint(buf[freeOffset:], p.free)
	binary.PutVarint(buf[ovflowOffset:], p.ovflow)
	copy(buf[HeaderSize:], p.body[:])
	return buf
}

// unmarshal populates p from a config.PageSize-byte slice previously
// produced by marshal.
func unmarshal(buf []byte) *Page {
	p := &Page{}
	p.ntuples, _ = binary.Varint(buf[ntuplesOffset : ntuplesOffset+ntuplesSize])
	p.free, _ = binary.Varint(buf[freeOffset : freeOffset+freeSize])
	p.ovflow, _ = binary.Varint(buf[ovflowOffset : ovflowOffset+ovflowSize])
	copy(p.body[:], buf[HeaderSize:])
	return p
}
