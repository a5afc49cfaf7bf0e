package page

import (
	"errors"
	"os"

	"github.com/ncw/directio"

	"malhf/pkg/config"
)

// ErrInvalidPageID is returned by Get when the requested page ID is out of
// the file's current range.
var ErrInvalidPageID = errors.New("page: invalid page id")

// ErrCorruptFile is returned when a page file's size is not a multiple of
// config.PageSize.
var ErrCorruptFile = errors.New("page: file size is not page-aligned")

// Pager manages a single page-indexed file: either a relation's .data file
// (primary buckets, one page per bucket, grown by splits) or its .ovflow file (overflow chain
// pages, append-only). I/O is synchronous and block-aligned, matching the
// single-threaded, non-caching resource model of a relation: a page is
// materialised on Get, mutated by the caller, and written back with Put.
type Pager struct {
	file     *os.File
	numPages int64
}

// Open opens (creating if necessary) the page file at path.
func Open(path string) (*Pager, error) {
	f, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size()%config.PageSize != 0 {
		f.Close()
		return nil, ErrCorruptFile
	}
	return &Pager{file: f, numPages: info.Size() / config.PageSize}, nil
}

// NumPages returns the number of pages currently in the file.
func (pg *Pager) NumPages() int64 { return pg.numPages }

// Get reads and returns the page at the given ordinal.
func (pg *Pager) Get(id int64) (*Page, error) {
	if id < 0 || id >= pg.numPages {
		return nil, ErrInvalidPageID
	}
	buf := directio.AlignedBlock(int(config.PageSize))
	if _, err := pg.file.ReadAt(buf, id*config.PageSize); err != nil {
		return nil, err
	}
	return unmarshal(buf), nil
}

// Put writes p back to the page at the given ordinal.
func (pg *Pager) Put(id int64, p *Page) error {
	if id < 0 || id >= pg.numPages {
		return ErrInvalidPageID
	}
	buf := directio.AlignedBlock(int(config.PageSize))
	copy(buf, p.marshal())
	_, err := pg.file.WriteAt(buf, id*config.PageSize)
	return err
}

// Append writes p as a brand-new page at the end of the file, returning its
// newly assigned ordinal.
func (pg *Pager) Append(p *Page) (int64, error) {
	id := pg.numPages
	buf := directio.AlignedBlock(int(config.PageSize))
	copy(buf, p.marshal())
	if _, err := pg.file.WriteAt(buf, id*config.PageSize); err != nil {
		return NoPage, err
	}
	pg.numPages++
	return id, nil
}

// Close flushes and closes the backing file.
func (pg *Pager) Close() error {
	return pg.file.Close()
}
