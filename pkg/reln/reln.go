// Package reln implements the relation layer: the on-disk descriptor for a
// multi-attribute linear-hashed file, insertion with overflow handling, and
// the linear-hash split protocol.
package reln

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"malhf/pkg/bits"
	"malhf/pkg/chvec"
	"malhf/pkg/config"
	"malhf/pkg/hashfn"
	"malhf/pkg/page"
)

// Errors surfaced by the relation layer, per spec §7.
var (
	ErrRelationExists = errors.New("reln: relation already exists")
	ErrNoSuchRelation = errors.New("reln: no such relation")
	ErrTupleTooLarge  = errors.New("reln: tuple cannot fit in a fresh page")
)

// ErrMalformedTuple is re-exported from hashfn: it is raised whenever a
// tuple does not split into exactly nattrs attributes.
var ErrMalformedTuple = hashfn.ErrMalformedTuple

// headerFieldCount is the number of fixed count-width fields at the start of
// the .info file, in order: nattrs, depth, sp, npages, ntups, algo. The
// trailing algo field is an addition beyond the original five-field header
// that records which hash_any implementation the relation was created with.
const headerFieldCount = 6

// Relation is the owned descriptor for an open multi-attribute
// linear-hashed file: global counters, the choice vector, and handles to
// the three backing files. A relation is never shared across goroutines.
type Relation struct {
	nattrs uint32
	depth  uint32
	sp     uint32
	npages uint32
	ntups  uint32
	cv     chvec.ChoiceVector
	algo   hashfn.Algorithm

	writable bool
	infoPath string
	info     *os.File
	data     *page.Pager
	ovflow   *page.Pager
}

func infoPath(name string) string   { return name + config.InfoSuffix }
func dataPath(name string) string   { return name + config.DataSuffix }
func ovflowPath(name string) string { return name + config.OvflowSuffix }

// Exists reports whether a relation with the given name has already been
// created.
func Exists(name string) bool {
	_, err := os.Stat(infoPath(name))
	return err == nil
}

// New creates a relation's three files, writes npages empty primary pages,
// and returns it open for writing. Unlike the original C newRelation (which
// creates, writes the header, and closes, requiring a separate open), the Go
// constructor hands back a ready-to-use *Relation, matching ordinary Go
// constructor idiom.
func New(name string, nattrs, npages, depth uint32, cvSpec string, algo hashfn.Algorithm) (*Relation, error) {
	if nattrs == 0 {
		return nil, fmt.Errorf("reln: nattrs must be >= 1")
	}
	if Exists(name) {
		return nil, ErrRelationExists
	}
	cv, err := chvec.Parse(nattrs, cvSpec)
	if err != nil {
		return nil, err
	}

	infoFile, err := os.OpenFile(infoPath(name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}
	dataPager, err := page.Open(dataPath(name))
	if err != nil {
		infoFile.Close()
		return nil, err
	}
	ovflowPager, err := page.Open(ovflowPath(name))
	if err != nil {
		infoFile.Close()
		dataPager.Close()
		return nil, err
	}

	for i := uint32(0); i < npages; i++ {
		if _, err := dataPager.Append(page.New()); err != nil {
			infoFile.Close()
			dataPager.Close()
			ovflowPager.Close()
			return nil, err
		}
	}

	r := &Relation{
		nattrs:   nattrs,
		depth:    depth,
		sp:       0,
		npages:   npages,
		ntups:    0,
		cv:       cv,
		algo:     algo,
		writable: true,
		infoPath: infoPath(name),
		info:     infoFile,
		data:     dataPager,
		ovflow:   ovflowPager,
	}
	if err := r.writeHeader(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Open reads an existing relation's header and opens its three files.
// mode follows os.OpenFile-style semantics via its first/second characters:
// "r" for read-only, "w" or "r+"/"w+" for read-write.
func Open(name string, mode string) (*Relation, error) {
	if !Exists(name) {
		return nil, ErrNoSuchRelation
	}
	flag := os.O_RDONLY
	writable := false
	if len(mode) > 0 && (mode[0] == 'w' || (len(mode) > 1 && mode[1] == '+')) {
		flag = os.O_RDWR
		writable = true
	}

	infoFile, err := os.OpenFile(infoPath(name), flag, 0666)
	if err != nil {
		return nil, err
	}
	r := &Relation{writable: writable, infoPath: infoPath(name), info: infoFile}
	if err := r.readHeader(); err != nil {
		infoFile.Close()
		return nil, err
	}

	dataPager, err := page.Open(dataPath(name))
	if err != nil {
		infoFile.Close()
		return nil, err
	}
	ovflowPager, err := page.Open(ovflowPath(name))
	if err != nil {
		infoFile.Close()
		dataPager.Close()
		return nil, err
	}
	r.data = dataPager
	r.ovflow = ovflowPager
	return r, nil
}

// Close flushes the header (if the relation is writable) and releases all
// three file handles. It is safe to call on a relation left partially
// initialised by a failed New/Open.
func (r *Relation) Close() error {
	var err error
	if r.writable && r.info != nil {
		err = r.writeHeader()
	}
	if r.info != nil {
		if cerr := r.info.Close(); err == nil {
			err = cerr
		}
	}
	if r.data != nil {
		if cerr := r.data.Close(); err == nil {
			err = cerr
		}
	}
	if r.ovflow != nil {
		if cerr := r.ovflow.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// writeHeader serialises the five core counters, the hash algorithm, and
// the full choice vector, and rewrites the .info file from byte 0.
func (r *Relation) writeHeader() error {
	var buf bytes.Buffer
	fields := []uint32{r.nattrs, r.depth, r.sp, r.npages, r.ntups, uint32(r.algo)}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
			return err
		}
	}
	for _, item := range r.cv {
		if err := binary.Write(&buf, binary.BigEndian, item.Attr); err != nil {
			return err
		}
		if err := binary.Write(&buf, binary.BigEndian, item.Bit); err != nil {
			return err
		}
	}
	if _, err := r.info.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := r.info.Write(buf.Bytes()); err != nil {
		return err
	}
	return r.info.Truncate(int64(buf.Len()))
}

// readHeader reads back what writeHeader wrote.
func (r *Relation) readHeader() error {
	size := headerFieldCount*4 + config.MaxChVec*8
	buf := make([]byte, size)
	if _, err := io.ReadFull(r.info, buf); err != nil {
		return fmt.Errorf("reln: reading header: %w", err)
	}
	rd := bytes.NewReader(buf)
	var fields [headerFieldCount]uint32
	for i := range fields {
		if err := binary.Read(rd, binary.BigEndian, &fields[i]); err != nil {
			return err
		}
	}
	r.nattrs, r.depth, r.sp, r.npages, r.ntups = fields[0], fields[1], fields[2], fields[3], fields[4]
	r.algo = hashfn.Algorithm(fields[5])
	for i := range r.cv {
		var item chvec.Item
		if err := binary.Read(rd, binary.BigEndian, &item.Attr); err != nil {
			return err
		}
		if err := binary.Read(rd, binary.BigEndian, &item.Bit); err != nil {
			return err
		}
		r.cv[i] = item
	}
	return nil
}

// Accessors, named per spec §6.

func (r *Relation) NAttrs() uint32                   { return r.nattrs }
func (r *Relation) NPages() uint32                   { return r.npages }
func (r *Relation) NTuples() uint32                  { return r.ntups }
func (r *Relation) Depth() uint32                    { return r.depth }
func (r *Relation) SplitPointer() uint32             { return r.sp }
func (r *Relation) ChoiceVector() chvec.ChoiceVector { return r.cv }
func (r *Relation) Algorithm() hashfn.Algorithm      { return r.algo }
func (r *Relation) DataPager() *page.Pager           { return r.data }
func (r *Relation) OvflowPager() *page.Pager         { return r.ovflow }

// Address computes the primary bucket a tuple with composite hash h
// currently addresses to, per spec §4.4. Exported for the query layer's
// addressing self-check (query.VerifyAddressing).
func (r *Relation) Address(h bits.Bits) int64 {
	return r.address(h)
}

// address computes the primary bucket for hash h given the relation's
// current (depth, sp), per spec §4.4.
func (r *Relation) address(h bits.Bits) int64 {
	if r.depth == 0 {
		return 0
	}
	p := bits.GetLower(h, int(r.depth))
	if uint32(p) < r.sp {
		p = bits.GetLower(h, int(r.depth+1))
	}
	return int64(p)
}

// splitAddress computes the bucket for hash h using one extra bit, used
// while redistributing tuples during a split (spec §4.4).
func (r *Relation) splitAddress(h bits.Bits) int64 {
	return int64(bits.GetLower(h, int(r.depth+1)))
}

func toAttrBytes(attrs []string) [][]byte {
	out := make([][]byte, len(attrs))
	for i, a := range attrs {
		out[i] = []byte(a)
	}
	return out
}

func (r *Relation) hashTuple(tuple string) (bits.Bits, error) {
	attrs, err := hashfn.SplitAttrs(tuple, r.nattrs)
	if err != nil {
		return 0, err
	}
	return hashfn.TupleHash(r.algo, r.cv, toAttrBytes(attrs)), nil
}

// Insert adds tuple to the relation, returning the primary bucket page ID
// it (or its overflow chain) landed in. Per spec §4.5: on success ntups is
// incremented and, if the split predicate now holds, exactly one split is
// performed.
func (r *Relation) Insert(tuple string) (int64, error) {
	h, err := r.hashTuple(tuple)
	if err != nil {
		return 0, err
	}
	if !page.Fits(len(tuple)) {
		return 0, ErrTupleTooLarge
	}
	pid, err := r.insertAt(tuple, h, false)
	if err != nil {
		return 0, err
	}
	r.ntups++
	if threshold := config.SplitThreshold(r.nattrs); threshold > 0 && r.ntups%threshold == 0 {
		if err := r.performSplit(); err != nil {
			return pid, err
		}
	}
	return pid, nil
}

// insertAt inserts tuple (whose hash is h) into its primary bucket, walking
// or extending the overflow chain as needed. isSplit selects split-time
// addressing (spec §4.4) and must never be set from Insert directly.
func (r *Relation) insertAt(tuple string, h bits.Bits, isSplit bool) (int64, error) {
	var pid int64
	if isSplit {
		pid = r.splitAddress(h)
	} else {
		pid = r.address(h)
	}
	pg, err := r.data.Get(pid)
	if err != nil {
		return 0, err
	}
	if err := pg.Add(tuple); err == nil {
		if err := r.data.Put(pid, pg); err != nil {
			return 0, err
		}
		return pid, nil
	} else if err != page.ErrPageFull {
		return 0, err
	}
	if err := r.handleOverflow(pid, pg, tuple); err != nil {
		return 0, err
	}
	return pid, nil
}

// handleOverflow walks pg's overflow chain looking for room for tuple,
// appending a fresh overflow page if the whole chain is full. Grounded on
// the original reln.c handleOverflow.
func (r *Relation) handleOverflow(primaryID int64, primary *page.Page, tuple string) error {
	if primary.Ovflow() == page.NoPage {
		newID, err := r.ovflow.Append(page.New())
		if err != nil {
			return err
		}
		newPage, err := r.ovflow.Get(newID)
		if err != nil {
			return err
		}
		if err := newPage.Add(tuple); err != nil {
			return err
		}
		if err := r.ovflow.Put(newID, newPage); err != nil {
			return err
		}
		primary.SetOvflow(newID)
		return r.data.Put(primaryID, primary)
	}

	prevID := primary.Ovflow()
	for {
		cur, err := r.ovflow.Get(prevID)
		if err != nil {
			return err
		}
		if err := cur.Add(tuple); err == nil {
			return r.ovflow.Put(prevID, cur)
		} else if err != page.ErrPageFull {
			return err
		}
		next := cur.Ovflow()
		if next != page.NoPage {
			prevID = next
			continue
		}
		newID, err := r.ovflow.Append(page.New())
		if err != nil {
			return err
		}
		newPage, err := r.ovflow.Get(newID)
		if err != nil {
			return err
		}
		if err := newPage.Add(tuple); err != nil {
			return err
		}
		if err := r.ovflow.Put(newID, newPage); err != nil {
			return err
		}
		cur.SetOvflow(newID)
		return r.ovflow.Put(prevID, cur)
	}
}

// collectBucket gathers every tuple reachable from bucket id: its primary
// page plus its entire overflow chain.
func (r *Relation) collectBucket(id int64) ([]string, error) {
	pg, err := r.data.Get(id)
	if err != nil {
		return nil, err
	}
	out := append([]string{}, pg.Tuples()...)
	ov := pg.Ovflow()
	for ov != page.NoPage {
		ovpg, err := r.ovflow.Get(ov)
		if err != nil {
			return nil, err
		}
		out = append(out, ovpg.Tuples()...)
		ov = ovpg.Ovflow()
	}
	return out, nil
}

// performSplit implements the linear-hash growth step of spec §4.5,
// resolving the split-loop Open Question the way spec §9 recommends:
// collect every tuple in bucket sp, reset it to one empty page, then
// reinsert each tuple via split-time addressing into either the old bucket
// or the freshly appended one.
func (r *Relation) performSplit() error {
	if _, err := r.data.Append(page.New()); err != nil {
		return err
	}
	r.npages++

	tuples, err := r.collectBucket(int64(r.sp))
	if err != nil {
		return err
	}
	if err := r.data.Put(int64(r.sp), page.New()); err != nil {
		return err
	}

	for _, t := range tuples {
		h, err := r.hashTuple(t)
		if err != nil {
			return err
		}
		if _, err := r.insertAt(t, h, true); err != nil {
			return err
		}
	}

	r.sp++
	if r.sp == uint32(1)<<r.depth {
		r.sp = 0
		r.depth++
	}
	return nil
}

// Stats writes a human-readable dump of the relation's global state and
// every bucket's page chain, grounded on the original reln.c
// relationStats.
func (r *Relation) Stats(w io.Writer) {
	fmt.Fprintln(w, "Global Info:")
	fmt.Fprintf(w, "#attrs:%d  #pages:%d  #tuples:%d  d:%d  sp:%d  algo:%s\n",
		r.nattrs, r.npages, r.ntups, r.depth, r.sp, r.algo)
	fmt.Fprintln(w, "Choice vector")
	fmt.Fprintln(w, r.cv.String())
	fmt.Fprintln(w, "Bucket Info:")
	fmt.Fprintf(w, "%-4s %s\n", "#", "Info on pages in bucket")
	fmt.Fprintf(w, "%-4s %s\n", "", "(pageID,#tuples,freebytes,ovflow)")
	for pid := int64(0); pid < int64(r.npages); pid++ {
		fmt.Fprintf(w, "[%2d]  ", pid)
		pg, err := r.data.Get(pid)
		if err != nil {
			fmt.Fprintf(w, "<error: %v>\n", err)
			continue
		}
		fmt.Fprintf(w, "(d%d,%d,%d,%d)", pid, pg.NTuples(), pg.FreeSpace(), pg.Ovflow())
		ov := pg.Ovflow()
		for ov != page.NoPage {
			cur := ov
			ovpg, err := r.ovflow.Get(ov)
			if err != nil {
				fmt.Fprintf(w, " -> <error: %v>", err)
				break
			}
			fmt.Fprintf(w, " -> (ov%d,%d,%d,%d)", cur, ovpg.NTuples(), ovpg.FreeSpace(), ovpg.Ovflow())
			ov = ovpg.Ovflow()
		}
		fmt.Fprintln(w)
	}
}
