// Package cache keeps recently decoded planes in a fixed-size in-memory cache shared by
// any number of sessions.  Planes are stored snappy-compressed with a CRC32 checksum, so a
// corrupted entry is detected and decoded again rather than returned.
package cache

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/DmitriyVTitov/size"
	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/planeio"
)

// Planes is a plane cache.  A nil *Planes caches nothing.  It is safe for concurrent use
// although each wrapped session, like any session, is not.
type Planes struct {
	cache    *freecache.Cache
	attempts uint64
	hits     uint64
}

// New returns a cache of about mb megabytes, or nil if mb is not positive.
func New(mb int) *Planes {
	if mb <= 0 {
		return nil
	}
	numBytes := mb << 20
	planeio.Infof("Created plane cache of ~ %s\n", humanize.Bytes(uint64(numBytes)))
	return &Planes{cache: freecache.NewCache(numBytes)}
}

// Stats returns the # of lookups, the # of hits and the # of cached planes.
func (p *Planes) Stats() (attempts, hits uint64, entries int64) {
	if p == nil {
		return 0, 0, 0
	}
	return atomic.LoadUint64(&p.attempts), atomic.LoadUint64(&p.hits), p.cache.EntryCount()
}

// Clear drops every cached plane.
func (p *Planes) Clear() {
	if p != nil {
		p.cache.Clear()
	}
}

// Wrap returns a session whose DecodePlane results are cached under id, which must be
// unique to the container, e.g., its path.
func (p *Planes) Wrap(id string, sess format.Session) format.Session {
	if p == nil {
		return sess
	}
	planeio.Debugf("Caching planes of %s, metadata of %s\n", id, humanize.Bytes(uint64(size.Of(sess.Metadata()))))
	return &session{Session: sess, planes: p, id: id}
}

// planeKey identifies one decoded window.
type planeKey struct {
	id     string
	series int
	no     int
	r      planeio.Rect
}

func (k planeKey) Bytes() []byte {
	b := make([]byte, 0, len(k.id)+6*8)
	b = append(b, k.id...)
	for _, v := range []int{k.series, k.no, k.r.X, k.r.Y, k.r.W, k.r.H} {
		b = binary.LittleEndian.AppendUint64(b, uint64(v))
	}
	return b
}

type session struct {
	format.Session
	planes *Planes
	id     string
	closed bool
}

func (s *session) DecodePlane(series, no int, r planeio.Rect, buf []byte) error {
	if s.closed {
		return planeio.NewError("decode plane", planeio.ErrUninitialized, "session closed")
	}
	k := planeKey{id: s.id, series: series, no: no, r: r}.Bytes()
	atomic.AddUint64(&s.planes.attempts, 1)
	stored, err := s.planes.cache.Get(k)
	if err != nil && err != freecache.ErrNotFound {
		return err
	}
	if stored != nil {
		data, err := planeio.DeserializeData(stored)
		if err != nil {
			planeio.Warningf("Dropping cached plane %d of %s: %v\n", no, s.id, err)
			s.planes.cache.Del(k)
		} else if len(data) <= len(buf) {
			copy(buf, data)
			atomic.AddUint64(&s.planes.hits, 1)
			return nil
		}
	}

	if err := s.Session.DecodePlane(series, no, r, buf); err != nil {
		return err
	}
	n := s.planeBytes(series, r)
	if n <= 0 || n > len(buf) {
		return nil
	}
	stored, err = planeio.SerializeData(buf[:n], planeio.Snappy, planeio.CRC32)
	if err != nil {
		planeio.Errorf("unable to serialize plane %d of %s: %v\n", no, s.id, err)
		return nil
	}
	if err := s.planes.cache.Set(k, stored, 0); err != nil {
		planeio.Debugf("Not caching %s plane %d of %s: %v\n", humanize.Bytes(uint64(len(stored))), no, s.id, err)
	}
	return nil
}

// planeBytes returns the # of bytes a successful decode wrote.
func (s *session) planeBytes(series int, r planeio.Rect) int {
	meta := s.Session.Metadata()
	if series < 0 || series >= len(meta) {
		return 0
	}
	return meta[series].RectSize(r)
}

func (s *session) GlobalMetadata() map[string]interface{} {
	if a, ok := s.Session.(format.Annotated); ok {
		return a.GlobalMetadata()
	}
	return nil
}

func (s *session) Close() error {
	s.closed = true
	return s.Session.Close()
}
