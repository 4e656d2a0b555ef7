package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/planeio/cache"
	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/planeio"
)

type options struct {
	series    int
	plane     int
	decodeAll bool
	dumpDir   string
	planes    *cache.Planes
}

// inspect opens one container and returns its report.
func inspect(filename string, opts options) (string, error) {
	s, err := planeio.OpenFile(filename)
	if err != nil {
		return "", err
	}
	length := s.Length()
	f, err := format.Detect(s)
	if err != nil {
		s.Close()
		return "", err
	}
	sess, err := format.OpenStream(s)
	if err != nil {
		return "", err
	}
	sess = opts.planes.Wrap(filename, sess)
	defer sess.Close()

	var text strings.Builder
	fmt.Fprintf(&text, "%s: %s, %s\n", filename, f.Name(), humanize.Bytes(uint64(length)))
	meta := sess.Metadata()
	for i, m := range meta {
		kind := "image"
		if m.Thumbnail {
			kind = "thumbnail"
		}
		fmt.Fprintf(&text, "  series %d (%s): %s, %s per plane\n", i, kind, m, humanize.Bytes(uint64(m.PlaneSize())))
	}
	if a, ok := sess.(format.Annotated); ok {
		global := a.GlobalMetadata()
		keys := make([]string, 0, len(global))
		for k := range global {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&text, "    %s: %v\n", k, global[k])
		}
	}

	if opts.series < 0 || opts.series >= len(meta) {
		if opts.decodeAll || opts.dumpDir != "" {
			return "", planeio.NewError("inspect", planeio.ErrOutOfRange, "series %d not in [0,%d)", opts.series, len(meta))
		}
		return text.String(), nil
	}
	m := meta[opts.series]
	buf := make([]byte, m.PlaneSize())
	if opts.decodeAll {
		start := time.Now()
		for no := 0; no < m.ImageCount; no++ {
			if err := sess.DecodePlane(opts.series, no, planeio.FullRect(m), buf); err != nil {
				return "", err
			}
		}
		elapsed := time.Since(start)
		total := uint64(m.ImageCount) * uint64(len(buf))
		fmt.Fprintf(&text, "  decoded %d planes (%s) of series %d in %s\n", m.ImageCount, humanize.Bytes(total), opts.series, elapsed)
	}
	if opts.dumpDir != "" {
		if err := sess.DecodePlane(opts.series, opts.plane, planeio.FullRect(m), buf); err != nil {
			return "", err
		}
		name := fmt.Sprintf("%s.s%d.p%d.raw", filepath.Base(filename), opts.series, opts.plane)
		path := filepath.Join(opts.dumpDir, name)
		if err := os.WriteFile(path, buf, 0644); err != nil {
			return "", err
		}
		fmt.Fprintf(&text, "  wrote plane %d of series %d to %s\n", opts.plane, opts.series, path)
	}
	return text.String(), nil
}
