// Package improvision reads TIFF files written by Improvision software.  Planes are decoded
// by the TIFF engine; the ImageDescription of every directory carries key=value lines that
// give the Z, C and T extents and the position of each plane along them.
package improvision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/format/tiff"
	"github.com/janelia-flyem/planeio/ifd"
	"github.com/janelia-flyem/planeio/planeio"
)

func init() {
	format.RegisterBefore(Format{}, tiff.Format{}.Name())
}

const signature = "Improvision"

type Format struct{}

func (Format) Name() string {
	return "Improvision TIFF"
}

func (Format) Suffixes() []string {
	return []string{"tif", "tiff"}
}

// Probe accepts TIFF containers whose first ImageDescription mentions Improvision.
func (Format) Probe(s *planeio.Stream) bool {
	p := ifd.NewParser(s)
	d, err := p.FirstDirectory()
	if err != nil {
		return false
	}
	if err := d.Fill(s); err != nil {
		return false
	}
	return strings.Contains(description(d), signature)
}

func (Format) Open(s *planeio.Stream) (format.Session, error) {
	return Open(s)
}

func description(d *ifd.Directory) string {
	v, found := d.Get(ifd.ImageDescription)
	if !found {
		return ""
	}
	text, _ := v.Text()
	return text
}

// keyValues returns the key=value lines of a description in order.  Lines without '=' are
// skipped.
func keyValues(text string) [][2]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var pairs [][2]string
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found || key == "" {
			continue
		}
		pairs = append(pairs, [2]string{key, strings.TrimSpace(value)})
	}
	return pairs
}

// position is where one plane sits along Z, C and T, as recorded in its description.
type position struct {
	z, c, t   int
	stamp     int64 // microseconds
	channel   string
	hasStamp  bool
	hasCoords bool
}

func parsePosition(text string) position {
	var pos position
	for _, kv := range keyValues(text) {
		key, value := kv[0], kv[1]
		switch key {
		case "TimeStampMicroSeconds":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				pos.stamp, pos.hasStamp = v, true
			}
		case "ZPlane", "ChannelNo", "TimepointName":
			v, err := strconv.Atoi(value)
			if err != nil {
				planeio.Debugf("Ignoring %s=%q in Improvision description\n", key, value)
				continue
			}
			pos.hasCoords = true
			switch key {
			case "ZPlane":
				pos.z = v
			case "ChannelNo":
				pos.c = v
			default:
				pos.t = v
			}
		case "ChannelName":
			pos.channel = value
		}
	}
	return pos
}

// Session is an Improvision TIFF container.  Decoding is done by the embedded TIFF session.
type Session struct {
	*tiff.Session

	core []planeio.CoreMetadata
	meta map[string]interface{}
}

func Open(s *planeio.Stream) (*Session, error) {
	ts, err := tiff.Open(s)
	if err != nil {
		return nil, err
	}
	sess := &Session{Session: ts}
	if err := sess.init(); err != nil {
		ts.Close()
		return nil, err
	}
	return sess, nil
}

func (sess *Session) init() error {
	base := sess.Session.Metadata()
	count := base[0].ImageCount
	sess.meta = map[string]interface{}{"Improvision": "yes"}

	first, err := sess.Directory(0, 0)
	if err != nil {
		return err
	}
	sizeZ, sizeC, sizeT := 1, 1, 1
	for _, kv := range keyValues(description(first)) {
		key, value := kv[0], kv[1]
		sess.meta[key] = value
		var err error
		switch key {
		case "TotalZPlanes":
			sizeZ, err = strconv.Atoi(value)
		case "TotalChannels":
			sizeC, err = strconv.Atoi(value)
		case "TotalTimepoints":
			sizeT, err = strconv.Atoi(value)
		case "XCalibrationMicrons", "YCalibrationMicrons", "ZCalibrationMicrons":
			var f float64
			if f, err = strconv.ParseFloat(value, 64); err == nil {
				sess.meta["Physical size "+key[:1]] = f
			}
		}
		if err != nil {
			return planeio.NewError("open Improvision TIFF", planeio.ErrMalformed, "bad %s=%q", key, value)
		}
	}

	positions := make([]position, count)
	for i := range positions {
		d, err := sess.Directory(0, i)
		if err != nil {
			return err
		}
		positions[i] = parsePosition(description(d))
		if name := positions[i].channel; name != "" {
			key := fmt.Sprintf("Channel %d name", positions[i].c)
			if _, found := sess.meta[key]; !found {
				sess.meta[key] = name
			}
		}
	}
	if sizeT > 0 {
		if increment := timeIncrement(positions) / int64(sizeT); increment > 0 {
			sess.meta["Time increment (s)"] = float64(increment) / 1e6
		}
	}
	order := dimensionOrder(positions)

	sess.core = make([]planeio.CoreMetadata, len(base))
	for series, m := range base {
		m.SizeZ, m.SizeT = sizeZ, sizeT
		if !m.RGB {
			m.SizeC = sizeC
		}
		m.DimensionOrder = order
		if err := m.Validate(); err != nil {
			planeio.Warningf("Ignoring Improvision dimensions Z=%d C=%d T=%d: %v\n", sizeZ, sizeC, sizeT, err)
			m = base[series]
		}
		sess.core[series] = m
	}
	return nil
}

// timeIncrement returns the sum of positive differences between consecutive time stamps.
func timeIncrement(positions []position) int64 {
	var sum int64
	for i := 1; i < len(positions); i++ {
		if !positions[i].hasStamp || !positions[i-1].hasStamp {
			continue
		}
		if diff := positions[i].stamp - positions[i-1].stamp; diff > 0 {
			sum += diff
		}
	}
	return sum
}

// dimensionOrder lists Z, C and T in the order they first advance between consecutive
// planes.  Axes that never advance follow in ZCT order.
func dimensionOrder(positions []position) string {
	order := "XY"
	add := func(axis string) {
		if !strings.Contains(order, axis) {
			order += axis
		}
	}
	for i := 1; i < len(positions) && len(order) < 5; i++ {
		prev, cur := positions[i-1], positions[i]
		if !prev.hasCoords || !cur.hasCoords {
			continue
		}
		if cur.z > prev.z {
			add("Z")
		}
		if cur.c > prev.c {
			add("C")
		}
		if cur.t > prev.t {
			add("T")
		}
	}
	add("Z")
	add("C")
	add("T")
	return order
}

func (sess *Session) Metadata() []planeio.CoreMetadata {
	if sess.Session.Metadata() == nil {
		return nil
	}
	return append([]planeio.CoreMetadata(nil), sess.core...)
}

// GlobalMetadata returns the TIFF tags without the raw description, plus the parsed
// key=value pairs.
func (sess *Session) GlobalMetadata() map[string]interface{} {
	meta := sess.Session.GlobalMetadata()
	if meta == nil {
		return nil
	}
	delete(meta, ifd.ImageDescription.String())
	for k, v := range sess.meta {
		meta[k] = v
	}
	return meta
}
