// Package format defines the contract every container adapter implements and the static
// registry used to pick an adapter for a stream.  Adapters register themselves from an
// init function and are compiled in by importing their packages.  Adapters that refine
// another format register ahead of it with RegisterBefore.
package format

import (
	"fmt"
	"strings"

	"github.com/twinj/uuid"

	"github.com/janelia-flyem/planeio/planeio"
)

// Format is a container adapter.
type Format interface {
	Name() string

	// Suffixes returns the usual file name suffixes, without dots.
	Suffixes() []string

	// Probe returns true if the stream looks like this format.  It may read from the
	// current position and tolerates short streams.  The registry restores the position.
	Probe(s *planeio.Stream) bool

	// Open parses the container and returns a session that owns s.
	Open(s *planeio.Stream) (Session, error)
}

// Session is one opened container.  A session is not safe for concurrent use.
type Session interface {
	// Metadata returns one record per series.
	Metadata() []planeio.CoreMetadata

	// DecodePlane fills buf with the r window of plane no of the given series.  Channels
	// are written one after another, each as r.H rows of r.W samples.
	DecodePlane(series, no int, r planeio.Rect, buf []byte) error

	// Close releases the stream.  Calling Close more than once is harmless, and any other
	// call after Close fails with planeio.ErrUninitialized.
	Close() error
}

// Annotated is implemented by sessions that expose format-specific key/value metadata.
type Annotated interface {
	GlobalMetadata() map[string]interface{}
}

// compiled holds registered formats in priority order.
var compiled []Format

// Register adds a format after all previously registered ones.
func Register(f Format) {
	for _, existing := range compiled {
		if existing.Name() == f.Name() {
			planeio.Criticalf("Format %q registered twice\n", f.Name())
			return
		}
	}
	compiled = append(compiled, f)
}

// RegisterBefore adds a format ahead of the registered format named generic, so a
// specialization of a container is probed before the container itself.  If generic is
// not registered, f is added last.
func RegisterBefore(f Format, generic string) {
	last := len(compiled)
	Register(f)
	if len(compiled) == last {
		return
	}
	for i, existing := range compiled[:last] {
		if existing.Name() == generic {
			copy(compiled[i+1:], compiled[i:last])
			compiled[i] = f
			return
		}
	}
}

// Formats returns the registered formats in priority order.
func Formats() []Format {
	return append([]Format(nil), compiled...)
}

// Lookup returns the registered format with the given name.
func Lookup(name string) (Format, error) {
	for _, f := range compiled {
		if strings.EqualFold(f.Name(), name) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("format %q is unsupported; compiled formats: %s", name, CompiledFormatNames())
}

// CompiledFormatNames returns a comma-separated list of registered format names.
func CompiledFormatNames() string {
	names := make([]string, len(compiled))
	for i, f := range compiled {
		names[i] = f.Name()
	}
	return strings.Join(names, ", ")
}

// CompiledFormatChart returns a chart of registered formats and their suffixes in
// priority order.
func CompiledFormatChart() string {
	var text strings.Builder
	text.WriteString("\nFormats compiled into planeio\n\n")
	writeLine := func(name, suffixes string) {
		fmt.Fprintf(&text, "%-25s   %s\n", name, suffixes)
	}
	writeLine("Name", "Suffixes")
	for _, f := range compiled {
		writeLine(f.Name(), strings.Join(f.Suffixes(), ", "))
	}
	return text.String() + "\n"
}

// Detect returns the first registered format whose probe accepts the stream.  The stream
// position is unchanged.
func Detect(s *planeio.Stream) (Format, error) {
	pos := s.Pos()
	for _, f := range compiled {
		matched := f.Probe(s)
		if err := s.Seek(pos); err != nil {
			return nil, err
		}
		if matched {
			return f, nil
		}
	}
	return nil, planeio.NewError("detect format", planeio.ErrMalformed, "%s matches none of: %s", s.Name(), CompiledFormatNames())
}

// OpenStream detects the format of s and opens it.  The returned session owns s; on error
// s is closed.
func OpenStream(s *planeio.Stream) (Session, error) {
	f, err := Detect(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	id := uuid.NewV4().String()
	timedLog := planeio.NewTimeLog()
	sess, err := f.Open(s)
	if err != nil {
		s.Close()
		return nil, planeio.WrapError(fmt.Sprintf("open %s as %s", s.Name(), f.Name()), err)
	}
	timedLog.Debugf("Opened %s as %s, session %s with %d series", s.Name(), f.Name(), id, len(sess.Metadata()))
	return &loggedSession{Session: sess, id: id, name: s.Name()}, nil
}

// Open opens the named file with the first matching format.
func Open(filename string) (Session, error) {
	s, err := planeio.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	return OpenStream(s)
}

// loggedSession tags a session's failures with its identifier.
type loggedSession struct {
	Session
	id   string
	name string
}

func (ls *loggedSession) DecodePlane(series, no int, r planeio.Rect, buf []byte) error {
	err := ls.Session.DecodePlane(series, no, r, buf)
	if err != nil {
		planeio.Debugf("Session %s (%s): series %d plane %d %s: %v\n", ls.id, ls.name, series, no, r, err)
	}
	return err
}

func (ls *loggedSession) Close() error {
	planeio.Debugf("Closing session %s (%s)\n", ls.id, ls.name)
	return ls.Session.Close()
}

// GlobalMetadata passes through to the wrapped session if it is Annotated.
func (ls *loggedSession) GlobalMetadata() map[string]interface{} {
	if a, ok := ls.Session.(Annotated); ok {
		return a.GlobalMetadata()
	}
	return nil
}

// Unwrap returns the adapter's own session.
func (ls *loggedSession) Unwrap() Session {
	return ls.Session
}
