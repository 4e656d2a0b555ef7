// Package planeio provides types, constants, and functions that have no other dependencies
// and can be used by all packages within planeio.  This includes the uniform per-series
// metadata record, pixel types, plane rectangles, the random-access stream every container
// is read through, error kinds, logging and serialization of decoded planes.
package planeio
