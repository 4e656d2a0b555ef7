package ifd

import "fmt"

// Tag is the integer identifier of a directory entry.
type Tag uint16

// Tags consumed by the engine.  Every other tag is kept as cosmetic metadata.
const (
	NewSubfileType            Tag = 254
	ImageWidth                Tag = 256
	ImageLength               Tag = 257
	BitsPerSample             Tag = 258
	Compression               Tag = 259
	PhotometricInterpretation Tag = 262
	FillOrder                 Tag = 266
	ImageDescription          Tag = 270
	Make                      Tag = 271
	Model                     Tag = 272
	StripOffsets              Tag = 273
	SamplesPerPixel           Tag = 277
	RowsPerStrip              Tag = 278
	StripByteCounts           Tag = 279
	XResolution               Tag = 282
	YResolution               Tag = 283
	PlanarConfiguration       Tag = 284
	ResolutionUnit            Tag = 296
	Software                  Tag = 305
	DateTime                  Tag = 306
	Artist                    Tag = 315
	Predictor                 Tag = 317
	ColorMap                  Tag = 320
	TileWidth                 Tag = 322
	TileLength                Tag = 323
	TileOffsets               Tag = 324
	TileByteCounts            Tag = 325
	SubIFDs                   Tag = 330
	ExtraSamples              Tag = 338
	SampleFormat              Tag = 339
)

var tagNames = map[Tag]string{
	NewSubfileType:            "NewSubfileType",
	ImageWidth:                "ImageWidth",
	ImageLength:               "ImageLength",
	BitsPerSample:             "BitsPerSample",
	Compression:               "Compression",
	PhotometricInterpretation: "PhotometricInterpretation",
	FillOrder:                 "FillOrder",
	ImageDescription:          "ImageDescription",
	Make:                      "Make",
	Model:                     "Model",
	StripOffsets:              "StripOffsets",
	SamplesPerPixel:           "SamplesPerPixel",
	RowsPerStrip:              "RowsPerStrip",
	StripByteCounts:           "StripByteCounts",
	XResolution:               "XResolution",
	YResolution:               "YResolution",
	PlanarConfiguration:       "PlanarConfiguration",
	ResolutionUnit:            "ResolutionUnit",
	Software:                  "Software",
	DateTime:                  "DateTime",
	Artist:                    "Artist",
	Predictor:                 "Predictor",
	ColorMap:                  "ColorMap",
	TileWidth:                 "TileWidth",
	TileLength:                "TileLength",
	TileOffsets:               "TileOffsets",
	TileByteCounts:            "TileByteCounts",
	SubIFDs:                   "SubIFDs",
	ExtraSamples:              "ExtraSamples",
	SampleFormat:              "SampleFormat",
}

func (t Tag) String() string {
	if name, found := tagNames[t]; found {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint16(t))
}

// required holds the tags whose values drive geometry, codec selection or pixel typing.
// A failure to decode one of them is fatal; failures on any other tag are logged.
var required = map[Tag]bool{
	NewSubfileType:            true,
	ImageWidth:                true,
	ImageLength:               true,
	BitsPerSample:             true,
	Compression:               true,
	PhotometricInterpretation: true,
	StripOffsets:              true,
	SamplesPerPixel:           true,
	RowsPerStrip:              true,
	StripByteCounts:           true,
	PlanarConfiguration:       true,
	Predictor:                 true,
	TileWidth:                 true,
	TileLength:                true,
	TileOffsets:               true,
	TileByteCounts:            true,
	SampleFormat:              true,
}

// DataType is the on-disk type of a directory entry's values.
type DataType uint16

const (
	DTByte      DataType = 1
	DTASCII     DataType = 2
	DTShort     DataType = 3
	DTLong      DataType = 4
	DTRational  DataType = 5
	DTSByte     DataType = 6
	DTUndefined DataType = 7
	DTSShort    DataType = 8
	DTSLong     DataType = 9
	DTSRational DataType = 10
	DTFloat     DataType = 11
	DTDouble    DataType = 12
	DTIFD       DataType = 13
	DTLong8     DataType = 16
	DTSLong8    DataType = 17
	DTIFD8      DataType = 18
)

// The length of one instance of each data type in bytes.
var lengths = map[DataType]uint64{
	DTByte:      1,
	DTASCII:     1,
	DTShort:     2,
	DTLong:      4,
	DTRational:  8,
	DTSByte:     1,
	DTUndefined: 1,
	DTSShort:    2,
	DTSLong:     4,
	DTSRational: 8,
	DTFloat:     4,
	DTDouble:    8,
	DTIFD:       4,
	DTLong8:     8,
	DTSLong8:    8,
	DTIFD8:      8,
}

// Size returns the # of bytes of one value of the type, or 0 for an unknown type.
func (dt DataType) Size() int {
	return int(lengths[dt])
}

// Values for the PhotometricInterpretation, PlanarConfiguration, SampleFormat and
// Predictor tags.
const (
	PhotometricWhiteIsZero = 0
	PhotometricBlackIsZero = 1
	PhotometricRGB         = 2
	PhotometricPalette     = 3

	PlanarChunky = 1
	PlanarPlanar = 2

	SampleUint  = 1
	SampleInt   = 2
	SampleFloat = 3

	PredictorNone       = 1
	PredictorHorizontal = 2
)
