package tileset

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

//go:embed assets/box.glb
var boxGLB []byte

const (
	headerByteLength = 32
	magic            = 0x6d643369 // "i3dm" little-endian
	version          = 1
	gltfEmbedded     = 1
	paddingBoundary  = 8
)

// Header is the fixed 32-byte i3dm header.
type Header struct {
	Magic                        uint32
	Version                      uint32
	ByteLength                   uint32
	FeatureTableJSONByteLength   uint32
	FeatureTableBinaryByteLength uint32
	BatchTableJSONByteLength     uint32
	BatchTableBinaryByteLength   uint32
	GLTFFormat                   uint32
}

// ReadHeader decodes the header at the start of an i3dm payload.
func ReadHeader(b []byte) (Header, error) {
	if len(b) < headerByteLength {
		return Header{}, errors.New("i3dm: short header")
	}
	var h Header
	f := []*uint32{
		&h.Magic, &h.Version, &h.ByteLength,
		&h.FeatureTableJSONByteLength, &h.FeatureTableBinaryByteLength,
		&h.BatchTableJSONByteLength, &h.BatchTableBinaryByteLength,
		&h.GLTFFormat,
	}
	for i, p := range f {
		*p = binary.LittleEndian.Uint32(b[i*4:])
	}
	if h.Magic != magic {
		return Header{}, fmt.Errorf("i3dm: bad magic %#x", h.Magic)
	}
	return h, nil
}

type featureTableJSON struct {
	InstancesLength int            `json:"INSTANCES_LENGTH"`
	EastNorthUp     bool           `json:"EAST_NORTH_UP"`
	Position        binaryRef      `json:"POSITION"`
	ScaleNonUniform binaryRef      `json:"SCALE_NON_UNIFORM"`
	BatchID         typedBinaryRef `json:"BATCH_ID"`
}

type binaryRef struct {
	ByteOffset int `json:"byteOffset"`
}

type typedBinaryRef struct {
	ComponentType string `json:"componentType"`
	ByteOffset    int    `json:"byteOffset"`
}

// I3DM encodes the collection as an instanced 3D model: every cuboid is an
// instance of one embedded unit box, positioned and scaled by the feature
// table, with its metadata in the batch table. The only error is a metadata
// value that cannot be JSON encoded.
func (c *Collection) I3DM() ([]byte, error) {
	ftJSON, ftBin, err := c.featureTable()
	if err != nil {
		return nil, err
	}
	btJSON, err := c.batchTable()
	if err != nil {
		return nil, err
	}

	total := headerByteLength + len(ftJSON) + len(ftBin) + len(btJSON) + len(boxGLB)
	out := make([]byte, headerByteLength, total)
	for i, v := range []uint32{
		magic,
		version,
		uint32(total),
		uint32(len(ftJSON)),
		uint32(len(ftBin)),
		uint32(len(btJSON)),
		0, // batch table binary is never emitted
		gltfEmbedded,
	} {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	out = append(out, ftJSON...)
	out = append(out, ftBin...)
	out = append(out, btJSON...)
	out = append(out, boxGLB...)
	return out, nil
}

func (c *Collection) featureTable() (jsonPart, binPart []byte, err error) {
	n := len(c.cuboids)
	positionsOffset := 0
	scalesOffset := positionsOffset + n*12
	batchIDsOffset := scalesOffset + n*12
	binLength := batchIDsOffset + n*4

	j, err := marshalJSON(featureTableJSON{
		InstancesLength: n,
		EastNorthUp:     true,
		Position:        binaryRef{ByteOffset: positionsOffset},
		ScaleNonUniform: binaryRef{ByteOffset: scalesOffset},
		BatchID:         typedBinaryRef{ComponentType: "UNSIGNED_INT", ByteOffset: batchIDsOffset},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode feature table: %w", err)
	}

	bin := make([]byte, binLength)
	putF32 := func(off int, v float64) {
		binary.LittleEndian.PutUint32(bin[off:], math.Float32bits(float32(v)))
	}
	for i, cb := range c.cuboids {
		p := positionsOffset + i*12
		putF32(p, cb.Location.X)
		putF32(p+4, cb.Location.Y)
		putF32(p+8, cb.Location.Z)

		s := scalesOffset + i*12
		putF32(s, cb.Scale.X)
		putF32(s+4, cb.Scale.Y)
		putF32(s+8, cb.Scale.Z)

		binary.LittleEndian.PutUint32(bin[batchIDsOffset+i*4:], uint32(i))
	}

	return pad(j, ' '), pad(bin, 0x00), nil
}

// batchTable builds one column per metadata key seen on any cuboid; cuboids
// without the key hold null.
func (c *Collection) batchTable() ([]byte, error) {
	columns := make(map[string][]any)
	for i, cb := range c.cuboids {
		for k, v := range cb.Metadata {
			col, ok := columns[k]
			if !ok {
				col = make([]any, len(c.cuboids))
				columns[k] = col
			}
			col[i] = v
		}
	}

	j, err := marshalJSON(columns)
	if err != nil {
		return nil, fmt.Errorf("encode batch table: %w", err)
	}
	return pad(j, ' '), nil
}

// pad appends fill bytes until len(b) is a multiple of 8.
func pad(b []byte, fill byte) []byte {
	n := (paddingBoundary - len(b)%paddingBoundary) % paddingBoundary
	for i := 0; i < n; i++ {
		b = append(b, fill)
	}
	return b
}
