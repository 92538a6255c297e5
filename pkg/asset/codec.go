package asset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"

	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// Bundle file errors.
var (
	ErrInvalidMagic       = errors.New("invalid bundle magic: expected 'MCLA'")
	ErrUnsupportedVersion = errors.New("unsupported bundle version")
	ErrTruncated          = errors.New("truncated bundle data")
)

const (
	// Magic identifies a bundle file.
	Magic = "MCLA"
	// Version is the bundle format written by Encode.
	Version uint16 = 1

	// magic, version, reserved, hash, payload length
	headerSize = 4 + 2 + 2 + 8 + 4
)

// Section flags of the constraint graph.
const (
	sectionDistance uint8 = 1 << iota
	sectionClampDistance
	sectionRotation
	sectionTriangleBend
	sectionPenetration
)

// DataHash returns the FNV-1a hash of an encoded payload.
func DataHash(payload []byte) uint64 {
	h := fnv.New64a()
	h.Write(payload)
	return h.Sum64()
}

// Encode serializes a bundle and sets its Hash.
func Encode(b *Bundle) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}

	payload := encodePayload(b)
	b.Hash = DataHash(payload)

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(payload)))
	buf.WriteString(Magic)
	binary.Write(buf, binary.LittleEndian, Version)
	binary.Write(buf, binary.LittleEndian, uint16(0))
	binary.Write(buf, binary.LittleEndian, b.Hash)
	binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Write encodes a bundle to w.
func Write(w io.Writer, b *Bundle) error {
	data, err := Encode(b)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes a bundle to disk.
func WriteFile(path string, b *Bundle) error {
	data, err := Encode(b)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing bundle file: %w", err)
	}
	return nil
}

// Decode parses a bundle from raw bytes. A payload whose hash does not match
// the header is rejected with topology.CodeInvalidDataHash.
func Decode(data []byte) (*Bundle, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != Magic {
		return nil, ErrInvalidMagic
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	hash := binary.LittleEndian.Uint64(data[8:16])
	size := binary.LittleEndian.Uint32(data[16:20])
	if uint64(len(data)-headerSize) < uint64(size) {
		return nil, fmt.Errorf("%w: payload %d bytes, have %d", ErrTruncated, size, len(data)-headerSize)
	}

	payload := data[headerSize : headerSize+int(size)]
	if got := DataHash(payload); got != hash {
		return nil, topology.NewBuildError(topology.CodeInvalidDataHash, "header %016x payload %016x", hash, got)
	}

	b, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}
	b.Hash = hash
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return b, nil
}

// ReadFile parses a bundle file from disk.
func ReadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle file: %w", err)
	}
	return Decode(data)
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) put(v any) {
	binary.Write(&e.buf, binary.LittleEndian, v)
}

func (e *encoder) count(n int) {
	e.put(uint32(n))
}

func putSlice[T any](e *encoder, s []T) {
	e.count(len(s))
	if len(s) > 0 {
		e.put(s)
	}
}

func encodePayload(b *Bundle) []byte {
	e := &encoder{}
	e.put(uint16(len(b.Name)))
	e.buf.WriteString(b.Name)
	e.put(b.SourceVertexCount)
	putSlice(e, b.UsedVertices)
	putSlice(e, b.Vertices)
	putSlice(e, b.Positions)
	putSlice(e, b.Normals)
	putSlice(e, b.Tangents)
	e.put(b.MaxLevel)
	putSlice(e, b.Lines)
	putSlice(e, b.Triangles)

	c := b.Constraints
	e.put(int32(c.VertexCount))
	var flags uint8
	if c.Distance != nil {
		flags |= sectionDistance
	}
	if c.ClampDistance != nil {
		flags |= sectionClampDistance
	}
	if c.Rotation != nil {
		flags |= sectionRotation
	}
	if c.TriangleBend != nil {
		flags |= sectionTriangleBend
	}
	if c.Penetration != nil {
		flags |= sectionPenetration
	}
	e.put(flags)

	if c.Distance != nil {
		putSlice(e, c.Distance.Refs)
		putSlice(e, c.Distance.Records)
	}
	if c.ClampDistance != nil {
		putSlice(e, c.ClampDistance)
	}
	if c.Rotation != nil {
		putSlice(e, c.Rotation.Records)
		putSlice(e, c.Rotation.Lines)
		putSlice(e, c.Rotation.LineData)
	}
	if c.TriangleBend != nil {
		putSlice(e, c.TriangleBend.Records)
		putSlice(e, c.TriangleBend.Refs)
		putSlice(e, c.TriangleBend.Slots)
	}
	if c.Penetration != nil {
		e.put(uint8(c.Penetration.Mode))
		putSlice(e, c.Penetration.Refs)
		putSlice(e, c.Penetration.Records)
	}
	return e.buf.Bytes()
}

// decoder reads little-endian values and keeps the first error.
type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) get(what string, v any) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
		d.err = fmt.Errorf("%w: reading %s", ErrTruncated, what)
	}
}

// count reads an element count and checks that the remaining data can hold
// it, so a corrupt count cannot trigger a huge allocation.
func (d *decoder) count(what string, elemSize int) int {
	var n uint32
	d.get(what+" count", &n)
	if d.err != nil {
		return 0
	}
	if uint64(n)*uint64(elemSize) > uint64(d.r.Len()) {
		d.err = fmt.Errorf("%w: %s count %d exceeds remaining %d bytes", ErrTruncated, what, n, d.r.Len())
		return 0
	}
	return int(n)
}

func getSlice[T any](d *decoder, what string) []T {
	var zero T
	n := d.count(what, binary.Size(zero))
	if d.err != nil {
		return nil
	}
	s := make([]T, n)
	if n > 0 {
		d.get(what, s)
	}
	return s
}

func decodePayload(payload []byte) (*Bundle, error) {
	d := &decoder{r: bytes.NewReader(payload)}
	b := &Bundle{}

	var nameLen uint16
	d.get("name length", &nameLen)
	if d.err == nil {
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(d.r, name); err != nil {
			d.err = fmt.Errorf("%w: reading name", ErrTruncated)
		}
		b.Name = string(name)
	}
	d.get("source vertex count", &b.SourceVertexCount)
	b.UsedVertices = getSlice[int32](d, "used vertices")
	b.Vertices = getSlice[topology.Vertex](d, "vertices")
	b.Positions = getSlice[math.Vec3](d, "positions")
	b.Normals = getSlice[math.Vec3](d, "normals")
	b.Tangents = getSlice[math.Vec3](d, "tangents")
	d.get("max level", &b.MaxLevel)
	b.Lines = getSlice[[2]int32](d, "lines")
	b.Triangles = getSlice[[3]int32](d, "triangles")

	c := &constraint.Data{}
	var vertexCount int32
	var flags uint8
	d.get("constraint vertex count", &vertexCount)
	d.get("section flags", &flags)
	c.VertexCount = int(vertexCount)

	if flags&sectionDistance != 0 {
		c.Distance = &constraint.DistanceData{
			Refs:    getSlice[constraint.Ref](d, "distance refs"),
			Records: getSlice[constraint.DistanceRecord](d, "distance records"),
		}
	}
	if flags&sectionClampDistance != 0 {
		c.ClampDistance = getSlice[constraint.ClampDistanceRecord](d, "clamp distance")
	}
	if flags&sectionRotation != 0 {
		c.Rotation = &constraint.RotationData{
			Records:  getSlice[constraint.RotationRecord](d, "rotation records"),
			Lines:    getSlice[constraint.Ref](d, "rotation lines"),
			LineData: getSlice[int32](d, "rotation line data"),
		}
	}
	if flags&sectionTriangleBend != 0 {
		c.TriangleBend = &constraint.TriangleBendData{
			Records: getSlice[constraint.TriangleBendRecord](d, "triangle bend records"),
			Refs:    getSlice[constraint.Ref](d, "triangle bend refs"),
			Slots:   getSlice[int32](d, "triangle bend slots"),
		}
	}
	if flags&sectionPenetration != 0 {
		var mode uint8
		d.get("penetration mode", &mode)
		c.Penetration = &constraint.PenetrationData{
			Mode:    constraint.PenetrationMode(mode),
			Refs:    getSlice[constraint.Ref](d, "penetration refs"),
			Records: getSlice[constraint.PenetrationRecord](d, "penetration records"),
		}
	}

	if d.err != nil {
		return nil, d.err
	}
	b.Constraints = c
	return b, nil
}
