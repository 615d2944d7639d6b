package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
	"github.com/df07/go-bvh/pkg/log"
)

var logger = log.New("loaders")

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Elements []PLYElement

	VertexCount int
	FaceCount   int
	HasNormals  bool
}

// PLYElement is one element block of the body, in file order
type PLYElement struct {
	Name  string
	Count int
	Props []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// PLYData contains the mesh loaded from a PLY file. Polygons are fan
// triangulated, so Faces always holds 3 indices per triangle.
type PLYData struct {
	Vertices []core.Vec3
	Faces    []int
	Normals  []core.Vec3 // Per-vertex normals - empty if not present
}

// TriangleCount returns the number of triangles in Faces
func (d *PLYData) TriangleCount() int {
	return len(d.Faces) / 3
}

// Store builds a primitive store from the mesh
func (d *PLYData) Store() (*geometry.Store, error) {
	return geometry.NewStoreFromIndexed(d.Vertices, d.Faces)
}

// LoadPLY loads a PLY file and returns its vertex and face data
func LoadPLY(filename string) (*PLYData, error) {
	startTime := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	logger.Infof("loaded PLY data: %d vertices, %d triangles in %v",
		len(data.Vertices), data.TriangleCount(), time.Since(startTime))
	return data, nil
}

// ReadPLY parses a PLY stream in any of the three standard encodings
func ReadPLY(r io.Reader) (*PLYData, error) {
	reader := bufio.NewReaderSize(r, 1024*1024)

	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	var values plyValueReader
	switch header.Format {
	case "binary_little_endian":
		values = &binaryValueReader{reader: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryValueReader{reader: reader, order: binary.BigEndian}
	case "ascii":
		values = newASCIIValueReader(reader)
	default:
		return nil, fmt.Errorf("unsupported PLY format: %s", header.Format)
	}

	data, err := readPLYBody(values, header)
	if err != nil {
		return nil, fmt.Errorf("failed to read PLY data: %w", err)
	}
	return data, nil
}

// parsePLYHeader reads header lines up to and including end_header, leaving
// the reader at the first byte of the body
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	var current *PLYElement
	first := true

	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("missing end_header")
			}
			return nil, fmt.Errorf("error reading header: %w", err)
		}
		line := strings.TrimSpace(raw)

		if first {
			if line != "ply" {
				return nil, fmt.Errorf("not a PLY file: magic %q", line)
			}
			first = false
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid format line: %q", line)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line: %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
			current = &header.Elements[len(header.Elements)-1]

			switch parts[1] {
			case "vertex":
				header.VertexCount = count
			case "face":
				header.FaceCount = count
			}
		case "property":
			if current == nil {
				return nil, fmt.Errorf("property before any element: %q", line)
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %w", err)
			}
			current.Props = append(current.Props, prop)
			if current.Name == "vertex" && prop.Name == "nx" {
				header.HasNormals = true
			}
		default:
			return nil, fmt.Errorf("unknown header keyword: %s", parts[0])
		}
	}

	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	prop := PLYProperty{}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
		if getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0 {
			return PLYProperty{}, fmt.Errorf("unsupported list types: %s %s", prop.ListType, prop.DataType)
		}
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
		if getTypeSize(prop.Type) == 0 {
			return PLYProperty{}, fmt.Errorf("unsupported data type: %s", prop.Type)
		}
	}

	return prop, nil
}

// maxPreallocated bounds the slice capacity reserved from header counts
const maxPreallocated = 1 << 20

// readPLYBody reads every element block in header order. Vertex positions,
// normals and face index lists are kept; everything else is skipped.
func readPLYBody(values plyValueReader, header *PLYHeader) (*PLYData, error) {
	// Header counts are untrusted; larger meshes grow past the initial capacity
	vertexCap := min(header.VertexCount, maxPreallocated)
	data := &PLYData{
		Vertices: make([]core.Vec3, 0, vertexCap),
		Faces:    make([]int, 0, min(header.FaceCount, maxPreallocated/3)*3), // Assuming triangular faces
	}
	if header.HasNormals {
		data.Normals = make([]core.Vec3, 0, vertexCap)
	}

	for _, element := range header.Elements {
		var err error
		switch element.Name {
		case "vertex":
			err = readVertices(values, element, data)
		case "face":
			err = readFaces(values, element, header.VertexCount, data)
		default:
			err = skipElement(values, element)
		}
		if err != nil {
			return nil, err
		}
	}

	return data, nil
}

func readVertices(values plyValueReader, element PLYElement, data *PLYData) error {
	for i := 0; i < element.Count; i++ {
		var position, normal [3]float64
		for _, prop := range element.Props {
			if prop.IsList {
				if err := skipList(values, prop); err != nil {
					return fmt.Errorf("failed to skip vertex property %s at vertex %d: %w", prop.Name, i, err)
				}
				continue
			}

			value, err := values.read(prop.Type)
			if err != nil {
				return fmt.Errorf("failed to read vertex property %s at vertex %d: %w", prop.Name, i, err)
			}
			switch prop.Name {
			case "x":
				position[0] = value
			case "y":
				position[1] = value
			case "z":
				position[2] = value
			case "nx":
				normal[0] = value
			case "ny":
				normal[1] = value
			case "nz":
				normal[2] = value
			}
		}

		data.Vertices = append(data.Vertices, core.NewVec3(position[0], position[1], position[2]))
		if data.Normals != nil {
			data.Normals = append(data.Normals, core.NewVec3(normal[0], normal[1], normal[2]))
		}
	}
	return nil
}

func readFaces(values plyValueReader, element PLYElement, vertexCount int, data *PLYData) error {
	var polygon []int
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Props {
			if !prop.IsList || (prop.Name != "vertex_indices" && prop.Name != "vertex_index") {
				if err := skipProperty(values, prop); err != nil {
					return fmt.Errorf("failed to skip face property %s at face %d: %w", prop.Name, i, err)
				}
				continue
			}

			count, err := values.read(prop.ListType)
			if err != nil {
				return fmt.Errorf("failed to read face vertex count at face %d: %w", i, err)
			}
			if count < 3 {
				return fmt.Errorf("face %d has %d vertices, need at least 3", i, int(count))
			}

			polygon = polygon[:0]
			for j := 0; j < int(count); j++ {
				value, err := values.read(prop.DataType)
				if err != nil {
					return fmt.Errorf("failed to read face indices at face %d: %w", i, err)
				}
				index := int(value)
				if index < 0 || index >= vertexCount {
					return fmt.Errorf("face %d references vertex %d of %d", i, index, vertexCount)
				}
				polygon = append(polygon, index)
			}

			// Fan triangulation around the first vertex
			for j := 1; j+1 < len(polygon); j++ {
				data.Faces = append(data.Faces, polygon[0], polygon[j], polygon[j+1])
			}
		}
	}
	return nil
}

func skipElement(values plyValueReader, element PLYElement) error {
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Props {
			if err := skipProperty(values, prop); err != nil {
				return fmt.Errorf("failed to skip %s property %s at %d: %w", element.Name, prop.Name, i, err)
			}
		}
	}
	return nil
}

// skipProperty reads and discards one property value or list
func skipProperty(values plyValueReader, prop PLYProperty) error {
	if prop.IsList {
		return skipList(values, prop)
	}
	_, err := values.read(prop.Type)
	return err
}

func skipList(values plyValueReader, prop PLYProperty) error {
	count, err := values.read(prop.ListType)
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err := values.read(prop.DataType); err != nil {
			return err
		}
	}
	return nil
}

// getTypeSize returns the size in bytes of a PLY data type, or 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

// plyValueReader decodes one scalar of the given PLY type from the body
type plyValueReader interface {
	read(dataType string) (float64, error)
}

type binaryValueReader struct {
	reader *bufio.Reader
	order  binary.ByteOrder
	buf    [8]byte
}

func (b *binaryValueReader) read(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("unsupported data type: %s", dataType)
	}
	buf := b.buf[:size]
	if _, err := io.ReadFull(b.reader, buf); err != nil {
		return 0, err
	}

	switch dataType {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(buf))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(buf)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(buf))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(buf)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(buf))), nil
	default:
		return math.Float64frombits(b.order.Uint64(buf)), nil
	}
}

type asciiValueReader struct {
	scanner *bufio.Scanner
}

func newASCIIValueReader(r io.Reader) *asciiValueReader {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	return &asciiValueReader{scanner: scanner}
}

func (a *asciiValueReader) read(dataType string) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	token := a.scanner.Text()
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", dataType, token)
	}
	return value, nil
}
