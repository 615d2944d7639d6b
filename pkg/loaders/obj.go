package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

// OBJGroup is a named run of triangles started by a "g" or "o" statement
type OBJGroup struct {
	Name          string
	FirstTriangle int
	TriangleCount int
}

// OBJData contains the mesh loaded from a Wavefront OBJ file. Polygons are
// fan triangulated, so Faces always holds 3 vertex indices per triangle.
type OBJData struct {
	Vertices []core.Vec3
	Faces    []int
	Groups   []OBJGroup
}

// TriangleCount returns the number of triangles in Faces
func (d *OBJData) TriangleCount() int {
	return len(d.Faces) / 3
}

// Store builds a primitive store from the mesh
func (d *OBJData) Store() (*geometry.Store, error) {
	return geometry.NewStoreFromIndexed(d.Vertices, d.Faces)
}

// LoadOBJ loads a Wavefront OBJ file. Only geometry is read; materials,
// texture coordinates and normals are skipped.
func LoadOBJ(filename string) (*OBJData, error) {
	startTime := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open OBJ file: %w", err)
	}
	defer file.Close()

	data, err := readOBJ(file, filename)
	if err != nil {
		return nil, err
	}

	logger.Infof("loaded OBJ data: %d vertices, %d triangles, %d groups in %v",
		len(data.Vertices), data.TriangleCount(), len(data.Groups), time.Since(startTime))
	return data, nil
}

// ReadOBJ parses an OBJ stream
func ReadOBJ(r io.Reader) (*OBJData, error) {
	return readOBJ(r, "")
}

func readOBJ(r io.Reader, name string) (*OBJData, error) {
	data := &OBJData{}
	lineNum := 0

	emitError := func(format string, args ...interface{}) error {
		msg := fmt.Sprintf(format, args...)
		if name != "" {
			return fmt.Errorf("[%s: %d] %s", name, lineNum, msg)
		}
		return fmt.Errorf("[line %d] %s", lineNum, msg)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var polygon []int

	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return nil, emitError("%v", err)
			}
			data.Vertices = append(data.Vertices, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return nil, emitError(`unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			data.dropEmptyGroup()
			data.Groups = append(data.Groups, OBJGroup{Name: lineTokens[1], FirstTriangle: data.TriangleCount()})
		case "f":
			if len(lineTokens) < 4 {
				return nil, emitError(`unsupported syntax for "f"; expected at least 3 vertices; got %d`, len(lineTokens)-1)
			}

			polygon = polygon[:0]
			for arg, token := range lineTokens[1:] {
				vTokens := strings.Split(token, "/")
				if vTokens[0] == "" {
					return nil, emitError("face argument %d does not include a vertex index", arg)
				}
				index, err := selectFaceCoordIndex(vTokens[0], len(data.Vertices))
				if err != nil {
					return nil, emitError("could not parse vertex coord for face argument %d: %v", arg, err)
				}
				polygon = append(polygon, index)
			}

			if len(data.Groups) == 0 {
				data.Groups = append(data.Groups, OBJGroup{Name: "default"})
			}
			for j := 1; j+1 < len(polygon); j++ {
				data.Faces = append(data.Faces, polygon[0], polygon[j], polygon[j+1])
			}
			data.Groups[len(data.Groups)-1].TriangleCount += len(polygon) - 2
		default:
			// vn, vt, usemtl, mtllib, s, l, ...
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read OBJ data: %w", err)
	}

	data.dropEmptyGroup()
	return data, nil
}

// dropEmptyGroup removes the last group if it received no faces
func (d *OBJData) dropEmptyGroup() {
	last := len(d.Groups) - 1
	if last >= 0 && d.Groups[last].TriangleCount == 0 {
		logger.Warningf(`dropping group "%s" as it contains no polygons`, d.Groups[last].Name)
		d.Groups = d.Groups[:last]
	}
}

// selectFaceCoordIndex converts a 1-based (or negative, counted from the end)
// OBJ index into an offset into a list of coordListLen entries.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	if index < 0 {
		offset = coordListLen + int(index)
	} else {
		offset = int(index - 1)
	}
	if offset < 0 || offset >= coordListLen {
		return -1, fmt.Errorf("index %d out of bounds", index)
	}
	return offset, nil
}

// parseVec3 parses the three coordinates following a keyword
func parseVec3(lineTokens []string) (core.Vec3, error) {
	if len(lineTokens) < 4 {
		return core.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	var coords [3]float64
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 64)
		if err != nil {
			return core.Vec3{}, err
		}
		coords[tokIdx-1] = coord
	}
	return core.NewVec3(coords[0], coords[1], coords[2]), nil
}
