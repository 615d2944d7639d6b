package loaders

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/df07/go-bvh/pkg/core"
)

func TestVec3Parser(t *testing.T) {
	expError := `unsupported syntax for "v"; expected 3 arguments; got 0`
	_, err := parseVec3([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec3([]string{"v", "not-a-float", "2", "3"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec3([]string{"v", "3.14", "0", "0.4"})
	if err != nil {
		t.Fatal(err)
	}

	expVal := core.NewVec3(3.14, 0, 0.4)
	if v != expVal {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestSelectFaceCoordIndex(t *testing.T) {
	tests := []struct {
		token    string
		expected int
		fails    bool
	}{
		{"1", 0, false},
		{"4", 3, false},
		{"-1", 3, false},
		{"-4", 0, false},
		{"0", 0, true},
		{"5", 0, true},
		{"-5", 0, true},
		{"x", 0, true},
	}

	for _, tt := range tests {
		offset, err := selectFaceCoordIndex(tt.token, 4)
		if tt.fails {
			if err == nil {
				t.Errorf("token %q: expected an error, got offset %d", tt.token, offset)
			}
			continue
		}
		if err != nil || offset != tt.expected {
			t.Errorf("token %q: expected offset %d, got %d (%v)", tt.token, tt.expected, offset, err)
		}
	}
}

func TestReadOBJ(t *testing.T) {
	content := `# two groups
mtllib scene.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
vt 0 0
o empty
g square
usemtl white
f 1/1/1 2/1/1 3/1/1 4/1/1
g tri
f -4//1 -3//1 -1//1
`

	data, err := ReadOBJ(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Failed to read OBJ: %v", err)
	}

	if len(data.Vertices) != 4 {
		t.Fatalf("Expected 4 vertices, got %d", len(data.Vertices))
	}

	expFaces := []int{0, 1, 2, 0, 2, 3, 0, 1, 3}
	if !reflect.DeepEqual(data.Faces, expFaces) {
		t.Errorf("Expected faces %v, got %v", expFaces, data.Faces)
	}

	expGroups := []OBJGroup{
		{Name: "square", FirstTriangle: 0, TriangleCount: 2},
		{Name: "tri", FirstTriangle: 2, TriangleCount: 1},
	}
	if !reflect.DeepEqual(data.Groups, expGroups) {
		t.Errorf("Expected groups %+v, got %+v", expGroups, data.Groups)
	}

	store, err := data.Store()
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	if store.Len() != 3 {
		t.Errorf("Expected 3 primitives, got %d", store.Len())
	}
}

func TestReadOBJ_DefaultGroup(t *testing.T) {
	data, err := ReadOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
	if err != nil {
		t.Fatalf("Failed to read OBJ: %v", err)
	}
	if len(data.Groups) != 1 || data.Groups[0].Name != "default" || data.Groups[0].TriangleCount != 1 {
		t.Errorf("Expected a single default group, got %+v", data.Groups)
	}
}

func TestReadOBJ_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		expErr  string
	}{
		{"short vertex", "v 1 2\n", "[line 1]"},
		{"face too small", "v 0 0 0\nv 1 0 0\nf 1 2\n", "[line 3]"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n", "out of bounds"},
		{"missing vertex index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 /1\n", "does not include a vertex index"},
		{"unnamed group", "g\n", "object name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadOBJ(strings.NewReader(tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.expErr) {
				t.Errorf("Expected error containing %q, got %v", tt.expErr, err)
			}
		})
	}
}

func TestLoadOBJ(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "tri.obj")
	if err := os.WriteFile(testFile, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\nf 1 2\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := LoadOBJ(testFile)
	if err == nil || !strings.Contains(err.Error(), "tri.obj: 5]") {
		t.Errorf("Expected error naming file and line, got %v", err)
	}

	if _, err := LoadOBJ(filepath.Join(t.TempDir(), "missing.obj")); err == nil {
		t.Error("Expected error for missing file")
	}
}
