package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // Display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin", "mesh" or "heightmap"
	FilePath    string `json:"filePath"`    // Path to the file (file types only)
	Variant     string `json:"variant"`     // Variant name (optional)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete scene listing
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

const builtinGroup = "Built-in Scenes"

type builtinScene struct {
	info SceneInfo
	load func() *Scene
}

var builtinScenes = []builtinScene{
	{
		info: SceneInfo{ID: "two-triangles", Name: "Two Triangles", Description: "Two triangles either side of the origin"},
		load: NewTwoTriangleScene,
	},
	{
		info: SceneInfo{ID: "grid", Name: "Grid", Description: "Rippled 128x128 heightfield"},
		load: func() *Scene { return NewGridScene(128) },
	},
	{
		info: SceneInfo{ID: "sphere", Name: "Sphere", Description: "UV sphere with 64 rings"},
		load: func() *Scene { return NewSphereScene(64, 128) },
	},
	{
		info: SceneInfo{ID: "sphere-grid", Name: "Sphere Grid", Description: "10x10 grid of tessellated spheres"},
		load: func() *Scene { return NewSphereGridScene(10) },
	},
	{
		info: SceneInfo{ID: "random", Name: "Random Soup", Description: "100k random triangles"},
		load: func() *Scene { return NewRandomScene(100000, 1) },
	},
}

// BuiltinScenes lists the procedural scenes
func BuiltinScenes() []SceneInfo {
	scenes := make([]SceneInfo, len(builtinScenes))
	for i, b := range builtinScenes {
		info := b.info
		info.DisplayName = info.Name
		info.Group = builtinGroup
		info.Type = "builtin"
		scenes[i] = info
	}
	return scenes
}

// sceneFileType maps a file extension to the scene type that loads it
func sceneFileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ply", ".obj":
		return "mesh"
	case ".png", ".jpg", ".jpeg", ".bmp", ".tga":
		return "heightmap"
	default:
		return ""
	}
}

// ListFileScenes scans dir for meshes and heightmaps. A missing directory
// yields an empty list.
func ListFileScenes(dir string) ([]SceneInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []SceneInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}

	scenes := []SceneInfo{}
	for _, entry := range entries {
		if entry.IsDir() || sceneFileType(entry.Name()) == "" {
			continue
		}
		filePath := filepath.Join(dir, entry.Name())
		sceneInfo, err := ParseSceneMetadata(filePath)
		if err != nil {
			// Keep going; one bad file should not hide the rest
			logger.Warningf("failed to parse metadata for %s: %v", filePath, err)
			continue
		}
		scenes = append(scenes, sceneInfo)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})

	return scenes, nil
}

// ParseSceneMetadata extracts metadata from header comments: "# Key: value"
// lines at the top of an OBJ file, or "comment Key: value" lines in a PLY
// header. Heightmaps only get the fallback values.
func ParseSceneMetadata(filePath string) (SceneInfo, error) {
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))
	sceneType := sceneFileType(filePath)

	sceneInfo := SceneInfo{
		ID:          fmt.Sprintf("%s:%s", sceneType, nameWithoutExt),
		Name:        titleCase(nameWithoutExt),
		DisplayName: titleCase(nameWithoutExt),
		Group:       "Meshes",
		Type:        sceneType,
		FilePath:    filePath,
	}
	if sceneType == "heightmap" {
		sceneInfo.Group = "Heightmaps"
		return sceneInfo, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		// If we can't read the file, return with fallback values
		return sceneInfo, nil
	}
	defer file.Close()

	isPLY := strings.EqualFold(filepath.Ext(filePath), ".ply")
	scanner := bufio.NewScanner(file)
	for lineNum := 0; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())

		var content string
		if isPLY {
			if line == "end_header" {
				break
			}
			if lineNum < 2 || !strings.HasPrefix(line, "comment ") {
				continue
			}
			content = strings.TrimPrefix(line, "comment ")
		} else {
			if !strings.HasPrefix(line, "#") {
				break
			}
			content = strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}

		key, value, ok := strings.Cut(content, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Scene":
			sceneInfo.Name = value
		case "Variant":
			sceneInfo.Variant = value
		case "Description":
			sceneInfo.Description = value
		case "Group":
			sceneInfo.Group = value
		}
	}

	if sceneInfo.Variant != "" {
		sceneInfo.DisplayName = fmt.Sprintf("%s - %s", sceneInfo.Name, sceneInfo.Variant)
	} else {
		sceneInfo.DisplayName = sceneInfo.Name
	}

	return sceneInfo, scanner.Err()
}

// ListAllScenes returns built-in scenes and the scenes found in dir, grouped
// by category with the built-in group first
func ListAllScenes(dir string) (ScenesResponse, error) {
	var response ScenesResponse

	fileScenes, err := ListFileScenes(dir)
	if err != nil {
		return response, fmt.Errorf("failed to list file scenes: %w", err)
	}

	allScenes := append(BuiltinScenes(), fileScenes...)

	groupMap := make(map[string][]SceneInfo)
	for _, scene := range allScenes {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtinGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	response.Groups = append(response.Groups, SceneGroup{
		Name:   builtinGroup,
		Scenes: groupMap[builtinGroup],
	})
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   groupName,
			Scenes: groupMap[groupName],
		})
	}

	return response, nil
}

// Load resolves ref to a scene: a built-in scene ID, or a path to a mesh or
// heightmap file
func Load(ref string) (*Scene, error) {
	for _, b := range builtinScenes {
		if b.info.ID == ref {
			return b.load(), nil
		}
	}

	switch sceneFileType(ref) {
	case "mesh":
		return NewMeshScene(ref)
	case "heightmap":
		return NewHeightmapScene(ref, 512, 0.3)
	default:
		return nil, fmt.Errorf("unknown scene %q", ref)
	}
}

// titleCase converts a filename-style string to title case
// e.g., "stanford-bunny" -> "Stanford Bunny"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
