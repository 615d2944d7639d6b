package server

import (
	"net/http"
	"strconv"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/renderer"
)

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	Hit       bool          `json:"hit"`
	Primitive uint32        `json:"primitive"`
	Distance  float64       `json:"distance"`
	U         float64       `json:"u"`
	V         float64       `json:"v"`
	Point     [3]float64    `json:"point"`
	Normal    [3]float64    `json:"normal"`
	Vertices  [3][3]float64 `json:"vertices"`
}

func toArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// inspectPixel casts the ray through the center of pixel (x, y) and
// describes the closest hit
func inspectPixel(entry *cachedTree, width, height, x, y int) InspectResponse {
	cameraConfig := entry.scene.CameraConfig
	cameraConfig.AspectRatio = float64(width) / float64(height)
	camera := renderer.NewCamera(cameraConfig)

	ray := camera.GetPixelRay(x, y, width, height)
	if !entry.tree.IntersectClosest(&ray) {
		return InspectResponse{Hit: false, Primitive: core.NoPrimitive, Distance: ray.Hit.T}
	}

	tri := entry.scene.Store.Triangle(int(ray.Hit.Prim))
	normal := tri.Normal()
	if normal.Dot(ray.Direction) > 0 {
		normal = normal.Negate()
	}

	return InspectResponse{
		Hit:       true,
		Primitive: ray.Hit.Prim,
		Distance:  ray.Hit.T,
		U:         ray.Hit.U,
		V:         ray.Hit.V,
		Point:     toArray(ray.At(ray.Hit.T)),
		Normal:    toArray(normal),
		Vertices:  [3][3]float64{toArray(tri.V0), toArray(tri.V1), toArray(tri.V2)},
	}
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	pixelX, err := strconv.Atoi(r.URL.Query().Get("x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(r.URL.Query().Get("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}
	if pixelX < 0 || pixelX >= req.Width || pixelY < 0 || pixelY >= req.Height {
		writeError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}

	entry, _, ok := s.requestTree(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, inspectPixel(entry, req.Width, req.Height, pixelX, pixelY))
}
