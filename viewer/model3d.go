package viewer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

// UnitBounds is reported for models without geometry.
var UnitBounds = Bounds{Min: [3]float32{0, 0, 0}, Max: [3]float32{1, 1, 1}}

// Model3D is flat geometry for the 3D viewer: xyz triples in Vertices and
// Normals, triangle corners in Indices.
type Model3D struct {
	FilePath string    `json:"filePath"`
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals,omitempty"`
	Indices  []uint32  `json:"indices,omitempty"`
	Bounds   Bounds    `json:"bounds"`
}

// Triangles returns the number of triangles in the model.
func (m *Model3D) Triangles() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Vertices) / 9
}

// Load3DModel reads an STL, OBJ or STEP file. STEP geometry is not
// tessellated; the model comes back empty with unit bounds.
func Load3DModel(path string) (*Model3D, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	var (
		model *Model3D
		err   error
	)
	switch e := ext(path); e {
	case "stl":
		model, err = loadSTL(path)
	case "obj":
		model, err = loadOBJ(path)
	case "step", "stp":
		model = &Model3D{Vertices: []float32{}}
	default:
		return nil, fmt.Errorf("unsupported 3D model format: %s: %w", e, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	model.FilePath = path
	model.Bounds = computeBounds(model.Vertices)
	return model, nil
}

func computeBounds(vertices []float32) Bounds {
	if len(vertices) < 3 {
		return UnitBounds
	}
	b := Bounds{
		Min: [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for i := 0; i+2 < len(vertices); i += 3 {
		for axis := 0; axis < 3; axis++ {
			v := vertices[i+axis]
			b.Min[axis] = min(b.Min[axis], v)
			b.Max[axis] = max(b.Max[axis], v)
		}
	}
	return b
}

const (
	stlHeaderLen   = 80
	stlTriangleLen = 50
)

func loadSTL(path string) (*Model3D, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isBinarySTL(data) {
		return parseBinarySTL(data)
	}
	return parseASCIISTL(data)
}

// isBinarySTL checks the triangle count against the file length; some
// binary exporters also start their header with "solid".
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderLen+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderLen:])
	return uint64(len(data)) == uint64(stlHeaderLen+4)+uint64(count)*stlTriangleLen
}

func parseBinarySTL(data []byte) (*Model3D, error) {
	count := int(binary.LittleEndian.Uint32(data[stlHeaderLen:]))
	model := &Model3D{
		Vertices: make([]float32, 0, count*9),
		Normals:  make([]float32, 0, count*9),
	}
	off := stlHeaderLen + 4
	for i := 0; i < count; i++ {
		tri := data[off : off+stlTriangleLen]
		normal := readVec(tri[0:12])
		for v := 0; v < 3; v++ {
			model.Vertices = append(model.Vertices, readVec(tri[12+v*12:24+v*12])...)
			model.Normals = append(model.Normals, normal...)
		}
		off += stlTriangleLen
	}
	return model, nil
}

func readVec(b []byte) []float32 {
	return []float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func parseASCIISTL(data []byte) (*Model3D, error) {
	model := &Model3D{Vertices: []float32{}}
	var normal []float32
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parseFloats(fields[2:5])
				if err != nil {
					return nil, fmt.Errorf("stl line %d: %w", line, err)
				}
				normal = n
			}
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("stl line %d: vertex needs 3 coordinates", line)
			}
			v, err := parseFloats(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("stl line %d: %w", line, err)
			}
			model.Vertices = append(model.Vertices, v...)
			if normal != nil {
				model.Normals = append(model.Normals, normal...)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(model.Normals) != len(model.Vertices) {
		model.Normals = nil
	}
	return model, nil
}

// loadOBJ reads vertex positions and faces. Polygons are fan-triangulated;
// negative indices count back from the last vertex.
func loadOBJ(path string) (*Model3D, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	model := &Model3D{Vertices: []float32{}}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: vertex needs 3 coordinates", line)
			}
			v, err := parseFloats(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", line, err)
			}
			model.Vertices = append(model.Vertices, v...)
		case "f":
			count := len(model.Vertices) / 3
			corners := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := objIndex(ref, count)
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				corners = append(corners, idx)
			}
			for i := 1; i+1 < len(corners); i++ {
				model.Indices = append(model.Indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return model, nil
}

// objIndex resolves a face reference like "3", "3/1/2" or "-1" to a
// zero-based vertex index.
func objIndex(ref string, count int) (uint32, error) {
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		ref = ref[:i]
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", ref)
	}
	if n < 0 {
		n = count + n + 1
	}
	if n < 1 || n > count {
		return 0, fmt.Errorf("face index %s out of range", ref)
	}
	return uint32(n - 1), nil
}

func parseFloats(fields []string) ([]float32, error) {
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out[i] = float32(v)
	}
	return out, nil
}
