package loaders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/radiant-render/radiant/pkg/core"
)

// OBJData is a loaded OBJ model: the mesh plus any diffuse texture map named
// by its material library
type OBJData struct {
	Mesh       *MeshData
	DiffuseMap string // path from map_Kd, empty when absent
}

// LoadOBJ reads a Wavefront OBJ with v, vn, vt, and f records. Faces may be
// triangles or quads; quads are triangulated. A mtllib reference is followed
// only to pick up a diffuse texture (map_Kd).
func LoadOBJ(path string) (*OBJData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, core.IOErrorf("opening obj %q", path)
	}
	defer file.Close()

	var positions []core.Vec3
	var normals []core.Vec3
	var uvs []core.Vec2
	data := &OBJData{Mesh: &MeshData{}}

	// OBJ indexes positions, normals, and uvs independently; the mesh wants
	// one index stream, so unique combinations become new vertices
	type vertexKey struct{ v, vt, vn int }
	remap := make(map[vertexKey]int)

	resolve := func(key vertexKey) (int, error) {
		if idx, ok := remap[key]; ok {
			return idx, nil
		}
		if key.v < 1 || key.v > len(positions) {
			return 0, core.IOErrorf("obj vertex index %d out of range", key.v)
		}
		idx := len(data.Mesh.Positions)
		data.Mesh.Positions = append(data.Mesh.Positions, positions[key.v-1])
		if key.vn >= 1 && key.vn <= len(normals) {
			data.Mesh.Normals = append(data.Mesh.Normals, normals[key.vn-1])
		}
		if key.vt >= 1 && key.vt <= len(uvs) {
			data.Mesh.UVs = append(data.Mesh.UVs, uvs[key.vt-1])
		}
		remap[key] = idx
		return idx, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			vec, err := parseVec3(fields[1:])
			if err != nil {
				return nil, core.IOErrorf("obj %q line %d: bad vertex", path, lineNum)
			}
			positions = append(positions, vec)
		case "vn":
			vec, err := parseVec3(fields[1:])
			if err != nil {
				return nil, core.IOErrorf("obj %q line %d: bad normal", path, lineNum)
			}
			normals = append(normals, vec)
		case "vt":
			if len(fields) < 3 {
				return nil, core.IOErrorf("obj %q line %d: bad texcoord", path, lineNum)
			}
			u, err1 := strconv.ParseFloat(fields[1], 64)
			v, err2 := strconv.ParseFloat(fields[2], 64)
			if err1 != nil || err2 != nil {
				return nil, core.IOErrorf("obj %q line %d: bad texcoord", path, lineNum)
			}
			uvs = append(uvs, core.NewVec2(u, v))
		case "f":
			verts := fields[1:]
			if len(verts) < 3 || len(verts) > 4 {
				return nil, core.IOErrorf("obj %q line %d: face with %d vertices", path, lineNum, len(verts))
			}
			indices := make([]int, len(verts))
			for i, vert := range verts {
				key, err := parseFaceVertex(vert)
				if err != nil {
					return nil, core.IOErrorf("obj %q line %d: %v", path, lineNum, err)
				}
				idx, err := resolve(vertexKey{v: key[0], vt: key[1], vn: key[2]})
				if err != nil {
					return nil, err
				}
				indices[i] = idx
			}
			data.Mesh.Indices = append(data.Mesh.Indices, indices[0], indices[1], indices[2])
			if len(indices) == 4 {
				data.Mesh.Indices = append(data.Mesh.Indices, indices[0], indices[2], indices[3])
			}
		case "mtllib":
			if len(fields) >= 2 {
				mtlPath := filepath.Join(filepath.Dir(path), fields[1])
				if diffuse, err := parseMTLDiffuseMap(mtlPath); err == nil && diffuse != "" {
					data.DiffuseMap = filepath.Join(filepath.Dir(path), diffuse)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, core.IOErrorf("reading obj %q", path)
	}
	return data, nil
}

// parseVec3 parses three floats
func parseVec3(fields []string) (core.Vec3, error) {
	if len(fields) < 3 {
		return core.Vec3{}, fmt.Errorf("need 3 components")
	}
	x, err1 := strconv.ParseFloat(fields[0], 64)
	y, err2 := strconv.ParseFloat(fields[1], 64)
	z, err3 := strconv.ParseFloat(fields[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return core.Vec3{}, fmt.Errorf("bad float")
	}
	return core.NewVec3(x, y, z), nil
}

// parseFaceVertex parses a face vertex reference v, v/vt, v//vn, or v/vt/vn
func parseFaceVertex(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return out, fmt.Errorf("bad face vertex %q", s)
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("bad face index %q", p)
		}
		out[i] = v
	}
	return out, nil
}

// parseMTLDiffuseMap scans a material library for the first map_Kd entry
func parseMTLDiffuseMap(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "map_Kd" {
			return fields[1], nil
		}
	}
	return "", scanner.Err()
}

// WriteOBJ exports a mesh as a Wavefront OBJ file
func WriteOBJ(path string, mesh *MeshData) error {
	file, err := os.Create(path)
	if err != nil {
		return core.IOErrorf("creating obj %q", path)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, p := range mesh.Positions {
		fmt.Fprintf(w, "v %g %g %g\n", p.X, p.Y, p.Z)
	}
	for _, uv := range mesh.UVs {
		fmt.Fprintf(w, "vt %g %g\n", uv.X, uv.Y)
	}
	for _, n := range mesh.Normals {
		fmt.Fprintf(w, "vn %g %g %g\n", n.X, n.Y, n.Z)
	}

	hasUVs := len(mesh.UVs) > 0
	hasNormals := len(mesh.Normals) > 0
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		a, b, c := mesh.Indices[i]+1, mesh.Indices[i+1]+1, mesh.Indices[i+2]+1
		switch {
		case hasUVs && hasNormals:
			fmt.Fprintf(w, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
		case hasNormals:
			fmt.Fprintf(w, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		case hasUVs:
			fmt.Fprintf(w, "f %d/%d %d/%d %d/%d\n", a, a, b, b, c, c)
		default:
			fmt.Fprintf(w, "f %d %d %d\n", a, b, c)
		}
	}
	return w.Flush()
}
