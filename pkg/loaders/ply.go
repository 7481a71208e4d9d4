package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
)

// plyProperty describes one vertex property from the header
type plyProperty struct {
	name     string
	dataType string
	isList   bool
	listType string
}

// plyHeader is the parsed PLY header
type plyHeader struct {
	format      string
	vertexCount int
	faceCount   int
	vertexProps []plyProperty
	faceProps   []plyProperty
}

// MeshData is a loaded indexed triangle mesh
type MeshData struct {
	Positions []core.Vec3
	Normals   []core.Vec3
	UVs       []core.Vec2
	Indices   []int
}

// Mesh converts the data to a TriangleMesh under the given transform
func (m *MeshData) Mesh(objectToWorld core.Transform) *geometry.TriangleMesh {
	return geometry.NewTriangleMesh(objectToWorld, m.Positions, m.Normals, m.UVs, m.Indices)
}

// LoadPLY reads a binary little-endian (or ascii) PLY mesh with positions,
// optional per-vertex normals and uvs, and triangle or quad faces. Quads are
// triangulated as {0,1,2}, {0,2,3}.
func LoadPLY(path string) (*MeshData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, core.IOErrorf("opening ply %q", path)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, errors.Wrapf(core.ErrIO, "parsing ply header of %q: %v", path, err)
	}

	switch header.format {
	case "binary_little_endian":
		return readPLYBinary(reader, header)
	case "ascii":
		return readPLYASCII(reader, header)
	default:
		return nil, core.IOErrorf("unsupported ply format %q in %q", header.format, path)
	}
}

// parsePLYHeader consumes the header up to end_header
func parsePLYHeader(reader *bufio.Reader) (*plyHeader, error) {
	magic, err := reader.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("missing ply magic")
	}

	header := &plyHeader{}
	currentElement := ""
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("unterminated header")
		}
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "comment":
		case "format":
			if len(parts) < 2 {
				return nil, fmt.Errorf("malformed format line")
			}
			header.format = parts[1]
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("malformed element line")
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("bad element count %q", parts[2])
			}
			currentElement = parts[1]
			switch currentElement {
			case "vertex":
				header.vertexCount = count
			case "face":
				header.faceCount = count
			}
		case "property":
			prop, err := parsePLYProperty(parts)
			if err != nil {
				return nil, err
			}
			switch currentElement {
			case "vertex":
				header.vertexProps = append(header.vertexProps, prop)
			case "face":
				header.faceProps = append(header.faceProps, prop)
			}
		case "end_header":
			return header, nil
		}
	}
}

// parsePLYProperty parses one property line
func parsePLYProperty(parts []string) (plyProperty, error) {
	if len(parts) >= 5 && parts[1] == "list" {
		return plyProperty{
			name:     parts[4],
			dataType: parts[3],
			isList:   true,
			listType: parts[2],
		}, nil
	}
	if len(parts) >= 3 {
		return plyProperty{name: parts[2], dataType: parts[1]}, nil
	}
	return plyProperty{}, fmt.Errorf("malformed property line %q", strings.Join(parts, " "))
}

// typeSize returns a PLY scalar type's byte width
func typeSize(dataType string) int {
	switch dataType {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "int32", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}

// readScalar reads one scalar of the given type as float64
func readScalar(r io.Reader, dataType string) (float64, error) {
	switch dataType {
	case "char", "int8":
		var v int8
		err := binary.Read(r, binary.LittleEndian, &v)
		return float64(v), err
	case "uchar", "uint8":
		var v uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return float64(v), err
	case "short", "int16":
		var v int16
		err := binary.Read(r, binary.LittleEndian, &v)
		return float64(v), err
	case "ushort", "uint16":
		var v uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return float64(v), err
	case "int", "int32":
		var v int32
		err := binary.Read(r, binary.LittleEndian, &v)
		return float64(v), err
	case "uint", "uint32":
		var v uint32
		err := binary.Read(r, binary.LittleEndian, &v)
		return float64(v), err
	case "float", "float32":
		var v float32
		err := binary.Read(r, binary.LittleEndian, &v)
		return float64(v), err
	case "double", "float64":
		var v float64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	}
	return 0, fmt.Errorf("unknown ply type %q", dataType)
}

// readPLYBinary reads binary little-endian vertex and face data
func readPLYBinary(reader *bufio.Reader, header *plyHeader) (*MeshData, error) {
	mesh := &MeshData{}
	hasNormals := false
	hasUVs := false
	for _, p := range header.vertexProps {
		switch p.name {
		case "nx":
			hasNormals = true
		case "u", "s", "texture_u":
			hasUVs = true
		}
	}

	for i := 0; i < header.vertexCount; i++ {
		var pos, normal core.Vec3
		var uv core.Vec2
		for _, prop := range header.vertexProps {
			v, err := readScalar(reader, prop.dataType)
			if err != nil {
				return nil, core.IOErrorf("truncated ply vertex %d", i)
			}
			switch prop.name {
			case "x":
				pos.X = v
			case "y":
				pos.Y = v
			case "z":
				pos.Z = v
			case "nx":
				normal.X = v
			case "ny":
				normal.Y = v
			case "nz":
				normal.Z = v
			case "u", "s", "texture_u":
				uv.X = v
			case "v", "t", "texture_v":
				uv.Y = v
			}
		}
		mesh.Positions = append(mesh.Positions, pos)
		if hasNormals {
			mesh.Normals = append(mesh.Normals, normal)
		}
		if hasUVs {
			mesh.UVs = append(mesh.UVs, uv)
		}
	}

	for i := 0; i < header.faceCount; i++ {
		for _, prop := range header.faceProps {
			if !prop.isList {
				if _, err := readScalar(reader, prop.dataType); err != nil {
					return nil, core.IOErrorf("truncated ply face %d", i)
				}
				continue
			}
			countF, err := readScalar(reader, prop.listType)
			if err != nil {
				return nil, core.IOErrorf("truncated ply face %d", i)
			}
			count := int(countF)
			indices := make([]int, count)
			for j := 0; j < count; j++ {
				idxF, err := readScalar(reader, prop.dataType)
				if err != nil {
					return nil, core.IOErrorf("truncated ply face %d", i)
				}
				indices[j] = int(idxF)
			}
			if prop.name == "vertex_indices" || prop.name == "vertex_index" {
				if err := mesh.appendFace(indices); err != nil {
					return nil, err
				}
			}
		}
	}
	return mesh, nil
}

// readPLYASCII reads whitespace-separated vertex and face data
func readPLYASCII(reader *bufio.Reader, header *plyHeader) (*MeshData, error) {
	mesh := &MeshData{}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	hasNormals := false
	hasUVs := false
	for _, p := range header.vertexProps {
		switch p.name {
		case "nx":
			hasNormals = true
		case "u", "s":
			hasUVs = true
		}
	}

	readFields := func() ([]float64, error) {
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			values := make([]float64, len(fields))
			for i, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, err
				}
				values[i] = v
			}
			return values, nil
		}
		return nil, io.ErrUnexpectedEOF
	}

	for i := 0; i < header.vertexCount; i++ {
		values, err := readFields()
		if err != nil || len(values) < len(header.vertexProps) {
			return nil, core.IOErrorf("truncated ply vertex %d", i)
		}
		var pos, normal core.Vec3
		var uv core.Vec2
		for j, prop := range header.vertexProps {
			switch prop.name {
			case "x":
				pos.X = values[j]
			case "y":
				pos.Y = values[j]
			case "z":
				pos.Z = values[j]
			case "nx":
				normal.X = values[j]
			case "ny":
				normal.Y = values[j]
			case "nz":
				normal.Z = values[j]
			case "u", "s":
				uv.X = values[j]
			case "v", "t":
				uv.Y = values[j]
			}
		}
		mesh.Positions = append(mesh.Positions, pos)
		if hasNormals {
			mesh.Normals = append(mesh.Normals, normal)
		}
		if hasUVs {
			mesh.UVs = append(mesh.UVs, uv)
		}
	}

	for i := 0; i < header.faceCount; i++ {
		values, err := readFields()
		if err != nil || len(values) < 1 {
			return nil, core.IOErrorf("truncated ply face %d", i)
		}
		count := int(values[0])
		if len(values) < 1+count {
			return nil, core.IOErrorf("short ply face %d", i)
		}
		indices := make([]int, count)
		for j := 0; j < count; j++ {
			indices[j] = int(values[1+j])
		}
		if err := mesh.appendFace(indices); err != nil {
			return nil, err
		}
	}
	return mesh, nil
}

// appendFace triangulates a face into the index list
func (m *MeshData) appendFace(indices []int) error {
	switch len(indices) {
	case 3:
		m.Indices = append(m.Indices, indices[0], indices[1], indices[2])
	case 4:
		m.Indices = append(m.Indices, indices[0], indices[1], indices[2])
		m.Indices = append(m.Indices, indices[0], indices[2], indices[3])
	default:
		return core.IOErrorf("face with %d vertices (triangles and quads only)", len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(m.Positions) {
			return core.IOErrorf("face index %d out of range", idx)
		}
	}
	return nil
}
