package loaders

import (
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/radiant-render/radiant/pkg/core"
)

// LoadGLTF reads every triangle primitive from a .gltf or .glb file into one
// merged mesh. Only geometry is taken; glTF PBR materials are assigned from
// the scene description instead.
func LoadGLTF(path string) (*MeshData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(core.ErrIO, "opening gltf %q: %v", path, err)
	}

	mesh := &MeshData{}
	for _, gm := range doc.Meshes {
		for _, prim := range gm.Primitives {
			if err := appendGLTFPrimitive(doc, prim, mesh); err != nil {
				return nil, errors.Wrapf(core.ErrIO, "gltf %q mesh %q: %v", path, gm.Name, err)
			}
		}
	}
	if len(mesh.Indices) == 0 {
		return nil, core.IOErrorf("gltf %q holds no triangle geometry", path)
	}
	// Attribute streams must cover every vertex or none; a partial stream
	// would misalign against the shared index list
	if len(mesh.Normals) != len(mesh.Positions) {
		mesh.Normals = nil
	}
	if len(mesh.UVs) != len(mesh.Positions) {
		mesh.UVs = nil
	}
	return mesh, nil
}

// appendGLTFPrimitive merges one primitive's triangles into the mesh
func appendGLTFPrimitive(doc *gltf.Document, prim *gltf.Primitive, mesh *MeshData) error {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil // points, lines, strips are not renderable geometry here
	}

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return err
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	var uvs [][2]float32
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}

	base := len(mesh.Positions)
	for i, p := range positions {
		mesh.Positions = append(mesh.Positions, core.NewVec3(float64(p[0]), float64(p[1]), float64(p[2])))
		if len(normals) == len(positions) {
			n := normals[i]
			mesh.Normals = append(mesh.Normals, core.NewVec3(float64(n[0]), float64(n[1]), float64(n[2])))
		}
		if len(uvs) == len(positions) {
			mesh.UVs = append(mesh.UVs, core.NewVec2(float64(uvs[i][0]), float64(uvs[i][1])))
		}
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return err
		}
		for _, idx := range indices {
			mesh.Indices = append(mesh.Indices, base+int(idx))
		}
	} else {
		for i := 0; i < len(positions); i++ {
			mesh.Indices = append(mesh.Indices, base+i)
		}
	}
	return nil
}
