package loaders

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/pkg/errors"

	"github.com/radiant-render/radiant/pkg/core"
)

// writeTestPLY writes a binary little-endian PLY of a unit square with
// normals, two triangles
func writeTestPLY(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("ply\n")
	buf.WriteString("format binary_little_endian 1.0\n")
	buf.WriteString("element vertex 4\n")
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	buf.WriteString("property float nx\nproperty float ny\nproperty float nz\n")
	buf.WriteString("element face 2\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")

	vertices := [][6]float32{
		{0, 0, 0, 0, 0, 1},
		{1, 0, 0, 0, 0, 1},
		{1, 1, 0, 0, 0, 1},
		{0, 1, 0, 0, 0, 1},
	}
	for _, v := range vertices {
		for _, f := range v {
			binary.Write(&buf, binary.LittleEndian, f)
		}
	}
	for _, face := range [][3]int32{{0, 1, 2}, {0, 2, 3}} {
		buf.WriteByte(3)
		for _, idx := range face {
			binary.Write(&buf, binary.LittleEndian, idx)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPLYBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.ply")
	writeTestPLY(t, path)

	mesh, err := LoadPLY(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Positions) != 4 {
		t.Fatalf("vertex count = %d, want 4", len(mesh.Positions))
	}
	if len(mesh.Normals) != 4 {
		t.Fatalf("normal count = %d, want 4", len(mesh.Normals))
	}
	if len(mesh.Indices) != 6 {
		t.Fatalf("index count = %d, want 6", len(mesh.Indices))
	}
	if !mesh.Positions[2].Equals(core.NewVec3(1, 1, 0)) {
		t.Errorf("vertex 2 = %v", mesh.Positions[2])
	}
}

func TestLoadPLYQuadTriangulation(t *testing.T) {
	// ASCII PLY with a single quad face
	path := filepath.Join(t.TempDir(), "quad.ply")
	content := `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	mesh, err := LoadPLY(path)
	if err != nil {
		t.Fatal(err)
	}
	// The quad becomes {0,1,2} and {0,2,3}
	want := []int{0, 1, 2, 0, 2, 3}
	if len(mesh.Indices) != len(want) {
		t.Fatalf("indices = %v, want %v", mesh.Indices, want)
	}
	for i := range want {
		if mesh.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", mesh.Indices, want)
		}
	}
}

// triangleSet canonicalizes a mesh into a sorted set of triangles,
// independent of vertex ordering
func triangleSet(mesh *MeshData) []string {
	var tris []string
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		corners := []core.Vec3{
			mesh.Positions[mesh.Indices[i]],
			mesh.Positions[mesh.Indices[i+1]],
			mesh.Positions[mesh.Indices[i+2]],
		}
		keys := make([]string, 3)
		for j, c := range corners {
			keys[j] = c.String()
		}
		sort.Strings(keys)
		tris = append(tris, keys[0]+keys[1]+keys[2])
	}
	sort.Strings(tris)
	return tris
}

func TestPLYToOBJRoundTrip(t *testing.T) {
	// Loading a PLY, exporting OBJ, and reloading yields the same triangle
	// set up to vertex permutation
	dir := t.TempDir()
	plyPath := filepath.Join(dir, "mesh.ply")
	objPath := filepath.Join(dir, "mesh.obj")
	writeTestPLY(t, plyPath)

	original, err := LoadPLY(plyPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteOBJ(objPath, original); err != nil {
		t.Fatal(err)
	}
	reloaded, err := LoadOBJ(objPath)
	if err != nil {
		t.Fatal(err)
	}

	a := triangleSet(original)
	b := triangleSet(reloaded.Mesh)
	if len(a) != len(b) {
		t.Fatalf("triangle counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("triangle sets differ at %d:\n%s\n%s", i, a[i], b[i])
		}
	}
}

func TestLoadOBJFaceFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.obj")
	content := `# comment
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
vt 0 0
vt 1 0
vt 1 1
f 1/1/1 2/2/1 3/3/1
f 1 3 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := LoadOBJ(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(data.Mesh.Indices) / 3; got != 2 {
		t.Fatalf("triangle count = %d, want 2", got)
	}
}

func TestSceneXMLMinimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.xml")
	content := `<scene version="0.5.0">
  <integrator type="path">
    <integer name="maxDepth" value="6"/>
  </integrator>
  <sensor>
    <float name="fov" value="45"/>
    <transform name="toWorld">
      <lookat origin="0, 1, -5" target="0, 1, 0" up="0, 1, 0"/>
    </transform>
    <film>
      <integer name="width" value="64"/>
      <integer name="height" value="48"/>
      <string name="rfilter" value="tent"/>
    </film>
    <sampler type="halton">
      <integer name="sampleCount" value="8"/>
    </sampler>
  </sensor>
  <bsdf id="white" type="diffuse">
    <rgb name="reflectance" value="0.7, 0.7, 0.7"/>
  </bsdf>
  <shape type="sphere">
    <float name="radius" value="1"/>
    <ref id="white"/>
  </shape>
  <shape type="sphere">
    <float name="radius" value="0.2"/>
    <emitter type="area">
      <rgb name="radiance" value="10, 10, 10"/>
    </emitter>
  </shape>
</scene>`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sf, err := LoadSceneXML(path)
	if err != nil {
		t.Fatal(err)
	}
	if sf.Width != 64 || sf.Height != 48 {
		t.Errorf("film = %dx%d, want 64x48", sf.Width, sf.Height)
	}
	if sf.SamplerType != "halton" || sf.SamplesPerPixel != 8 {
		t.Errorf("sampler = %s/%d", sf.SamplerType, sf.SamplesPerPixel)
	}
	if sf.FilterType != "tent" {
		t.Errorf("filter = %s", sf.FilterType)
	}
	if sf.IntegratorType != "path" || sf.MaxDepth != 6 {
		t.Errorf("integrator = %s depth %d", sf.IntegratorType, sf.MaxDepth)
	}
	if math.Abs(sf.View.FOV-45) > 1e-12 {
		t.Errorf("fov = %v", sf.View.FOV)
	}
	if !sf.View.Eye.Equals(core.NewVec3(0, 1, -5)) {
		t.Errorf("eye = %v", sf.View.Eye)
	}
	if len(sf.Scene.Lights) != 1 {
		t.Errorf("light count = %d, want 1", len(sf.Scene.Lights))
	}
}

func TestSceneXMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown element", `<scene><wobble/></scene>`},
		{"unknown bsdf", `<scene><bsdf id="x" type="velvet"/></scene>`},
		{"unknown integrator", `<scene><integrator type="metropolis-hastings"/></scene>`},
		{"undefined ref", `<scene><shape type="sphere"><ref id="nope"/></shape></scene>`},
		{"unknown shape", `<scene><shape type="torus"/></scene>`},
		{"not a scene", `<stage/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.xml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadSceneXML(path)
			if err == nil {
				t.Fatal("expected a config error")
			}
			if !errors.Is(err, core.ErrConfig) {
				t.Errorf("error kind = %v, want config", err)
			}
		})
	}
}

func TestSceneXMLMissingFile(t *testing.T) {
	_, err := LoadSceneXML("/definitely/not/here.xml")
	if !errors.Is(err, core.ErrIO) {
		t.Errorf("missing file should be an io error, got %v", err)
	}
}

func TestPresetYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fast.yaml")
	content := "samples: 4\nmaxDepth: 3\nfilter: gaussian\nsampler: halton\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPreset(path)
	if err != nil {
		t.Fatal(err)
	}
	sf := &SceneFile{SamplesPerPixel: 64, MaxDepth: 10, FilterType: "box", SamplerType: "independent"}
	p.Apply(sf)
	if sf.SamplesPerPixel != 4 || sf.MaxDepth != 3 {
		t.Errorf("preset not applied: %+v", sf)
	}
	if sf.FilterType != "gaussian" || sf.SamplerType != "halton" {
		t.Errorf("preset strings not applied: %+v", sf)
	}
}

func TestPresetMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPreset(path); !errors.Is(err, core.ErrConfig) {
		t.Errorf("malformed yaml should be a config error, got %v", err)
	}
}
