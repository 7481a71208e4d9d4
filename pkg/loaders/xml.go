package loaders

import (
	"encoding/xml"
	"os"
	"strconv"
	"strings"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
	"github.com/radiant-render/radiant/pkg/lights"
	"github.com/radiant-render/radiant/pkg/material"
	"github.com/radiant-render/radiant/pkg/medium"
	"github.com/radiant-render/radiant/pkg/scene"
)

// SceneFile is the result of parsing a scene description: the assembled
// scene plus the camera, film, sampler, and integrator settings it names
type SceneFile struct {
	Scene *scene.Scene
	View  scene.View

	Width, Height   int
	SamplesPerPixel int
	SamplerType     string // "independent" or "halton"
	FilterType      string // "box", "tent", "gaussian"

	IntegratorType string
	MaxDepth       int
}

// xmlNode is the generic element tree the parser walks
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

// attr returns an attribute value and whether it was present
func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// child returns the first child with the given element name
func (n *xmlNode) child(name string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return &n.Children[i]
		}
	}
	return nil
}

// namedValue finds a <float|integer|string|rgb ... name="name"> child
func (n *xmlNode) namedValue(name string) (*xmlNode, bool) {
	for i := range n.Children {
		c := &n.Children[i]
		if v, ok := c.attr("name"); ok && v == name {
			return c, true
		}
	}
	return nil, false
}

// floatParam reads a named <float> child with a default
func (n *xmlNode) floatParam(name string, def float64) (float64, error) {
	c, ok := n.namedValue(name)
	if !ok {
		return def, nil
	}
	raw, ok := c.attr("value")
	if !ok {
		return 0, core.ConfigErrorf("<%s name=%q> missing value attribute", c.XMLName.Local, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, core.ConfigErrorf("parameter %q: bad float %q", name, raw)
	}
	return v, nil
}

// intParam reads a named <integer> child with a default
func (n *xmlNode) intParam(name string, def int) (int, error) {
	c, ok := n.namedValue(name)
	if !ok {
		return def, nil
	}
	raw, ok := c.attr("value")
	if !ok {
		return 0, core.ConfigErrorf("<%s name=%q> missing value attribute", c.XMLName.Local, name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.ConfigErrorf("parameter %q: bad integer %q", name, raw)
	}
	return v, nil
}

// stringParam reads a named <string> child with a default
func (n *xmlNode) stringParam(name string, def string) string {
	if c, ok := n.namedValue(name); ok {
		if v, ok := c.attr("value"); ok {
			return v
		}
	}
	return def
}

// rgbParam reads a named <rgb> or <spectrum> child with a default
func (n *xmlNode) rgbParam(name string, def core.Spectrum) (core.Spectrum, error) {
	c, ok := n.namedValue(name)
	if !ok {
		return def, nil
	}
	raw, ok := c.attr("value")
	if !ok {
		return core.Black, core.ConfigErrorf("<%s name=%q> missing value attribute", c.XMLName.Local, name)
	}
	switch c.XMLName.Local {
	case "rgb":
		return parseRGB(raw)
	case "spectrum":
		return parseSpectrum(raw)
	default:
		return parseRGB(raw)
	}
}

// parseRGB parses "r, g, b"
func parseRGB(raw string) (core.Spectrum, error) {
	parts := strings.Split(raw, ",")
	if len(parts) == 1 {
		parts = strings.Fields(raw)
	}
	if len(parts) == 1 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return core.Black, core.ConfigErrorf("bad rgb value %q", raw)
		}
		return core.NewSpectrumUniform(v), nil
	}
	if len(parts) != 3 {
		return core.Black, core.ConfigErrorf("rgb value %q needs 3 components", raw)
	}
	var out [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Black, core.ConfigErrorf("bad rgb component %q", p)
		}
		out[i] = v
	}
	return core.NewSpectrum(out[0], out[1], out[2]), nil
}

// parseSpectrum parses "lambda1:v1, lambda2:v2, ..." and folds the sampled
// values to RGB by coarse wavelength binning
func parseSpectrum(raw string) (core.Spectrum, error) {
	var rSum, gSum, bSum float64
	var rN, gN, bN int
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.Split(strings.TrimSpace(pair), ":")
		if len(kv) != 2 {
			return core.Black, core.ConfigErrorf("bad spectrum entry %q", pair)
		}
		lambda, err1 := strconv.ParseFloat(strings.TrimSpace(kv[0]), 64)
		v, err2 := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err1 != nil || err2 != nil {
			return core.Black, core.ConfigErrorf("bad spectrum entry %q", pair)
		}
		switch {
		case lambda < 490:
			bSum += v
			bN++
		case lambda < 580:
			gSum += v
			gN++
		default:
			rSum += v
			rN++
		}
	}
	avg := func(sum float64, n int) float64 {
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	}
	return core.NewSpectrum(avg(rSum, rN), avg(gSum, gN), avg(bSum, bN)), nil
}

// parseVec3Attr parses "x, y, z" from an attribute
func parseVec3Attr(n *xmlNode, name string) (core.Vec3, error) {
	raw, ok := n.attr(name)
	if !ok {
		return core.Vec3{}, core.ConfigErrorf("<%s> missing attribute %q", n.XMLName.Local, name)
	}
	s, err := parseRGB(raw)
	if err != nil {
		return core.Vec3{}, err
	}
	return core.NewVec3(s.R, s.G, s.B), nil
}

// parseTransform builds a transform from nested lookat/translate/rotate/
// scale elements, applied in document order; any other element, matrix
// included, is a config error
func parseTransform(n *xmlNode) (core.Transform, error) {
	t := core.IdentityTransform()
	for i := range n.Children {
		c := &n.Children[i]
		switch c.XMLName.Local {
		case "lookat":
			origin, err := parseVec3Attr(c, "origin")
			if err != nil {
				return t, err
			}
			target, err := parseVec3Attr(c, "target")
			if err != nil {
				return t, err
			}
			up := core.NewVec3(0, 1, 0)
			if _, ok := c.attr("up"); ok {
				if up, err = parseVec3Attr(c, "up"); err != nil {
					return t, err
				}
			}
			t = t.Compose(core.LookAt(origin, target, up))
		case "translate":
			v, err := parseVec3Attr(c, "value")
			if err != nil {
				return t, err
			}
			t = t.Compose(core.Translate(v))
		case "scale":
			v, err := parseVec3Attr(c, "value")
			if err != nil {
				return t, err
			}
			t = t.Compose(core.Scale(v))
		case "rotate":
			axis, err := parseVec3Attr(c, "axis")
			if err != nil {
				return t, err
			}
			angleRaw, _ := c.attr("angle")
			angle, err := strconv.ParseFloat(angleRaw, 64)
			if err != nil {
				return t, core.ConfigErrorf("<rotate> bad angle %q", angleRaw)
			}
			t = t.Compose(core.Rotate(axis, angle*3.14159265358979323846/180))
		default:
			return t, core.ConfigErrorf("unknown transform element <%s>", c.XMLName.Local)
		}
	}
	return t, nil
}

// sceneBuilder accumulates parsed state across the document
type sceneBuilder struct {
	out       SceneFile
	bsdfs     map[string]core.Material
	media     map[string]core.Medium
	prims     []core.Primitive
	lightList []lights.Light
}

// LoadSceneXML parses a scene description file. Unknown top-level elements,
// transform elements, and type attributes are config errors; unrecognized
// parameters nested inside an element are ignored.
func LoadSceneXML(path string) (*SceneFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.IOErrorf("opening scene %q", path)
	}

	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, core.ConfigErrorf("scene %q: malformed xml: %v", path, err)
	}
	if root.XMLName.Local != "scene" {
		return nil, core.ConfigErrorf("scene %q: root element is <%s>, want <scene>", path, root.XMLName.Local)
	}

	b := &sceneBuilder{
		bsdfs: make(map[string]core.Material),
		media: make(map[string]core.Medium),
	}
	b.out = SceneFile{
		Width:           400,
		Height:          300,
		SamplesPerPixel: 16,
		SamplerType:     "independent",
		FilterType:      "box",
		IntegratorType:  "path",
		MaxDepth:        8,
	}

	for i := range root.Children {
		c := &root.Children[i]
		var err error
		switch c.XMLName.Local {
		case "sensor":
			err = b.parseSensor(c)
		case "integrator":
			err = b.parseIntegrator(c)
		case "bsdf":
			err = b.parseBSDF(c)
		case "medium":
			err = b.parseMedium(c)
		case "subsurface":
			err = b.parseSubsurface(c)
		case "shape":
			err = b.parseShape(c)
		case "emitter":
			err = b.parseEmitter(c, nil)
		default:
			err = core.ConfigErrorf("unknown scene element <%s>", c.XMLName.Local)
		}
		if err != nil {
			return nil, err
		}
	}

	b.out.Scene = scene.New(b.prims, b.lightList)
	return &b.out, nil
}

// parseSensor reads the camera with its nested film and sampler
func (b *sceneBuilder) parseSensor(n *xmlNode) error {
	fov, err := n.floatParam("fov", 40)
	if err != nil {
		return err
	}
	lensRadius, err := n.floatParam("apertureRadius", 0)
	if err != nil {
		return err
	}
	focusDist, err := n.floatParam("focusDistance", 0)
	if err != nil {
		return err
	}

	view := scene.View{
		Eye:           core.NewVec3(0, 0, -5),
		LookAt:        core.Vec3{},
		Up:            core.NewVec3(0, 1, 0),
		FOV:           fov,
		LensRadius:    lensRadius,
		FocalDistance: focusDist,
	}

	if tn := n.child("transform"); tn != nil {
		if ln := tn.child("lookat"); ln != nil {
			if view.Eye, err = parseVec3Attr(ln, "origin"); err != nil {
				return err
			}
			if view.LookAt, err = parseVec3Attr(ln, "target"); err != nil {
				return err
			}
			if _, ok := ln.attr("up"); ok {
				if view.Up, err = parseVec3Attr(ln, "up"); err != nil {
					return err
				}
			}
		}
	}
	b.out.View = view

	if fn := n.child("film"); fn != nil {
		if b.out.Width, err = fn.intParam("width", 400); err != nil {
			return err
		}
		if b.out.Height, err = fn.intParam("height", 300); err != nil {
			return err
		}
		b.out.FilterType = fn.stringParam("rfilter", "box")
	}
	if sn := n.child("sampler"); sn != nil {
		if t, ok := sn.attr("type"); ok {
			b.out.SamplerType = t
		}
		if b.out.SamplesPerPixel, err = sn.intParam("sampleCount", 16); err != nil {
			return err
		}
	}
	return nil
}

// parseIntegrator reads the integrator selection
func (b *sceneBuilder) parseIntegrator(n *xmlNode) error {
	t, ok := n.attr("type")
	if !ok {
		return core.ConfigErrorf("<integrator> missing type attribute")
	}
	switch t {
	case "path", "volpath", "direct", "bdpt", "pssmlt", "ppm", "sppm", "photonmap", "irrcache", "hierarchical":
		b.out.IntegratorType = t
	default:
		return core.ConfigErrorf("unsupported integrator type %q", t)
	}
	var err error
	b.out.MaxDepth, err = n.intParam("maxDepth", 8)
	return err
}

// parseBSDF builds a material and registers it under its id
func (b *sceneBuilder) parseBSDF(n *xmlNode) error {
	mat, err := b.buildBSDF(n)
	if err != nil {
		return err
	}
	if id, ok := n.attr("id"); ok {
		b.bsdfs[id] = mat
	}
	return nil
}

// buildBSDF constructs the material for a bsdf element
func (b *sceneBuilder) buildBSDF(n *xmlNode) (core.Material, error) {
	t, ok := n.attr("type")
	if !ok {
		return nil, core.ConfigErrorf("<bsdf> missing type attribute")
	}
	switch t {
	case "diffuse":
		reflectance, err := n.rgbParam("reflectance", core.NewSpectrumUniform(0.5))
		if err != nil {
			return nil, err
		}
		// A texture filename overrides the constant reflectance
		if path := n.stringParam("texture", ""); path != "" {
			img, err := LoadImage(ResolveDataPath(path))
			if err != nil {
				return nil, err
			}
			return material.NewMatte(material.NewImageTexture(img.Width, img.Height, img.Pixels)), nil
		}
		return material.NewMatte(material.NewConstantTexture(reflectance)), nil

	case "dielectric":
		eta, err := n.floatParam("intIOR", 1.5)
		if err != nil {
			return nil, err
		}
		return material.NewGlass(
			material.NewConstantTexture(core.White),
			material.NewConstantTexture(core.White), eta), nil

	case "roughplastic":
		kd, err := n.rgbParam("diffuseReflectance", core.NewSpectrumUniform(0.5))
		if err != nil {
			return nil, err
		}
		roughness, err := n.floatParam("alpha", 0.1)
		if err != nil {
			return nil, err
		}
		return material.NewPlastic(
			material.NewConstantTexture(kd),
			material.NewConstantTexture(core.NewSpectrumUniform(0.25)),
			material.NewConstantFloat(roughness)), nil

	case "roughconductor":
		eta, err := n.rgbParam("eta", core.NewSpectrum(0.2, 0.92, 1.1))
		if err != nil {
			return nil, err
		}
		k, err := n.rgbParam("k", core.NewSpectrum(3.9, 2.45, 2.14))
		if err != nil {
			return nil, err
		}
		roughness, err := n.floatParam("alpha", 0.1)
		if err != nil {
			return nil, err
		}
		return material.NewMetal(
			material.NewConstantTexture(eta),
			material.NewConstantTexture(k),
			material.NewConstantFloat(roughness)), nil

	case "mirror":
		return material.NewMirror(material.NewConstantTexture(core.NewSpectrumUniform(0.95))), nil

	default:
		return nil, core.ConfigErrorf("unsupported bsdf type %q", t)
	}
}

// parseMedium builds a homogeneous medium and registers it under its id
func (b *sceneBuilder) parseMedium(n *xmlNode) error {
	t, ok := n.attr("type")
	if !ok || t != "homogeneous" {
		return core.ConfigErrorf("unsupported medium type %q", t)
	}
	sigmaA, err := n.rgbParam("sigmaA", core.NewSpectrumUniform(0.01))
	if err != nil {
		return err
	}
	sigmaS, err := n.rgbParam("sigmaS", core.NewSpectrumUniform(0.1))
	if err != nil {
		return err
	}
	g, err := n.floatParam("g", 0)
	if err != nil {
		return err
	}
	id, ok := n.attr("id")
	if !ok {
		return core.ConfigErrorf("<medium> missing id attribute")
	}
	b.media[id] = medium.NewHomogeneous(sigmaA, sigmaS, g)
	return nil
}

// parseSubsurface registers a subsurface material under its id
func (b *sceneBuilder) parseSubsurface(n *xmlNode) error {
	sigmaA, err := n.rgbParam("sigmaA", core.NewSpectrum(0.0011, 0.0024, 0.014))
	if err != nil {
		return err
	}
	sigmaS, err := n.rgbParam("sigmaS", core.NewSpectrum(2.55, 3.21, 3.77))
	if err != nil {
		return err
	}
	eta, err := n.floatParam("intIOR", 1.3)
	if err != nil {
		return err
	}
	g, err := n.floatParam("g", 0)
	if err != nil {
		return err
	}
	id, ok := n.attr("id")
	if !ok {
		return core.ConfigErrorf("<subsurface> missing id attribute")
	}
	b.bsdfs[id] = material.NewSubsurface(
		material.NewConstantTexture(sigmaA),
		material.NewConstantTexture(sigmaS), eta, g)
	return nil
}

// shapeMaterial resolves the shape's material: an inline bsdf child, a ref,
// or a gray default
func (b *sceneBuilder) shapeMaterial(n *xmlNode) (core.Material, error) {
	if bn := n.child("bsdf"); bn != nil {
		return b.buildBSDF(bn)
	}
	if rn := n.child("ref"); rn != nil {
		id, ok := rn.attr("id")
		if !ok {
			return nil, core.ConfigErrorf("<ref> missing id attribute")
		}
		mat, ok := b.bsdfs[id]
		if !ok {
			return nil, core.ConfigErrorf("reference to undefined bsdf id %q", id)
		}
		return mat, nil
	}
	return material.NewMatte(material.NewConstantTexture(core.NewSpectrumUniform(0.5))), nil
}

// parseShape builds geometry, binds its material, media, and emitter
func (b *sceneBuilder) parseShape(n *xmlNode) error {
	t, ok := n.attr("type")
	if !ok {
		return core.ConfigErrorf("<shape> missing type attribute")
	}

	toWorld := core.IdentityTransform()
	if tn := n.child("transform"); tn != nil {
		var err error
		if toWorld, err = parseTransform(tn); err != nil {
			return err
		}
	}

	var shapes []geometry.Shape
	switch t {
	case "sphere":
		radius, err := n.floatParam("radius", 1)
		if err != nil {
			return err
		}
		if cn, ok := n.namedValue("center"); ok {
			center, err := parseVec3Attr(cn, "value")
			if err != nil {
				return err
			}
			toWorld = toWorld.Compose(core.Translate(center))
		}
		shapes = []geometry.Shape{geometry.NewSphere(toWorld, radius)}

	case "obj":
		path := n.stringParam("filename", "")
		if path == "" {
			return core.ConfigErrorf("obj shape missing filename")
		}
		data, err := LoadOBJ(ResolveDataPath(path))
		if err != nil {
			return err
		}
		shapes = data.Mesh.Mesh(toWorld).Triangles()

	case "ply":
		path := n.stringParam("filename", "")
		if path == "" {
			return core.ConfigErrorf("ply shape missing filename")
		}
		data, err := LoadPLY(ResolveDataPath(path))
		if err != nil {
			return err
		}
		shapes = data.Mesh(toWorld).Triangles()

	case "gltf":
		path := n.stringParam("filename", "")
		if path == "" {
			return core.ConfigErrorf("gltf shape missing filename")
		}
		data, err := LoadGLTF(ResolveDataPath(path))
		if err != nil {
			return err
		}
		shapes = data.Mesh(toWorld).Triangles()

	default:
		return core.ConfigErrorf("unsupported shape type %q", t)
	}

	mat, err := b.shapeMaterial(n)
	if err != nil {
		return err
	}

	// Interior medium reference
	var mediumInterface *core.MediumInterface
	if mn, ok := n.namedValue("interior"); ok && mn.XMLName.Local == "ref" {
		id, _ := mn.attr("id")
		med, ok := b.media[id]
		if !ok {
			return core.ConfigErrorf("reference to undefined medium id %q", id)
		}
		mediumInterface = &core.MediumInterface{Inside: med}
	}

	// Area emitter attached to the shape
	if en := n.child("emitter"); en != nil {
		return b.parseEmitter(en, shapes)
	}

	for _, s := range shapes {
		b.prims = append(b.prims, &scene.GeometricPrimitive{
			Shape:           s,
			Material:        mat,
			MediumInterface: mediumInterface,
		})
	}
	return nil
}

// parseEmitter handles area emitters (attached to parent shapes) and
// environment emitters
func (b *sceneBuilder) parseEmitter(n *xmlNode, parentShapes []geometry.Shape) error {
	t, ok := n.attr("type")
	if !ok {
		return core.ConfigErrorf("<emitter> missing type attribute")
	}
	switch t {
	case "area":
		if len(parentShapes) == 0 {
			return core.ConfigErrorf("area emitter requires an enclosing shape")
		}
		radiance, err := n.rgbParam("radiance", core.NewSpectrumUniform(1))
		if err != nil {
			return err
		}
		for _, s := range parentShapes {
			light := lights.NewAreaLight(s, radiance)
			b.prims = append(b.prims, &scene.GeometricPrimitive{
				Shape:    s,
				Material: material.NewMatte(material.NewConstantTexture(core.Black)),
				Light:    light,
			})
			b.lightList = append(b.lightList, light)
		}
		return nil

	case "environment":
		if path := n.stringParam("filename", ""); path != "" {
			img, err := LoadRadianceMap(ResolveDataPath(path))
			if err != nil {
				return err
			}
			toWorld := core.IdentityTransform()
			if tn := n.child("transform"); tn != nil {
				if toWorld, err = parseTransform(tn); err != nil {
					return err
				}
			}
			b.lightList = append(b.lightList, lights.NewEnvironment(img.Width, img.Height, img.Pixels, toWorld))
			return nil
		}
		radiance, err := n.rgbParam("radiance", core.NewSpectrumUniform(1))
		if err != nil {
			return err
		}
		b.lightList = append(b.lightList, lights.NewUniformEnvironment(radiance))
		return nil

	default:
		return core.ConfigErrorf("unsupported emitter type %q", t)
	}
}
