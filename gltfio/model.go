// Package gltfio reads skeletons and clips from glTF 2.0 files and writes retargeted clips back as glb.
package gltfio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
)

// Model is a parsed glTF file.
type Model struct {
	Name     string
	Root     string
	Skeleton *skeleton.Skeleton
	Clips    []*clip.Clip
	// Transform of the scene nodes above the skeleton.
	WorldTransform mgl64.Mat4
	UpAxis         string
	Materials      []Material
	// Images embedded in the file by name.
	Images map[string][]byte
	// Original file bytes, kept for project archives.
	Source []byte
}

// Load opens a .gltf or .glb file. External buffers of .gltf files are resolved next to it.
func Load(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "open %q: %v", path, err)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "read %q: %v", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := FromDocument(name, doc)
	if err != nil {
		return nil, err
	}
	m.Source = source
	return m, nil
}

// Decode parses a self contained glb or gltf with embedded buffers.
func Decode(name string, data []byte) (*Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "decode %q: %v", name, err)
	}
	m, err := FromDocument(name, doc)
	if err != nil {
		return nil, err
	}
	m.Source = data
	return m, nil
}

func nodeName(doc *gltf.Document, i uint32) string {
	if n := doc.Nodes[i].Name; n != "" {
		return n
	}
	return fmt.Sprintf("node_%d", i)
}

var identity32 = mgl32.Ident4()

func nodeTransform(n *gltf.Node) skeleton.Transform {
	if m := mgl32.Mat4(n.Matrix); m != (mgl32.Mat4{}) && m != identity32 {
		return skeleton.TransformFromMat4(utils.Mat4From32(m))
	}
	t := skeleton.IdentityTransform()
	t.Position = utils.Vec3From32(n.Translation)
	if n.Rotation != ([4]float32{}) {
		t.Rotation = utils.NormalizeQuat(utils.QuatFrom32(n.Rotation))
	}
	if n.Scale != ([3]float32{}) {
		t.Scale = utils.Vec3From32(n.Scale)
	}
	return t
}

type hierarchy struct {
	doc    *gltf.Document
	parent []int
	order  []uint32
}

// newHierarchy lists nodes in depth first order starting from scene roots.
func newHierarchy(doc *gltf.Document) (*hierarchy, error) {
	h := &hierarchy{doc: doc, parent: make([]int, len(doc.Nodes))}
	for i := range h.parent {
		h.parent[i] = -1
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) >= len(doc.Nodes) {
				return nil, errors.Errorf("node %d has invalid child %d", i, c)
			}
			if h.parent[c] != -1 {
				return nil, errors.Errorf("node %d has two parents", c)
			}
			h.parent[c] = i
		}
	}

	visited := make([]bool, len(doc.Nodes))
	var visit func(i uint32)
	visit = func(i uint32) {
		if visited[i] {
			return
		}
		visited[i] = true
		h.order = append(h.order, i)
		for _, c := range doc.Nodes[i].Children {
			visit(c)
		}
	}
	for i := range doc.Nodes {
		if h.parent[i] == -1 {
			visit(uint32(i))
		}
	}
	if len(h.order) != len(doc.Nodes) {
		return nil, errors.Errorf("node hierarchy contains a cycle")
	}
	return h, nil
}

// world is the scene transform of node i, ancestors included.
func (h *hierarchy) world(i int) mgl64.Mat4 {
	m := nodeTransform(h.doc.Nodes[i]).Mat4()
	for p := h.parent[i]; p != -1; p = h.parent[p] {
		m = nodeTransform(h.doc.Nodes[p]).Mat4().Mul4(m)
	}
	return m
}

// jointSet is the union of skin joints, or every node without a mesh or camera when there are no skins.
func jointSet(doc *gltf.Document) map[uint32]bool {
	joints := make(map[uint32]bool)
	for _, skin := range doc.Skins {
		for _, j := range skin.Joints {
			if int(j) < len(doc.Nodes) {
				joints[j] = true
			}
		}
	}
	if len(joints) != 0 {
		return joints
	}
	for i, n := range doc.Nodes {
		if n.Mesh == nil && n.Camera == nil {
			joints[uint32(i)] = true
		}
	}
	return joints
}

// FromDocument extracts the skeleton and clips of doc.
func FromDocument(name string, doc *gltf.Document) (*Model, error) {
	h, err := newHierarchy(doc)
	if err != nil {
		return nil, diag.Errorf(diag.InvalidInput, "%s: %v", name, err)
	}
	joints := jointSet(doc)
	if len(joints) == 0 {
		return nil, diag.Errorf(diag.InvalidInput, "%s: no skeleton", name)
	}

	boneOf := make(map[uint32]int, len(joints))
	descs := make([]skeleton.BoneDesc, 0, len(joints))
	firstRoot := -1
	for _, n := range h.order {
		if !joints[n] {
			continue
		}
		parent := -1
		for p := h.parent[n]; p != -1; p = h.parent[p] {
			if b, ok := boneOf[uint32(p)]; ok {
				parent = b
				break
			}
		}
		if parent == -1 && firstRoot == -1 {
			firstRoot = int(n)
		}
		boneOf[n] = len(descs)
		descs = append(descs, skeleton.BoneDesc{
			Name:   nodeName(doc, n),
			Parent: parent,
			Local:  nodeTransform(doc.Nodes[n]),
		})
	}

	s, err := skeleton.New(descs)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Name:           name,
		Root:           descs[0].Name,
		Skeleton:       s,
		WorldTransform: mgl64.Ident4(),
	}
	if p := h.parent[firstRoot]; p != -1 {
		m.WorldTransform = h.world(p)
	}
	s.RootWorld = m.WorldTransform
	// glTF is Y-up, only an explicit hint overrides it
	m.UpAxis = "Y"
	if extras, ok := doc.Asset.Extras.(map[string]interface{}); ok {
		if up, ok := extras["upAxis"].(string); ok && up != "" {
			m.UpAxis = up
		}
	}
	s.UpAxis = m.UpAxis

	if err := readSkins(doc, h, s, boneOf); err != nil {
		return nil, diag.Errorf(diag.InvalidInput, "%s: %v", name, err)
	}

	m.Materials, m.Images = readMaterials(doc)

	for i, a := range doc.Animations {
		c, err := readAnimation(doc, i, a)
		if err != nil {
			log.Printf("[gltfio] %s: animation %d skipped: %v", name, i, err)
			continue
		}
		m.Clips = append(m.Clips, c)
	}
	log.Printf("[gltfio] %s: %d bones, %d clips", name, s.Len(), len(m.Clips))
	return m, nil
}

func readSkins(doc *gltf.Document, h *hierarchy, s *skeleton.Skeleton, boneOf map[uint32]int) error {
	for _, skin := range doc.Skins {
		if skin.InverseBindMatrices == nil {
			continue
		}
		values, comps, err := readAccessor(doc, *skin.InverseBindMatrices)
		if err != nil {
			return errors.Wrapf(err, "skin %q", skin.Name)
		}
		if comps != 16 || len(values) < len(skin.Joints)*16 {
			return errors.Errorf("skin %q: inverse bind matrices do not cover joints", skin.Name)
		}
		if s.InverseBind == nil {
			s.InverseBind = make([]mgl64.Mat4, s.Len())
			for i := range s.InverseBind {
				s.InverseBind[i] = mgl64.Ident4()
			}
		}
		for i, j := range skin.Joints {
			if b, ok := boneOf[j]; ok {
				copy(s.InverseBind[b][:], values[i*16:i*16+16])
			}
		}
	}

	for i, n := range doc.Nodes {
		if n.Mesh == nil || int(*n.Mesh) >= len(doc.Meshes) {
			continue
		}
		bone := -1
		if n.Skin != nil && int(*n.Skin) < len(doc.Skins) {
			skin := doc.Skins[*n.Skin]
			if skin.Skeleton != nil {
				bone = boneIndex(boneOf, *skin.Skeleton)
			} else if len(skin.Joints) != 0 {
				bone = boneIndex(boneOf, skin.Joints[0])
			}
		}
		for p := h.parent[i]; bone == -1 && p != -1; p = h.parent[p] {
			bone = boneIndex(boneOf, uint32(p))
		}
		if bone == -1 {
			continue
		}
		meshName := doc.Meshes[*n.Mesh].Name
		if meshName == "" {
			meshName = nodeName(doc, uint32(i))
		}
		s.Meshes[bone] = append(s.Meshes[bone], meshName)
	}
	return nil
}

func boneIndex(boneOf map[uint32]int, node uint32) int {
	if b, ok := boneOf[node]; ok {
		return b
	}
	return -1
}

var pathProperty = map[gltf.TRSProperty]string{
	gltf.TRSTranslation: clip.PropPosition,
	gltf.TRSRotation:    "quaternion",
	gltf.TRSScale:       clip.PropScale,
	gltf.TRSWeights:     clip.PropWeights,
}

func readAnimation(doc *gltf.Document, index int, a *gltf.Animation) (*clip.Clip, error) {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", index)
	}
	tracks := make([]*clip.Track, 0, len(a.Channels))
	for ci, ch := range a.Channels {
		if ch.Sampler == nil || int(*ch.Sampler) >= len(a.Samplers) || ch.Target.Node == nil || int(*ch.Target.Node) >= len(doc.Nodes) {
			log.Printf("[gltfio] %s: channel %d has no sampler or node", name, ci)
			continue
		}
		prop, ok := pathProperty[ch.Target.Path]
		if !ok {
			continue
		}
		sampler := a.Samplers[*ch.Sampler]
		if sampler.Input == nil || sampler.Output == nil {
			continue
		}
		times, _, err := readAccessor(doc, *sampler.Input)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d input", ci)
		}
		values, _, err := readAccessor(doc, *sampler.Output)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d output", ci)
		}
		if len(times) == 0 || len(values)%len(times) != 0 {
			log.Printf("[gltfio] %s: channel %d has %d values for %d keys", name, ci, len(values), len(times))
			continue
		}
		if sampler.Interpolation == gltf.InterpolationCubicSpline {
			values = splineValues(values, len(times))
		}

		trackName := nodeName(doc, *ch.Target.Node) + "." + prop
		var t *clip.Track
		switch ch.Target.Path {
		case gltf.TRSRotation:
			if len(values) != len(times)*4 {
				log.Printf("[gltfio] %s: rotation channel %d has %d values for %d keys", name, ci, len(values), len(times))
				continue
			}
			t = clip.NewQuaternionTrack(trackName, times, values)
			for k := range times {
				t.SetQuat(k, utils.NormalizeQuat(t.Quat(k)))
			}
		case gltf.TRSWeights:
			t = clip.NewNumberTrack(trackName, times, values)
		default:
			t = clip.NewVectorTrack(trackName, times, values)
		}
		if sampler.Interpolation == gltf.InterpolationStep {
			t.Interpolation = clip.InterpolateDiscrete
		}
		if !t.Aligned() {
			log.Printf("[gltfio] %s: track %q is misaligned", name, trackName)
			continue
		}
		tracks = append(tracks, t)
	}
	return clip.New(name, -1, tracks), nil
}

// splineValues keeps the value of each in-tangent, value, out-tangent triple.
func splineValues(values []float64, keys int) []float64 {
	per := len(values) / keys
	size := per / 3
	out := make([]float64, 0, keys*size)
	for k := 0; k < keys; k++ {
		out = append(out, values[k*per+size:k*per+2*size]...)
	}
	return out
}
