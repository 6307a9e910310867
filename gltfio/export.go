package gltfio

import (
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
	"github.com/mogaika/retargeter/utils/gltfutils"
)

// GLTFSkeletonExported maps skeleton bones to document nodes.
type GLTFSkeletonExported struct {
	JointNodes []uint32
	Skin       uint32
}

// ExportSkeleton adds the bind pose of s as a node tree and a skin. A scene transform
// above the skeleton becomes a parent node.
func ExportSkeleton(doc *gltf.Document, s *skeleton.Skeleton) *GLTFSkeletonExported {
	exp := &GLTFSkeletonExported{JointNodes: make([]uint32, s.Len())}

	var wrapper *gltf.Node
	if s.RootWorld != mgl64.Ident4() && s.RootWorld != (mgl64.Mat4{}) {
		pos, rot, scale := utils.DecomposeMat4(s.RootWorld)
		wrapper = &gltf.Node{
			Name:        "Scene Root",
			Translation: utils.Vec3To32(pos),
			Rotation:    utils.QuatTo32(rot),
			Scale:       utils.Vec3To32(scale),
		}
		doc.Nodes = append(doc.Nodes, wrapper)
	}

	for i := range s.Bones {
		b := &s.Bones[i]
		node := &gltf.Node{
			Name:        b.Name,
			Translation: utils.Vec3To32(b.BindLocal.Position),
			Rotation:    utils.QuatTo32(b.BindLocal.Rotation),
			Scale:       utils.Vec3To32(b.BindLocal.Scale),
		}
		exp.JointNodes[i] = uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, node)

		if b.Parent != skeleton.NoParent {
			parent := doc.Nodes[exp.JointNodes[b.Parent]]
			parent.Children = append(parent.Children, exp.JointNodes[i])
		} else if wrapper != nil {
			wrapper.Children = append(wrapper.Children, exp.JointNodes[i])
		}
	}

	exp.Skin = uint32(len(doc.Skins))
	doc.Skins = append(doc.Skins, &gltf.Skin{
		Name:     "skeleton",
		Skeleton: gltf.Index(exp.JointNodes[0]),
		Joints:   append([]uint32(nil), exp.JointNodes...),
	})
	return exp
}

// ExportClip adds c as an animation on the exported skeleton. Tracks of nodes that are
// not bones, or of properties other than the transform, are skipped and returned.
func ExportClip(doc *gltf.Document, exp *GLTFSkeletonExported, s *skeleton.Skeleton, c *clip.Clip) []string {
	a := &gltf.Animation{Name: c.Name}
	var skipped []string

	for _, t := range c.Tracks {
		p, err := t.Path()
		if err != nil || !p.IsTransform() || !t.Aligned() || len(t.Times) == 0 {
			skipped = append(skipped, t.Name)
			continue
		}
		bone := s.Index(p.Node)
		if bone < 0 {
			skipped = append(skipped, t.Name)
			continue
		}

		keys := utils.FloatArray64to32(t.Times)
		keysAcc := modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, keys)

		var samplesAcc uint32
		var path gltf.TRSProperty
		switch {
		case p.Property == clip.PropRotation && t.Kind == clip.KindQuaternion:
			rotations := make([][4]float32, len(t.Times))
			for i := range rotations {
				rotations[i] = utils.QuatTo32(t.Quat(i))
			}
			samplesAcc = uint32(modeler.WriteTangent(doc, rotations))
			path = gltf.TRSRotation
		case t.Kind == clip.KindVector:
			vectors := make([][3]float32, len(t.Times))
			for i := range vectors {
				vectors[i] = utils.Vec3To32(t.Vec3(i))
			}
			samplesAcc = uint32(modeler.WritePosition(doc, vectors))
			path = gltf.TRSTranslation
			if p.Property == clip.PropScale {
				path = gltf.TRSScale
			}
		default:
			skipped = append(skipped, t.Name)
			continue
		}

		interpolation := gltf.InterpolationLinear
		if t.Interpolation == clip.InterpolateDiscrete {
			interpolation = gltf.InterpolationStep
		}
		a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
			Input:         gltf.Index(uint32(keysAcc)),
			Output:        gltf.Index(samplesAcc),
			Interpolation: interpolation,
		})
		a.Channels = append(a.Channels, &gltf.Channel{
			Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
			Target: gltf.ChannelTarget{
				Node: gltf.Index(exp.JointNodes[bone]),
				Path: path,
			},
		})
	}

	doc.Animations = append(doc.Animations, a)
	return skipped
}

// Export writes s in its bind pose with clips as a glb. Skipped tracks are reported in l.
func Export(w io.Writer, s *skeleton.Skeleton, clips []*clip.Clip, l *diag.Log) error {
	if s == nil || s.Len() == 0 {
		return diag.Errorf(diag.InvalidInput, "no skeleton to export")
	}
	doc := gltfutils.NewDocument()
	if s.UpAxis != "" {
		doc.Asset.Extras = map[string]interface{}{"upAxis": s.UpAxis}
	}
	exp := ExportSkeleton(doc, s)
	for _, c := range clips {
		for _, name := range ExportClip(doc, exp, s, c) {
			l.Add(diag.TrackDropped, name, "not exported with clip %q", c.Name)
		}
	}
	if err := gltfutils.ExportBinary(w, doc); err != nil {
		return diag.Errorf(diag.IOAdjacent, "encode glb: %v", err)
	}
	log.Printf("[gltfio] exported %d bones, %d clips", s.Len(), len(clips))
	return nil
}
