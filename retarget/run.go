package retarget

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/utils"
)

// MinScale replaces non positive scale keys.
const MinScale = 1e-6

type frame struct {
	srcWorld []mgl64.Quat
	srcDone  []bool
	trgWorld []mgl64.Quat
	trgDone  []bool
}

// run retargets a single clip against a context.
type run struct {
	ctx *Context
	in  *clip.Clip
	log *diag.Log

	// rotation tracks of the input clip by source bone, for world space sampling
	rotations map[int]*clip.Track
	frames    map[float64]*frame
}

func newRun(ctx *Context, in *clip.Clip, l *diag.Log) *run {
	r := &run{ctx: ctx, in: in, log: l}
	if ctx.Options.UseWorldSpaceTransformation {
		r.rotations = make(map[int]*clip.Track)
		r.frames = make(map[float64]*frame)
		for _, t := range in.Tracks {
			if t.Kind != clip.KindQuaternion || !t.Aligned() || len(t.Times) == 0 {
				continue
			}
			p, err := t.Path()
			if err != nil || p.Property != clip.PropRotation || p.Index != "" {
				continue
			}
			if s := ctx.Source.Index(p.Node); s >= 0 {
				if _, exists := r.rotations[s]; !exists {
					r.rotations[s] = t
				}
			}
		}
	}
	return r
}

func (r *run) retarget() *clip.Clip {
	if len(r.ctx.Pairs) == 0 {
		r.log.Add(diag.MappingEmpty, "", "clip %q retargeted empty, no mapped bones", r.in.Name)
		return clip.New(r.in.Name, r.in.Duration, nil)
	}

	tracks := make([]*clip.Track, 0, len(r.in.Tracks))
	seen := make(map[string]string, len(r.in.Tracks))
	for _, t := range r.in.Tracks {
		out, reason := r.safeTrack(t)
		if out == nil {
			r.log.Add(diag.TrackDropped, t.Name, "%s", reason)
			continue
		}
		if first, dup := seen[out.Name]; dup {
			r.log.Add(diag.TrackDropped, t.Name, "output %q already produced by %q", out.Name, first)
			continue
		}
		seen[out.Name] = t.Name
		tracks = append(tracks, out)
	}
	return clip.New(r.in.Name, r.in.Duration, tracks)
}

func (r *run) safeTrack(t *clip.Track) (out *clip.Track, reason string) {
	defer func() {
		if p := recover(); p != nil {
			out, reason = nil, fmt.Sprintf("failed: %v", p)
		}
	}()
	return r.track(t)
}

func copyTimes(t *clip.Track) []float64 {
	return append([]float64(nil), t.Times...)
}

func (r *run) track(t *clip.Track) (*clip.Track, string) {
	if !t.Aligned() {
		return nil, fmt.Sprintf("%d times for %d values", len(t.Times), len(t.Values))
	}
	p, err := t.Path()
	if err != nil {
		return nil, err.Error()
	}

	s := r.ctx.Source.Index(p.Node)
	if s < 0 {
		// Not a bone, e.g. morph weights or material channels. Only the skeleton
		// is retargeted, non skeletal tracks pass through with node and values
		// unchanged so the clip still drives them on the target model.
		return t.Clone(), ""
	}
	pair, ok := r.ctx.PairOf(s)
	if !ok {
		return nil, fmt.Sprintf("bone %q is not mapped", p.Node)
	}
	trgName := r.ctx.Target.Names[pair.Target]
	name := p.WithNode(trgName).String()

	switch {
	case p.Property == clip.PropRotation && p.Index == "":
		if t.Kind != clip.KindQuaternion {
			return nil, fmt.Sprintf("rotation track of %s values", t.Kind)
		}
		return r.rotation(t, pair, name), ""
	case p.Property == clip.PropPosition && p.Index == "":
		if s != r.ctx.SourceRoot || !r.ctx.Options.PreserveRootMotion {
			return nil, "position of non root bone or root motion disabled"
		}
		if t.Kind != clip.KindVector {
			return nil, fmt.Sprintf("position track of %s values", t.Kind)
		}
		return r.position(t, name), ""
	case p.Property == clip.PropScale && p.Index == "":
		if t.Kind != clip.KindVector {
			return nil, fmt.Sprintf("scale track of %s values", t.Kind)
		}
		return r.scale(t, name), ""
	}
	out := t.Clone()
	out.Name = name
	return out, ""
}

func (r *run) rotation(t *clip.Track, pair Pair, name string) *clip.Track {
	n := len(t.Times)
	out := clip.NewQuaternionTrack(name, copyTimes(t), make([]float64, n*4))
	out.Interpolation = t.Interpolation
	correct := pair.Target == r.ctx.TargetRoot && r.ctx.Options.ApplyCoordinateCorrection

	for i := 0; i < n; i++ {
		var q mgl64.Quat
		if r.ctx.Options.UseWorldSpaceTransformation {
			q = r.worldSpace(pair, t.Times[i], t.Quat(i))
		} else {
			q = pair.Left.Mul(t.Quat(i)).Mul(pair.Right)
		}
		if correct {
			q = r.ctx.CoordinateCorrection.Mul(q)
		}
		out.SetQuat(i, utils.NormalizeQuat(q))
	}
	return out
}

func (r *run) position(t *clip.Track, name string) *clip.Track {
	out := clip.NewVectorTrack(name, copyTimes(t), make([]float64, len(t.Values)))
	out.Interpolation = t.Interpolation
	correct := r.ctx.Options.ApplyCoordinateCorrection
	for i := range t.Times {
		v := t.Vec3(i).Mul(r.ctx.ProportionRatio)
		if correct {
			v = r.ctx.CoordinateCorrection.Rotate(v)
		}
		out.SetVec3(i, v)
	}
	return out
}

func (r *run) scale(t *clip.Track, name string) *clip.Track {
	out := clip.NewVectorTrack(name, copyTimes(t), make([]float64, len(t.Values)))
	out.Interpolation = t.Interpolation
	for i, v := range t.Values {
		if math.IsNaN(v) || v <= 0 {
			v = MinScale
		}
		out.Values[i] = v
	}
	return out
}

func (r *run) frameAt(time float64) *frame {
	if f, ok := r.frames[time]; ok {
		return f
	}
	f := &frame{
		srcWorld: make([]mgl64.Quat, r.ctx.Source.Len()),
		srcDone:  make([]bool, r.ctx.Source.Len()),
		trgWorld: make([]mgl64.Quat, r.ctx.Target.Len()),
		trgDone:  make([]bool, r.ctx.Target.Len()),
	}
	r.frames[time] = f
	return f
}

// sourceWorld is the animated world rotation of source bone s, ancestors sampled at time.
func (r *run) sourceWorld(f *frame, time float64, s int) mgl64.Quat {
	if f.srcDone[s] {
		return f.srcWorld[s]
	}
	src := r.ctx.Source
	parent := src.ParentWorldRotation(s)
	if p := src.Parent[s]; p >= 0 {
		parent = r.sourceWorld(f, time, p)
	}
	local := src.Local[s].Rotation
	if t, ok := r.rotations[s]; ok {
		local = t.SampleQuat(time)
	}
	f.srcWorld[s] = utils.NormalizeQuat(parent.Mul(local))
	f.srcDone[s] = true
	return f.srcWorld[s]
}

// targetWorld follows mapped source bones; unmapped target bones keep their rest locals.
func (r *run) targetWorld(f *frame, time float64, t int) mgl64.Quat {
	if f.trgDone[t] {
		return f.trgWorld[t]
	}
	trg := r.ctx.Target
	var w mgl64.Quat
	if s := r.ctx.SourceOf(t); s >= 0 {
		pair, _ := r.ctx.PairOf(s)
		w = r.sourceWorld(f, time, s).Mul(pair.Right)
	} else {
		parent := trg.ParentWorldRotation(t)
		if p := trg.Parent[t]; p >= 0 {
			parent = r.targetWorld(f, time, p)
		}
		w = parent.Mul(trg.Local[t].Rotation)
	}
	f.trgWorld[t] = utils.NormalizeQuat(w)
	f.trgDone[t] = true
	return f.trgWorld[t]
}

// worldSpace converts q, the local rotation of the pair source at time, through world space.
func (r *run) worldSpace(pair Pair, time float64, q mgl64.Quat) mgl64.Quat {
	f := r.frameAt(time)
	src := r.ctx.Source
	srcParent := src.ParentWorldRotation(pair.Source)
	if p := src.Parent[pair.Source]; p >= 0 {
		srcParent = r.sourceWorld(f, time, p)
	}
	world := srcParent.Mul(q).Mul(pair.Right)

	trg := r.ctx.Target
	trgParent := trg.ParentWorldRotation(pair.Target)
	if p := trg.Parent[pair.Target]; p >= 0 {
		trgParent = r.targetWorld(f, time, p)
	}
	return trgParent.Inverse().Mul(world)
}
