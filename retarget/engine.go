// Package retarget converts clips authored for a source skeleton into clips driving a target skeleton.
package retarget

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/coords"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/pose"
	"github.com/mogaika/retargeter/rig"
	"github.com/mogaika/retargeter/skeleton"
)

// Engine owns a retargeting context. It is not safe for concurrent use.
type Engine struct {
	opts config.RetargetOptions
	ctx  *Context
	log  *diag.Log
}

func NewEngine(opts config.RetargetOptions) *Engine {
	return &Engine{opts: opts, log: diag.NewLog("retarget")}
}

func (e *Engine) Options() config.RetargetOptions { return e.opts }

// SetOptions takes effect on the next Initialize.
func (e *Engine) SetOptions(opts config.RetargetOptions) { e.opts = opts }

// Context is nil before Initialize.
func (e *Engine) Context() *Context { return e.ctx }

func (e *Engine) Initialized() bool { return e.ctx != nil }

func (e *Engine) Diagnostics() []diag.Diagnostic { return e.log.Entries() }

// Reset drops the context; retargeting fails until the next Initialize.
func (e *Engine) Reset() {
	e.ctx = nil
	e.log.Reset()
}

// prepare clones s in the pose the snapshot is taken from.
func prepare(s *skeleton.Skeleton, mode config.PoseMode) *skeleton.Skeleton {
	c := s.Clone()
	if mode == config.PoseDefault {
		c.ResetToBind()
	} else {
		c.UpdateWorld()
	}
	return c
}

func mappedDuplicates(s *skeleton.Skeleton, names map[string]bool) []string {
	var res []string
	for name := range rig.Duplicates(s.Names()) {
		if names[name] {
			res = append(res, name)
		}
	}
	return res
}

// Initialize precomputes the rest deltas between src and trg for the bone map.
// The bone map is copied; later changes to it do not affect the context.
func (e *Engine) Initialize(src, trg *skeleton.Skeleton, bm *bonemap.BoneMap) error {
	e.ctx = nil
	e.log.Reset()

	if src == nil || src.Len() == 0 {
		return e.fail(diag.Errorf(diag.InvalidInput, "no source skeleton"))
	}
	if trg == nil || trg.Len() == 0 {
		return e.fail(diag.Errorf(diag.InvalidInput, "no target skeleton"))
	}
	if bm != nil {
		bm = bm.Snapshot()
	} else {
		bm = bonemap.New()
	}

	srcNames := make(map[string]bool, bm.Len())
	trgNames := make(map[string]bool, bm.Len())
	for _, en := range bm.Entries() {
		srcNames[en.Source] = true
		trgNames[en.Target] = true
	}
	if d := mappedDuplicates(src, srcNames); len(d) != 0 {
		return e.fail(diag.Errorf(diag.InvalidInput, "duplicate source bone names block mapping: %s", strings.Join(d, ", ")))
	}
	if d := mappedDuplicates(trg, trgNames); len(d) != 0 {
		return e.fail(diag.Errorf(diag.InvalidInput, "duplicate target bone names block mapping: %s", strings.Join(d, ", ")))
	}

	srcWork := prepare(src, e.opts.SrcPoseMode)
	trgWork := prepare(trg, e.opts.TrgPoseMode)

	ctx := &Context{
		Options:           e.opts,
		ProportionRatio:   1,
		SourceCorrections: make(pose.Corrections),
		TargetCorrections: make(pose.Corrections),
	}

	if e.opts.AutoValidatePose || e.opts.AutoApplyTPose {
		if err := e.normalizePoses(ctx, srcWork, trgWork); err != nil {
			return e.fail(err)
		}
	}

	ctx.Source = srcWork.Snapshot(config.PoseCurrent, e.opts.SrcEmbedWorld)
	ctx.Target = trgWork.Snapshot(config.PoseCurrent, e.opts.TrgEmbedWorld)
	ctx.SourceRoot = functionalRoot(ctx.Source)
	ctx.TargetRoot = functionalRoot(ctx.Target)

	ctx.BoneMapIndices = boneMapIndices(ctx.Source, ctx.Target, bm)
	computePairs(ctx)
	if len(ctx.Pairs) == 0 {
		e.log.Add(diag.MappingEmpty, "", "no source bone maps onto the target, clips will retarget empty")
	}
	for _, en := range bm.Entries() {
		if ctx.Source.Index(en.Source) < 0 || ctx.Target.Index(en.Target) < 0 {
			log.Debugf("[retarget] mapping %q -> %q ignored, bone not in skeleton", en.Source, en.Target)
		}
	}

	if e.opts.UseOptimalScale {
		ctx.ProportionRatio = proportionRatio(ctx)
	}

	ctx.Coordinates = coords.Detect(coords.FrameFromSkeleton(trgWork))
	ctx.CoordinateCorrection = ctx.Coordinates.Correction

	e.ctx = ctx
	log.WithFields(log.Fields{
		"pairs":      len(ctx.Pairs),
		"ratio":      ctx.ProportionRatio,
		"sourceRoot": ctx.Source.Names[ctx.SourceRoot],
		"targetRoot": ctx.Target.Names[ctx.TargetRoot],
		"up":         ctx.Coordinates.Up.String(),
	}).Info("[retarget] initialized")
	return nil
}

// normalizePoses detects bind poses of both sides. Differing poses are either
// normalized to T-pose or reported as PoseMismatch.
func (e *Engine) normalizePoses(ctx *Context, src, trg *skeleton.Skeleton) error {
	ctx.SourcePose = pose.Detect(src)
	ctx.TargetPose = pose.Detect(trg)
	if ctx.SourcePose == ctx.TargetPose {
		return nil
	}
	if !e.opts.AutoApplyTPose {
		if e.opts.AutoValidatePose {
			return diag.Errorf(diag.PoseMismatch, "source is in %s, target is in %s", ctx.SourcePose, ctx.TargetPose)
		}
		return nil
	}

	for _, side := range []struct {
		s     *skeleton.Skeleton
		kind  *pose.Type
		corr  pose.Corrections
		label string
	}{
		{src, &ctx.SourcePose, ctx.SourceCorrections, "source"},
		{trg, &ctx.TargetPose, ctx.TargetCorrections, "target"},
	} {
		if *side.kind == pose.TPose {
			continue
		}
		c, err := pose.ApplyTPose(side.s)
		if err != nil {
			return diag.Errorf(diag.PoseMismatch, "cannot bring %s from %s to T-pose: %v", side.label, *side.kind, err)
		}
		side.corr.Merge(c)
		*side.kind = pose.Detect(side.s)
		log.Printf("[retarget] %s normalized to %s (%d bones corrected)", side.label, *side.kind, len(c))
	}
	return nil
}

func (e *Engine) fail(err error) error {
	e.log.AddError(err)
	return err
}

// RetargetClip produces a clip driving the target skeleton. Tracks that cannot be
// converted are dropped and recorded in Diagnostics.
func (e *Engine) RetargetClip(c *clip.Clip) (*clip.Clip, error) {
	if e.ctx == nil {
		return nil, e.fail(diag.Errorf(diag.NotInitialized, "retarget called before initialize"))
	}
	if c == nil {
		return nil, e.fail(diag.Errorf(diag.InvalidInput, "no clip"))
	}
	return newRun(e.ctx, c, e.log).retarget(), nil
}

// RetargetAll retargets clips in order. progress may be nil.
func (e *Engine) RetargetAll(clips []*clip.Clip, progress func(done, total int)) ([]*clip.Clip, error) {
	res := make([]*clip.Clip, 0, len(clips))
	for i, c := range clips {
		out, err := e.RetargetClip(c)
		if err != nil {
			return res, err
		}
		res = append(res, out)
		if progress != nil {
			progress(i+1, len(clips))
		}
	}
	return res, nil
}
