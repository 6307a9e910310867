package retarget

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/stat"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/coords"
	"github.com/mogaika/retargeter/pose"
	"github.com/mogaika/retargeter/rig"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
)

// Pair holds the rest deltas of a mapped bone: a source local rotation q
// becomes the target local rotation Left*q*Right.
type Pair struct {
	Source int
	Target int
	Left   mgl64.Quat
	Right  mgl64.Quat
}

// Context is everything precomputed by Engine.Initialize. It is read only afterwards.
type Context struct {
	Options config.RetargetOptions

	Source *skeleton.BindPose
	Target *skeleton.BindPose

	// BoneMapIndices is indexed by source bone; -1 for unmapped bones.
	BoneMapIndices []int
	Pairs          []Pair

	ProportionRatio      float64
	Coordinates          coords.Result
	CoordinateCorrection mgl64.Quat

	SourceRoot int
	TargetRoot int

	SourcePose        pose.Type
	TargetPose        pose.Type
	SourceCorrections pose.Corrections
	TargetCorrections pose.Corrections

	pairBySource []int
	pairByTarget []int
}

// PairOf returns the pair of source bone s.
func (c *Context) PairOf(s int) (Pair, bool) {
	if s < 0 || s >= len(c.pairBySource) || c.pairBySource[s] < 0 {
		return Pair{}, false
	}
	return c.Pairs[c.pairBySource[s]], true
}

// SourceOf returns the first source bone mapped onto target bone t, or -1.
func (c *Context) SourceOf(t int) int {
	if t < 0 || t >= len(c.pairByTarget) || c.pairByTarget[t] < 0 {
		return -1
	}
	return c.Pairs[c.pairByTarget[t]].Source
}

func (c *Context) MappedCount() int {
	return len(c.Pairs)
}

func boneMapIndices(src, trg *skeleton.BindPose, bm *bonemap.BoneMap) []int {
	indices := make([]int, src.Len())
	for i, name := range src.Names {
		indices[i] = -1
		if bm == nil {
			continue
		}
		if t, ok := bm.Get(name); ok {
			indices[i] = trg.Index(t)
		}
	}
	return indices
}

func computePairs(c *Context) {
	c.pairBySource = make([]int, c.Source.Len())
	c.pairByTarget = make([]int, c.Target.Len())
	for i := range c.pairBySource {
		c.pairBySource[i] = -1
	}
	for i := range c.pairByTarget {
		c.pairByTarget[i] = -1
	}

	for s, t := range c.BoneMapIndices {
		if t < 0 {
			continue
		}
		srcWorld := c.Source.WorldRotation(s)
		trgWorld := c.Target.WorldRotation(t)
		srcParent := c.Source.ParentWorldRotation(s)
		trgParent := c.Target.ParentWorldRotation(t)

		c.pairBySource[s] = len(c.Pairs)
		if c.pairByTarget[t] < 0 {
			c.pairByTarget[t] = len(c.Pairs)
		}
		c.Pairs = append(c.Pairs, Pair{
			Source: s,
			Target: t,
			Left:   utils.NormalizeQuat(trgParent.Inverse().Mul(srcParent)),
			Right:  utils.NormalizeQuat(srcWorld.Inverse().Mul(trgWorld)),
		})
	}
}

// proportionRatio is the median target/source bone length over mapped pairs.
// Pairs with a zero length on either side are ignored; without any, the ratio is 1.
func proportionRatio(c *Context) float64 {
	ratios := make([]float64, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		sl := c.Source.BoneLength(p.Source)
		tl := c.Target.BoneLength(p.Target)
		if sl > utils.Epsilon && tl > utils.Epsilon {
			ratios = append(ratios, tl/sl)
		}
	}
	if len(ratios) == 0 {
		return 1
	}
	sort.Float64s(ratios)
	return stat.Quantile(0.5, stat.Empirical, ratios, nil)
}

func functionalRoot(bp *skeleton.BindPose) int {
	return rig.FunctionalRootOf(bp.Names, bp.Parent)
}
