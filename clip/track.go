package clip

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/retargeter/utils"
)

type Kind int

const (
	KindQuaternion Kind = iota
	KindVector
	KindNumber
	KindColor
	KindBoolean
	KindString
)

var kindTags = []string{"quaternion", "vector", "number", "color", "bool", "string"}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindTags) {
		return kindTags[k]
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	kind, err := KindFromTag(string(b))
	if err == nil {
		*k = kind
	}
	return err
}

func KindFromTag(tag string) (Kind, error) {
	for i, t := range kindTags {
		if t == tag {
			return Kind(i), nil
		}
	}
	if tag == "boolean" {
		return KindBoolean, nil
	}
	return 0, errors.Errorf("Unknown track type %q", tag)
}

// IsDiscrete kinds carry Bools or Strings instead of Values.
func (k Kind) IsDiscrete() bool {
	return k == KindBoolean || k == KindString
}

type Interpolation int

const (
	InterpolateLinear Interpolation = iota
	InterpolateDiscrete
)

// Track is a keyframe sequence targeting a single node property.
// Numeric kinds store values packed in Values, Count() items of ItemSize() floats.
type Track struct {
	Kind          Kind
	Name          string
	Times         []float64
	Values        []float64
	Bools         []bool
	Strings       []string
	Interpolation Interpolation
}

func NewQuaternionTrack(name string, times []float64, values []float64) *Track {
	return &Track{Kind: KindQuaternion, Name: name, Times: times, Values: values}
}

func NewVectorTrack(name string, times []float64, values []float64) *Track {
	return &Track{Kind: KindVector, Name: name, Times: times, Values: values}
}

func NewNumberTrack(name string, times []float64, values []float64) *Track {
	return &Track{Kind: KindNumber, Name: name, Times: times, Values: values}
}

// ItemSize is the count of floats per keyframe. Number tracks may pack several
// values per key (morph target weights).
func (t *Track) ItemSize() int {
	switch t.Kind {
	case KindQuaternion:
		return 4
	case KindVector, KindColor:
		return 3
	case KindNumber:
		if len(t.Times) != 0 && len(t.Values) > len(t.Times) && len(t.Values)%len(t.Times) == 0 {
			return len(t.Values) / len(t.Times)
		}
	}
	return 1
}

func (t *Track) valueCount() int {
	switch t.Kind {
	case KindBoolean:
		return len(t.Bools)
	case KindString:
		return len(t.Strings)
	}
	return len(t.Values) / t.ItemSize()
}

// Aligned reports whether every time has exactly one value item.
func (t *Track) Aligned() bool {
	if t.Kind.IsDiscrete() {
		return t.valueCount() == len(t.Times)
	}
	return len(t.Values) == len(t.Times)*t.ItemSize()
}

func (t *Track) Path() (Path, error) {
	return ParsePath(t.Name)
}

func (t *Track) Quat(i int) mgl64.Quat {
	v := t.Values[i*4 : i*4+4]
	return mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
}

func (t *Track) SetQuat(i int, q mgl64.Quat) {
	v := t.Values[i*4 : i*4+4]
	v[0], v[1], v[2], v[3] = q.V[0], q.V[1], q.V[2], q.W
}

func (t *Track) Vec3(i int) mgl64.Vec3 {
	v := t.Values[i*3 : i*3+3]
	return mgl64.Vec3{v[0], v[1], v[2]}
}

func (t *Track) SetVec3(i int, v mgl64.Vec3) {
	copy(t.Values[i*3:i*3+3], v[:])
}

func (t *Track) MinTime() float64 {
	if len(t.Times) == 0 {
		return math.Inf(1)
	}
	return t.Times[0]
}

func (t *Track) MaxTime() float64 {
	if len(t.Times) == 0 {
		return 0
	}
	return t.Times[len(t.Times)-1]
}

// Clone copies times and values; the copy shares nothing with t.
func (t *Track) Clone() *Track {
	c := *t
	c.Times = append([]float64(nil), t.Times...)
	if t.Values != nil {
		c.Values = append([]float64(nil), t.Values...)
	}
	if t.Bools != nil {
		c.Bools = append([]bool(nil), t.Bools...)
	}
	if t.Strings != nil {
		c.Strings = append([]string(nil), t.Strings...)
	}
	return &c
}

// WithName returns a copy with another target path; arrays are shared.
func (t *Track) WithName(name string) *Track {
	c := *t
	c.Name = name
	return &c
}

// key returns the segment index i and blend factor so that time lies between Times[i] and Times[i+1].
func (t *Track) key(time float64) (int, float64) {
	n := len(t.Times)
	if n == 1 || time <= t.Times[0] {
		return 0, 0
	}
	if time >= t.Times[n-1] {
		return n - 1, 0
	}
	i := sort.SearchFloat64s(t.Times, time)
	if t.Times[i] == time {
		return i, 0
	}
	i--
	return i, (time - t.Times[i]) / (t.Times[i+1] - t.Times[i])
}

// Sample interpolates numeric values at time. Quaternions use the shortest arc slerp.
func (t *Track) Sample(time float64) []float64 {
	if len(t.Times) == 0 || t.Kind.IsDiscrete() {
		return nil
	}
	size := t.ItemSize()
	i, f := t.key(time)
	a := t.Values[i*size : i*size+size]
	out := make([]float64, size)
	if f == 0 || t.Interpolation == InterpolateDiscrete {
		copy(out, a)
		return out
	}
	b := t.Values[(i+1)*size : (i+1)*size+size]

	if t.Kind == KindQuaternion {
		qa, qb := t.Quat(i), t.Quat(i+1)
		if qa.Dot(qb) < 0 {
			qb = qb.Scale(-1)
		}
		q := utils.NormalizeQuat(mgl64.QuatSlerp(qa, qb, f))
		out[0], out[1], out[2], out[3] = q.V[0], q.V[1], q.V[2], q.W
		return out
	}
	for k := range out {
		out[k] = a[k] + (b[k]-a[k])*f
	}
	return out
}

func (t *Track) SampleQuat(time float64) mgl64.Quat {
	v := t.Sample(time)
	if len(v) != 4 {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
}

func (t *Track) SampleVec3(time float64) mgl64.Vec3 {
	v := t.Sample(time)
	if len(v) != 3 {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{v[0], v[1], v[2]}
}

// SampleDiscrete returns the index of the key active at time, -1 before the first.
func (t *Track) SampleDiscrete(time float64) int {
	if len(t.Times) == 0 || time < t.Times[0] {
		return -1
	}
	return sort.Search(len(t.Times), func(i int) bool { return t.Times[i] > time }) - 1
}
