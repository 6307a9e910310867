package diag

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := Errorf(PoseMismatch, "arms %d", 2)
	assert.Equal(t, "pose_mismatch: arms 2", err.Error())
	assert.Equal(t, PoseMismatch, KindOf(errors.Wrapf(err, "initialize")))
	assert.True(t, Is(errors.Wrap(err, "outer"), PoseMismatch))
	assert.False(t, Is(nil, PoseMismatch))
	assert.Equal(t, KindNone, KindOf(errors.New("plain")))

	text, err := IOAdjacent.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "io", string(text))
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestResult(t *testing.T) {
	v, err := From(3, nil).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	r := From(0, errors.Wrap(Errorf(NotInitialized, "no target"), "play"))
	assert.False(t, r.Ok)
	assert.Equal(t, NotInitialized, r.Kind)
	_, err = r.Unwrap()
	assert.True(t, Is(err, NotInitialized))
}

func TestLog(t *testing.T) {
	var nilLog *Log
	nilLog.Add(TrackDropped, "a", "ignored")
	assert.Nil(t, nilLog.Entries())
	assert.Zero(t, nilLog.Count(TrackDropped))

	l := NewLog("retarget")
	l.Add(TrackDropped, "Hips.position", "no root motion")
	l.Add(TrackDropped, "Foo.scale", "unmapped")
	l.AddError(Errorf(InvalidInput, "bad clip"))
	l.AddError(nil)
	assert.Equal(t, 2, l.Count(TrackDropped))
	assert.Equal(t, 1, l.Count(InvalidInput))

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, `[retarget] track_dropped "Hips.position": no root motion`, entries[0].String())
	entries[0].Detail = "changed"
	assert.Equal(t, "no root motion", l.Entries()[0].Detail)

	l.Reset()
	assert.Empty(t, l.Entries())
}
