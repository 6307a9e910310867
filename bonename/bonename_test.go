package bonename

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	var tests = []struct {
		in, out string
	}{
		{"mixamorig:LeftUpLeg", "leftupleg"},
		{"left_upleg", "leftupleg"},
		{"Armature|Hips", "hips"},
		{"Left-Fore Arm", "leftforearm"},
		{"ＳＰＩＮＥ", "spine"},
	}
	for _, test := range tests {
		assert.Equal(t, test.out, Normalize(test.in), test.in)
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"left", "up", "leg"}, Tokens("mixamorig:LeftUpLeg"))
	assert.Equal(t, []string{"bip", "01", "l", "thigh"}, Tokens("Bip01 L Thigh"))
	assert.Equal(t, []string{"upperarm", "l"}, Tokens("upperarm_l"))
	assert.Equal(t, []string{"spine", "02"}, Tokens("spine_02"))
}

func TestCanonical(t *testing.T) {
	var tests = []struct {
		name string
		key  Key
	}{
		{"mixamorig:LeftUpLeg", Key{Left, RoleUpLeg}},
		{"left_upleg", Key{Left, RoleUpLeg}},
		{"thigh_r", Key{Right, RoleUpLeg}},
		{"Bip01 L Thigh", Key{Left, RoleUpLeg}},
		{"upperarm_l", Key{Left, RoleArm}},
		{"LeftUpperArm", Key{Left, RoleArm}},
		{"lowerarm_r", Key{Right, RoleForearm}},
		{"calf_l", Key{Left, RoleLeg}},
		{"pelvis", Key{Center, RoleHips}},
		{"mixamorig:Hips", Key{Center, RoleHips}},
		{"spine_01", Key{Center, RoleSpine1}},
		{"Chest", Key{Center, RoleSpine1}},
		{"clavicle_l", Key{Left, RoleShoulder}},
		{"LeftHandThumb1", Key{Left, "thumb1"}},
		{"thumb_01_l", Key{Left, "thumb1"}},
		{"LeftLittleProximal", Key{Left, "pinky1"}},
		{"Root", Key{Center, "root"}},
	}
	for _, test := range tests {
		assert.Equal(t, test.key, Canonical(test.name), test.name)
	}
}

func TestRoleSets(t *testing.T) {
	assert.True(t, IsFingerRole("thumb1"))
	assert.True(t, IsFingerRole("pinky"))
	assert.False(t, IsFingerRole("hand"))
	assert.True(t, IsHandRole("hand"))

	assert.True(t, IsBase(Key{Center, RoleHips}))
	assert.True(t, IsBase(Key{Left, RoleArm}))
	assert.False(t, IsBase(Key{Center, RoleArm}))
	assert.False(t, IsBase(Key{Left, "thumb1"}))

	assert.Less(t, BaseRank(Key{Center, RoleHips}), BaseRank(Key{Left, RoleArm}))
	assert.Less(t, BaseRank(Key{Left, RoleArm}), BaseRank(Key{Right, RoleArm}))
	assert.Equal(t, -1, BaseRank(Key{Center, "root"}))

	assert.True(t, IsLimbName("LeftForeArm"))
	assert.False(t, IsLimbName("Spine"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("mixamorig:LeftArm", "upperarm_l"))
	assert.Equal(t, 0.0, Similarity("LeftArm", "RightArm"))
	s := Similarity("Spine", "Spline")
	assert.Greater(t, s, 0.8)
	assert.Less(t, s, 1.0)

	assert.False(t, Compatible(Key{Left, RoleHand}, Key{Left, "thumb1"}))
	assert.False(t, Compatible(Key{Left, "index2"}, Key{Left, RoleHand}))
	assert.True(t, Compatible(Key{Left, RoleHand}, Key{Left, RoleHand}))
}
