package rig

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/retargeter/bonename"
)

// Family is a naming convention of humanoid rigs. Used for user feedback only.
type Family int

const (
	Custom Family = iota
	Mixamo
	UE4
	UE5
	Unity
	Humanoid
)

var familyNames = []string{"custom", "mixamo", "ue4", "ue5", "unity", "humanoid"}

func (f Family) String() string {
	if int(f) >= 0 && int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "custom"
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Family) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for i, n := range familyNames {
		if n == s {
			*f = Family(i)
			return nil
		}
	}
	return errors.Errorf("Unknown rig family %q", string(b))
}

// Classify guesses the family from naming markers. Order matters: ue5 names are a superset of ue4.
func Classify(names []string) Family {
	if len(names) == 0 {
		return Custom
	}

	set := make(map[string]bool, len(names))
	mixamo := 0
	for _, n := range names {
		set[n] = true
		if strings.HasPrefix(strings.ToLower(n), "mixamorig") {
			mixamo++
		}
	}

	switch {
	case mixamo*2 > len(names) || (mixamo != 0 && set["mixamorig:Hips"]):
		return Mixamo
	case set["pelvis"] && (set["spine_04"] || set["spine_05"] || set["neck_02"]):
		return UE5
	case set["pelvis"] && (set["upperarm_l"] || set["thigh_l"] || set["clavicle_l"]):
		return UE4
	case set["Hips"] && (set["LeftUpperArm"] || set["LeftUpperLeg"]):
		return Unity
	}

	base := make(map[bonename.Key]bool)
	for _, n := range names {
		if k := bonename.Canonical(n); bonename.IsBase(k) {
			base[k] = true
		}
	}
	if base[bonename.Key{Role: bonename.RoleHips}] && len(base) >= 5 {
		return Humanoid
	}
	return Custom
}
