package bonename

import "strings"

// Canonical roles.
const (
	RoleHips     = "hips"
	RoleSpine    = "spine"
	RoleSpine1   = "spine1"
	RoleSpine2   = "spine2"
	RoleSpine3   = "spine3"
	RoleNeck     = "neck"
	RoleHead     = "head"
	RoleShoulder = "shoulder"
	RoleArm      = "arm"
	RoleForearm  = "forearm"
	RoleHand     = "hand"
	RoleUpLeg    = "upleg"
	RoleLeg      = "leg"
	RoleFoot     = "foot"
	RoleToe      = "toe"
)

var synonyms = map[string]string{
	"hip":        RoleHips,
	"hips":       RoleHips,
	"pelvis":     RoleHips,
	"spine":      RoleSpine,
	"spine0":     RoleSpine,
	"spine1":     RoleSpine1,
	"chest":      RoleSpine1,
	"spine2":     RoleSpine2,
	"upperchest": RoleSpine2,
	"spine3":     RoleSpine3,
	"neck":       RoleNeck,
	"neck1":      RoleNeck,
	"head":       RoleHead,
	"shoulder":   RoleShoulder,
	"clavicle":   RoleShoulder,
	"collar":     RoleShoulder,
	"arm":        RoleArm,
	"upperarm":   RoleArm,
	"uparm":      RoleArm,
	"forearm":    RoleForearm,
	"lowerarm":   RoleForearm,
	"elbow":      RoleForearm,
	"hand":       RoleHand,
	"wrist":      RoleHand,
	"upleg":      RoleUpLeg,
	"upperleg":   RoleUpLeg,
	"thigh":      RoleUpLeg,
	"leg":        RoleLeg,
	"lowerleg":   RoleLeg,
	"calf":       RoleLeg,
	"shin":       RoleLeg,
	"knee":       RoleLeg,
	"foot":       RoleFoot,
	"ankle":      RoleFoot,
	"toe":        RoleToe,
	"toes":       RoleToe,
	"toebase":    RoleToe,
	"ball":       RoleToe,
}

var fingerNames = []string{"thumb", "index", "middle", "ring", "pinky"}

var fingerSynonyms = map[string]string{
	"little": "pinky",
	"pinkie": "pinky",
}

var phalanxSynonyms = map[string]string{
	"proximal":     "1",
	"intermediate": "2",
	"distal":       "3",
	"metacarpal":   "0",
}

// BaseRoles lists the base humanoid roles in mapping priority order.
var BaseRoles = []string{
	RoleHips,
	RoleSpine, RoleSpine1, RoleSpine2, RoleSpine3,
	RoleNeck, RoleHead,
	RoleShoulder, RoleArm, RoleForearm, RoleHand,
	RoleUpLeg, RoleLeg, RoleFoot,
}

var sidedRoles = map[string]bool{
	RoleShoulder: true,
	RoleArm:      true,
	RoleForearm:  true,
	RoleHand:     true,
	RoleUpLeg:    true,
	RoleLeg:      true,
	RoleFoot:     true,
	RoleToe:      true,
}

func canonicalRole(body string) string {
	if r, ok := synonyms[body]; ok {
		return r
	}
	if f := fingerRole(body); f != "" {
		return f
	}
	return body
}

// fingerRole understands "handthumb1", "thumb01", "indexproximal", "littleintermediate", "fingerindex2".
func fingerRole(body string) string {
	rest := strings.TrimPrefix(body, "hand")
	rest = strings.TrimPrefix(rest, "finger")

	for alias, name := range fingerSynonyms {
		if strings.HasPrefix(rest, alias) {
			rest = name + rest[len(alias):]
			break
		}
	}
	for _, f := range fingerNames {
		if !strings.HasPrefix(rest, f) {
			continue
		}
		tail := strings.TrimPrefix(rest[len(f):], "finger")
		if p, ok := phalanxSynonyms[tail]; ok {
			tail = p
		}
		if tail == "" || isNumber(tail) {
			return f + tail
		}
	}
	return ""
}

func IsFingerRole(role string) bool {
	for _, f := range fingerNames {
		if strings.HasPrefix(role, f) && (len(role) == len(f) || isNumber(role[len(f):])) {
			return true
		}
	}
	return false
}

func IsHandRole(role string) bool {
	return role == RoleHand
}

// IsBase reports whether key belongs to the base humanoid set.
// Limb roles need a side, trunk roles must not have one.
func IsBase(k Key) bool {
	for _, r := range BaseRoles {
		if r == k.Role {
			return sidedRoles[r] == (k.Side != Center)
		}
	}
	return false
}

// BaseRank orders base roles for mapping; -1 when key is not base.
func BaseRank(k Key) int {
	if !IsBase(k) {
		return -1
	}
	for i, r := range BaseRoles {
		if r == k.Role {
			return i*3 + int(k.Side)
		}
	}
	return -1
}

// IsLimbName reports names containing arm, leg, hand or foot.
func IsLimbName(name string) bool {
	n := Normalize(name)
	return strings.Contains(n, "arm") || strings.Contains(n, "leg") ||
		strings.Contains(n, "hand") || strings.Contains(n, "foot")
}
