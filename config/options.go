package config

import (
	"strings"

	"github.com/pkg/errors"
)

type PoseMode int

const (
	PoseDefault PoseMode = iota // original bind pose
	PoseCurrent                 // live pose becomes the bind
)

func (m PoseMode) String() string {
	if m == PoseCurrent {
		return "current"
	}
	return "default"
}

func (m PoseMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *PoseMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "default":
		*m = PoseDefault
	case "current":
		*m = PoseCurrent
	default:
		return errors.Errorf("Unknown pose mode %q", string(b))
	}
	return nil
}

type RetargetOptions struct {
	UseWorldSpaceTransformation bool     `yaml:"useWorldSpaceTransformation" json:"useWorldSpaceTransformation"`
	AutoValidatePose            bool     `yaml:"autoValidatePose" json:"autoValidatePose"`
	AutoApplyTPose              bool     `yaml:"autoApplyTPose" json:"autoApplyTPose"`
	UseOptimalScale             bool     `yaml:"useOptimalScale" json:"useOptimalScale"`
	SrcEmbedWorld               bool     `yaml:"srcEmbedWorld" json:"srcEmbedWorld"`
	TrgEmbedWorld               bool     `yaml:"trgEmbedWorld" json:"trgEmbedWorld"`
	SrcPoseMode                 PoseMode `yaml:"srcPoseMode" json:"srcPoseMode"`
	TrgPoseMode                 PoseMode `yaml:"trgPoseMode" json:"trgPoseMode"`
	PreserveRootMotion          bool     `yaml:"preserveRootMotion" json:"preserveRootMotion"`
	ApplyCoordinateCorrection   bool     `yaml:"applyCoordinateCorrection" json:"applyCoordinateCorrection"`
}

func DefaultRetargetOptions() RetargetOptions {
	return RetargetOptions{
		UseOptimalScale:    true,
		PreserveRootMotion: true,
	}
}

type MappingOptions struct {
	IncludeHandFingers bool    `yaml:"includeHandFingers" json:"includeHandFingers"`
	FuzzyThreshold     float64 `yaml:"fuzzyThreshold" json:"fuzzyThreshold"`
}
