package config

import (
	"strings"

	"github.com/pkg/errors"
)

type LoopKind int

const (
	LoopOnce LoopKind = iota
	LoopRepeat
)

func (k LoopKind) String() string {
	if k == LoopRepeat {
		return "LoopRepeat"
	}
	return "LoopOnce"
}

func (k LoopKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *LoopKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "looponce", "once":
		*k = LoopOnce
	case "looprepeat", "repeat":
		*k = LoopRepeat
	default:
		return errors.Errorf("Unknown loop kind %q", string(b))
	}
	return nil
}

type PlaybackOptions struct {
	Loop      bool     `yaml:"loop" json:"loop"`
	LoopKind  LoopKind `yaml:"loopKind" json:"loopKind"`
	FrameRate float64  `yaml:"frameRate" json:"frameRate"`
}

func DefaultPlaybackOptions() PlaybackOptions {
	return PlaybackOptions{
		Loop:      false,
		LoopKind:  LoopOnce,
		FrameRate: 30,
	}
}
