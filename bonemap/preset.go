package bonemap

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/rig"
)

// Preset is the persisted form of a bone map.
type Preset struct {
	Name         string     `json:"name" yaml:"name"`
	Entries      []Entry    `json:"entries" yaml:"entries"`
	Confidence   float64    `json:"confidence" yaml:"confidence"`
	SourceFamily rig.Family `json:"sourceFamily,omitempty" yaml:"sourceFamily,omitempty"`
	TargetFamily rig.Family `json:"targetFamily,omitempty" yaml:"targetFamily,omitempty"`
}

func NewPreset(name string, m *BoneMap) (*Preset, error) {
	p := &Preset{
		Name:         strings.TrimSpace(name),
		Entries:      m.Entries(),
		Confidence:   m.Confidence,
		SourceFamily: m.SourceFamily,
		TargetFamily: m.TargetFamily,
	}
	return p, p.Validate()
}

func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return diag.Errorf(diag.InvalidInput, "mapping preset name is empty")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return diag.Errorf(diag.InvalidInput, "mapping preset %q confidence %v out of [0,1]", p.Name, p.Confidence)
	}
	return nil
}

// Apply loads the preset into m and returns bones absent from the given skeletons.
func (p *Preset) Apply(m *BoneMap, sourceBones, targetBones []string) []string {
	missing := m.Set(p.Entries, sourceBones, targetBones)
	m.Confidence = p.Confidence
	m.SourceFamily = p.SourceFamily
	m.TargetFamily = p.TargetFamily
	return missing
}

type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

func (p *Preset) Encode(f Format) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if f == FormatYAML {
		return yaml.Marshal(p)
	}
	return json.MarshalIndent(p, "", "  ")
}

func DecodePreset(data []byte, f Format) (*Preset, error) {
	var p Preset
	var err error
	if f == FormatYAML {
		err = yaml.Unmarshal(data, &p)
	} else {
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "decoding mapping preset: %v", err)
	}
	return &p, p.Validate()
}

func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "reading mapping preset: %v", err)
	}
	p, err := DecodePreset(data, FormatOf(path))
	return p, errors.Wrapf(err, "Preset %q", path)
}

func SavePreset(path string, p *Preset) error {
	data, err := p.Encode(FormatOf(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		return diag.Errorf(diag.IOAdjacent, "writing mapping preset %q: %v", path, err)
	}
	return nil
}
