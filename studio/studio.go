// Package studio owns one retargeting session: a target model, a source of
// clips, the bone map between them, retargeted clips and their playback.
// Every method is safe for concurrent use; calls are serialized.
package studio

import (
	"fmt"
	"path"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/coords"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/gltfio"
	"github.com/mogaika/retargeter/host"
	"github.com/mogaika/retargeter/playback"
	"github.com/mogaika/retargeter/pose"
	"github.com/mogaika/retargeter/project"
	"github.com/mogaika/retargeter/retarget"
	"github.com/mogaika/retargeter/rig"
	"github.com/mogaika/retargeter/skeleton"
)

type Studio struct {
	lock sync.Mutex

	cfg     config.Config
	host    host.Host
	library *bonemap.Library

	project *project.Project
	target  *gltfio.Model
	source  *gltfio.Model
	// live copy of the target skeleton posed by the mixer
	rig *skeleton.Skeleton

	clips   *clip.Collection
	mapping *bonemap.Bus
	engine  *retarget.Engine
	mixer   *playback.Mixer
	player  *playback.Controller

	diagnostics []diag.Diagnostic
}

// New starts an empty session. h and library may be nil.
func New(cfg config.Config, h host.Host, library *bonemap.Library) *Studio {
	s := &Studio{
		cfg:     cfg,
		host:    h,
		library: library,
		project: project.New(""),
		clips:   clip.NewCollection(),
		mapping: bonemap.NewBus(nil),
		engine:  retarget.NewEngine(cfg.Retarget),
		mixer:   playback.NewMixer(),
		player:  playback.NewController(cfg.Playback),
	}
	s.mapping.Subscribe(func(ev bonemap.Event) {
		if len(ev.Missing) != 0 {
			s.notify(host.Warning, "%d mapped bones are missing: %s", len(ev.Missing), strings.Join(ev.Missing, ", "))
		}
	})
	return s
}

func (s *Studio) notify(level host.Level, format string, a ...interface{}) {
	if s.host == nil {
		switch level {
		case host.Error:
			log.Errorf("[studio] "+format, a...)
		case host.Warning:
			log.Warnf("[studio] "+format, a...)
		default:
			log.Printf("[studio] "+format, a...)
		}
		return
	}
	s.host.ShowNotification(level, fmt.Sprintf(format, a...))
}

func (s *Studio) read(file string) (*gltfio.Model, error) {
	if s.host == nil {
		return nil, diag.Errorf(diag.IOAdjacent, "no host to read %q from", file)
	}
	data, err := s.host.ReadFile(file)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(path.Base(file), path.Ext(file))
	m, err := gltfio.Decode(name, data)
	if err != nil {
		return nil, err
	}
	if m.Skeleton == nil || m.Skeleton.Len() == 0 {
		return nil, diag.Errorf(diag.InvalidInput, "%q has no skeleton", file)
	}
	return m, nil
}

// LoadTarget replaces the target model. Its own clips become the clip collection.
func (s *Studio) LoadTarget(file string) (*ModelSummary, error) {
	m, err := s.read(file)
	if err != nil {
		s.notify(host.Error, "Failed to load target: %v", err)
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.setTarget(m, path.Base(file))
	clips := make([]*clip.Clip, len(m.Clips))
	for i, c := range m.Clips {
		clips[i] = c.Trim()
	}
	s.clips.Load(clips)
	s.autoMapIfEmpty()

	sum := summarize(m)
	s.notify(host.Info, "Loaded target %q: %d bones, %s rig", m.Name, sum.Stats.BoneCount, sum.Stats.Family)
	return sum, nil
}

// setTarget resets everything derived from the previous target.
func (s *Studio) setTarget(m *gltfio.Model, file string) {
	s.player.Reset()
	s.mixer = playback.NewMixer()
	s.engine.Reset()
	s.target = m
	s.rig = m.Skeleton.Clone()
	s.rig.UpdateWorld()
	s.project.SetModel(project.ModelInfo{
		Name:      m.Name,
		File:      file,
		BoneCount: m.Skeleton.Len(),
		Root:      m.Root,
		UpAxis:    m.UpAxis,
	}, m.Source)
	s.project.Materials = make([]project.Material, len(m.Materials))
	for i, mat := range m.Materials {
		s.project.Materials[i] = project.Material{Name: mat.Name, Textures: mat.Textures}
	}
	s.project.Textures = m.Images
	if s.project.Textures == nil {
		s.project.Textures = make(map[string][]byte)
	}
}

// LoadSource replaces the source rig whose clips are retargeted.
func (s *Studio) LoadSource(file string) (*ModelSummary, error) {
	m, err := s.read(file)
	if err != nil {
		s.notify(host.Error, "Failed to load source: %v", err)
		return nil, err
	}
	for i, c := range m.Clips {
		m.Clips[i] = c.Trim()
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.engine.Reset()
	s.source = m
	s.autoMapIfEmpty()

	sum := summarize(m)
	if len(m.Clips) == 0 {
		s.notify(host.Warning, "Source %q has no animations", m.Name)
	} else {
		s.notify(host.Info, "Loaded source %q: %d animations", m.Name, len(m.Clips))
	}
	return sum, nil
}

type ModelSummary struct {
	Name   string              `json:"name"`
	Stats  rig.Stats           `json:"stats"`
	Pose   pose.Type           `json:"pose"`
	Up     coords.Axis         `json:"up"`
	Right  bool                `json:"rightHanded"`
	Clips  []ClipInfo          `json:"clips"`
	Meshes map[string][]string `json:"meshes,omitempty"`
}

type ClipInfo struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Tracks   int     `json:"tracks"`
}

func clipInfos(clips []*clip.Clip) []ClipInfo {
	res := make([]ClipInfo, len(clips))
	for i, c := range clips {
		res[i] = ClipInfo{Index: i, Name: c.Name, Duration: c.Duration, Tracks: len(c.Tracks)}
	}
	return res
}

func summarize(m *gltfio.Model) *ModelSummary {
	sk := m.Skeleton.Clone()
	sk.ResetToBind()
	c := coords.Detect(coords.FrameFromSkeleton(sk))
	sum := &ModelSummary{
		Name:  m.Name,
		Stats: rig.Analyze(sk),
		Pose:  pose.Detect(sk),
		Up:    c.Up,
		Right: c.RightHanded,
		Clips: clipInfos(m.Clips),
	}
	if len(sk.Meshes) != 0 {
		sum.Meshes = make(map[string][]string, len(sk.Meshes))
		for i, meshes := range sk.Meshes {
			sum.Meshes[sk.Bones[i].Name] = meshes
		}
	}
	return sum
}

type Info struct {
	Project       string                 `json:"project"`
	Target        *ModelSummary          `json:"target,omitempty"`
	Source        *ModelSummary          `json:"source,omitempty"`
	Compatibility *rig.Compatibility     `json:"compatibility,omitempty"`
	Mapping       int                    `json:"mapping"`
	Confidence    float64                `json:"confidence"`
	Options       config.RetargetOptions `json:"options"`
	Clips         []ClipInfo             `json:"clips"`
	Playback      PlaybackInfo           `json:"playback"`
	Diagnostics   []diag.Diagnostic      `json:"diagnostics,omitempty"`
}

func (s *Studio) Info() Info {
	s.lock.Lock()
	defer s.lock.Unlock()

	m := s.mapping.Snapshot()
	info := Info{
		Project:     s.project.Name,
		Mapping:     m.Len(),
		Confidence:  m.Confidence,
		Options:     s.cfg.Retarget,
		Clips:       clipInfos(s.clips.All()),
		Playback:    s.playbackInfo(),
		Diagnostics: append([]diag.Diagnostic(nil), s.diagnostics...),
	}
	if s.target != nil {
		info.Target = summarize(s.target)
	}
	if s.source != nil {
		info.Source = summarize(s.source)
	}
	if s.target != nil && s.source != nil {
		c := rig.CheckCompatibility(s.source.Skeleton.Names(), s.target.Skeleton.Names())
		info.Compatibility = &c
	}
	return info
}

func (s *Studio) Options() config.RetargetOptions {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cfg.Retarget
}

// SetOptions applies to the next Retarget call.
func (s *Studio) SetOptions(opts config.RetargetOptions) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cfg.Retarget = opts
	s.engine.SetOptions(opts)
}

// Retarget converts every source clip and appends the results to the collection.
// It returns the collection indices of the new clips.
func (s *Studio) Retarget() ([]int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.target == nil || s.source == nil {
		return nil, diag.Errorf(diag.InvalidInput, "load a target and a source first")
	}
	if len(s.source.Clips) == 0 {
		return nil, diag.Errorf(diag.InvalidInput, "source %q has no animations", s.source.Name)
	}

	s.engine.SetOptions(s.cfg.Retarget)
	if err := s.engine.Initialize(s.source.Skeleton, s.target.Skeleton, s.mapping.Snapshot()); err != nil {
		s.diagnostics = s.engine.Diagnostics()
		s.notify(host.Error, "Retargeting setup failed: %v", err)
		return nil, err
	}

	out, err := s.engine.RetargetAll(s.source.Clips, func(done, total int) {
		log.Printf("[studio] retargeted %d/%d", done, total)
	})
	s.diagnostics = s.engine.Diagnostics()
	indices := make([]int, 0, len(out))
	for _, c := range out {
		indices = append(indices, s.clips.Add(c))
	}
	if err != nil {
		s.notify(host.Error, "Retargeting failed: %v", err)
		return indices, err
	}

	if dropped := countKind(s.diagnostics, diag.TrackDropped); dropped != 0 {
		s.notify(host.Warning, "Retargeted %d animations, %d tracks dropped", len(out), dropped)
	} else {
		s.notify(host.Info, "Retargeted %d animations", len(out))
	}
	return indices, nil
}

func countKind(ds []diag.Diagnostic, kind diag.Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Diagnostics of the last retargeting.
func (s *Studio) Diagnostics() []diag.Diagnostic {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]diag.Diagnostic(nil), s.diagnostics...)
}

// Context reports the retargeting context of the last Retarget, nil before.
func (s *Studio) Context() *retarget.Context {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.engine.Context()
}
