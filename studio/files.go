package studio

import (
	"bytes"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/gltfio"
	"github.com/mogaika/retargeter/host"
	"github.com/mogaika/retargeter/playback"
	"github.com/mogaika/retargeter/project"
)

// currentMapping is the preset name of the session mapping inside project archives.
const currentMapping = "current"

func (s *Studio) Clips() []ClipInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	return clipInfos(s.clips.All())
}

func (s *Studio) Clip(index int) (*clip.Clip, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.clips.At(index)
}

// RemoveClip drops a clip. Playback of it stops.
func (s *Studio) RemoveClip(index int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	c, err := s.clips.At(index)
	if err != nil {
		return err
	}
	// indices after the removed clip shift down
	if s.player.Index() >= index {
		s.player.Reset()
	}
	s.mixer.Uncache(c)
	return s.clips.Remove(index)
}

func (s *Studio) RenameClip(index int, name string) (ClipInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	old, err := s.clips.At(index)
	if err != nil {
		return ClipInfo{}, err
	}
	c, err := s.clips.Rename(index, name)
	if err != nil {
		return ClipInfo{}, err
	}
	if s.player.Index() == index {
		s.player.Reset()
	}
	s.mixer.Uncache(old)
	return ClipInfo{Index: index, Name: c.Name, Duration: c.Duration, Tracks: len(c.Tracks)}, nil
}

func (s *Studio) DuplicateClip(index int) (ClipInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	i, err := s.clips.Duplicate(index)
	if err != nil {
		return ClipInfo{}, err
	}
	c, _ := s.clips.At(i)
	return ClipInfo{Index: i, Name: c.Name, Duration: c.Duration, Tracks: len(c.Tracks)}, nil
}

// Export writes the target rig with the given clips as glb, every clip when indices is empty.
func (s *Studio) Export(indices []int) ([]byte, []diag.Diagnostic, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.target == nil {
		return nil, nil, diag.Errorf(diag.NotInitialized, "no target loaded")
	}
	clips := s.clips.All()
	if len(indices) != 0 {
		clips = make([]*clip.Clip, 0, len(indices))
		for _, i := range indices {
			c, err := s.clips.At(i)
			if err != nil {
				return nil, nil, err
			}
			clips = append(clips, c)
		}
	}

	l := diag.NewLog("export")
	var buf bytes.Buffer
	if err := gltfio.Export(&buf, s.target.Skeleton, clips, l); err != nil {
		s.notify(host.Error, "Export failed: %v", err)
		return nil, l.Entries(), err
	}
	return buf.Bytes(), l.Entries(), nil
}

// SaveProject packs the session. The host saves it when name is not empty.
func (s *Studio) SaveProject(name string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	p := s.project
	p.Clips = s.clips.All()
	p.Presets = make(map[string]*bonemap.Preset)
	if m := s.mapping.Snapshot(); m.Len() != 0 {
		preset, err := bonemap.NewPreset(currentMapping, m)
		if err != nil {
			return nil, err
		}
		p.Presets[currentMapping] = preset
	}
	p.Scene = project.SceneState{
		ActiveClip: s.player.Index(),
		Loop:       s.player.Loop(),
		Time:       s.player.Time(),
		Retarget:   s.cfg.Retarget,
	}

	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		s.notify(host.Error, "Failed to save project: %v", err)
		return nil, err
	}
	if name != "" && s.host != nil {
		if _, err := s.host.SaveFile(name, buf.Bytes()); err != nil {
			s.notify(host.Error, "Failed to save project: %v", err)
			return nil, err
		}
		s.notify(host.Info, "Saved project %q", p.Name)
	}
	return buf.Bytes(), nil
}

// OpenProject replaces the session with an archive written by SaveProject.
// The source rig is not part of archives and is cleared.
func (s *Studio) OpenProject(data []byte) (Info, error) {
	p, err := project.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.notify(host.Error, "Failed to open project: %v", err)
		return Info{}, err
	}
	var target *gltfio.Model
	if p.Model != nil && len(p.ModelData) != 0 {
		if target, err = gltfio.Decode(p.Model.Name, p.ModelData); err != nil {
			s.notify(host.Error, "Failed to open project model: %v", err)
			return Info{}, err
		}
	}

	s.lock.Lock()
	s.project = p
	s.source = nil
	s.target = nil
	s.rig = nil
	s.player.Reset()
	s.mixer = playback.NewMixer()
	s.engine.Reset()
	s.diagnostics = nil
	if target != nil {
		file := p.Model.File
		s.setTarget(target, file)
	}
	s.clips.Load(p.Clips)
	s.mapping.Dispatch(bonemap.Clear{})
	if preset, ok := p.Presets[currentMapping]; ok {
		s.applyPreset(preset)
	}
	s.cfg.Retarget = p.Scene.Retarget
	s.engine.SetOptions(p.Scene.Retarget)
	s.player.SetLoop(p.Scene.Loop)
	if p.Scene.ActiveClip >= 0 && s.rig != nil {
		if err := s.play(p.Scene.ActiveClip); err == nil {
			s.player.Pause()
			if a := s.player.Action(); a != nil {
				a.SetTime(p.Scene.Time)
			}
			s.mixer.Update(0)
		}
	}
	s.notify(host.Info, "Opened project %q", p.Name)
	s.lock.Unlock()

	return s.Info(), nil
}
