package studio

import (
	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/host"
)

func (s *Studio) bones() (src, trg []string, err error) {
	if s.source == nil || s.target == nil {
		return nil, nil, diag.Errorf(diag.InvalidInput, "load a target and a source first")
	}
	return s.source.Skeleton.Names(), s.target.Skeleton.Names(), nil
}

// autoMapIfEmpty runs the auto mapping once both rigs are present and nothing is mapped yet.
func (s *Studio) autoMapIfEmpty() {
	if s.source == nil || s.target == nil || s.mapping.Snapshot().Len() != 0 {
		return
	}
	s.autoMap()
}

func (s *Studio) autoMap() (bonemap.Event, error) {
	src, trg, err := s.bones()
	if err != nil {
		return bonemap.Event{}, err
	}
	m := bonemap.AutoMap(src, trg, s.cfg.Mapping)
	ev, err := s.mapping.Dispatch(bonemap.Replace{Map: m})
	if err != nil {
		return ev, err
	}
	if m.Len() == 0 {
		s.notify(host.Warning, "Auto mapping found no matching bones")
	} else {
		s.notify(host.Info, "Auto mapped %d bones, confidence %.0f%%", m.Len(), m.Confidence*100)
	}
	return ev, nil
}

// AutoMap replaces the mapping with the automatic one.
func (s *Studio) AutoMap() (bonemap.Event, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.autoMap()
}

func (s *Studio) Mapping() []bonemap.Entry {
	return s.mapping.Entries()
}

// Bus exposes the mapping for subscribers; commands should go through the studio methods.
func (s *Studio) Bus() *bonemap.Bus {
	return s.mapping
}

func (s *Studio) MapBone(source, target string) (bonemap.Event, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.source != nil && s.source.Skeleton.Index(source) < 0 {
		return bonemap.Event{}, diag.Errorf(diag.InvalidInput, "source bone %q not found", source)
	}
	if s.target != nil && s.target.Skeleton.Index(target) < 0 {
		return bonemap.Event{}, diag.Errorf(diag.InvalidInput, "target bone %q not found", target)
	}
	return s.mapping.Dispatch(bonemap.Add{Source: source, Target: target})
}

func (s *Studio) UnmapBone(source string) (bonemap.Event, error) {
	return s.mapping.Dispatch(bonemap.Remove{Source: source})
}

func (s *Studio) ClearMapping() (bonemap.Event, error) {
	return s.mapping.Dispatch(bonemap.Clear{})
}

// Suggest ranks target bones for a manual mapping of source.
func (s *Studio) Suggest(source string, n int) ([]bonemap.Suggestion, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.target == nil {
		return nil, diag.Errorf(diag.InvalidInput, "no target loaded")
	}
	return bonemap.Suggest(source, s.target.Skeleton.Names(), n), nil
}

func (s *Studio) Presets() []string {
	if s.library == nil {
		return []string{}
	}
	return s.library.Names()
}

// SavePreset stores the current mapping in the library under name.
func (s *Studio) SavePreset(name string) error {
	if s.library == nil {
		return diag.Errorf(diag.IOAdjacent, "no mapping library")
	}
	p, err := bonemap.NewPreset(name, s.mapping.Snapshot())
	if err != nil {
		return err
	}
	if err := s.library.Save(p); err != nil {
		return err
	}
	s.notify(host.Info, "Saved mapping %q (%d bones)", p.Name, len(p.Entries))
	return nil
}

// ApplyPreset loads a library preset into the mapping and returns the bones it lacks.
func (s *Studio) ApplyPreset(name string) ([]string, error) {
	if s.library == nil {
		return nil, diag.Errorf(diag.IOAdjacent, "no mapping library")
	}
	p, err := s.library.Load(name)
	if err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.applyPreset(p)
}

func (s *Studio) applyPreset(p *bonemap.Preset) ([]string, error) {
	var src, trg []string
	if s.source != nil {
		src = s.source.Skeleton.Names()
	}
	if s.target != nil {
		trg = s.target.Skeleton.Names()
	}
	ev, err := s.mapping.Dispatch(bonemap.Set{
		Entries:     p.Entries,
		Confidence:  p.Confidence,
		SourceBones: src,
		TargetBones: trg,
	})
	return ev.Missing, err
}
