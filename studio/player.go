package studio

import (
	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/playback"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
)

type PlaybackInfo struct {
	State    playback.State `json:"state"`
	Index    int            `json:"index"`
	Loop     bool           `json:"loop"`
	Time     float64        `json:"time"`
	Duration float64        `json:"duration"`
	Progress float64        `json:"progress"`
}

func (s *Studio) playbackInfo() PlaybackInfo {
	return PlaybackInfo{
		State:    s.player.Sync(),
		Index:    s.player.Index(),
		Loop:     s.player.Loop(),
		Time:     s.player.Time(),
		Duration: s.player.Duration(),
		Progress: s.player.Progress(),
	}
}

func (s *Studio) Playback() PlaybackInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.playbackInfo()
}

// Play starts clip index of the collection on the target rig.
func (s *Studio) Play(index int) (PlaybackInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.play(index); err != nil {
		return s.playbackInfo(), err
	}
	return s.playbackInfo(), nil
}

func (s *Studio) play(index int) error {
	if s.rig == nil {
		return diag.Errorf(diag.NotInitialized, "no target loaded")
	}
	c, err := s.clips.At(index)
	if err != nil {
		return err
	}
	return s.player.Init(index, s.mixer.ClipAction(c, s.rig))
}

func (s *Studio) Pause() PlaybackInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.player.Pause()
	return s.playbackInfo()
}

func (s *Studio) Resume() (PlaybackInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	err := s.player.Resume()
	return s.playbackInfo(), err
}

func (s *Studio) Stop() PlaybackInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.player.Stop()
	return s.playbackInfo()
}

func (s *Studio) SetLoop(loop bool) PlaybackInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.player.SetLoop(loop)
	return s.playbackInfo()
}

func (s *Studio) ToggleLoop() PlaybackInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.player.ToggleLoop()
	return s.playbackInfo()
}

func (s *Studio) Scrub(progress float64) PlaybackInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.player.Scrub(progress)
	s.mixer.Update(0)
	return s.playbackInfo()
}

// Tick advances playback by dt seconds of wall clock time.
func (s *Studio) Tick(dt float64) PlaybackInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.mixer.Update(dt)
	return s.playbackInfo()
}

type BonePose struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	// xyz order, degrees
	Euler [3]float64 `json:"euler"`
	Scale [3]float64 `json:"scale"`
}

type FramePose struct {
	Time  float64    `json:"time"`
	Bones []BonePose `json:"bones"`
}

func poseOf(sk *skeleton.Skeleton, time float64) FramePose {
	f := FramePose{Time: time, Bones: make([]BonePose, sk.Len())}
	for i, b := range sk.Bones {
		q := b.Local.Rotation
		f.Bones[i] = BonePose{
			Name:     b.Name,
			Position: b.Local.Position,
			Rotation: [4]float64{q.V.X(), q.V.Y(), q.V.Z(), q.W},
			Euler:    utils.RadiansToDegreeV3(utils.QuatToEuler(q)),
			Scale:    b.Local.Scale,
		}
	}
	return f
}

// Pose is the current local pose of the target rig.
func (s *Studio) Pose() (FramePose, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.rig == nil {
		return FramePose{}, diag.Errorf(diag.NotInitialized, "no target loaded")
	}
	return poseOf(s.rig, s.player.Time()), nil
}

// Frames samples clip index at fps from its start to its end, inclusive.
// Playback state is not touched.
func (s *Studio) Frames(index int, fps float64) ([]FramePose, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.target == nil {
		return nil, diag.Errorf(diag.NotInitialized, "no target loaded")
	}
	c, err := s.clips.At(index)
	if err != nil {
		return nil, err
	}
	return SampleFrames(s.target.Skeleton, c, fps)
}

// SampleFrames poses a bind pose copy of sk with c at every frame time.
func SampleFrames(sk *skeleton.Skeleton, c *clip.Clip, fps float64) ([]FramePose, error) {
	if fps <= 0 {
		return nil, diag.Errorf(diag.InvalidInput, "frame rate %v must be positive", fps)
	}
	posed := sk.Clone()
	var frames []FramePose
	for _, t := range playback.FrameTimes(c.Duration, fps) {
		posed.ResetToBind()
		playback.ApplyClip(posed, c, t)
		frames = append(frames, poseOf(posed, t))
	}
	return frames, nil
}
