package playback

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/diag"
)

type State int

const (
	StateNone State = iota
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "none"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Controller plays a single active clip.
type Controller struct {
	index  int
	state  State
	loop   bool
	action Action
}

func NewController(opts config.PlaybackOptions) *Controller {
	return &Controller{index: -1, loop: opts.Loop}
}

func loopKind(loop bool) config.LoopKind {
	if loop {
		return config.LoopRepeat
	}
	return config.LoopOnce
}

// Init makes a the active action for clip index and starts it. A previous action is stopped.
func (c *Controller) Init(index int, a Action) error {
	if a == nil {
		return diag.Errorf(diag.InvalidInput, "no action for clip %d", index)
	}
	if c.action != nil && c.action != a {
		c.action.Stop()
	}
	c.index = index
	c.action = a
	a.SetLoop(loopKind(c.loop))
	a.Reset()
	a.Play()
	c.state = StatePlaying
	log.Printf("[playback] playing clip %d (%.3fs, %v)", index, a.Duration(), loopKind(c.loop))
	return nil
}

func (c *Controller) Pause() {
	if c.action == nil || c.state != StatePlaying {
		return
	}
	c.action.SetPaused(true)
	c.state = StatePaused
}

// Resume continues a paused clip. A clip that finished or was stopped restarts from the beginning.
func (c *Controller) Resume() error {
	if c.action == nil {
		return diag.Errorf(diag.NotInitialized, "nothing to resume")
	}
	c.action.SetPaused(false)
	if !c.action.IsRunning() {
		c.action.Reset()
		c.action.Play()
	}
	c.state = StatePlaying
	return nil
}

func (c *Controller) Stop() {
	if c.action == nil {
		return
	}
	c.action.Stop()
	c.state = StateStopped
}

func (c *Controller) SetLoop(loop bool) {
	c.loop = loop
	if c.action != nil {
		c.action.SetLoop(loopKind(loop))
	}
}

func (c *Controller) ToggleLoop() bool {
	c.SetLoop(!c.loop)
	return c.loop
}

// Scrub moves the active clip to progress in [0,1] of its duration.
func (c *Controller) Scrub(progress float64) {
	if c.action == nil {
		return
	}
	progress = math.Max(0, math.Min(1, progress))
	c.action.SetTime(progress * c.action.Duration())
}

func (c *Controller) Time() float64 {
	if c.action == nil {
		return 0
	}
	return c.action.Time()
}

func (c *Controller) Duration() float64 {
	if c.action == nil {
		return 0
	}
	return c.action.Duration()
}

func (c *Controller) Progress() float64 {
	d := c.Duration()
	if d <= 0 {
		return 0
	}
	return c.Time() / d
}

// Sync moves a playing controller to Stopped once its LoopOnce action finished.
func (c *Controller) Sync() State {
	if c.state == StatePlaying && c.action != nil && !c.action.IsRunning() {
		c.state = StateStopped
	}
	return c.state
}

// Reset drops the active clip. The loop preference survives.
func (c *Controller) Reset() {
	if c.action != nil {
		c.action.Stop()
	}
	c.action = nil
	c.index = -1
	c.state = StateNone
}

func (c *Controller) State() State   { return c.state }
func (c *Controller) Index() int     { return c.index }
func (c *Controller) Loop() bool     { return c.loop }
func (c *Controller) Action() Action { return c.action }
