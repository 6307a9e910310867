package clip

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mogaika/retargeter/diag"
)

type jsonTrack struct {
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	Times         []float64       `json:"times"`
	Values        json.RawMessage `json:"values"`
	Interpolation string          `json:"interpolation,omitempty"`
}

func (t *Track) MarshalJSON() ([]byte, error) {
	jt := jsonTrack{
		Type:  t.Kind.String(),
		Name:  t.Name,
		Times: t.Times,
	}
	if jt.Times == nil {
		jt.Times = []float64{}
	}
	if t.Interpolation == InterpolateDiscrete {
		jt.Interpolation = "discrete"
	}

	var values interface{}
	switch t.Kind {
	case KindBoolean:
		values = t.Bools
	case KindString:
		values = t.Strings
	default:
		values = t.Values
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, errors.Wrapf(err, "Marshaling values of %q", t.Name)
	}
	jt.Values = raw
	return json.Marshal(&jt)
}

// UnmarshalJSON dispatches on the type tag to decode values.
func (t *Track) UnmarshalJSON(b []byte) error {
	var jt jsonTrack
	if err := json.Unmarshal(b, &jt); err != nil {
		return err
	}
	kind, err := KindFromTag(jt.Type)
	if err != nil {
		return err
	}
	*t = Track{Kind: kind, Name: jt.Name, Times: jt.Times}
	if t.Times == nil {
		t.Times = []float64{}
	}
	if jt.Interpolation == "discrete" || jt.Interpolation == "step" {
		t.Interpolation = InterpolateDiscrete
	}
	if len(jt.Values) == 0 {
		return nil
	}

	switch kind {
	case KindBoolean:
		err = json.Unmarshal(jt.Values, &t.Bools)
	case KindString:
		err = json.Unmarshal(jt.Values, &t.Strings)
	default:
		err = json.Unmarshal(jt.Values, &t.Values)
	}
	return errors.Wrapf(err, "Values of %q", jt.Name)
}

func (c *Clip) MarshalJSON() ([]byte, error) {
	tracks := make([]json.RawMessage, len(c.Tracks))
	for i, t := range c.Tracks {
		raw, err := t.MarshalJSON()
		if err != nil {
			return nil, err
		}
		tracks[i] = raw
	}
	return json.Marshal(struct {
		Name     string            `json:"name"`
		Duration float64           `json:"duration"`
		Tracks   []json.RawMessage `json:"tracks"`
	}{c.Name, c.Duration, tracks})
}

func (c *Clip) UnmarshalJSON(b []byte) error {
	var jc struct {
		Name     string   `json:"name"`
		Duration *float64 `json:"duration"`
		Tracks   []*Track `json:"tracks"`
	}
	if err := json.Unmarshal(b, &jc); err != nil {
		return err
	}
	*c = *New(jc.Name, -1, jc.Tracks)
	// a clip never ends before its last key
	if jc.Duration != nil && *jc.Duration > c.Duration {
		c.Duration = *jc.Duration
	}
	return nil
}

// Marshal encodes a clip as {name, duration, tracks:[{type,name,times,values}]}.
func Marshal(c *Clip) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "encoding clip %q: %v", c.Name, err)
	}
	return data, nil
}

// Unmarshal restores a clip encoded by Marshal. A missing duration is derived from the keys.
func Unmarshal(data []byte) (*Clip, error) {
	var c Clip
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "decoding clip: %v", err)
	}
	return &c, nil
}
