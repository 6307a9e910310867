package diag

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

type Diagnostic struct {
	Kind   Kind   `json:"kind"`
	Scope  string `json:"scope,omitempty"`
	Track  string `json:"track,omitempty"`
	Detail string `json:"detail"`
}

func (d Diagnostic) String() string {
	if d.Track != "" {
		return fmt.Sprintf("[%s] %s %q: %s", d.Scope, d.Kind, d.Track, d.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Scope, d.Kind, d.Detail)
}

// Log collects diagnostics of one operation and mirrors them to the logger.
// A nil *Log discards records.
type Log struct {
	scope   string
	entries []Diagnostic
}

func NewLog(scope string) *Log {
	return &Log{scope: scope}
}

func (l *Log) Add(kind Kind, track string, format string, a ...interface{}) {
	if l == nil {
		return
	}
	d := Diagnostic{Kind: kind, Scope: l.scope, Track: track, Detail: fmt.Sprintf(format, a...)}
	l.entries = append(l.entries, d)

	entry := log.WithFields(log.Fields{"scope": d.Scope, "kind": d.Kind.String()})
	if track != "" {
		entry = entry.WithField("track", track)
	}
	if kind.IsWarning() {
		entry.Warn(d.Detail)
	} else {
		entry.Error(d.Detail)
	}
}

func (l *Log) AddError(err error) {
	if err == nil {
		return
	}
	l.Add(KindOf(err), "", "%v", err)
}

func (l *Log) Entries() []Diagnostic {
	if l == nil {
		return nil
	}
	out := make([]Diagnostic, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Count(kind Kind) int {
	if l == nil {
		return 0
	}
	n := 0
	for _, d := range l.entries {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func (l *Log) Reset() {
	if l != nil {
		l.entries = l.entries[:0]
	}
}
