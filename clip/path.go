package clip

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"

	"github.com/mogaika/retargeter/diag"
)

const (
	TOKEN_NAME = iota
	TOKEN_DOT
	TOKEN_LBRACKET
	TOKEN_RBRACKET
)

// Canonical property names of track paths.
const (
	PropRotation = "rotation"
	PropPosition = "position"
	PropScale    = "scale"
	PropWeights  = "morphTargetInfluences"
)

var propertyAliases = map[string]string{
	"quaternion":  PropRotation,
	"rotation":    PropRotation,
	"translation": PropPosition,
	"position":    PropPosition,
	"scale":       PropScale,
	"weights":     PropWeights,
	PropWeights:   PropWeights,
}

var pathLexer *lexmachine.Lexer

func init() {
	pathLexer = lexmachine.NewLexer()
	pathLexer.Add([]byte(`\.`), pathToken(TOKEN_DOT))
	pathLexer.Add([]byte(`\[`), pathToken(TOKEN_LBRACKET))
	pathLexer.Add([]byte(`\]`), pathToken(TOKEN_RBRACKET))
	pathLexer.Add([]byte(`[^\.\[\]]+`), pathToken(TOKEN_NAME))
	if err := pathLexer.Compile(); err != nil {
		panic(err)
	}
}

func pathToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

// Path is a parsed track target such as "mixamorig:Hips.quaternion",
// ".bones[Spine].position" or "Face.morphTargetInfluences[3]".
type Path struct {
	Object   string `json:"object,omitempty"`
	Node     string `json:"node"`
	Property string `json:"property"`
	Index    string `json:"index,omitempty"`
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString(p.Node)
	b.WriteByte('.')
	b.WriteString(p.Property)
	if p.Index != "" {
		b.WriteByte('[')
		b.WriteString(p.Index)
		b.WriteByte(']')
	}
	return b.String()
}

func (p Path) WithNode(node string) Path {
	p.Node = node
	p.Object = ""
	return p
}

func (p Path) IsTransform() bool {
	switch p.Property {
	case PropRotation, PropPosition, PropScale:
		return p.Index == ""
	}
	return false
}

type pathParser struct {
	tokens []*lexmachine.Token
	pos    int
}

func (pp *pathParser) peek() *lexmachine.Token {
	if pp.pos < len(pp.tokens) {
		return pp.tokens[pp.pos]
	}
	return nil
}

func (pp *pathParser) expect(tokenType int) (string, error) {
	tok := pp.peek()
	if tok == nil {
		return "", errors.Errorf("unexpected end of path")
	}
	if tok.Type != tokenType {
		return "", errors.Errorf("unexpected %q at column %d", tok.Lexeme, tok.StartColumn)
	}
	pp.pos++
	return string(tok.Lexeme), nil
}

func (pp *pathParser) bracket() (string, error) {
	if _, err := pp.expect(TOKEN_LBRACKET); err != nil {
		return "", err
	}
	name, err := pp.expect(TOKEN_NAME)
	if err != nil {
		return "", err
	}
	if _, err := pp.expect(TOKEN_RBRACKET); err != nil {
		return "", err
	}
	return name, nil
}

// ParsePath splits a track name into node and property. Property aliases of
// different exporters are resolved to canonical names. Node names may contain dots:
// the last dotted segment is the property.
func ParsePath(name string) (Path, error) {
	p, err := parsePath(name)
	if err != nil {
		return Path{}, diag.Errorf(diag.InvalidInput, "track path %q: %v", name, err)
	}
	return p, nil
}

func parsePath(name string) (Path, error) {
	scanner, err := pathLexer.Scanner([]byte(name))
	if err != nil {
		return Path{}, errors.Wrapf(err, "Failed to create lexer scanner")
	}
	pp := &pathParser{}
	for itok, err, eos := scanner.Next(); !eos; itok, err, eos = scanner.Next() {
		if err != nil {
			return Path{}, err
		}
		pp.tokens = append(pp.tokens, itok.(*lexmachine.Token))
	}

	var p Path
	var segments []string

	if tok := pp.peek(); tok != nil && tok.Type == TOKEN_DOT {
		// ".bones[Name].prop"
		pp.pos++
		if p.Object, err = pp.expect(TOKEN_NAME); err != nil {
			return p, err
		}
		if p.Node, err = pp.bracket(); err != nil {
			return p, err
		}
	} else {
		first, err := pp.expect(TOKEN_NAME)
		if err != nil {
			return p, err
		}
		segments = append(segments, first)
	}

	for {
		tok := pp.peek()
		if tok == nil || tok.Type != TOKEN_DOT {
			break
		}
		pp.pos++
		seg, err := pp.expect(TOKEN_NAME)
		if err != nil {
			return p, err
		}
		segments = append(segments, seg)
	}

	if tok := pp.peek(); tok != nil && tok.Type == TOKEN_LBRACKET {
		if p.Index, err = pp.bracket(); err != nil {
			return p, err
		}
	}
	if tok := pp.peek(); tok != nil {
		return p, errors.Errorf("trailing %q at column %d", tok.Lexeme, tok.StartColumn)
	}

	if p.Object == "" {
		if len(segments) < 2 {
			return p, errors.Errorf("no property")
		}
		p.Node = strings.Join(segments[:len(segments)-1], ".")
		segments = segments[len(segments)-1:]
	}
	if len(segments) != 1 {
		return p, errors.Errorf("expected a single property")
	}
	p.Property = segments[0]
	if canonical, ok := propertyAliases[p.Property]; ok {
		p.Property = canonical
	}
	return p, nil
}
