package cache

import (
	"strings"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

const wildcard = "*"

// Pattern is a compiled wildcard key. Only '*' is special: it matches any,
// possibly empty, run of characters. Everything else is literal and the match
// is anchored to the whole key, which is how Redis MATCH behaves.
type Pattern struct {
	raw      string
	segments []string
	glob     string
}

func IsPattern(key string) bool {
	return strings.Contains(key, wildcard)
}

func CompilePattern(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, types.Errorf(types.ErrPatternInvalid, "empty pattern")
	}

	return &Pattern{
		raw:      raw,
		segments: strings.Split(raw, wildcard),
		glob:     escapeGlob(raw, true),
	}, nil
}

func (p *Pattern) String() string {
	return p.raw
}

// Glob returns the pattern in Redis glob syntax with every metacharacter
// other than '*' escaped.
func (p *Pattern) Glob() string {
	return p.glob
}

func (p *Pattern) Match(key string) bool {
	if len(p.segments) == 1 {
		return key == p.raw
	}

	first := p.segments[0]
	last := p.segments[len(p.segments)-1]

	if !strings.HasPrefix(key, first) {
		return false
	}
	key = key[len(first):]

	if len(key) < len(last) || !strings.HasSuffix(key, last) {
		return false
	}
	key = key[:len(key)-len(last)]

	// Leftmost placement of each inner literal is always safe with '*' only.
	for _, segment := range p.segments[1 : len(p.segments)-1] {
		idx := strings.Index(key, segment)
		if idx < 0 {
			return false
		}
		key = key[idx+len(segment):]
	}

	return true
}

func escapeGlob(s string, keepStar bool) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '*':
			if !keepStar {
				b.WriteByte('\\')
			}
		case '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}
