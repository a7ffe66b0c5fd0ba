package symbols

import "strings"

// Set is a membership set of requested base symbols.
type Set map[string]struct{}

// NewSet builds a Set from a symbol list, dropping empty entries.
func NewSet(symbols []string) Set {
	s := make(Set, len(symbols))
	for _, sym := range symbols {
		if sym == "" {
			continue
		}
		s[sym] = struct{}{}
	}
	return s
}

// Classifier decides whether a raw instrument code contributes a bar for one
// of the requested base symbols. Venue symbology varies, so the parsing rule
// is pluggable.
type Classifier interface {
	Classify(code string, requested Set) (base string, accept bool)
}

// PrefixClassifier extracts the base symbol as a fixed-length prefix of the
// instrument code (e.g. front-month futures code "ESZ4" yields "ES"). Codes
// containing a separator denote calendar spreads or multi-leg instruments and
// never produce single-instrument bars.
type PrefixClassifier struct {
	PrefixLen int
}

const spreadSeparator = "-"

// NewPrefixClassifier returns the classifier for the observed venue encoding:
// 2-character base symbol, hyphen marks a spread.
func NewPrefixClassifier() *PrefixClassifier {
	return &PrefixClassifier{PrefixLen: 2}
}

func (c *PrefixClassifier) Classify(code string, requested Set) (string, bool) {
	n := c.PrefixLen
	if n <= 0 {
		n = 2
	}
	if len(code) < n {
		return "", false
	}
	if strings.Contains(code, spreadSeparator) {
		return "", false
	}
	base := code[:n]
	if _, ok := requested[base]; !ok {
		return "", false
	}
	return base, true
}
