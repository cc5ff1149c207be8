package css

import "strings"

// MediaQuery supports the width and height range features. Zero means the
// bound is absent. Unknown features make the query never match.
type MediaQuery struct {
	Raw         string
	MinWidth    float64
	MaxWidth    float64
	MinHeight   float64
	MaxHeight   float64
	Unsupported bool
}

func ParseMediaQuery(raw string) MediaQuery {
	raw = strings.TrimSpace(raw)
	mq := MediaQuery{Raw: raw}
	for _, term := range strings.Split(strings.ToLower(raw), " and ") {
		term = strings.TrimSpace(term)
		switch term {
		case "", "all", "screen", "only screen":
			continue
		case "print":
			mq.Unsupported = true
			continue
		}
		if !strings.HasPrefix(term, "(") || !strings.HasSuffix(term, ")") {
			mq.Unsupported = true
			continue
		}
		feature, value, ok := strings.Cut(term[1:len(term)-1], ":")
		if !ok {
			mq.Unsupported = true
			continue
		}
		n, ok := ResolveLength(value, RootFontSize)
		if !ok {
			mq.Unsupported = true
			continue
		}
		switch strings.TrimSpace(feature) {
		case "min-width":
			mq.MinWidth = n
		case "max-width":
			mq.MaxWidth = n
		case "min-height":
			mq.MinHeight = n
		case "max-height":
			mq.MaxHeight = n
		default:
			mq.Unsupported = true
		}
	}
	return mq
}

// EvaluateMediaQuery reports whether mq matches the viewport. A nil query
// always matches.
func EvaluateMediaQuery(mq *MediaQuery, viewportWidth, viewportHeight float64) bool {
	if mq == nil {
		return true
	}
	if mq.Unsupported {
		return false
	}
	if mq.MinWidth > 0 && viewportWidth < mq.MinWidth {
		return false
	}
	if mq.MaxWidth > 0 && viewportWidth > mq.MaxWidth {
		return false
	}
	if mq.MinHeight > 0 && viewportHeight < mq.MinHeight {
		return false
	}
	if mq.MaxHeight > 0 && viewportHeight > mq.MaxHeight {
		return false
	}
	return true
}
