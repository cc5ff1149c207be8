package text

import "golang.org/x/text/unicode/bidi"

type Direction int

const (
	Neutral Direction = iota
	LeftToRight
	RightToLeft
)

func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "ltr"
	case RightToLeft:
		return "rtl"
	}
	return "neutral"
}

// FirstStrong returns the direction of the first strongly typed character
// in s, or Neutral when there is none (digits, punctuation, empty).
func FirstStrong(s string) Direction {
	for _, r := range s {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return LeftToRight
		case bidi.R, bidi.AL:
			return RightToLeft
		}
	}
	return Neutral
}
