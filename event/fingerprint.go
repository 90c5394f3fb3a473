package event

import (
	"fmt"
	"strconv"
	"unicode/utf16"
)

type Screen struct {
	Width      int
	Height     int
	ColorDepth int
}

// Fingerprint hashes a canvas rendering signature together with the language and
// screen metrics. It is a weak anti-fraud hint and is not collision resistant.
func Fingerprint(canvas, language string, screen Screen) string {
	source := canvas + language + fmt.Sprintf("%dx%dx%d", screen.Width, screen.Height, screen.ColorDepth)
	h := int64(rollingHash(source))
	if h < 0 {
		h = -h
	}
	return strconv.FormatInt(h, 36)
}

// rollingHash is the 32-bit h*31+c string hash over UTF-16 code units.
func rollingHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	return h
}
