package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// readCapture loads one captured message, stored either raw or as hex
// text. Hex text may contain whitespace and '#' comment lines.
func readCapture(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, ok := hexText(raw)
	if !ok {
		return raw, nil
	}
	b, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func hexText(raw []byte) (string, bool) {
	var b strings.Builder
	for _, line := range strings.Split(string(raw), "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, r := range line {
			switch {
			case unicode.IsSpace(r):
			case strings.ContainsRune("0123456789abcdefABCDEF", r):
				b.WriteRune(r)
			default:
				return "", false
			}
		}
	}
	return b.String(), b.Len() > 0
}
