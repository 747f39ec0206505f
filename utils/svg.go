package utils

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidSVG = errors.New("svg must be a base64 encoded SVG document")

// DecodeSVG decodes a base64 badge image and checks that it is an SVG.
func DecodeSVG(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, ErrInvalidSVG
	}
	if !strings.Contains(string(raw), "<svg") {
		return nil, ErrInvalidSVG
	}
	return raw, nil
}
