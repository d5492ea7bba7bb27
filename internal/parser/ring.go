package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// FinalizeRing converts the accumulated text of one polyline, whitespace
// separated "lat,lon" tokens, into a ring of "lon lat" pairs joined by commas.
// The numeric text of each component is kept as written.
func FinalizeRing(text string) (string, error) {
	tokens := strings.Fields(text)
	pairs := make([]string, 0, len(tokens))

	for _, token := range tokens {
		lat, lon, ok := strings.Cut(token, ",")
		if !ok || strings.Contains(lon, ",") {
			return "", &FormatError{Element: "polyline", Value: token, Err: fmt.Errorf("expected lat,lon pair")}
		}
		for _, c := range []string{lat, lon} {
			if _, err := strconv.ParseFloat(c, 64); err != nil {
				return "", &FormatError{Element: "polyline", Value: token, Err: err}
			}
		}
		pairs = append(pairs, lon+" "+lat)
	}

	return strings.Join(pairs, ","), nil
}
