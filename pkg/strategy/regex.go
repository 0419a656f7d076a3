package strategy

import (
	"context"
	"regexp"
)

// pageMarker matches a page object's type entry. The trailing group keeps
// /Type /Pages nodes out while still counting a marker at end of input.
var pageMarker = regexp.MustCompile(`(?ms)/Type\s*/Page(?:[^s]|$)`)

var regexRecognized = Kinds(KindMissingKey, KindTypeMismatch)

// CountPageMarkers counts page markers in raw PDF bytes
func CountPageMarkers(data []byte) int {
	return len(pageMarker.FindAllIndex(data, -1))
}

// Regex scans the preloaded file bytes for page markers. It never parses
// the document, so it cannot tell compressed or incremental pages apart.
func Regex() Strategy {
	const name = "regex"
	return Strategy{
		Name:       name,
		Preload:    true,
		Recognized: regexRecognized,
		Extract: func(ctx context.Context, in Input) (int, error) {
			if in.Data == nil {
				return 0, &ContractError{Strategy: name, Msg: "file bytes were not preloaded"}
			}
			return CountPageMarkers(in.Data), nil
		},
	}
}
