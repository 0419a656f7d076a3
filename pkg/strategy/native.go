package strategy

import (
	"context"

	"github.com/pyhub-apps/pdfpagebench/pkg/parser"
)

var nativeClassifier = Classifier{
	Rules: []Rule{
		{Match: is(parser.ErrEncrypted), Kind: KindEncrypted},
		{Match: is(parser.ErrNotPDF), Kind: KindMalformed},
		{Match: as[*parser.MissingKeyError](), Kind: KindMissingKey},
		{Match: as[*parser.TypeError](), Kind: KindTypeMismatch},
		{Match: as[*parser.SyntaxError](), Kind: KindMalformed},
	},
	Fallback: KindUnknown,
}

// Native counts pages with the in-house parser
func Native() Strategy {
	const name = "native"
	return Strategy{
		Name:       name,
		Recognized: Kinds(KindMalformed, KindEncrypted, KindMissingKey, KindTypeMismatch),
		Extract: func(ctx context.Context, in Input) (int, error) {
			n, err := parser.CountPagesFile(in.Path)
			if err != nil {
				return 0, nativeClassifier.wrap(name, in.Path, err)
			}
			return n, nil
		},
	}
}
