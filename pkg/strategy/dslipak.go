package strategy

import (
	"context"
	"os"

	gopdf "github.com/dslipak/pdf"
)

var dslipakClassifier = Classifier{
	Rules: []Rule{
		{Match: messageContains("encrypt", "password"), Kind: KindEncrypted},
		{Match: messageContains("missing"), Kind: KindMissingKey},
		{Match: messageContains("wrong type", "unexpected type"), Kind: KindTypeMismatch},
	},
	Fallback: KindMalformed,
}

// Dslipak counts pages with github.com/dslipak/pdf
func Dslipak() Strategy {
	const name = "dslipak"
	return Strategy{
		Name:       name,
		Recognized: Kinds(KindMalformed, KindEncrypted, KindMissingKey, KindTypeMismatch),
		Extract: func(ctx context.Context, in Input) (int, error) {
			n, err := withFile(in.Path, func(f *os.File, size int64) (int, error) {
				return guard(func() (int, error) {
					r, err := gopdf.NewReader(f, size)
					if err != nil {
						return 0, err
					}
					return r.NumPage(), nil
				})
			})
			if err != nil {
				return 0, dslipakClassifier.wrap(name, in.Path, err)
			}
			return n, nil
		},
	}
}
