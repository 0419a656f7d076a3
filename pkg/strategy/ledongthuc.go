package strategy

import (
	"context"
	"os"

	lpdf "github.com/ledongthuc/pdf"
)

var ledongthucClassifier = Classifier{
	Rules: []Rule{
		{Match: messageContains("encrypt", "password"), Kind: KindEncrypted},
		{Match: messageContains("wrong type", "unexpected type"), Kind: KindTypeMismatch},
	},
	Fallback: KindMalformed,
}

// Ledongthuc counts pages with github.com/ledongthuc/pdf
func Ledongthuc() Strategy {
	const name = "ledongthuc"
	return Strategy{
		Name:       name,
		Recognized: Kinds(KindMalformed, KindTypeMismatch, KindEncrypted),
		Extract: func(ctx context.Context, in Input) (int, error) {
			n, err := withFile(in.Path, func(f *os.File, size int64) (int, error) {
				return guard(func() (int, error) {
					r, err := lpdf.NewReader(f, size)
					if err != nil {
						return 0, err
					}
					return r.NumPage(), nil
				})
			})
			if err != nil {
				return 0, ledongthucClassifier.wrap(name, in.Path, err)
			}
			return n, nil
		},
	}
}
