package strategy

import (
	"context"
	"os"

	"rsc.io/pdf"
)

var rscClassifier = Classifier{
	Rules: []Rule{
		{Match: messageContains("encrypt", "password"), Kind: KindEncrypted},
	},
	Fallback: KindMalformed,
}

// RSC counts pages with rsc.io/pdf, the reader both ledongthuc and dslipak
// were forked from
func RSC() Strategy {
	const name = "rscpdf"
	return Strategy{
		Name:       name,
		Recognized: Kinds(KindMalformed, KindEncrypted),
		Extract: func(ctx context.Context, in Input) (int, error) {
			n, err := withFile(in.Path, func(f *os.File, size int64) (int, error) {
				return guard(func() (int, error) {
					r, err := pdf.NewReader(f, size)
					if err != nil {
						return 0, err
					}
					return r.NumPage(), nil
				})
			})
			if err != nil {
				return 0, rscClassifier.wrap(name, in.Path, err)
			}
			return n, nil
		},
	}
}
