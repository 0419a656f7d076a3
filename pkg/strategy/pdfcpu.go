package strategy

import (
	"context"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfcpuClassifier = Classifier{
	Rules: []Rule{
		{Match: messageContains("encrypt", "password", "decrypt"), Kind: KindEncrypted},
		{Match: as[*PanicError](), Kind: KindMalformed},
	},
	Fallback: KindMalformed,
}

// PDFCPU reads the page count through pdfcpu's relaxed validation
func PDFCPU() Strategy {
	const name = "pdfcpu"
	api.DisableConfigDir()

	return Strategy{
		Name:       name,
		Recognized: Kinds(KindMalformed, KindEncrypted),
		Extract: func(ctx context.Context, in Input) (int, error) {
			conf := model.NewDefaultConfiguration()
			conf.ValidationMode = model.ValidationRelaxed

			n, err := withFile(in.Path, func(f *os.File, _ int64) (int, error) {
				return guard(func() (int, error) {
					return api.PageCount(f, conf)
				})
			})
			if err != nil {
				return 0, pdfcpuClassifier.wrap(name, in.Path, err)
			}
			return n, nil
		},
	}
}
