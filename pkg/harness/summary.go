package harness

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// Summary is one strategy's contribution to the report
type Summary struct {
	Strategy         string
	TotalPages       int
	TotalParsingTime decimal.Decimal
	ErrorCount       int
	// Errors holds the distinct failure messages in lexical order
	Errors []string
}

// Summarize reduces a strategy's outcomes. A negative page count is a
// contract violation of the backend.
func Summarize(name string, outcomes []Outcome) (Summary, error) {
	s := Summary{
		Strategy:         name,
		TotalParsingTime: decimal.Zero,
		Errors:           []string{},
	}
	seen := make(map[string]bool)

	for _, o := range outcomes {
		if o.Err != nil {
			s.ErrorCount++
			msg := o.Err.Error()
			if !seen[msg] {
				seen[msg] = true
				s.Errors = append(s.Errors, msg)
			}
			continue
		}
		if o.Pages < 0 {
			return Summary{}, &strategy.ContractError{
				Strategy: name,
				Msg:      fmt.Sprintf("negative page count %d for %s", o.Pages, o.File.Path),
			}
		}
		s.TotalPages += o.Pages
		s.TotalParsingTime = s.TotalParsingTime.Add(o.Elapsed)
	}

	sort.Strings(s.Errors)
	return s, nil
}
