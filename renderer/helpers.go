package renderer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etnz/allocator"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// table writes a markdown table. align holds one of 'l', 'r' or 'c' per column.
func table(w io.Writer, align string, header []string, rows [][]string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(header, " | "))
	seps := make([]string, len(header))
	for i := range seps {
		switch {
		case i < len(align) && align[i] == 'r':
			seps[i] = "---:"
		case i < len(align) && align[i] == 'c':
			seps[i] = ":---:"
		default:
			seps[i] = ":---"
		}
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))
	for _, r := range rows {
		fmt.Fprintf(w, "| %s |\n", strings.Join(r, " | "))
	}
	fmt.Fprintln(w)
}

// cell escapes the pipes of free text.
func cell(s string) string { return strings.ReplaceAll(s, "|", `\|`) }

// signed renders a quantity change, "-" when zero.
func signed(q allocator.Quantity) string {
	switch {
	case q.IsZero():
		return "-"
	case q.IsPositive():
		return "+" + q.String()
	default:
		return q.String()
	}
}

// category renders a category the way people read it.
func category(c allocator.Category) string {
	switch c {
	case allocator.Equity:
		return "Equity"
	case allocator.IntlETF:
		return "International ETF"
	case allocator.FixedIncomeETF:
		return "Fixed Income ETF"
	default:
		return c.String()
	}
}

func date(t time.Time) string { return t.Format(time.DateOnly) }
