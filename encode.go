package allocator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EncodeTransactions writes transactions as JSONL, one transaction per line.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	for _, tx := range txs {
		data, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("cannot encode transaction %s: %w", tx.ID, err)
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// DecodeTransactions reads JSONL transactions. Blank lines are skipped.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var tx Transaction
		if err := json.Unmarshal([]byte(line), &tx); err != nil {
			return nil, fmt.Errorf("parse error on line %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, scanner.Err()
}

// MarshalJSON writes the plan with its totals.
func (p *Plan) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("strategy", p.Strategy)
	w.Append("capital", p.Capital)
	w.Append("invested", p.Invested())
	w.Append("purchases", p.Purchases())
	w.Append("proceeds", p.Proceeds())
	w.Append("leftover", p.Leftover())
	w.Append("iterations", p.Iterations)
	w.Optional("capped", p.Capped)
	lines := p.Lines
	if lines == nil {
		lines = []PlanLine{}
	}
	w.Append("lines", lines)
	return w.MarshalJSON()
}

// MarshalJSON writes the position fields followed by its valuation.
func (v ValuedPosition) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(v.Position)
	w.Append("price", v.Price.Exact())
	w.Append("source", v.Source.String())
	w.Append("value", v.Value)
	w.Append("gain", v.Gain())
	w.Append("weight", float64(v.Weight))
	return w.MarshalJSON()
}
