package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	appfinance "github.com/erp/credit-ledger/internal/application/finance"
	"github.com/erp/credit-ledger/internal/domain/finance"
)

const displayDate = "2006-01-02"

type row struct{ label, value string }

// print writes v as JSON or the rows as aligned label/value pairs
func (g *globals) print(w io.Writer, v any, rows []row) error {
	if g.output == "json" {
		return writeJSON(w, v)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r.label, r.value)
	}
	return tw.Flush()
}

// printTable writes v as JSON or table as tab-aligned columns, header first
func (g *globals) printTable(w io.Writer, v any, table [][]string) error {
	if g.output == "json" {
		return writeJSON(w, v)
	}
	if len(table) <= 1 {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cols := range table {
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func consolidationRows(r *appfinance.ConsolidationResult) []row {
	number := r.DocumentNumber
	if number == "" {
		number = "(preview)"
	}
	rows := []row{
		{"Document", number},
		{"Kind", r.Kind},
		{"Lines", fmt.Sprint(r.LineCount)},
		{"Employees", fmt.Sprint(r.EmployeeCount)},
	}
	if !r.CommissionAmount.IsZero() || !r.GrossAmount.Equal(r.TotalAmount) {
		rows = append(rows,
			row{"Gross", r.GrossAmount.StringFixed(2)},
			row{"Commission", r.CommissionAmount.StringFixed(2)},
		)
	}
	return append(rows,
		row{"Total", r.TotalAmount.StringFixed(2)},
		row{"Due", r.DueDate.Format(displayDate)},
	)
}

func paymentRows(r *appfinance.PaymentResult) []row {
	rows := []row{
		{"Payment", r.PaymentNumber},
		{"Outstanding", r.NewOutstanding.StringFixed(2)},
		{"Status", string(r.NewStatus)},
	}
	for _, c := range r.CreditRestored {
		value := fmt.Sprintf("%s +%s -> %s", c.ClientID, c.Amount.StringFixed(2), c.NewBalance.StringFixed(2))
		if c.ExceedsLimit {
			value += " (above limit)"
		}
		rows = append(rows, row{"Credit restored", value})
	}
	return rows
}

func balanceRows(r *appfinance.BalanceResult) []row {
	rows := []row{{"Client", r.ClientID.String()}}
	if r.ConsumptionID != nil {
		rows = append(rows, row{"Consumption", r.ConsumptionID.String()})
	}
	if !r.Credited.IsZero() {
		rows = append(rows, row{"Credited", r.Credited.StringFixed(2)})
	}
	return append(rows, row{"Balance", r.NewBalance.StringFixed(2)})
}

func paymentListTable(payments []finance.Payment) [][]string {
	table := [][]string{{"NUMBER", "DATE", "AMOUNT", "METHOD", "REFERENCE"}}
	for _, p := range payments {
		table = append(table, []string{
			p.PaymentNumber,
			p.PaidAt.Format(displayDate),
			p.Amount.StringFixed(2),
			string(p.Method),
			p.Reference,
		})
	}
	return table
}
