package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	appfinance "github.com/erp/credit-ledger/internal/application/finance"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/infrastructure/telemetry"
)

const dateLayout = "2006-01-02"

// periodFlags are the inputs of consolidate and preview
type periodFlags struct {
	scope     string
	from      string
	to        string
	dueDays   int
	issueDate string
}

func (f *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scope, "scope", "", "Employer ID for cxc, merchant ID for cxp")
	cmd.Flags().StringVar(&f.from, "from", "", "First day of the period, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Day after the period ends, exclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.dueDays, "due-days", 0, "Payment term in days (default: ledger.default_due_days)")
	cmd.Flags().StringVar(&f.issueDate, "issue-date", "", "Issue date (YYYY-MM-DD, default: today)")
	_ = cmd.MarkFlagRequired("scope")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (f *periodFlags) request(cmd *cobra.Command) (appfinance.ConsolidateRequest, error) {
	var req appfinance.ConsolidateRequest
	var err error
	if req.ScopeID, err = parseID("scope", f.scope); err != nil {
		return req, err
	}
	if req.From, err = parseDate("from", f.from); err != nil {
		return req, err
	}
	if req.To, err = parseDate("to", f.to); err != nil {
		return req, err
	}
	if f.issueDate != "" {
		if req.IssueDate, err = parseDate("issue-date", f.issueDate); err != nil {
			return req, err
		}
	}
	if cmd.Flags().Changed("due-days") {
		days := f.dueDays
		req.DueDays = &days
	}
	return req, nil
}

func newConsolidateCmd(g *globals) *cobra.Command {
	f := &periodFlags{}
	cmd := &cobra.Command{
		Use:   "consolidate cxc|cxp",
		Short: "Bill a period of consumptions into a CxC or CxP document",
		Example: `  ledgerctl consolidate cxc --scope 7d9f... --from 2024-05-01 --to 2024-06-01
  ledgerctl consolidate cxp --scope 3a1c... --from 2024-05-01 --to 2024-06-01 --due-days 15`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := finance.ParseDocumentKind(args[0])
			if err != nil {
				return err
			}
			req, err := f.request(cmd)
			if err != nil {
				return err
			}

			var result *appfinance.ConsolidationResult
			err = g.app.run(cmd.Context(), "consolidate", kindLabels(kind), func(ctx context.Context) error {
				if kind == finance.DocumentKindPayable {
					result, err = g.app.consolidation.ConsolidatePayables(ctx, req)
				} else {
					result, err = g.app.consolidation.ConsolidateReceivables(ctx, req)
				}
				return err
			})
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), result, consolidationRows(result))
		},
	}
	f.register(cmd)
	return cmd
}

func newPreviewCmd(g *globals) *cobra.Command {
	f := &periodFlags{}
	cmd := &cobra.Command{
		Use:   "preview cxc|cxp",
		Short: "Show what consolidate would produce without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := finance.ParseDocumentKind(args[0])
			if err != nil {
				return err
			}
			req, err := f.request(cmd)
			if err != nil {
				return err
			}

			var result *appfinance.ConsolidationResult
			err = g.app.run(cmd.Context(), "preview", kindLabels(kind), func(ctx context.Context) error {
				if kind == finance.DocumentKindPayable {
					result, err = g.app.consolidation.PreviewPayables(ctx, req)
				} else {
					result, err = g.app.consolidation.PreviewReceivables(ctx, req)
				}
				return err
			})
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), result, consolidationRows(result))
		},
	}
	f.register(cmd)
	return cmd
}

func newPayCmd(g *globals) *cobra.Command {
	var document, amount, method, reference, bank, notes, paidAt, idempotencyKey string
	cmd := &cobra.Command{
		Use:   "pay cxc|cxp",
		Short: "Register a payment against a CxC or CxP document",
		Long: `Registers a full or partial payment. Paying a CxC document in full gives
the consolidated amount back to each client's credit line.

Methods: CASH, TRANSFER, CHECK, CARD, OTHER.`,
		Example: `  ledgerctl pay cxc --document 5b2e... --amount 1250.00 --method TRANSFER --reference TRX-889 --actor 0f4a...`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := finance.ParseDocumentKind(args[0])
			if err != nil {
				return err
			}
			req := appfinance.RegisterPaymentRequest{
				Method:         method,
				Reference:      reference,
				Bank:           bank,
				Notes:          notes,
				IdempotencyKey: idempotencyKey,
			}
			if req.DocumentID, err = parseID("document", document); err != nil {
				return err
			}
			if req.Amount, err = parseAmount("amount", amount); err != nil {
				return err
			}
			if req.RecordedBy, err = g.actorID(); err != nil {
				return err
			}
			if paidAt != "" {
				if req.PaidAt, err = parseDate("paid-at", paidAt); err != nil {
					return err
				}
			}

			labels := kindLabels(kind)
			labels[string(telemetry.AttrPaymentMethod)] = method
			var result *appfinance.PaymentResult
			err = g.app.run(cmd.Context(), "pay", labels, func(ctx context.Context) error {
				if kind == finance.DocumentKindPayable {
					result, err = g.app.payments.RegisterPayablePayment(ctx, req)
				} else {
					result, err = g.app.payments.RegisterReceivablePayment(ctx, req)
				}
				return err
			})
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), result, paymentRows(result))
		},
	}
	cmd.Flags().StringVar(&document, "document", "", "Document ID")
	cmd.Flags().StringVar(&amount, "amount", "", "Payment amount")
	cmd.Flags().StringVar(&method, "method", "", "Payment method")
	cmd.Flags().StringVar(&reference, "reference", "", "Bank or transfer reference")
	cmd.Flags().StringVar(&bank, "bank", "", "Bank name")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&paidAt, "paid-at", "", "Payment date (YYYY-MM-DD, default: now)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Rejects a repeated submission of the same payment")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

func newPaymentsCmd(g *globals) *cobra.Command {
	var document string
	cmd := &cobra.Command{
		Use:   "payments cxc|cxp",
		Short: "List the payments registered against a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := finance.ParseDocumentKind(args[0])
			if err != nil {
				return err
			}
			documentID, err := parseID("document", document)
			if err != nil {
				return err
			}

			var payments []finance.Payment
			err = g.app.run(cmd.Context(), "payments", kindLabels(kind), func(ctx context.Context) error {
				payments, err = g.app.payments.ListPayments(ctx, kind, documentID)
				return err
			})
			if err != nil {
				return err
			}
			return g.printTable(cmd.OutOrStdout(), payments, paymentListTable(payments))
		},
	}
	cmd.Flags().StringVar(&document, "document", "", "Document ID")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func newConsumeCmd(g *globals) *cobra.Command {
	var client, merchant, store, amount, commission, at string
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Record a purchase and debit the client's credit line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req appfinance.RecordConsumptionRequest
			var err error
			if req.ClientID, err = parseID("client", client); err != nil {
				return err
			}
			if req.MerchantID, err = parseID("merchant", merchant); err != nil {
				return err
			}
			if req.Amount, err = parseAmount("amount", amount); err != nil {
				return err
			}
			if req.RegisteredBy, err = g.actorID(); err != nil {
				return err
			}
			if store != "" {
				id, err := parseID("store", store)
				if err != nil {
					return err
				}
				req.StoreID = &id
			}
			if commission != "" {
				c, err := parseAmount("commission", commission)
				if err != nil {
					return err
				}
				req.Commission = &c
			}
			if at != "" {
				if req.OccurredAt, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid --at %q, want RFC 3339: %w", at, err)
				}
			}

			var result *appfinance.BalanceResult
			err = g.app.run(cmd.Context(), "consume", nil, func(ctx context.Context) error {
				result, err = g.app.balances.RecordConsumption(ctx, req)
				return err
			})
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), result, balanceRows(result))
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Client ID")
	cmd.Flags().StringVar(&merchant, "merchant", "", "Merchant ID")
	cmd.Flags().StringVar(&store, "store", "", "Store ID")
	cmd.Flags().StringVar(&amount, "amount", "", "Purchase amount")
	cmd.Flags().StringVar(&commission, "commission", "", "Commission agreed for this purchase (default: merchant rate at consolidation)")
	cmd.Flags().StringVar(&at, "at", "", "Purchase time (RFC 3339, default: now)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newReverseCmd(g *globals) *cobra.Command {
	var consumption, reason string
	cmd := &cobra.Command{
		Use:   "reverse",
		Short: "Reverse a consumption and give the credit back",
		Long: `Reverses a consumption within the reversal window (ledger.reversal_window).
Consumptions already attached to a CxC or CxP document cannot be reversed.
--actor is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := appfinance.ReversalRequest{Reason: reason}
			var err error
			if req.ConsumptionID, err = parseID("consumption", consumption); err != nil {
				return err
			}
			if req.ActorID, err = g.actorID(); err != nil {
				return err
			}
			if req.ActorID == uuid.Nil {
				return errors.New("reverse needs --actor")
			}

			var result *appfinance.BalanceResult
			err = g.app.run(cmd.Context(), "reverse", nil, func(ctx context.Context) error {
				result, err = g.app.balances.ApplyReversal(ctx, req)
				return err
			})
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), result, balanceRows(result))
		},
	}
	cmd.Flags().StringVar(&consumption, "consumption", "", "Consumption ID")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the consumption is reversed")
	_ = cmd.MarkFlagRequired("consumption")
	return cmd
}

func newBalanceCmd(g *globals) *cobra.Command {
	var client string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a client's available credit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID, err := parseID("client", client)
			if err != nil {
				return err
			}
			var result *appfinance.BalanceResult
			err = g.app.run(cmd.Context(), "balance", nil, func(ctx context.Context) error {
				result, err = g.app.balances.GetBalance(ctx, clientID)
				return err
			})
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), result, balanceRows(result))
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Client ID")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func kindLabels(kind finance.DocumentKind) map[string]string {
	return map[string]string{telemetry.ProfilingLabelDocumentKind: string(kind)}
}

func parseID(flag, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q: %w", flag, value, err)
	}
	return id, nil
}

func parseDate(flag, value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, want YYYY-MM-DD: %w", flag, value, err)
	}
	return t, nil
}

func parseAmount(flag, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", flag, value, err)
	}
	return d, nil
}
