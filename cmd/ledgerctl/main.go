// Command ledgerctl is the operator CLI of the credit ledger. It records and
// reverses consumptions, consolidates billing periods into CxC/CxP documents
// and registers payments against them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/logger"
	"github.com/erp/credit-ledger/internal/infrastructure/telemetry"
)

var version = "dev"

// globals are the flags shared by every subcommand
type globals struct {
	actor     string
	requestID string
	output    string
	logLevel  string

	app *app
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := &globals{}
	err := newRootCmd(g).ExecuteContext(ctx)
	g.close(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		stop()
		os.Exit(exitCode(err))
	}
}

// newRootCmd builds the command tree. The app opened by a subcommand is
// left in g for the caller to close, since cobra skips post-run hooks
// when a command fails.
func newRootCmd(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the employer-sponsored credit ledger",
		Long: `ledgerctl runs the credit ledger operations against the database
configured in config.toml or LEDGER_* environment variables (a .env file in
the working directory is loaded first).

Consumptions debit a client's credit line. Consolidation bills a period of
consumptions to the employer (CxC) or settles it with the merchant (CxP).
Paying a CxC document in full gives the credit back to its clients.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			if g.output != "text" && g.output != "json" {
				return fmt.Errorf("--output must be text or json, got %q", g.output)
			}
			telemetry.ServiceVersion = version

			a, err := newApp(cmd.Context(), g.logLevel)
			if err != nil {
				return err
			}
			g.app = a

			ctx := cmd.Context()
			if g.requestID == "" {
				g.requestID = uuid.NewString()
			}
			ctx, _ = logger.WithRequestID(ctx, a.log, g.requestID)
			if g.actor != "" {
				ctx, _ = logger.WithActorID(ctx, a.log, g.actor)
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.actor, "actor", "", "Operator ID (UUID) recorded on payments, consumptions and reversals")
	flags.StringVar(&g.requestID, "request-id", "", "Correlation ID added to every log entry (default: random)")
	flags.StringVarP(&g.output, "output", "o", "text", "Output format: text or json")
	flags.StringVar(&g.logLevel, "log-level", "", "Override log.level from configuration")

	root.AddCommand(
		newConsolidateCmd(g),
		newPreviewCmd(g),
		newPayCmd(g),
		newPaymentsCmd(g),
		newConsumeCmd(g),
		newReverseCmd(g),
		newBalanceCmd(g),
	)
	return root
}

func (g *globals) close(ctx context.Context) {
	if g.app != nil {
		g.app.close(ctx)
		g.app = nil
	}
}

// actorID parses --actor. An empty flag yields uuid.Nil.
func (g *globals) actorID() (uuid.UUID, error) {
	if g.actor == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(g.actor)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --actor %q: %w", g.actor, err)
	}
	return id, nil
}

// exitCode maps domain errors to distinct exit statuses for scripts:
// 2 validation, 3 not found, 4 business rule or conflict, 1 anything else
func exitCode(err error) int {
	switch shared.KindOf(err) {
	case shared.ErrorKindValidation:
		return 2
	case shared.ErrorKindNotFound:
		return 3
	case shared.ErrorKindBusinessRule, shared.ErrorKindConflict:
		return 4
	default:
		return 1
	}
}

func describeError(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return fmt.Sprintf("[%s] %s", de.Code, de.Message)
	}
	return err.Error()
}
