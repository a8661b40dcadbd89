package cli

import (
	"fmt"
	"io"

	"github.com/jeremysolarz/invoices-with-card-element/config"
	"github.com/jeremysolarz/invoices-with-card-element/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	serverURL string
	verbose   bool
}

// NewRootCommand builds the checkout CLI reading prompts from in.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "checkout",
		Short: "Pay an invoice with a card from the terminal",
		Long: `checkout drives the card checkout flow against a checkout server:
it loads the publishable key, asks the server for a payment intent and invoice,
and confirms the card payment with Stripe.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "Checkout server URL (overrides CHECKOUT_SERVER_URL)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newPayCommand(opts))
	return root
}

// Execute runs the CLI and prints the error, if any.
func Execute(in io.Reader, out, errOut io.Writer, args []string) error {
	root := NewRootCommand(in, out, errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(errOut, "Error:", err)
		return err
	}
	return nil
}

func (o *options) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.serverURL != "" {
		cfg.ServerURL = o.serverURL
	}

	if !o.verbose {
		return cfg, zap.NewNop(), nil
	}
	log, err := logger.New(cfg.Environment, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
