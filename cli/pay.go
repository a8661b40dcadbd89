package cli

import (
	"context"
	"fmt"

	"github.com/jeremysolarz/invoices-with-card-element/models"
	"github.com/jeremysolarz/invoices-with-card-element/services"

	"github.com/spf13/cobra"
)

func newPayCommand(opts *options) *cobra.Command {
	var (
		name string
		card string
		wait bool
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Create an invoice and pay it with a card",
		Example: `  checkout pay --name "Jenny Rosen" --card tok_visa
  checkout pay --card tok_chargeDeclined`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			form := newTerminalForm(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), name, card, wait)
			stripeBackend := services.NewStripeBackend(cfg.StripeAPIURL, cfg.StripeMaxRetries)
			deps := services.PageDeps{
				API: services.NewPaymentAPIClient(cfg.ServerURL, cfg.RequestTimeout),
				NewConfirmer: func(publishableKey string) services.CardConfirmer {
					return services.NewStripeService(publishableKey, stripeBackend, log)
				},
				Request: models.PaymentRequest{Currency: cfg.Currency, PaymentMethodType: cfg.PaymentMethodType},
				Logger:  log,
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			page, err := services.LoadCheckoutPage(ctx, deps, form, form.printMessage)
			if err != nil {
				return err
			}

			if !form.SubmitEnabled() {
				return fmt.Errorf("checkout form %s is not ready", page.ID)
			}
			form.promptName()
			submitCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
			outcome, err := page.Flow.Submit(submitCtx)
			if err != nil {
				return err
			}
			if outcome != services.StateConfirmed {
				return fmt.Errorf("payment not completed: %s", outcome)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name on card (prompted when empty)")
	cmd.Flags().StringVar(&card, "card", "tok_visa", "Stripe test card token")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for Enter after an alert")
	return cmd
}
