package cli

import (
	"fmt"

	"github.com/jeremysolarz/invoices-with-card-element/services"

	"github.com/spf13/cobra"
)

func newConfigCommand(opts *options) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the publishable key returned by the checkout server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			form := newTerminalForm(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), "", "", wait)
			messages := services.NewMessageLog(log, form.printMessage)
			api := services.NewPaymentAPIClient(cfg.ServerURL, cfg.RequestTimeout)

			checkoutCfg, err := services.LoadCheckoutConfig(cmd.Context(), api, messages, form)
			if err != nil {
				return fmt.Errorf("failed to load checkout config: %w", err)
			}
			if checkoutCfg.PublishableKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "publishableKey: %s\n", checkoutCfg.PublishableKey)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for Enter after an alert")
	return cmd
}
