// Command spfvwatch polls the fair-value proxy and prints each refresh.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/poller"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "spfvwatch",
	Short: "Watch fair-value data from the proxy",
	Long: `spfvwatch polls the /api/spfv endpoints with a Supabase access token and
prints every refresh until interrupted.

Flags may also be set through SPFVWATCH_* environment variables,
e.g. SPFVWATCH_API_URL and SPFVWATCH_TOKEN.`,
	SilenceUsage: true,
}

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Poll complete tiers for a symbol and expiration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(v.GetString("symbol"))
		expiration := v.GetString("expiration")
		if symbol == "" || expiration == "" {
			return fmt.Errorf("--symbol and --expiration are required")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		p := poller.Tiers(client, symbol, expiration, v.GetDuration("interval")).
			OnUpdate(func(s poller.State[[]dto.Tier]) {
				if s.IsLoading {
					return
				}
				if s.IsError {
					fmt.Fprintf(out, "%s refresh failed: %v\n", time.Now().Format(time.TimeOnly), s.Err)
					return
				}
				printTiers(out, symbol, expiration, s.Data)
			})

		return watch(cmd.Context(), p.Run)
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Poll the last price for a symbol",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(v.GetString("symbol"))
		if symbol == "" {
			return fmt.Errorf("--symbol is required")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		p := poller.LastPriceInfo(client, symbol, v.GetDuration("interval")).
			OnUpdate(func(s poller.State[*dto.LastPriceInfo]) {
				if s.IsLoading {
					return
				}
				if s.IsError {
					fmt.Fprintf(out, "%s refresh failed: %v\n", time.Now().Format(time.TimeOnly), s.Err)
					return
				}
				q := s.Data
				fmt.Fprintf(out, "%s %s last=%.2f bid=%.2f ask=%.2f chg=%.2f (%.2f%%)\n",
					time.Now().Format(time.TimeOnly), q.Symbol, q.LastPrice, q.Bid, q.Ask, q.Change, q.ChangePercent)
			})

		return watch(cmd.Context(), p.Run)
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List the symbols the proxy serves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		state := poller.Symbols(client, 0).Refresh(cmd.Context())
		if state.IsError {
			return state.Err
		}
		for _, s := range state.Data {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("api-url", "http://localhost:8080", "base URL of the proxy")
	flags.String("token", "", "Supabase access token")
	flags.String("symbol", "", "underlying symbol")
	flags.String("expiration", "", "expiration date (YYYY-MM-DD)")
	flags.Duration("interval", 5*time.Second, "refresh interval")
	flags.Duration("timeout", 15*time.Second, "per-request timeout")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("SPFVWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(tiersCmd, quoteCmd, symbolsCmd)
}

func newClient() (*poller.Client, error) {
	token := v.GetString("token")
	if token == "" {
		return nil, fmt.Errorf("--token or SPFVWATCH_TOKEN is required")
	}
	return poller.NewClient(v.GetString("api-url"), token, v.GetDuration("timeout")), nil
}

// watch runs fn until SIGINT or SIGTERM.
func watch(parent context.Context, fn func(context.Context)) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	fn(ctx)
	return nil
}

func printTiers(out io.Writer, symbol, expiration string, list []dto.Tier) {
	fmt.Fprintf(out, "\n%s %s %s (%d tiers)\n", time.Now().Format(time.TimeOnly), symbol, expiration, len(list))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "RATIO\tCALL STRIKE\tCALL MID\tPUT STRIKE\tPUT MID\t")
	for _, t := range list {
		fmt.Fprintf(w, "%.4f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			t.Ratio, t.CallOption.Strike, t.CallOption.Midpoint, t.PutOption.Strike, t.PutOption.Midpoint)
	}
	w.Flush()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
