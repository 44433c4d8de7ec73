package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/SN7k/Flexova/internal/cartsync"
	"github.com/SN7k/Flexova/internal/client"
	"github.com/SN7k/Flexova/internal/config"
	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/internal/localcache"
	"github.com/SN7k/Flexova/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	configPath string
	apiURL     string
	token      string
	localPath  string

	log    *zap.Logger
	local  *localcache.SQLiteCache
	api    *client.Client
	store  *cartsync.Store
	closed bool
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Manage the Flexova shopping cart",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "optional config file")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "storefront API URL (overrides API_URL)")
	root.PersistentFlags().StringVar(&a.token, "token", "", "bearer token (overrides API_TOKEN)")
	root.PersistentFlags().StringVar(&a.localPath, "local", "", "local cart database (overrides LOCAL_CACHE_PATH)")

	root.AddCommand(
		a.showCmd(),
		a.addCmd(),
		a.updateCmd(),
		a.adjustCmd(),
		a.removeCmd(),
		a.clearCmd(),
		a.syncCmd(),
	)
	return root, a
}

// execute runs root and releases what the command opened, whether or not it
// failed. cobra skips post-run hooks after an error.
func execute(ctx context.Context, root *cobra.Command, a *app) error {
	defer a.close()
	return root.ExecuteContext(ctx)
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL == "" {
		a.apiURL = cfg.APIURL
	}
	if a.token == "" {
		a.token = cfg.APIToken
	}
	if a.localPath == "" {
		a.localPath = cfg.LocalCachePath
	}

	a.log, err = logger.NewTo(cfg.LogLevel, "stderr")
	if err != nil {
		return err
	}

	var local cartsync.LocalCache
	a.local, err = localcache.OpenSQLite(a.localPath)
	if err != nil {
		a.log.Warn("local cart storage unavailable, using memory", zap.Error(err))
	} else {
		local = a.local
	}

	a.store = cartsync.Open(ctx, local, a.log)
	a.api = client.New(a.apiURL, a.token, client.WithLogger(a.log))
	if a.token != "" {
		a.store.Attach(a.api)
	}
	return nil
}

func (a *app) close() {
	if a.closed {
		return
	}
	a.closed = true
	if a.local != nil {
		_ = a.local.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// report prints the cart. A sync failure is a warning: the local cart has
// already been updated.
func (a *app) report(cmd *cobra.Command, cart *domain.Cart, err error) error {
	var syncErr *cartsync.SyncError
	if errors.As(err, &syncErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (saved locally)\n", err)
		err = nil
	}
	if err != nil {
		return err
	}
	printCart(cmd.OutOrStdout(), cart)
	return nil
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart with its order summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.store.Snapshot(), nil)
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	var size, color string
	var qty int

	cmd := &cobra.Command{
		Use:   "add PRODUCT_ID",
		Short: "Add a product variant to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product, err := a.api.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("look up product: %w", err)
			}
			cart, err := a.store.AddLine(cmd.Context(), product.Snapshot(), qty, size, color)
			return a.report(cmd, cart, err)
		},
	}
	variantFlags(cmd, &size, &color)
	cmd.Flags().IntVarP(&qty, "qty", "q", 1, "quantity to add")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var size, color string

	cmd := &cobra.Command{
		Use:   "update PRODUCT_ID QUANTITY",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			key := domain.LineKey{ProductID: args[0], Size: size, Color: color}
			cart, err := a.store.UpdateLineQuantity(cmd.Context(), key, qty)
			return a.report(cmd, cart, err)
		},
	}
	variantFlags(cmd, &size, &color)
	return cmd
}

func (a *app) adjustCmd() *cobra.Command {
	var size, color string

	cmd := &cobra.Command{
		Use:   "adjust PRODUCT_ID DELTA",
		Short: "Step the quantity of a cart line up or down",
		Long:  "Step the quantity of a cart line up or down. Going below 1 removes the line.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta %q", args[1])
			}
			key := domain.LineKey{ProductID: args[0], Size: size, Color: color}
			cart, err := a.store.AdjustLineQuantity(cmd.Context(), key, delta)
			return a.report(cmd, cart, err)
		},
	}
	variantFlags(cmd, &size, &color)
	return cmd
}

func (a *app) removeCmd() *cobra.Command {
	var size, color string

	cmd := &cobra.Command{
		Use:   "remove PRODUCT_ID",
		Short: "Remove a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := domain.LineKey{ProductID: args[0], Size: size, Color: color}
			cart, err := a.store.RemoveLine(cmd.Context(), key)
			return a.report(cmd, cart, err)
		},
	}
	variantFlags(cmd, &size, &color)
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cart, err := a.store.Clear(cmd.Context())
			return a.report(cmd, cart, err)
		},
	}
}

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local cart with the server cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.store.Attached() {
				return errors.New("sync needs a token (--token or API_TOKEN)")
			}
			cart, err := a.store.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), cart)
			return nil
		},
	}
}

func variantFlags(cmd *cobra.Command, size, color *string) {
	cmd.Flags().StringVar(size, "size", "", "size variant")
	cmd.Flags().StringVar(color, "color", "", "color variant")
}

func printCart(w io.Writer, cart *domain.Cart) {
	if len(cart.Lines) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tSIZE\tCOLOR\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range cart.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			l.ProductID, l.Name, l.Size, l.Color, l.Quantity, l.UnitPrice, l.Subtotal())
	}
	_ = tw.Flush()

	s := cart.Summary(domain.DefaultPricingPolicy)
	fmt.Fprintf(w, "\nitems: %d\nsubtotal: %s\nshipping: %s\ntax: %s\ntotal: %s\n",
		s.ItemCount, s.Subtotal, s.Shipping, s.Tax, s.GrandTotal)
}
