package main

import (
	"fmt"
	"strconv"

	"github.com/agentuity/stockroom/barcode"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <barcode>",
		Short: "Look up a barcode exactly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			entry := c.GetProduct(cmd.Context(), args[0])
			if entry == nil {
				return errors.Wrapf(errNotFound, "barcode %s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), entry)
		},
	}
}

func newSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <barcode> <name>",
		Short: "Cache a product under a barcode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := barcode.Entry{Barcode: args[0], Name: args[1]}
			entry.Supplier, _ = cmd.Flags().GetString("supplier")
			if p, _ := cmd.Flags().GetString("price"); p != "" {
				price, err := strconv.ParseFloat(p, 64)
				if err != nil || price < 0 {
					return errors.Newf("invalid price %q", p)
				}
				entry.Price = &price
			}
			c, store, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			c.SetProduct(cmd.Context(), entry)
			fmt.Fprintf(cmd.OutOrStdout(), "cached %s\n", entry.Barcode)
			return nil
		},
	}
	cmd.Flags().String("supplier", "", "supplier name")
	cmd.Flags().String("price", "", "unit price")
	return cmd
}

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <barcode>",
		Short: "Suggest cached products for a possibly mistyped barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			matches := c.FuzzySearchScored(cmd.Context(), args[0])
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(matches) > limit {
				matches = matches[:limit]
			}
			return writeJSON(cmd.OutOrStdout(), matches)
		},
	}
	cmd.Flags().Int("limit", 0, "maximum number of matches, 0 for all")
	return cmd
}

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", c.CleanExpired(cmd.Context()))
			return nil
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show live, expired and total entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			return writeJSON(cmd.OutOrStdout(), c.Stats(cmd.Context()))
		},
	}
}
