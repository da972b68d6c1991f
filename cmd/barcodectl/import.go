package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/agentuity/stockroom/barcode"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// readProducts parses barcode,name[,supplier[,price]] rows. A first row
// starting with "barcode" is treated as a header.
func readProducts(r io.Reader) ([]barcode.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var entries []barcode.Entry
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "barcode") {
			continue
		}
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" {
			return nil, errors.Newf("line %d: expected barcode and name", line)
		}
		e := barcode.Entry{Barcode: strings.TrimSpace(rec[0]), Name: strings.TrimSpace(rec[1])}
		if len(rec) > 2 {
			e.Supplier = strings.TrimSpace(rec[2])
		}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			price, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
			if err != nil || price < 0 {
				return nil, errors.Newf("line %d: invalid price %q", line, rec[3])
			}
			e.Price = &price
		}
		entries = append(entries, e)
	}
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Seed the cache from a barcode,name,supplier,price CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "open %s", args[0])
			}
			defer f.Close()
			entries, err := readProducts(f)
			if err != nil {
				return errors.Wrapf(err, "%s", args[0])
			}
			c, store, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			for _, e := range entries {
				c.SetProduct(cmd.Context(), e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d products\n", len(entries))
			return nil
		},
	}
}
