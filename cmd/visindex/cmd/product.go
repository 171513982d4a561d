package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
	"github.com/Aman-CERP/visindex/internal/output"
	"github.com/Aman-CERP/visindex/internal/store"
)

func newProductCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage catalog products",
	}
	cmd.AddCommand(newProductSetCmd(root))
	cmd.AddCommand(newProductDeleteCmd(root))
	return cmd
}

type productSetOptions struct {
	sku             string
	typeID          string
	visibility      int
	storeVisibility []string
	parents         []int64
}

func newProductSetCmd(root *rootOptions) *cobra.Command {
	opts := &productSetOptions{}

	cmd := &cobra.Command{
		Use:   "set <product-id>",
		Short: "Create or replace a product and its visibility",
		Long: `Create or replace a product with its default visibility and optional
per-store overrides. Visibility codes: 1 not visible, 2 catalog, 3 search,
4 catalog and search.`,
		Example: `  # A configurable parent visible everywhere except store 2
  visindex product set 10 --type configurable --visibility 4 --store-visibility 2=1

  # A variant of product 10
  visindex product set 11 --visibility 1 --parent 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return verrors.ValidationError(fmt.Sprintf("invalid product id %q", args[0]), err)
			}
			overrides, err := parseStoreVisibility(opts.storeVisibility)
			if err != nil {
				return err
			}
			sku := opts.sku
			if sku == "" {
				sku = "sku-" + args[0]
			}

			a, err := root.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			repo := a.db.Products()
			if err := repo.SaveProduct(cmd.Context(), store.ProductRecord{
				ID:              id,
				SKU:             sku,
				TypeID:          opts.typeID,
				Visibility:      catalog.Visibility(opts.visibility),
				StoreVisibility: overrides,
			}); err != nil {
				return err
			}
			for _, parent := range opts.parents {
				if err := repo.LinkVariant(cmd.Context(), id, parent); err != nil {
					return err
				}
			}

			output.New(cmd.OutOrStdout()).Successf("product %d saved (%s)", id,
				catalog.Visibility(opts.visibility))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.sku, "sku", "", "SKU (default sku-<id>)")
	cmd.Flags().StringVar(&opts.typeID, "type", catalog.TypeSimple, "Product type id")
	cmd.Flags().IntVar(&opts.visibility, "visibility", int(catalog.VisibilityBoth), "Default visibility code (1-4)")
	cmd.Flags().StringSliceVar(&opts.storeVisibility, "store-visibility", nil, "Store override as store=code, repeatable")
	cmd.Flags().Int64SliceVar(&opts.parents, "parent", nil, "Configurable parent id, repeatable")
	return cmd
}

// parseStoreVisibility parses store=code pairs.
func parseStoreVisibility(pairs []string) (map[int64]catalog.Visibility, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[int64]catalog.Visibility, len(pairs))
	for _, pair := range pairs {
		storePart, codePart, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, verrors.ValidationError(fmt.Sprintf("store visibility %q must be store=code", pair), nil)
		}
		storeID, err := strconv.ParseInt(strings.TrimSpace(storePart), 10, 64)
		if err != nil {
			return nil, verrors.ValidationError(fmt.Sprintf("invalid store id in %q", pair), err)
		}
		code, err := strconv.Atoi(strings.TrimSpace(codePart))
		if err != nil {
			return nil, verrors.ValidationError(fmt.Sprintf("invalid visibility in %q", pair), err)
		}
		out[storeID] = catalog.Visibility(code)
	}
	return out, nil
}

func newProductDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return verrors.ValidationError(fmt.Sprintf("invalid product id %q", args[0]), err)
			}
			a, err := root.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.db.Products().DeleteProduct(cmd.Context(), id); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("product %d deleted", id)
			return nil
		},
	}
}
