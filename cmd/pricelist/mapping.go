package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/pricelist-backend/internal/imports"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

func mappingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "profile", Usage: "YAML mapping profile; explicit flags override its values"},
		&cli.StringFlag{Name: "identifier-column", Usage: "CSV column holding the purchasable identifier"},
		&cli.StringFlag{Name: "price-column", Usage: "CSV column holding the price"},
		&cli.StringFlag{Name: "list-price-column", Usage: "CSV column holding the compare-at price"},
		&cli.StringFlag{Name: "quantity-column", Usage: "CSV column holding the minimum quantity"},
		&cli.StringFlag{Name: "identifier-field", Usage: "Purchasable field matched by the identifier (id, uuid, label, sku)"},
		&cli.StringFlag{Name: "strategy", Usage: "update_existing or skip_existing"},
		&cli.BoolFlag{Name: "purge", Usage: "Delete the list's items before importing"},
	}
}

// optionsFromFlags starts from the profile, when one is given, and applies any flag set
// on the command line.
func optionsFromFlags(c *cli.Context) (imports.Options, error) {
	var opts imports.Options
	if path := c.String("profile"); path != "" {
		profile, err := imports.LoadProfile(path)
		if err != nil {
			return imports.Options{}, err
		}
		opts = profile.Options
	}
	set := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = strings.TrimSpace(c.String(flag))
		}
	}
	set("identifier-column", &opts.Mapping.IdentifierColumn)
	set("price-column", &opts.Mapping.PriceColumn)
	set("list-price-column", &opts.Mapping.ListPriceColumn)
	set("quantity-column", &opts.Mapping.QuantityColumn)
	if c.IsSet("identifier-field") {
		opts.IdentifierField = enums.IdentifierField(strings.TrimSpace(c.String("identifier-field")))
	}
	if c.IsSet("strategy") {
		opts.Strategy = enums.ImportStrategy(strings.TrimSpace(c.String("strategy")))
	}
	if c.IsSet("purge") {
		opts.Purge = c.Bool("purge")
	}
	return opts, nil
}

func validateMappingCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate-mapping",
		Usage: "Check a CSV header against a column mapping without touching the database",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "CSV file to check", Required: true},
			&cli.StringFlag{Name: "purchasable-type", Value: string(enums.PurchasableProductVariation), Usage: "Purchasable type of the target list"},
		}, mappingFlags()...),
		Action: runValidateMapping,
	}
}

func runValidateMapping(c *cli.Context) error {
	typ, err := enums.ParsePurchasableType(c.String("purchasable-type"))
	if err != nil {
		return err
	}
	opts, err := optionsFromFlags(c)
	if err != nil {
		return err
	}
	header, err := imports.ReadHeader(c.String("file"))
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if err := opts.Validate(typ, header); err != nil {
		return describeError(err)
	}
	return writeJSON(c.App.Writer, map[string]any{"valid": true, "header": header, "options": opts})
}
