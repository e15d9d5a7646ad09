// Command pricelist runs price list imports and price lookups from the shell.
//
// Usage:
//
//	pricelist import --price-list <id> --file prices.csv --profile wholesale.yaml
//	pricelist resolve --store <id> --purchasable-type widget --purchasable-id <id> --quantity 10
//	pricelist validate-mapping --file prices.csv --purchasable-type product_variation --identifier-column sku --price-column price
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pricelist",
		Usage:   "Import and resolve store price lists",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Value:   ".env",
				Usage:   "Dotenv file loaded before reading configuration",
				EnvVars: []string{"PRICELIST_ENV_FILE"},
			},
		},
		Commands: []*cli.Command{
			importCommand(),
			resolveCommand(),
			validateMappingCommand(),
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
