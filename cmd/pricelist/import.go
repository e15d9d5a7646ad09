package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/pricelist-backend/internal/imports"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a CSV file into a price list and wait for the job to finish",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "price-list", Aliases: []string{"l"}, Usage: "Target price list id", Required: true},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "CSV file to import", Required: true},
			&cli.BoolFlag{Name: "redis", Value: true, Usage: "Coordinate through Redis when it is configured"},
		}, mappingFlags()...),
		Action: runImport,
	}
}

func runImport(c *cli.Context) error {
	listID, err := uuid.Parse(c.String("price-list"))
	if err != nil {
		return fmt.Errorf("invalid --price-list: %w", err)
	}
	opts, err := optionsFromFlags(c)
	if err != nil {
		return err
	}
	path := c.String("file")
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	rt, err := bootstrap(c, c.Bool("redis"))
	if err != nil {
		return err
	}
	defer rt.Close()

	job, err := rt.services.Imports.StartImport(c.Context, imports.StartInput{
		PriceListID: listID,
		Filename:    filepath.Base(path),
		Upload:      file,
		Options:     opts,
	})
	if err != nil {
		return describeError(err)
	}
	fmt.Fprintf(c.App.ErrWriter, "queued import job %s\n", job.ID)

	job, err = rt.services.Imports.Run(c.Context, job.ID)
	if job != nil {
		if werr := writeJSON(c.App.Writer, imports.Summarize(job)); werr != nil {
			return werr
		}
	}
	if err != nil {
		return describeError(err)
	}
	fmt.Fprintln(c.App.ErrWriter, imports.FinishMessage(job))
	return nil
}
