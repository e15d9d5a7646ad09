package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/pricelist-backend/internal/eligibility"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Print the price a customer pays for a purchasable",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Aliases: []string{"s"}, Usage: "Store id", Required: true},
			&cli.StringFlag{Name: "purchasable-type", Value: string(enums.PurchasableProductVariation), Usage: "product_variation or widget"},
			&cli.StringFlag{Name: "purchasable-id", Usage: "Purchasable id", Required: true},
			&cli.StringFlag{Name: "quantity", Aliases: []string{"q"}, Value: "1", Usage: "Quantity being bought"},
			&cli.StringFlag{Name: "user", Usage: "Customer id; anonymous when empty"},
			&cli.StringSliceFlag{Name: "role", Usage: "Customer role, repeatable"},
			&cli.BoolFlag{Name: "eligible", Usage: "Also list the eligible price list items"},
		},
		Action: runResolve,
	}
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// customerFromFlags loads --user and adds any --role on top of the stored roles.
func customerFromFlags(c *cli.Context, users userLookup) (eligibility.Customer, error) {
	raw := c.String("user")
	if raw == "" {
		return eligibility.Anonymous(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return eligibility.Customer{}, fmt.Errorf("invalid --user: %w", err)
	}
	user, err := users.FindByID(c.Context, id)
	if err != nil {
		return eligibility.Customer{}, err
	}
	user.Roles = append(user.Roles, c.StringSlice("role")...)
	return eligibility.CustomerFromUser(*user), nil
}

func runResolve(c *cli.Context) error {
	storeID, err := uuid.Parse(c.String("store"))
	if err != nil {
		return fmt.Errorf("invalid --store: %w", err)
	}
	typ, err := enums.ParsePurchasableType(c.String("purchasable-type"))
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.String("purchasable-id"))
	if err != nil {
		return fmt.Errorf("invalid --purchasable-id: %w", err)
	}
	quantity, err := decimal.NewFromString(c.String("quantity"))
	if err != nil {
		return fmt.Errorf("invalid --quantity: %w", err)
	}
	rt, err := bootstrap(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	customer, err := customerFromFlags(c, rt.services.Users)
	if err != nil {
		return err
	}

	ref := types.PurchasableRef{Type: typ, ID: id}
	ectx := eligibility.Context{Customer: customer, StoreID: storeID}
	out := map[string]any{"purchasable": ref, "quantity": quantity, "roles": customer.Roles}

	res, err := rt.services.Pricing.Resolve(c.Context, ref, quantity, ectx)
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		out["price"] = nil
	case err != nil:
		return err
	default:
		out["price"] = res.Price
		out["resolver"] = res.Resolver
	}

	if c.Bool("eligible") {
		items, err := rt.services.Eligibility.FindEligibleItems(c.Context, ref, quantity, ectx)
		if err != nil {
			return err
		}
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			rows = append(rows, map[string]any{
				"id":            item.ID,
				"price_list_id": item.PriceListID,
				"quantity":      item.Quantity,
				"price":         item.Price(),
			})
		}
		out["eligible_items"] = rows
	}
	return writeJSON(c.App.Writer, out)
}
