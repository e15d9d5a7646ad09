package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/pricelist-backend/internal/eligibility"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	out := new(bytes.Buffer)
	app.Writer = out
	app.ErrWriter = new(bytes.Buffer)
	err := app.Run(append([]string{"pricelist"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateMappingAcceptsMatchingHeader(t *testing.T) {
	csv := writeFile(t, "prices.csv", "sku,price,qty\nA,1,1\n")
	out, err := runApp(t, "validate-mapping", "--file", csv, "--identifier-column", "sku", "--price-column", "price", "--quantity-column", "qty")
	require.NoError(t, err)

	var body struct {
		Valid  bool     `json:"valid"`
		Header []string `json:"header"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.True(t, body.Valid)
	assert.Equal(t, []string{"sku", "price", "qty"}, body.Header)
}

func TestValidateMappingReportsMissingColumns(t *testing.T) {
	csv := writeFile(t, "prices.csv", "code,amount\nA,1\n")
	_, err := runApp(t, "validate-mapping", "--file", csv, "--identifier-column", "sku", "--price-column", "price")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identifier_column")
	assert.Contains(t, err.Error(), "price_column")
}

func TestValidateMappingFlagsOverrideProfile(t *testing.T) {
	csv := writeFile(t, "prices.csv", "code,amount\nA,1\n")
	profile := writeFile(t, "profile.yaml", strings.Join([]string{
		"name: wholesale",
		"mapping:",
		"  identifier_column: sku",
		"  price_column: amount",
		"strategy: skip_existing",
	}, "\n"))

	_, err := runApp(t, "validate-mapping", "--file", csv, "--profile", profile)
	require.Error(t, err)

	out, err := runApp(t, "validate-mapping", "--file", csv, "--profile", profile, "--identifier-column", "code")
	require.NoError(t, err)
	assert.Contains(t, out, `"strategy": "skip_existing"`)
}

func TestValidateMappingRejectsUnknownPurchasableType(t *testing.T) {
	csv := writeFile(t, "prices.csv", "sku,price\n")
	_, err := runApp(t, "validate-mapping", "--file", csv, "--purchasable-type", "gift_card", "--identifier-column", "sku", "--price-column", "price")
	assert.Error(t, err)
}

type stubUsers map[uuid.UUID]*models.User

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func customerFor(t *testing.T, users userLookup, args ...string) (eligibility.Customer, error) {
	t.Helper()
	var got eligibility.Customer
	app := &cli.App{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user"},
			&cli.StringSliceFlag{Name: "role"},
		},
		Action: func(c *cli.Context) error {
			var err error
			got, err = customerFromFlags(c, users)
			return err
		},
	}
	err := app.Run(append([]string{"resolve"}, args...))
	return got, err
}

func TestCustomerFromFlags(t *testing.T) {
	id := uuid.New()
	users := stubUsers{id: {ID: id, Email: "buyer@example.com", Roles: []string{"wholesale"}}}

	anon, err := customerFor(t, users)
	require.NoError(t, err)
	assert.Nil(t, anon.ID)
	assert.Equal(t, []string{models.RoleAnonymous}, anon.Roles)

	known, err := customerFor(t, users, "--user", id.String(), "--role", "vip")
	require.NoError(t, err)
	require.NotNil(t, known.ID)
	assert.Equal(t, id, *known.ID)
	assert.ElementsMatch(t, []string{models.RoleAuthenticated, "wholesale", "vip"}, known.Roles)

	_, err = customerFor(t, users, "--user", uuid.NewString())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = customerFor(t, users, "--user", "nope")
	assert.Error(t, err)
}
