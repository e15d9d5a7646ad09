package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/pricelist-backend/internal/app"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

// runtime holds the clients opened for one command.
type runtime struct {
	*app.Runtime
	services *app.Services
}

func (r *runtime) Close() {
	if err := r.Runtime.Close(); err != nil {
		r.Logger.Error(context.Background(), "closing clients", err)
	}
}

// bootstrap wires the domain services for one command. Redis is used when useRedis is
// set and it is configured; otherwise jobs and locks stay in process.
func bootstrap(c *cli.Context, useRedis bool) (*runtime, error) {
	opts := app.OpenOptions{Service: "cli", EnvFile: c.String("env-file"), LogOutput: c.App.ErrWriter}
	if useRedis {
		opts.Redis = app.IfConfigured
	}
	base, err := app.Open(c.Context, opts)
	if err != nil {
		return nil, err
	}
	rt := &runtime{Runtime: base}
	if rt.services, err = app.Build(base.Params(nil)); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// describeError flattens typed error details into the message printed by the CLI.
func describeError(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || len(details) == 0 {
		return err
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, details[k]))
	}
	return fmt.Errorf("%s (%s)", typed.Message(), strings.Join(parts, "; "))
}
