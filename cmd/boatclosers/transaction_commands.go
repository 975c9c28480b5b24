package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/app"
)

func startCommand() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a transaction, or resume the saved one",
		ArgsUsage: "buyer|seller",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fresh",
				Usage: "Discard any saved transaction and start over",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("role is required (buyer or seller)")
			}
			role := domain.Role(strings.ToLower(c.Args().Get(0)))

			return withApp(c, func(ctx context.Context, a *app.App) error {
				var (
					tx      *domain.Transaction
					resumed bool
					err     error
				)
				if c.Bool("fresh") {
					tx, err = a.Session.StartFresh(ctx, role)
				} else {
					tx, resumed, err = a.Session.Start(ctx, role)
				}
				if err != nil {
					return err
				}
				return output(c, map[string]interface{}{"transaction": tx, "resumed": resumed}, func(w io.Writer) {
					if resumed {
						fmt.Fprintf(w, "Resumed transaction %s (%s, step %d)\n", tx.ID, tx.Role, tx.CurrentStep+1)
						return
					}
					fmt.Fprintf(w, "Started transaction %s as %s\n", tx.ID, tx.Role)
				})
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the saved transaction",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "jq expression applied to the transaction",
			},
		},
		Action: func(c *cli.Context) error {
			var code *gojq.Code
			if q := c.String("query"); q != "" {
				query, err := gojq.Parse(q)
				if err != nil {
					return fmt.Errorf("failed to parse jq query %q: %w", q, err)
				}
				if code, err = gojq.Compile(query); err != nil {
					return fmt.Errorf("failed to compile jq query %q: %w", q, err)
				}
			}

			return withApp(c, func(ctx context.Context, a *app.App) error {
				tx, err := a.Session.Current(ctx)
				if err != nil {
					return err
				}
				if code == nil {
					return output(c, tx, nil)
				}
				results, err := runQuery(ctx, code, tx)
				if err != nil {
					return err
				}
				for _, r := range results {
					if err := output(c, r, nil); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func runQuery(ctx context.Context, code *gojq.Code, tx *domain.Transaction) ([]interface{}, error) {
	raw, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}

	var results []interface{}
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print one field by dot path",
		ArgsUsage: "PATH",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("path is required")
			}
			path := c.Args().Get(0)

			return withApp(c, func(ctx context.Context, a *app.App) error {
				tx, err := a.Session.Current(ctx)
				if err != nil {
					return err
				}
				value, err := domain.Field(tx, path)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, string(value))
				return nil
			})
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set one field by dot path",
		ArgsUsage: "PATH VALUE",
		Description: `VALUE is parsed as JSON when it is valid JSON and taken as a plain string otherwise:

   boatclosers set vessel.make "Boston Whaler"
   boatclosers set terms.price 85000
   boatclosers set terms.contingencies '["Survey","Sea trial"]'
   boatclosers set --string seller.zip 02110`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "string",
				Aliases: []string{"s"},
				Usage:   "Take VALUE as a plain string even when it parses as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("path and value are required")
			}
			path := c.Args().Get(0)
			var value interface{} = c.Args().Get(1)
			if !c.Bool("string") {
				value = parseValue(c.Args().Get(1))
			}

			return withApp(c, func(ctx context.Context, a *app.App) error {
				tx, err := a.Session.Update(ctx, path, value)
				if err != nil {
					return err
				}
				return output(c, tx, func(w io.Writer) {
					fmt.Fprintf(w, "Updated %s (version %d)\n", path, tx.Version)
				})
			})
		},
	}
}

func parseValue(arg string) interface{} {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}

func stepCommand() *cli.Command {
	return &cli.Command{
		Name:      "step",
		Usage:     "Go to a step (1-6), or list steps without an argument",
		ArgsUsage: "[STEP]",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				if c.NArg() > 0 {
					n, err := strconv.Atoi(c.Args().Get(0))
					if err != nil {
						return fmt.Errorf("step must be a number: %w", err)
					}
					if _, err := a.Session.GoStep(ctx, n-1); err != nil {
						return err
					}
				}
				states, err := a.Session.StepStates(ctx)
				if err != nil {
					return err
				}
				return output(c, states, func(w io.Writer) {
					for _, s := range states {
						marker := " "
						if s.Current {
							marker = ">"
						}
						ready := "-"
						if s.Ready {
							ready = "✓"
						}
						fmt.Fprintf(w, "%s %d. %-20s %s\n", marker, s.Index+1, s.Label, ready)
					}
				})
			})
		},
	}
}

func readinessCommand() *cli.Command {
	return &cli.Command{
		Name:  "readiness",
		Usage: "Show the closing checklist",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				r, err := a.Session.Readiness(ctx)
				if err != nil {
					return err
				}
				return output(c, r, func(w io.Writer) {
					fmt.Fprintf(w, "Required documents: %d/%d signed\n", r.RequiredSigned, r.RequiredTotal)
					for _, id := range r.MissingRequired {
						fmt.Fprintf(w, "  missing: %s\n", id)
					}
					fmt.Fprintf(w, "Due diligence:      %d/%d\n", r.DiligenceDone, r.DiligenceTotal)
					fmt.Fprintf(w, "Deposit sent:       %t\n", r.DepositSent)
					fmt.Fprintf(w, "Deposit confirmed:  %t\n", r.DepositConfirmed)
					fmt.Fprintf(w, "Can close:          %t\n", r.CanClose)
				})
			})
		},
	}
}

func closeCommand() *cli.Command {
	return &cli.Command{
		Name:  "close",
		Usage: "Close the deal",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				tx, err := a.Session.Close(ctx)
				if err != nil {
					return err
				}
				return output(c, tx, func(w io.Writer) {
					fmt.Fprintf(w, "Transaction %s closed at %s\n", tx.ID, tx.ClosedAt.Format("2006-01-02 15:04"))
				})
			})
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Discard the saved transaction",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the reset",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return fmt.Errorf("reset discards the saved transaction; pass --yes to confirm")
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				if err := a.Session.Reset(ctx); err != nil {
					return err
				}
				return output(c, map[string]bool{"reset": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Saved transaction discarded")
				})
			})
		},
	}
}
