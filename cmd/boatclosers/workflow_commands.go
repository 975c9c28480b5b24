package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/app"
	"github.com/fastygo/boatclosers/internal/render"
	"github.com/fastygo/boatclosers/usecase/escrow"
)

func offerCommands() *cli.Command {
	return &cli.Command{
		Name:  "offer",
		Usage: "Offer generation, status and payment",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "List the fields still needed to generate the offer",
				Action: func(c *cli.Context) error {
					return withApp(c, func(ctx context.Context, a *app.App) error {
						missing, err := a.Offer.Missing(ctx)
						if err != nil {
							return err
						}
						return output(c, map[string]interface{}{"canGenerate": len(missing) == 0, "missing": missing}, func(w io.Writer) {
							if len(missing) == 0 {
								fmt.Fprintln(w, "Offer can be generated")
								return
							}
							fmt.Fprintln(w, "Missing:")
							for _, m := range missing {
								fmt.Fprintf(w, "  %s\n", m)
							}
						})
					})
				},
			},
			{
				Name:  "generate",
				Usage: "Snapshot the current terms into the offer",
				Action: func(c *cli.Context) error {
					return withApp(c, func(ctx context.Context, a *app.App) error {
						tx, err := a.Offer.Generate(ctx)
						if err != nil {
							return err
						}
						return output(c, tx.Offer, func(w io.Writer) {
							fmt.Fprintf(w, "Offer generated at %s for %s (%s)\n",
								tx.Offer.GeneratedAt.Format("2006-01-02 15:04"), render.FormatMoney(tx.Offer.Price), tx.Offer.Status)
							if n := len(tx.Offer.History); n > 0 {
								fmt.Fprintf(w, "%d earlier version(s) kept\n", n)
							}
						})
					})
				},
			},
			{
				Name:      "status",
				Usage:     "Set the offer status",
				ArgsUsage: "pending|accepted|countered|rejected",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return fmt.Errorf("status is required")
					}
					status := domain.OfferStatus(strings.ToLower(c.Args().Get(0)))

					return withApp(c, func(ctx context.Context, a *app.App) error {
						res, err := a.Offer.SetStatus(ctx, status)
						if err != nil {
							return err
						}
						return output(c, res, func(w io.Writer) {
							fmt.Fprintf(w, "Offer is now %s\n", res.Transaction.Offer.Status)
							if res.PaymentRequired {
								fmt.Fprintln(w, "Payment required: run `boatclosers offer pay` to unlock the documents")
							}
						})
					})
				},
			},
			{
				Name:      "pay",
				Usage:     "Pay to unlock the offer",
				ArgsUsage: "[standard|premium]",
				Action: func(c *cli.Context) error {
					plan := domain.PlanStandard
					if c.NArg() > 0 {
						plan = domain.Plan(strings.ToLower(c.Args().Get(0)))
					}

					return withApp(c, func(ctx context.Context, a *app.App) error {
						tx, err := a.Offer.RecordPayment(ctx, plan)
						if err != nil {
							return err
						}
						return output(c, tx.Offer, func(w io.Writer) {
							fmt.Fprintf(w, "Paid (%s plan), reference %s\n", tx.Offer.SelectedPlan, tx.Offer.PaymentRef)
						})
					})
				},
			},
		},
	}
}

func depositCommands() *cli.Command {
	return &cli.Command{
		Name:  "deposit",
		Usage: "Earnest money verification",
		Subcommands: []*cli.Command{
			{
				Name:      "confirm",
				Usage:     "Confirm the deposit on behalf of one party",
				ArgsUsage: "buyer|seller",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "undo",
						Usage: "Withdraw the confirmation",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return fmt.Errorf("party is required (buyer or seller)")
					}
					party := domain.Role(strings.ToLower(c.Args().Get(0)))

					return withApp(c, func(ctx context.Context, a *app.App) error {
						if _, err := a.Deposit.Confirm(ctx, party, !c.Bool("undo")); err != nil {
							return err
						}
						return printDeposit(ctx, c, a)
					})
				},
			},
			{
				Name:  "status",
				Usage: "Show the deposit verification state",
				Action: func(c *cli.Context) error {
					return withApp(c, func(ctx context.Context, a *app.App) error {
						return printDeposit(ctx, c, a)
					})
				},
			},
		},
	}
}

func printDeposit(ctx context.Context, c *cli.Context, a *app.App) error {
	s, err := a.Deposit.Status(ctx)
	if err != nil {
		return err
	}
	return output(c, s, func(w io.Writer) {
		fmt.Fprintf(w, "Method:              %s\n", orDash(string(s.Method)))
		fmt.Fprintf(w, "Agreed:              %s\n", render.FormatMoney(s.Agreed))
		fmt.Fprintf(w, "Reported:            %s\n", render.FormatMoney(s.Reported))
		fmt.Fprintf(w, "Confirmed by buyer:  %t\n", s.ConfirmedByBuyer)
		fmt.Fprintf(w, "Confirmed by seller: %t\n", s.ConfirmedBySeller)
		fmt.Fprintf(w, "Verified:            %t\n", s.Verified)
		if s.Mismatch {
			fmt.Fprintln(w, "Warning: reported amount differs from the agreed deposit")
		}
	})
}

func escrowCommands() *cli.Command {
	return &cli.Command{
		Name:  "escrow",
		Usage: "Escrow timeline and wire instructions",
		Subcommands: []*cli.Command{
			{
				Name:      "advance",
				Usage:     "Move escrow forward",
				ArgsUsage: "opened|funded|conditions|released",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return fmt.Errorf("status is required")
					}
					status := domain.EscrowStatus(strings.ToLower(c.Args().Get(0)))

					return withApp(c, func(ctx context.Context, a *app.App) error {
						tx, err := a.Escrow.Advance(ctx, status)
						if err != nil {
							return err
						}
						stages := escrow.Stages(tx)
						return output(c, stages, func(w io.Writer) { printStages(w, stages) })
					})
				},
			},
			{
				Name:      "reset",
				Usage:     "Set escrow to any stage, including an earlier one",
				ArgsUsage: "not-started|opened|funded|conditions|released",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return fmt.Errorf("status is required")
					}
					status := domain.EscrowStatus(strings.ToLower(c.Args().Get(0)))

					return withApp(c, func(ctx context.Context, a *app.App) error {
						tx, err := a.Escrow.Reset(ctx, status)
						if err != nil {
							return err
						}
						stages := escrow.Stages(tx)
						return output(c, stages, func(w io.Writer) { printStages(w, stages) })
					})
				},
			},
			{
				Name:  "show",
				Usage: "Show the timeline and the wire instructions",
				Action: func(c *cli.Context) error {
					return withApp(c, func(ctx context.Context, a *app.App) error {
						stages, err := a.Escrow.Stages(ctx)
						if err != nil {
							return err
						}
						wire, err := a.Escrow.WireInstructions(ctx)
						if err != nil {
							return err
						}
						return output(c, map[string]interface{}{"stages": stages, "wire": wire}, func(w io.Writer) {
							printStages(w, stages)
							fmt.Fprintln(w)
							fmt.Fprintf(w, "Agent:   %s %s\n", orDash(wire.AgentName), wire.Company)
							fmt.Fprintf(w, "Bank:    %s\n", orDash(wire.BankName))
							fmt.Fprintf(w, "Routing: %s\n", orDash(wire.RoutingNumber))
							fmt.Fprintf(w, "Account: %s\n", orDash(wire.AccountNumber))
							fmt.Fprintln(w)
							fmt.Fprintln(w, wire.Notice)
						})
					})
				},
			},
		},
	}
}

func printStages(w io.Writer, stages []escrow.Stage) {
	for _, s := range stages {
		mark := "[ ]"
		switch {
		case s.Current:
			mark = "[>]"
		case s.Done:
			mark = "[x]"
		}
		fmt.Fprintf(w, "%s %s\n", mark, s.Label)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
