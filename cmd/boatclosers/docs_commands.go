package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fastygo/boatclosers/internal/app"
	"github.com/fastygo/boatclosers/usecase/signature"
)

func docsCommands() *cli.Command {
	return &cli.Command{
		Name:    "docs",
		Aliases: []string{"documents"},
		Usage:   "Document catalog, rendering and signatures",
		Subcommands: []*cli.Command{
			docsListCommand(),
			docsRenderCommand(),
			docsExportCommand(),
			docsSignCommand(),
		},
	}
}

func docsListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List documents by category with their signature state",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				groups, err := a.Documents.List(ctx)
				if err != nil {
					return err
				}
				return output(c, groups, func(w io.Writer) {
					for _, g := range groups {
						fmt.Fprintln(w, g.Label)
						for _, d := range g.Documents {
							mark := "[ ]"
							if d.Signed {
								mark = "[x]"
							}
							required := ""
							if d.Required {
								required = " (required)"
							}
							fmt.Fprintf(w, "  %s %-28s %s%s\n", mark, d.ID, d.Name, required)
						}
					}
				})
			})
		},
	}
}

func docsRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a document as HTML",
		ArgsUsage: "DOCUMENT_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the HTML to a file instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("document id is required")
			}
			id := c.Args().Get(0)

			return withApp(c, func(ctx context.Context, a *app.App) error {
				rendered, err := a.Documents.Render(ctx, id)
				if err != nil {
					return err
				}
				if out := c.String("out"); out != "" {
					return os.WriteFile(out, []byte(rendered.Content), 0o644)
				}
				return output(c, rendered, func(w io.Writer) {
					fmt.Fprintln(w, rendered.Content)
				})
			})
		},
	}
}

func docsExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Render a document with its fingerprint and QR seal",
		ArgsUsage: "DOCUMENT_ID",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("document id is required")
			}
			id := c.Args().Get(0)

			return withApp(c, func(ctx context.Context, a *app.App) error {
				export, err := a.Documents.Export(ctx, id)
				if err != nil {
					return err
				}
				return output(c, export, func(w io.Writer) {
					fmt.Fprintf(w, "Document:    %s\n", export.Document.Name)
					fmt.Fprintf(w, "Transaction: %s (version %d)\n", export.TransactionID, export.Version)
					fmt.Fprintf(w, "Fingerprint: %s\n", export.Seal.Fingerprint)
				})
			})
		},
	}
}

func docsSignCommand() *cli.Command {
	return &cli.Command{
		Name:      "sign",
		Usage:     "Sign a document with a typed name or a drawn signature",
		ArgsUsage: "DOCUMENT_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Typed signature",
			},
			&cli.PathFlag{
				Name:  "strokes",
				Usage: `JSON file with drawn strokes: [[{"x":0,"y":0},...],...]`,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("document id is required")
			}
			id := c.Args().Get(0)
			capture, err := captureFromFlags(c)
			if err != nil {
				return err
			}

			return withApp(c, func(ctx context.Context, a *app.App) error {
				tx, err := a.Signatures.Sign(ctx, id, capture)
				if err != nil {
					return err
				}
				sig := tx.Signatures[id]
				return output(c, sig, func(w io.Writer) {
					fmt.Fprintf(w, "Signed %s as %s (%s)\n", id, sig.Signer, sig.Mode)
				})
			})
		},
	}
}

func captureFromFlags(c *cli.Context) (signature.Capture, error) {
	name, strokes := c.String("name"), c.Path("strokes")
	switch {
	case name != "" && strokes != "":
		return nil, fmt.Errorf("use either --name or --strokes, not both")
	case name != "":
		return signature.Typed{Name: name}, nil
	case strokes != "":
		raw, err := os.ReadFile(strokes)
		if err != nil {
			return nil, err
		}
		var f signature.Freehand
		if err := json.Unmarshal(raw, &f.Strokes); err != nil {
			return nil, fmt.Errorf("failed to parse strokes: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("a signature is required: pass --name or --strokes")
}
