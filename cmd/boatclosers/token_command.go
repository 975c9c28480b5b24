package main

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fastygo/boatclosers/internal/config"
	"github.com/fastygo/boatclosers/internal/middleware"
)

// tokenCommand mints a bearer token for the HTTP API gate. It grants access to
// the shared transaction only and says nothing about which party holds it.
func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an API access token signed with JWT_SECRET",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Value: 24 * time.Hour,
				Usage: "How long the token stays valid",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ttl := c.Duration("ttl")
			token, err := middleware.IssueAccessToken(cfg.JWT.Secret, cfg.JWT.Issuer, ttl, time.Now())
			if err != nil {
				return err
			}
			return output(c, map[string]string{"token": token, "expiresIn": ttl.String()}, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}
}
