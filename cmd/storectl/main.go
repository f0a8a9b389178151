package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/ariefcatur/go-shop-backoffice/internal/auth"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
	"github.com/ariefcatur/go-shop-backoffice/internal/config"
	"github.com/ariefcatur/go-shop-backoffice/internal/logx"
	"github.com/ariefcatur/go-shop-backoffice/internal/postgres"
	"github.com/ariefcatur/go-shop-backoffice/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logx.Setup("storectl", cfg.LogLevel, true)

	app := &cli.App{
		Name:  "storectl",
		Usage: "maintenance commands for the shop back office",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dsn", Value: cfg.PostgresDSN, EnvVars: []string{"POSTGRES_DSN"}, Usage: "postgres connection string"},
		},
		Commands: []*cli.Command{
			migrateCmd(),
			seedCmd(),
			createAdminCmd(cfg),
			tokenCmd(cfg),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("storectl")
	}
}

func withDB(c *cli.Context, fn func(ctx context.Context, db *pgxpool.Pool) error) error {
	ctx, cancel := context.WithTimeout(c.Context, 2*time.Minute)
	defer cancel()
	db, err := postgres.Connect(ctx, c.String("dsn"), 2)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or roll back schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					return postgres.MigrateUp(c.String("dsn"))
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1}},
				Action: func(c *cli.Context) error {
					return postgres.MigrateDown(c.String("dsn"), c.Int("steps"))
				},
			},
		},
	}
}

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "insert the demo categories and products",
		Action: func(c *cli.Context) error {
			return withDB(c, func(ctx context.Context, db *pgxpool.Pool) error {
				res, err := seed.Run(ctx, &catalog.Repo{DB: db})
				if err != nil {
					return err
				}
				log.Info().Int("categories", res.Categories).Int("products", res.Products).Msg("seed complete")
				return nil
			})
		},
	}
}

func createAdminCmd(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "create an admin user unless the email already exists",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Value: "Admin User"},
			&cli.StringFlag{Name: "email", Value: cfg.AdminEmail},
			&cli.StringFlag{Name: "password", Value: cfg.AdminPassword},
			&cli.StringFlag{Name: "role", Value: auth.RoleSuperAdmin},
		},
		Action: func(c *cli.Context) error {
			return withDB(c, func(ctx context.Context, db *pgxpool.Pool) error {
				repo := &auth.UserRepo{DB: db}
				u, created, err := repo.EnsureAdmin(ctx, c.String("name"), c.String("email"), c.String("password"), c.String("role"))
				if err != nil {
					return err
				}
				if !created {
					log.Info().Str("email", u.Email).Msg("admin already exists")
					return nil
				}
				log.Info().Str("email", u.Email).Str("role", u.Role).Msg("admin created")
				return nil
			})
		},
	}
}

func tokenCmd(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "print a bearer token for an existing admin",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Value: cfg.AdminEmail},
			&cli.DurationFlag{Name: "ttl", Value: cfg.JWTTokenTTL},
		},
		Action: func(c *cli.Context) error {
			return withDB(c, func(ctx context.Context, db *pgxpool.Pool) error {
				u, err := (&auth.UserRepo{DB: db}).ByEmail(ctx, c.String("email"))
				if err != nil {
					return err
				}
				iss := auth.Issuer{Secret: []byte(cfg.JWTSecret), TTL: c.Duration("ttl")}
				tok, err := iss.Issue(u.ID, u.Email, u.Role)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, tok)
				return nil
			})
		},
	}
}
