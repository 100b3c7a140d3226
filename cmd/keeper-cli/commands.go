package main

import (
	"context"
	"fmt"
	"path/filepath"

	"keeper/internal/app"
	"keeper/internal/matching"
	"keeper/pkg/auth"
	"keeper/pkg/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var cacheFile string
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file.json>...",
		Short: "Ingest customers and transactions from JSON exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.App, accountID uuid.UUID) error {
				cache, err := loadCache(cacheFile)
				if err != nil {
					return err
				}

				for _, path := range args {
					summary, err := importFile(ctx, a, accountID, path, cache, force)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), summary)
				}
				return saveCache(cacheFile, cache)
			})
		},
	}
	cmd.Flags().StringVar(&cacheFile, "cache", filepath.Join(".", ".import_cache.json"), "file recording already imported exports")
	cmd.Flags().BoolVar(&force, "force", false, "import files even if unchanged since the last run")
	return cmd
}

func newEmbedCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Compute embeddings for customers that have none",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.App, accountID uuid.UUID) error {
				res, err := a.Matching.BackfillEmbeddings(ctx, accountID, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum customers to embed (0 = all)")
	return cmd
}

func newMatchCmd() *cobra.Command {
	var id matching.Identity
	var maxMatches int

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find stored customers matching an identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if matching.Normalize(id) == "" {
				return fmt.Errorf("at least one identity field is required")
			}
			return runWithApp(cmd, func(ctx context.Context, a *app.App, accountID uuid.UUID) error {
				matches, err := a.Matching.FindMatches(ctx, accountID, id, maxMatches)
				if err != nil {
					return err
				}
				return printJSON(cmd, matches)
			})
		},
	}
	cmd.Flags().StringVar(&id.GivenName, "given-name", "", "given name")
	cmd.Flags().StringVar(&id.FamilyName, "family-name", "", "family name")
	cmd.Flags().StringVar(&id.Email, "email", "", "email address")
	cmd.Flags().StringVar(&id.Phone, "phone", "", "phone number")
	cmd.Flags().IntVar(&maxMatches, "max", matching.DefaultTopK, "maximum matches")
	return cmd
}

func newInsightsCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Run the local detectors and store accepted insights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.App, accountID uuid.UUID) error {
				report, err := a.Insights.Generate(ctx, accountID, !dryRun)
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report insights without storing them")
	return cmd
}

func newConsensusCmd() *cobra.Command {
	var persist bool

	cmd := &cobra.Command{
		Use:   "consensus",
		Short: "Ask every configured provider for insights and merge the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.App, accountID uuid.UUID) error {
				report, err := a.Consensus.Run(ctx, accountID, nil, persist)
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			})
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "store accepted insights")
	return cmd
}

// newTokenCmd issues an API token without touching the database.
func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accountID, err := uuid.Parse(accountFlag)
			if err != nil {
				return fmt.Errorf("invalid --account: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWT.SecretKey == "" {
				return fmt.Errorf("%w: JWT_SECRET_KEY", config.ErrMissingCredential)
			}

			token, err := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration).GenerateToken(accountID.String())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
