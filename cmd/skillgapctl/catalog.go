package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/shared/config"
	"skillgap-backend/internal/shared/storage/db"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate, convert and import role catalogs",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog selected by --catalog and report problems",
	RunE:  runCatalogValidate,
}

var catalogConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Write the catalog selected by --catalog as JSON or YAML",
	RunE:  runCatalogConvert,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the catalog stored in Postgres with the one selected by --catalog",
	RunE:  runCatalogImport,
}

var catalogOut string

func init() {
	catalogConvertCmd.Flags().StringVarP(&catalogOut, "out", "o", "", "output file; .yaml/.yml selects YAML (required)")
	if err := catalogConvertCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}
	catalogCmd.AddCommand(catalogValidateCmd, catalogConvertCmd, catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogValidate(cmd *cobra.Command, _ []string) error {
	store := catalogStore(catalogSource)
	snap, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: version %s, %d skills, %d roles\n", store.Name(), snap.Version, len(snap.Skills), len(snap.Roles))
	for _, w := range snap.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

func runCatalogConvert(cmd *cobra.Command, _ []string) error {
	snap, err := catalogStore(catalogSource).Load(cmd.Context())
	if err != nil {
		return err
	}
	data, err := catalog.Encode(snap.Document(), catalog.FormatFromPath(catalogOut))
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(catalogOut, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", catalogOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d skills, %d roles)\n", catalogOut, len(snap.Skills), len(snap.Roles))
	return nil
}

func runCatalogImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	snap, err := catalogStore(catalogSource).Load(ctx)
	if err != nil {
		return err
	}
	// Store vectors alongside the catalog so servers skip re-embedding.
	provider := engine.NewModelProvider(engine.ModelConfigFromConfig(cfg))
	defer provider.Close()
	snap, err = provider.PrepareCatalog(ctx, snap)
	if err != nil {
		return err
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if err := (&catalog.PGStore{DB: sqlDB}).Save(ctx, snap); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported catalog %s (%d skills, %d roles, embedded by %s)\n", snap.Version, len(snap.Skills), len(snap.Roles), snap.EmbeddedBy)
	return nil
}
