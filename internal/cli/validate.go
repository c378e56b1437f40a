package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"quiz-bot/internal/config"
	"quiz-bot/internal/domain"
)

// NewValidateCmd checks the catalog and the asset files it references.
func NewValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog]",
		Short: "Validate a question catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Catalog.Path = args[0]
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			return reportCatalog(cmd.OutOrStdout(), cat, os.DirFS(assetsDir(cfg)))
		},
	}
}

// reportCatalog prints a summary and fails when a referenced asset is missing.
func reportCatalog(w io.Writer, cat domain.Catalog, assets fs.FS) error {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	missing := 0
	check := func(kind, path string) {
		if path == "" {
			return
		}
		if _, err := fs.Stat(assets, path); err != nil {
			bad.Fprintf(w, "missing %s %s\n", kind, path)
			missing++
		}
	}
	for _, q := range cat.Questions {
		check("image", q.Options.ImagePath)
	}
	for _, d := range cat.Documents {
		check("document", d.Path)
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d referenced files not found", domain.ErrInvalidCatalog, missing)
	}
	ok.Fprintf(w, "catalog ok: %d questions, %d documents\n", cat.Len(), len(cat.Documents))
	return nil
}
