package cmd

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/curio-labs/curio/internal/backgrounds"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curio",
		Short: "Photograph an object and watch it framed in a museum scene",
		Long: `Curio classifies a photo of an object, frames it inside a matching
museum background and opens a live room where characters talk about it.

It ships an HTTP server for the app screens plus offline tools for
composing single photos and whole batches.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newComposeCmd())
	cmd.AddCommand(newBackgroundsCmd())
	cmd.AddCommand(newBatchCmd())

	return cmd
}

// flagsFromEnv fills flags the user did not set from environment variables.
// It runs inside RunE so values from .env are visible.
func flagsFromEnv(cmd *cobra.Command, env map[string]string) error {
	for name, key := range env {
		if cmd.Flags().Changed(name) {
			continue
		}
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if err := cmd.Flags().Set(name, v); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
	}
	return nil
}

// openAssets roots the asset tree at dir. It fails when dir has no
// backgrounds/ directory and warns about every template image it lacks.
func openAssets(dir string, registry *backgrounds.Registry) (fs.FS, error) {
	assets := os.DirFS(dir)
	if info, err := fs.Stat(assets, "backgrounds"); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("asset root %s has no backgrounds/ directory, point --assets or CURIO_ASSETS_DIR at it", dir)
	}
	missing := 0
	for _, tpl := range registry.All() {
		if _, err := fs.Stat(assets, tpl.ImagePath); err != nil {
			slog.Warn("Background image missing", "background_id", tpl.ID, "path", tpl.ImagePath)
			missing++
		}
	}
	if missing > 0 {
		slog.Warn("Some backgrounds cannot be composed", "assets", dir, "missing", missing)
	}
	return assets, nil
}
