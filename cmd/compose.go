package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/composition"
	"github.com/curio-labs/curio/internal/images"
	"github.com/spf13/cobra"
)

func newComposeCmd() *cobra.Command {
	var (
		photo        string
		backgroundID string
		assetsDir    string
		out          string
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Frame one photo inside a background",
		Example: `  curio compose --photo vase.jpg --background bg-cn-03 --out vase-framed.jpg
  curio compose --photo https://example.org/teapot.png --background bg-mo-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flagsFromEnv(cmd, map[string]string{"assets": "CURIO_ASSETS_DIR"}); err != nil {
				return err
			}

			registry, err := backgrounds.Default()
			if err != nil {
				return fmt.Errorf("failed to load backgrounds: %w", err)
			}
			tpl, err := registry.Get(backgroundID)
			if err != nil {
				return err
			}
			assets, err := openAssets(assetsDir, registry)
			if err != nil {
				return err
			}

			data, err := readPhoto(cmd, photo)
			if err != nil {
				return err
			}

			engine := composition.New(images.NewFetcher(assets))
			start := time.Now()
			res, err := engine.Compose(cmd.Context(), data, tpl)
			if err != nil {
				return err
			}

			if err := os.WriteFile(out, res.Image, 0644); err != nil {
				return fmt.Errorf("failed to write composite: %w", err)
			}

			slog.Info("Composite written",
				"out", out,
				"background_id", tpl.ID,
				"used_box", res.UsedBox.String(),
				"elapsed", time.Since(start).Round(time.Millisecond).String())
			fmt.Printf("%s: %dx%d, photo at %v\n", out, res.Width, res.Height, res.UsedBox)
			return nil
		},
	}

	cmd.Flags().StringVar(&photo, "photo", "", "Photo file or http(s) URL (required)")
	cmd.Flags().StringVar(&backgroundID, "background", "", "Background id, see 'curio backgrounds' (required)")
	cmd.Flags().StringVar(&assetsDir, "assets", "assets", "Directory holding backgrounds/ (env CURIO_ASSETS_DIR)")
	cmd.Flags().StringVar(&out, "out", "composite.jpg", "Output JPEG file")
	_ = cmd.MarkFlagRequired("photo")
	_ = cmd.MarkFlagRequired("background")

	return cmd
}

// readPhoto loads a photo from disk or downloads it
func readPhoto(cmd *cobra.Command, ref string) ([]byte, error) {
	if images.IsRemote(ref) {
		return images.NewFetcher(nil).Fetch(cmd.Context(), ref)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return data, nil
}
