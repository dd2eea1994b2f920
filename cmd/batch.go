package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/curio-labs/curio/internal/analysis"
	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/blobs"
	"github.com/curio-labs/curio/internal/composition"
	"github.com/curio-labs/curio/internal/conversation"
	"github.com/curio-labs/curio/internal/curio"
	"github.com/curio-labs/curio/internal/gallery"
	"github.com/curio-labs/curio/internal/images"
	"github.com/curio-labs/curio/internal/report"
	"github.com/spf13/cobra"
)

var photoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// fixedCategory classifies as usual but pins the category
type fixedCategory struct {
	analysis.Classifier
	category backgrounds.Category
}

func (f fixedCategory) Classify(ctx context.Context, image []byte) (analysis.Result, error) {
	res, err := f.Classifier.Classify(ctx, image)
	res.Category = f.category
	return res, err
}

func newBatchCmd() *cobra.Command {
	var (
		inputDir      string
		category      string
		assetsDir     string
		outputYAML    string
		outputParquet string
		concurrency   int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze and compose every photo in a directory",
		Long: `Runs each photo through capture, analysis and composition in its own
session and writes a report with the chosen background and the placement
of the photo on the canvas.`,
		Example: `  curio batch --input ./photos
  curio batch --input ./photos --category Modern --output-parquet reports/modern.parquet --concurrency 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flagsFromEnv(cmd, map[string]string{"assets": "CURIO_ASSETS_DIR"}); err != nil {
				return err
			}
			if concurrency < 1 {
				concurrency = 1
			}

			var classifier analysis.Classifier = analysis.NewMockClassifier(analysis.WithDelay(0, 0))
			if category != "" {
				c := backgrounds.Category(category)
				if !c.Valid() {
					return fmt.Errorf("unknown category %q (supported: %v)", category, backgrounds.Categories)
				}
				classifier = fixedCategory{Classifier: classifier, category: c}
			}

			photos, err := listPhotos(inputDir)
			if err != nil {
				return err
			}
			if len(photos) == 0 {
				return fmt.Errorf("no photos found in %s", inputDir)
			}

			registry, err := backgrounds.Default()
			if err != nil {
				return fmt.Errorf("failed to load backgrounds: %w", err)
			}
			assets, err := openAssets(assetsDir, registry)
			if err != nil {
				return err
			}
			service := curio.NewService(
				registry,
				composition.New(images.NewFetcher(assets)),
				blobs.NewStore(0, slog.Default()),
				classifier,
				conversation.NewMockGenerator(),
				curio.WithSplashDelay(time.Hour),
			)

			timestamp := time.Now().Format("2006-01-02_15-04-05")
			r := &report.Report{
				Config: report.Config{
					Input:       inputDir,
					Assets:      assetsDir,
					Category:    category,
					Concurrency: concurrency,
					Canvas:      fmt.Sprintf("%dx%d", composition.CanvasWidth, composition.CanvasHeight),
					Timestamp:   timestamp,
				},
				Rows: runBatch(cmd.Context(), service, photos, concurrency),
			}

			if outputYAML == "" {
				outputYAML = filepath.Join("reports", "batch-"+timestamp+".yaml")
			}
			if err := report.SaveYAML(outputYAML, r); err != nil {
				return err
			}
			if outputParquet != "" {
				if err := report.SaveParquet(outputParquet, r.Rows); err != nil {
					return err
				}
			}

			report.Summarize(r.Rows, composition.CanvasWidth, composition.CanvasHeight).Print(cmd.OutOrStdout())

			absPath, _ := filepath.Abs(outputYAML)
			fmt.Fprintf(cmd.OutOrStdout(), "\nReport saved to: %s\n", absPath)
			if outputParquet != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Parquet rows saved to: %s\n", outputParquet)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "Directory of photos (required)")
	cmd.Flags().StringVar(&category, "category", "", "Use this category instead of the classifier's")
	cmd.Flags().StringVar(&assetsDir, "assets", "assets", "Directory holding backgrounds/ (env CURIO_ASSETS_DIR)")
	cmd.Flags().StringVar(&outputYAML, "output-yaml", "", "YAML report path (default reports/batch-<timestamp>.yaml)")
	cmd.Flags().StringVar(&outputParquet, "output-parquet", "", "Also write the rows as Parquet")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Photos processed at once")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func listPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	var photos []string
	for _, e := range entries {
		if e.IsDir() || !photoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		photos = append(photos, filepath.Join(dir, e.Name()))
	}
	return photos, nil
}

func runBatch(ctx context.Context, service *curio.Service, photos []string, concurrency int) []report.Row {
	slog.Info("Processing photos", "count", len(photos), "concurrency", concurrency)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	rowsChan := make(chan report.Row, len(photos))

	for i, photo := range photos {
		wg.Add(1)
		go func(idx int, photo string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			slog.Info("Processing photo", "photo", photo, "progress", fmt.Sprintf("%d/%d", idx+1, len(photos)))
			rowsChan <- processPhoto(ctx, service, photo)
		}(i, photo)
	}

	// Wait for all goroutines to finish
	go func() {
		wg.Wait()
		close(rowsChan)
	}()

	rows := make([]report.Row, 0, len(photos))
	for row := range rowsChan {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Photo < rows[j].Photo })
	return rows
}

func processPhoto(ctx context.Context, service *curio.Service, photo string) report.Row {
	start := time.Now()
	session := service.NewSession()
	defer session.Close()

	fail := func(tpl backgrounds.Template, err error) report.Row {
		slog.Warn("Photo failed", "photo", photo, "err", err)
		return report.NewRow(photo, tpl, nil, time.Since(start), err)
	}

	data, err := os.ReadFile(photo)
	if err != nil {
		return fail(backgrounds.Template{}, err)
	}
	if _, err := service.Capture(ctx, session, data, filepath.Base(photo), gallery.Upload); err != nil {
		return fail(backgrounds.Template{}, err)
	}
	item, err := service.Analyze(ctx, session)
	if err != nil {
		return fail(backgrounds.Template{}, err)
	}

	status, err := service.Wait(ctx, item)
	if err != nil {
		return fail(item.Background, err)
	}
	if status != gallery.Ready {
		return fail(item.Background, item.Err())
	}

	res, _ := item.Composite()
	return report.NewRow(photo, item.Background, res, time.Since(start), nil)
}
