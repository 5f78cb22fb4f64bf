package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/npratt/dandiatlas/internal/render"
)

func newSnapshotCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render a view to a PNG or SVG image",
		Long: `Render the meshes of a view to an image without opening the browser.

The format follows the --out extension (.png or .svg). Use --out - to
write a PNG to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			nav, _ := cmd.Flags().GetString(FlagNav)
			out, _ := cmd.Flags().GetString(FlagOut)

			format, err := snapshotFormat(out)
			if err != nil {
				return err
			}
			scene, err := newScene(cfg.Render)
			if err != nil {
				return err
			}

			s := newSession(cfg, c.logger)
			if _, err := s.openView(cmd.Context(), nav, scene, false); err != nil {
				return err
			}
			c.logger.Debug("scene ready", "meshes", scene.Len(), "visible", len(scene.Visible()))

			vp := render.Pixels(cfg.Render.Width, cfg.Render.Height)
			if out == "-" {
				return writeSnapshot(cmd.OutOrStdout(), scene, vp, format)
			}
			if err := writeSnapshotFile(out, scene, vp, format); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%dx%d, %s)\n", out, vp.W, vp.H, scene.Plane())
			return nil
		},
	}

	cmd.Flags().String(FlagNav, "", "View hash to render (default: the whole atlas)")
	cmd.Flags().String(FlagOut, "atlas.png", "Output file (.png, .svg or - for stdout)")
	cmd.Flags().String(FlagPlane, "", "Projection plane (sagittal, coronal, horizontal)")
	cmd.Flags().Int(FlagWidth, 0, "Image width in pixels")
	cmd.Flags().Int(FlagHeight, 0, "Image height in pixels")
	return cmd
}

// snapshotFormat picks the image format from the output name.
func snapshotFormat(out string) (string, error) {
	if out == "-" {
		return "png", nil
	}
	switch ext := strings.ToLower(filepath.Ext(out)); ext {
	case ".png":
		return "png", nil
	case ".svg":
		return "svg", nil
	default:
		return "", fmt.Errorf("unsupported image format %q (use .png or .svg)", ext)
	}
}

func writeSnapshot(w io.Writer, scene *render.Scene, vp render.Viewport, format string) error {
	if format == "svg" {
		return scene.WriteSVG(w, vp)
	}
	return scene.WritePNG(w, vp)
}

func writeSnapshotFile(path string, scene *render.Scene, vp render.Viewport, format string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return writeSnapshot(f, scene, vp, format)
}
