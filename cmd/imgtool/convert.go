package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dlecorfec/imgcodec"
	"github.com/dlecorfec/imgcodec/jpeg"
	"github.com/dlecorfec/imgcodec/pixel"
	"github.com/dlecorfec/imgcodec/png"
)

type convertOptions struct {
	inputs      []string
	outDir      string
	to          string
	quality     int
	progressive bool
	adaptive    bool
}

func newConvertCommand() *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "convert [files...]",
		Short: "Convert PNG/JPEG files to the format named by --to, one job ID per invocation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.inputs = args
			return runConvert(opts)
		},
	}
	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "directory to write converted files into")
	cmd.Flags().StringVar(&opts.to, "to", "png", "target format: png or jpeg")
	cmd.Flags().IntVar(&opts.quality, "quality", jpeg.DefaultQuality, "JPEG quality (1-100), ignored for --to=png")
	cmd.Flags().BoolVar(&opts.progressive, "progressive", false, "use jpeg.EncodeProgressive instead of baseline Encode")
	cmd.Flags().BoolVar(&opts.adaptive, "adaptive-filter", false, "use png.FilterAdaptive instead of FilterNone")
	return cmd
}

func runConvert(opts convertOptions) error {
	jobID := uuid.New().String()
	log := logger.With(zap.String("job_id", jobID), zap.String("command", "convert"))
	log.Info("starting batch conversion", zap.Int("file_count", len(opts.inputs)), zap.String("to", opts.to))

	var failed int
	for _, in := range opts.inputs {
		if err := convertOne(log, in, opts); err != nil {
			log.Error("conversion failed", zap.String("input", in), zap.Error(err))
			failed++
			continue
		}
		log.Info("converted", zap.String("input", in))
	}

	log.Info("batch conversion complete", zap.Int("failed", failed), zap.Int("succeeded", len(opts.inputs)-failed))
	if failed > 0 {
		return fmt.Errorf("imgtool: %d of %d files failed to convert", failed, len(opts.inputs))
	}
	return nil
}

func convertOne(log *zap.Logger, in string, opts convertOptions) error {
	raw, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}

	dyn, err := imgcodec.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", in, err)
	}
	log.Debug("decoded", zap.String("input", in), zap.String("kind", dyn.Kind().String()),
		zap.Int("width", dyn.Width()), zap.Int("height", dyn.Height()))

	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	ext := ".png"
	if strings.EqualFold(opts.to, "jpeg") || strings.EqualFold(opts.to, "jpg") {
		ext = ".jpg"
	}
	out, err := os.Create(filepath.Join(opts.outDir, base+ext))
	if err != nil {
		return fmt.Errorf("creating output for %s: %w", in, err)
	}
	defer out.Close()

	switch {
	case ext == ".jpg":
		// JPEG's YCbCr8 is a lossy color-space conversion, not a lossless
		// promotion: route through ConvertRGB8ToYCbCr8 rather than
		// DecodeAs[YCbCr8], which only walks the promotion DAG and has no
		// RGB8/Y8->YCbCr8 edge (it would fail with ErrIncompatiblePromotion
		// for every PNG and every grayscale-JPEG source).
		rgba := dyn.ToRGBA8()
		ycbcr := pixel.Map(rgba, func(p pixel.RGBA8) pixel.YCbCr8 {
			return pixel.ConvertRGB8ToYCbCr8(pixel.RGB8{R: p.R, G: p.G, B: p.B})
		})
		if opts.progressive {
			return jpeg.EncodeProgressive(out, ycbcr, &jpeg.ProgressiveOptions{Quality: opts.quality})
		}
		return jpeg.Encode(out, ycbcr, opts.quality)
	default:
		rgba := dyn.ToRGBA8()
		filter := png.FilterNone
		if opts.adaptive {
			filter = png.FilterAdaptive
		}
		return png.Encode(out, rgba, &png.EncodeOptions{Filter: filter})
	}
}
