package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // registers the oracle JPEG decoder with image.Decode
	_ "image/png"  // registers the oracle PNG decoder with image.Decode
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/dlecorfec/imgcodec"
)

func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [files...]",
		Short: "Cross-check imgcodec's decode against the stdlib/x-image oracle, pixel by pixel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args)
		},
	}
	return cmd
}

func runVerify(paths []string) error {
	jobID := uuid.New().String()
	log := logger.With(zap.String("job_id", jobID), zap.String("command", "verify"))

	var mismatches int
	for _, p := range paths {
		diff, err := verifyOne(p)
		if err != nil {
			log.Error("verify failed", zap.String("input", p), zap.Error(err))
			mismatches++
			continue
		}
		if diff != "" {
			log.Error("pixel mismatch against oracle", zap.String("input", p), zap.String("diff", diff))
			mismatches++
			continue
		}
		log.Info("matches oracle", zap.String("input", p))
	}
	if mismatches > 0 {
		return fmt.Errorf("imgtool: %d of %d files disagreed with the oracle", mismatches, len(paths))
	}
	return nil
}

// verifyOne decodes path with imgcodec and, independently, with the
// stdlib image/png or image/jpeg decoder (the oracle the teacher's own
// cmd/progjpeg already imported for input decoding), normalizes the
// oracle's result to *image.RGBA via golang.org/x/image/draw (so
// palette/YCbCr/whatever it produced compares channel-for-channel against
// imgcodec's ToRGBA8 output), and returns a non-empty diff string on any
// mismatch.
func verifyOne(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	ours, err := imgcodec.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("imgcodec decode of %s: %w", path, err)
	}
	oursRGBA := ours.ToRGBA8()

	oracleImg, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("oracle decode of %s: %w", path, err)
	}

	bounds := oracleImg.Bounds()
	normalized := image.NewRGBA(bounds)
	draw.Draw(normalized, bounds, oracleImg, bounds.Min, draw.Src)

	if normalized.Bounds().Dx() != oursRGBA.Width() || normalized.Bounds().Dy() != oursRGBA.Height() {
		return fmt.Sprintf("dimension mismatch: oracle %dx%d, imgcodec %dx%d",
			normalized.Bounds().Dx(), normalized.Bounds().Dy(), oursRGBA.Width(), oursRGBA.Height()), nil
	}

	type rgba struct{ R, G, B, A uint8 }
	oracleRows := make([][]rgba, normalized.Bounds().Dy())
	ourRows := make([][]rgba, normalized.Bounds().Dy())
	for y := 0; y < normalized.Bounds().Dy(); y++ {
		oracleRow := make([]rgba, normalized.Bounds().Dx())
		ourRow := make([]rgba, normalized.Bounds().Dx())
		for x := 0; x < normalized.Bounds().Dx(); x++ {
			i := normalized.PixOffset(x+bounds.Min.X, y+bounds.Min.Y)
			oracleRow[x] = rgba{normalized.Pix[i], normalized.Pix[i+1], normalized.Pix[i+2], normalized.Pix[i+3]}
			p := oursRGBA.PixelAt(x, y)
			ourRow[x] = rgba{p.R, p.G, p.B, p.A}
		}
		oracleRows[y] = oracleRow
		ourRows[y] = ourRow
	}

	return cmp.Diff(oracleRows, ourRows), nil
}
