package support

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/testutil"
)

// saveImage writes img below the scenario directory, creating parents.
func (testCtx *TestContext) saveImage(name string, img image.Image) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) symbolImage(name string, format barcode.Format, text string, invert bool) error {
	cfg := testutil.DefaultSymbolConfig(text)
	cfg.Format = format
	if !format.Is2D() {
		cfg.Width, cfg.Height = 300, 120
	}
	img, err := testutil.GenerateSymbol(cfg)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", format, err)
	}
	if invert {
		img = testutil.Invert(img)
	}
	return testCtx.saveImage(name, img)
}

// aQRCodeImageEncoding renders a dark-on-light QR code.
func (testCtx *TestContext) aQRCodeImageEncoding(name, text string) error {
	return testCtx.symbolImage(name, barcode.FormatQR, text, false)
}

// anInvertedQRCodeImageEncoding renders a light-on-dark QR code.
func (testCtx *TestContext) anInvertedQRCodeImageEncoding(name, text string) error {
	return testCtx.symbolImage(name, barcode.FormatQR, text, true)
}

// anEAN13ImageEncoding renders an EAN-13 symbol.
func (testCtx *TestContext) anEAN13ImageEncoding(name, digits string) error {
	return testCtx.symbolImage(name, barcode.FormatEAN13, digits, false)
}

// aBlankImage renders a white image without a symbol.
func (testCtx *TestContext) aBlankImage(name string) error {
	return testCtx.saveImage(name, testutil.BlankImage(160, 160, color.White))
}

// aNoiseImage renders deterministic noise.
func (testCtx *TestContext) aNoiseImage(name string) error {
	return testCtx.saveImage(name, testutil.NoiseImage(160, 160, 7))
}

// aFileContaining writes arbitrary text, e.g. a corrupt "image".
func (testCtx *TestContext) aFileContaining(name, content string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

// aLargeFileOfMB writes mb megabytes of filler.
func (testCtx *TestContext) aLargeFileOfMB(name string, mb int) error {
	return testCtx.aFileContaining(name, strings.Repeat("x", mb*1024*1024))
}

// theFollowingImages renders a table of | file | kind | text | rows.
func (testCtx *TestContext) theFollowingImages(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) < 2 {
			return fmt.Errorf("row %d: expected at least file and kind", i)
		}
		name, kind := row.Cells[0].Value, strings.ToLower(row.Cells[1].Value)
		text := ""
		if len(row.Cells) > 2 {
			text = row.Cells[2].Value
		}

		var err error
		switch kind {
		case "qr":
			err = testCtx.aQRCodeImageEncoding(name, text)
		case "inverted-qr":
			err = testCtx.anInvertedQRCodeImageEncoding(name, text)
		case "ean13":
			err = testCtx.anEAN13ImageEncoding(name, text)
		case "blank":
			err = testCtx.aBlankImage(name)
		case "noise":
			err = testCtx.aNoiseImage(name)
		default:
			err = fmt.Errorf("unknown image kind %q", kind)
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// RegisterImageSteps registers fixture steps for image files.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code image "([^"]*)" encoding "([^"]*)"$`, testCtx.aQRCodeImageEncoding)
	sc.Step(`^an inverted QR code image "([^"]*)" encoding "([^"]*)"$`, testCtx.anInvertedQRCodeImageEncoding)
	sc.Step(`^an EAN-13 image "([^"]*)" encoding "([^"]*)"$`, testCtx.anEAN13ImageEncoding)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a noise image "([^"]*)"$`, testCtx.aNoiseImage)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
	sc.Step(`^a large file "([^"]*)" of (\d+) MB$`, testCtx.aLargeFileOfMB)
	sc.Step(`^the following images:$`, testCtx.theFollowingImages)
}
