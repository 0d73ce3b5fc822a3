package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// aPDFBuiltFrom creates a document with one page per listed image.
func (testCtx *TestContext) aPDFBuiltFrom(name, images string) error {
	var files []string
	for _, img := range strings.Split(images, ",") {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		path := testCtx.Path(img)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("image %s for %s: %w", img, name, err)
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return fmt.Errorf("no images listed for %s", name)
	}

	out := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := api.ImportImagesFile(files, out, nil, nil); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}
	return nil
}

// thePDFIsEncryptedWithPassword encrypts name in place.
func (testCtx *TestContext) thePDFIsEncryptedWithPassword(name, password string) error {
	conf := model.NewAESConfiguration(password, password, 256)
	path := testCtx.Path(name)
	if err := api.EncryptFile(path, "", conf); err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", name, err)
	}
	return nil
}

// RegisterPDFSteps registers fixture steps for PDF documents.
func (testCtx *TestContext) RegisterPDFSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a PDF "([^"]*)" built from "([^"]*)"$`, testCtx.aPDFBuiltFrom)
	sc.Step(`^the PDF "([^"]*)" is encrypted with password "([^"]*)"$`, testCtx.thePDFIsEncryptedWithPassword)
}
