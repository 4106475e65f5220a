package extract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// extractOCR runs tesseract over the image bytes. Requires the
// tesseract shared library at runtime.
func extractOCR(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr image: %w", err)
	}
	return text, nil
}
