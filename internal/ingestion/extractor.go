package ingestion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ExtractText detects the document type and returns its text, via direct
// extraction or OCR for scanned material.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case ".pdf":
		text, err := ExtractTextFromPDF(path)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		// scanned constitution copies have no text layer
		return ExtractTextWithOCR(path)
	case ".png", ".jpg", ".jpeg":
		return ExtractTextWithOCR(path)
	default:
		return "", errors.New("unsupported file type")
	}
}
