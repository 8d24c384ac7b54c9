package parsing

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractTextFromPDF returns the plain text of a PDF file given as bytes.
func ExtractTextFromPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("create pdf reader: %w", err)
	}
	body, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf content: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return "", fmt.Errorf("read pdf content: %w", err)
	}
	return buf.String(), nil
}

func IsPDF(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
