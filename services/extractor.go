package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"docqa-backend/internal/logger"

	"github.com/ledongthuc/pdf"
)

// Supported format hints. Anything else is treated as PDF.
const (
	FormatPDF  = ".pdf"
	FormatDOCX = ".docx"
	FormatTXT  = ".txt"
)

// TextExtractor turns an uploaded blob into raw text.
type TextExtractor struct{}

// NewTextExtractor creates a new text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract dispatches on formatHint (a file extension). Parser failures are
// logged and reported as empty text so ingestion can still reach a
// terminal status.
func (e *TextExtractor) Extract(blob []byte, formatHint string) string {
	format := strings.ToLower(strings.TrimSpace(formatHint))

	var (
		text string
		err  error
	)
	switch format {
	case FormatDOCX:
		text, err = extractDOCX(blob)
	case FormatTXT:
		text = decodeText(blob)
	default:
		text, err = extractPDF(blob)
	}

	if err != nil {
		logger.Warn("Parsing failed; continuing with empty text", "format", format, "error", err)
		return ""
	}
	return text
}

// extractPDF reads the plain text of every page in order.
func extractPDF(content []byte) (text string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n")
		}
		textBuilder.WriteString(pageText)
	}

	return textBuilder.String(), nil
}

// extractDOCX walks word/document.xml and collects the text of every run,
// wherever it sits (tables, hyperlinks, content controls, insertions).
// Each paragraph ends with a newline.
func extractDOCX(content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()

		text, err := walkDocumentXML(rc)
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}
		return text, nil
	}

	return "", fmt.Errorf("docx archive has no word/document.xml")
}

func walkDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var result strings.Builder
	inRun, inText := 0, 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "r":
				inRun++
			case "t":
				inText++
			case "tab":
				// Tab stops in paragraph properties share the name.
				if inRun > 0 {
					result.WriteString("\t")
				}
			case "br", "cr":
				if inRun > 0 {
					result.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "r":
				if inRun > 0 {
					inRun--
				}
			case "t":
				if inText > 0 {
					inText--
				}
			case "p":
				result.WriteString("\n")
			}
		case xml.CharData:
			if inText > 0 {
				result.Write(el)
			}
		}
	}

	return strings.TrimSuffix(result.String(), "\n"), nil
}

// decodeText decodes a UTF-8 text file verbatim, replacing invalid
// sequences with U+FFFD.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "�")
}
