package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"

	"contractlens/internal/models"
)

const (
	maxDocumentSize  = 20 * 1024 * 1024 // 20MB
	docxDocumentPart = "word/document.xml"
)

var (
	// ErrDocumentTooLarge is returned for inputs over maxDocumentSize
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")

	horizontalSpacePattern = regexp.MustCompile(`[ \t\p{Zs}]+`)
	htmlBlockSelector      = "p, div, li, tr, h1, h2, h3, h4, h5, h6, title, blockquote, section, article"
)

// SourceTypeFor infers the document format from a file name.
func SourceTypeFor(name string) models.DocumentSourceType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return models.SourceTypeDOCX
	case ".html", ".htm", ".xhtml":
		return models.SourceTypeHTML
	default:
		return models.SourceTypeText
	}
}

// ExtractText turns an uploaded document into plain text with one paragraph
// per line. The format is chosen from the file name.
func ExtractText(name string, data []byte) (string, models.DocumentSourceType, error) {
	if len(data) > maxDocumentSize {
		return "", "", fmt.Errorf("%s: %w (%d bytes)", name, ErrDocumentTooLarge, len(data))
	}

	sourceType := SourceTypeFor(name)
	var text string
	var err error
	switch sourceType {
	case models.SourceTypeDOCX:
		text, err = extractDOCX(data)
	case models.SourceTypeHTML:
		text, err = extractHTML(DecodeText(data))
	default:
		text = DecodeText(data)
	}
	if err != nil {
		return "", sourceType, fmt.Errorf("failed to extract text from %s: %w", name, err)
	}
	return norm.NFC.String(text), sourceType, nil
}

// DecodeText decodes bytes of unknown encoding: UTF-16 when a byte order
// mark says so, UTF-8 when valid, otherwise Windows-1252, which is what
// legacy word processors export. Line endings are normalized to LF.
func DecodeText(data []byte) string {
	var text string
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err == nil {
			text = string(decoded)
			break
		}
		text = decodeSingleByte(data)
	case utf8.Valid(data):
		text = string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	default:
		text = decodeSingleByte(data)
	}
	return NormalizeLineEndings(norm.NFC.String(text))
}

func decodeSingleByte(data []byte) string {
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(decoded)
}

// extractDOCX reads the paragraphs of the main document part. Tabs and
// explicit breaks are kept; formatting is discarded.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxDocumentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("docx archive has no %s", docxDocumentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", docxDocumentPart, err)
	}
	defer rc.Close()

	var b strings.Builder
	inText := false
	dec := xml.NewDecoder(io.LimitReader(rc, maxDocumentSize))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", docxDocumentPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// extractHTML returns the visible text of an HTML page with each block
// element on its own line.
func extractHTML(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, noscript, head meta, head link").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(htmlBlockSelector).AfterHtml("\n")
	doc.Find("td, th").AfterHtml(" ")

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(horizontalSpacePattern.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
