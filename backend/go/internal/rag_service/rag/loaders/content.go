package loaders

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/internal/rag_service/rag/schema"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
)

const (
	mimeHTML = "text/html"
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeText = "text/plain"
)

// documentID derives a stable ID from the source and the unit's position in it,
// so rebuilding from the same sources yields the same IDs.
func documentID(source string, n int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, n))).String()
}

// newDocument builds a text unit with the common source metadata.
func newDocument(source string, n int, text string, extra map[string]interface{}) *schema.Document {
	md := map[string]interface{}{
		schema.MetadataKeySource: source,
	}
	for k, v := range extra {
		md[k] = v
	}
	return &schema.Document{
		ID:       documentID(source, n),
		Text:     text,
		Metadata: md,
	}
}

// documentsFromBytes sniffs raw content and converts it to text units.
// HTML is reduced to visible text or Markdown depending on mode; PDF yields one
// unit per page and XLSX one per sheet. Other text types pass through unchanged.
func documentsFromBytes(source string, raw []byte, mode string) ([]*schema.Document, error) {
	mt := mimetype.Detect(raw)
	extra := map[string]interface{}{schema.MetadataKeyContentType: mt.String()}

	switch {
	case mt.Is(mimeHTML):
		text, err := htmlToText(raw, mode)
		if err != nil {
			return nil, fmt.Errorf("extract html from %s: %w", source, err)
		}
		return []*schema.Document{newDocument(source, 0, text, extra)}, nil
	case mt.Is(mimePDF):
		return pdfDocuments(source, bytes.NewReader(raw), int64(len(raw)))
	case mt.Is(mimeXLSX):
		return xlsxDocuments(source, bytes.NewReader(raw))
	case isText(mt):
		return []*schema.Document{newDocument(source, 0, string(raw), extra)}, nil
	default:
		return nil, fmt.Errorf("unsupported content type %s for %s", mt.String(), source)
	}
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mimeText) {
			return true
		}
	}
	return false
}

func htmlToText(raw []byte, mode string) (string, error) {
	if mode == config.ExtractMarkdown {
		return htmltomarkdown.ConvertString(string(raw))
	}
	return extractText(bytes.NewReader(raw))
}

// extractText parses an HTML document and extracts all human-readable text,
// stripping away tags and scripts.
func extractText(body io.Reader) (string, error) {
	z := html.NewTokenizer(body)
	var sb strings.Builder
	var inScript, inStyle bool

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.TrimSpace(sb.String()), nil
			}
			return "", z.Err()
		case html.StartTagToken, html.EndTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "script":
				inScript = tt == html.StartTagToken
			case "style":
				inStyle = tt == html.StartTagToken
			case "p", "div", "li", "br", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "section", "article":
				// Block boundaries become newlines so the splitter can use them.
				if tt == html.EndTagToken || string(tn) == "br" {
					sb.WriteString("\n")
				}
			}
		case html.TextToken:
			if !inScript && !inStyle {
				text := strings.TrimSpace(string(z.Text()))
				if len(text) > 0 {
					sb.WriteString(text)
					sb.WriteString(" ")
				}
			}
		}
	}
}

// pdfDocuments returns one text unit per non-empty page.
func pdfDocuments(source string, r io.ReaderAt, size int64) ([]*schema.Document, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", source, err)
	}

	var documents []*schema.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read page %d of %s: %w", i, source, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		documents = append(documents, newDocument(source, i, text, map[string]interface{}{
			schema.MetadataKeyPageLabel:   fmt.Sprintf("%d", i),
			schema.MetadataKeyContentType: mimePDF,
		}))
	}
	return documents, nil
}

// xlsxDocuments converts each sheet to a Markdown table and returns one unit per sheet.
func xlsxDocuments(source string, r io.Reader) ([]*schema.Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", source, err)
	}
	defer f.Close()

	var documents []*schema.Document
	for n, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil || len(rows) == 0 {
			continue
		}

		var mdBuilder strings.Builder
		mdBuilder.WriteString("| " + strings.Join(rows[0], " | ") + " |\n")
		mdBuilder.WriteString("|" + strings.Repeat(" --- |", len(rows[0])) + "\n")
		for _, row := range rows[1:] {
			mdBuilder.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}

		documents = append(documents, newDocument(source, n, mdBuilder.String(), map[string]interface{}{
			schema.MetadataKeySheetName:   sheetName,
			schema.MetadataKeyContentType: mimeXLSX,
		}))
	}
	return documents, nil
}
