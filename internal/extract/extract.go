package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Format identifies which extractor handled a payload.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "txt"
	FormatRaw  Format = "raw"
)

// Result carries extracted text. Err records why a format extractor gave up;
// Text is empty in that case.
type Result struct {
	Text   string
	Format Format
	Err    error
}

// FormatFor picks the extractor for fileName by suffix, case-insensitively.
func FormatFor(fileName string) Format {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatText
	default:
		return FormatRaw
	}
}

// Extract converts an uploaded payload to plain text. It never panics and
// never returns partial garbage from a failed parser: a failing format
// yields empty Text with Err set.
// Libraries used: github.com/ledongthuc/pdf (PDF) and github.com/nguyenthenguyen/docx (DOCX).
func Extract(fileName string, data []byte) (res Result) {
	res.Format = FormatFor(fileName)
	defer func() {
		if rec := recover(); rec != nil {
			res.Text = ""
			res.Err = fmt.Errorf("%s extractor panic: %v", res.Format, rec)
		}
	}()

	var (
		text string
		err  error
	)
	switch res.Format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	default:
		text = decodeText(data)
	}
	if err != nil {
		res.Err = fmt.Errorf("extract %s: %w", res.Format, err)
		return res
	}
	res.Text = Sanitize(text)
	return res
}

func extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty pdf data")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			f := p.Font(name)
			fonts[name] = &f
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return strings.Join(pages, "\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return docxParagraphs(r.Editable().GetContent())
}

// docxParagraphs collects w:t runs, one line per w:p.
func docxParagraphs(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var (
		out    strings.Builder
		line   strings.Builder
		inText bool
		paras  int
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteString("\t")
			case "br", "cr":
				line.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if paras > 0 {
					out.WriteString("\n")
				}
				out.WriteString(line.String())
				line.Reset()
				paras++
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// decodeText honours UTF-16 byte order marks and otherwise treats data as
// UTF-8. Invalid sequences are dropped later by Sanitize.
func decodeText(data []byte) string {
	if bytes.HasPrefix(data, []byte{0xff, 0xfe}) || bytes.HasPrefix(data, []byte{0xfe, 0xff}) {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err == nil {
			return string(decoded)
		}
	}
	return string(bytes.TrimPrefix(data, utf8BOM))
}

// Sanitize drops invalid UTF-8 and NUL bytes, which text columns reject.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}
