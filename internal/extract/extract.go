// Package extract turns stored uploads into model input: text for documents,
// raw bytes plus a sniffed MIME type for images.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	pdf "github.com/ledongthuc/pdf"

	"github.com/Isaacolagoke/Testai/internal/exam"
)

const (
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
)

// AllowedMimeTypes are the upload types accepted by the pipeline.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
	MimeDOC:           true,
	MimeDOCX:          true,
	"text/plain":      true,
}

var ErrUnsupported = errors.New("unsupported content")

// Classify maps a MIME type to a file type. The order matters: "document"
// also appears in the DOCX type.
func Classify(mimeType string) (exam.FileType, bool) {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "image"):
		return exam.FileImage, true
	case strings.Contains(mt, "pdf"):
		return exam.FilePDF, true
	case strings.Contains(mt, "word"), strings.Contains(mt, "document"):
		return exam.FileDoc, true
	case strings.Contains(mt, "text"):
		return exam.FileText, true
	}
	return "", false
}

// Content is either Text or Image (with MimeType).
type Content struct {
	Text     string
	Image    []byte
	MimeType string
}

func (c Content) IsImage() bool { return len(c.Image) > 0 }

// FromFile extracts the content of the file at path according to ft.
func FromFile(path string, ft exam.FileType) (Content, error) {
	switch ft {
	case exam.FileText:
		b, err := os.ReadFile(path)
		if err != nil {
			return Content{}, err
		}
		return textContent(string(b))
	case exam.FileDoc:
		s, err := docxText(path)
		if err != nil {
			return Content{}, err
		}
		return textContent(s)
	case exam.FilePDF:
		s, err := pdfText(path)
		if err != nil {
			return Content{}, err
		}
		return textContent(s)
	case exam.FileImage:
		b, err := os.ReadFile(path)
		if err != nil {
			return Content{}, err
		}
		mt := mimetype.Detect(b)
		if !strings.HasPrefix(mt.String(), "image/") {
			return Content{}, fmt.Errorf("%w: image upload sniffed as %s", ErrUnsupported, mt.String())
		}
		return Content{Image: b, MimeType: mt.String()}, nil
	}
	return Content{}, fmt.Errorf("%w: file type %q", ErrUnsupported, ft)
}

func textContent(s string) (Content, error) {
	if strings.TrimSpace(s) == "" {
		return Content{}, fmt.Errorf("%w: no text extracted", ErrUnsupported)
	}
	return Content{Text: s, MimeType: "text/plain"}, nil
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	defer f.Close()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

// docxText reads word/document.xml, keeping one line per paragraph.
// Legacy binary .doc files are not zip containers and are rejected.
func docxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: not a docx container (legacy .doc is not supported)", ErrUnsupported)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: zip has no word/document.xml", ErrUnsupported)
	}
	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return paragraphs(b), nil
}

func paragraphs(xmlBytes []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out, line strings.Builder
	flush := func() {
		if s := collapseWhitespace(line.String()); s != "" {
			out.WriteString(s)
			out.WriteString("\n")
		}
		line.Reset()
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "t":
				var v string
				_ = dec.DecodeElement(&v, &se)
				line.WriteString(v)
			case "tab":
				line.WriteString(" ")
			}
		case xml.EndElement:
			if se.Name.Local == "p" {
				flush()
			}
		}
	}
	flush()
	return strings.TrimRight(out.String(), "\n")
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
