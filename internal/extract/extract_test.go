package extract

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Isaacolagoke/Testai/internal/exam"
)

func TestClassify(t *testing.T) {
	cases := map[string]exam.FileType{
		"image/png":       exam.FileImage,
		"image/jpeg":      exam.FileImage,
		"application/pdf": exam.FilePDF,
		MimeDOC:           exam.FileDoc,
		MimeDOCX:          exam.FileDoc,
		"text/plain":      exam.FileText,
	}
	for mt, want := range cases {
		got, ok := Classify(mt)
		if !ok || got != want {
			t.Fatalf("Classify(%s) = %s, %v", mt, got, ok)
		}
		if !AllowedMimeTypes[mt] {
			t.Fatalf("%s not allowed", mt)
		}
	}
	if _, ok := Classify("application/zip"); ok {
		t.Fatal("zip classified")
	}
}

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, b, 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFromFile_Text(t *testing.T) {
	p := writeFile(t, "notes.txt", []byte("Photosynthesis converts light into energy."))
	c, err := FromFile(p, exam.FileText)
	if err != nil {
		t.Fatal(err)
	}
	if c.IsImage() || c.Text != "Photosynthesis converts light into energy." {
		t.Fatalf("content = %+v", c)
	}

	empty := writeFile(t, "empty.txt", []byte("  \n"))
	if _, err := FromFile(empty, exam.FileText); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("empty text: %v", err)
	}
}

func TestFromFile_DOCX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "lesson.docx")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("word/document.xml")
	_, _ = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>The cell is the</w:t></w:r><w:r><w:t xml:space="preserve"> basic unit</w:t></w:r></w:p>
<w:p><w:r><w:t>of life.</w:t></w:r></w:p>
</w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	c, err := FromFile(p, exam.FileDoc)
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "The cell is the basic unit\nof life." {
		t.Fatalf("text = %q", c.Text)
	}
}

func TestFromFile_LegacyDocRejected(t *testing.T) {
	p := writeFile(t, "old.doc", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	if _, err := FromFile(p, exam.FileDoc); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("legacy doc: %v", err)
	}
}

func TestFromFile_Image(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	p := writeFile(t, "diagram.png", png)
	c, err := FromFile(p, exam.FileImage)
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsImage() || c.MimeType != "image/png" {
		t.Fatalf("content = %+v", c)
	}

	notImage := writeFile(t, "fake.png", []byte("plain words"))
	if _, err := FromFile(notImage, exam.FileImage); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("fake image: %v", err)
	}
}

func TestFromFile_UnknownType(t *testing.T) {
	p := writeFile(t, "x.bin", []byte("x"))
	if _, err := FromFile(p, exam.FileType("video")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unknown: %v", err)
	}
}
