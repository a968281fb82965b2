package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// buildPDF 生成只有一页文本的最小 PDF
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtract_PlainText(t *testing.T) {
	path := writeFile(t, "hello.txt", []byte("Hello world"))

	result, err := NewExtractor().Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", result.Text)
	assert.Zero(t, result.PageCount)
}

func TestExtract_PlainTextWithCharset(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("line one\nline two\n"))

	result, err := NewExtractor().Extract(context.Background(), path, "Text/Plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", result.Text)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "bad.txt", []byte{'o', 'k', 0xff, 0xfe, '!'})

	result, err := NewExtractor().Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "ok\uFFFD\uFFFD!", result.Text)
}

func TestExtract_PDF(t *testing.T) {
	path := writeFile(t, "hello.pdf", buildPDF("Hello PDF"))

	result, err := NewExtractor().Extract(context.Background(), path, "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, result.Text, "Hello PDF")
	assert.Equal(t, 1, result.PageCount)
}

func TestExtract_MalformedPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("this is not a pdf document")},
		{"truncated", buildPDF("Hello PDF")[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "broken.pdf", tt.data)

			_, err := NewExtractor().Extract(context.Background(), path, "application/pdf")
			var extractionErr *ExtractionError
			require.ErrorAs(t, err, &extractionErr)
			assert.Equal(t, MimeTypePDF, extractionErr.MimeType)
		})
	}
}

func TestExtract_UnsupportedType(t *testing.T) {
	tests := []string{"image/png", "application/msword", "text/html", ""}

	for _, mimeType := range tests {
		t.Run(mimeType, func(t *testing.T) {
			// 文件不存在，类型检查必须先于读取文件
			path := filepath.Join(t.TempDir(), "missing")

			_, err := NewExtractor().Extract(context.Background(), path, mimeType)
			var unsupported *UnsupportedTypeError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, mimeType, unsupported.MimeType)
		})
	}
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), "text/plain")
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractor_Supports(t *testing.T) {
	e := NewExtractor()
	assert.True(t, e.Supports("application/pdf"))
	assert.True(t, e.Supports("text/plain; charset=utf-8"))
	assert.False(t, e.Supports("image/png"))
}

func TestNormalizeMimeType(t *testing.T) {
	assert.Equal(t, "text/plain", NormalizeMimeType("TEXT/plain; charset=UTF-8"))
	assert.Equal(t, "application/pdf", NormalizeMimeType("application/pdf"))
	assert.Equal(t, "", NormalizeMimeType(""))
}
