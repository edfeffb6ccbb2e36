/**
* Name: 			pdf.go
* Description: 		주간 리포트 PDF 생성
* Workflow: 		줄 단위 multi-cell 출력, 자동 페이지 넘김, 사용자별 디렉토리에 저장
 */
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	fontSize   = 12
	lineHeight = 8
	fontFamily = "UFont"
)

var ErrInvalidFilename = errors.New("report: invalid filename")

// Writer renders reports into one directory per user.
type Writer struct {
	dir      string
	fontPath string
}

// NewWriter returns a Writer rooted at dir. fontPath may point at a TTF file
// with Unicode coverage; without it the core Arial font is used and text is
// mapped to cp1252.
func NewWriter(dir, fontPath string) *Writer {
	return &Writer{dir: dir, fontPath: fontPath}
}

// Filename is the PDF name for a report generated on day.
func Filename(username string, day time.Time) string {
	return fmt.Sprintf("%s_%s_Report.pdf", username, day.Format("20060102"))
}

// Path resolves filename inside the directory of username, rejecting names
// that would escape it.
func (w *Writer) Path(username, filename string) (string, error) {
	if !safeSegment(username) || !safeSegment(filename) {
		return "", ErrInvalidFilename
	}
	path := filepath.Join(w.dir, username, filename)

	// 최종 경로는 반드시 사용자 디렉토리 바로 아래
	rel, err := filepath.Rel(filepath.Join(w.dir, username), path)
	if err != nil || rel != filename {
		return "", ErrInvalidFilename
	}
	return path, nil
}

// safeSegment accepts a single path element that cannot climb out of its parent.
func safeSegment(s string) bool {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, "/\\\x00") {
		return false
	}
	return filepath.Base(s) == s
}

// Render writes text to the PDF named filename for username and returns its path.
func (w *Writer) Render(username, filename, text string) (string, error) {
	path, err := w.Path(username, filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("Writer.Render(): failed to create report dir: %w", err)
	}
	return RenderPDF(text, path, w.fontPath)
}

// RenderPDF writes text as a paginated A4 document, one multi-line cell per
// input line.
func RenderPDF(text, path, fontPath string) (string, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	translate := func(s string) string { return s }
	if fontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", fontPath)
		pdf.SetFont(fontFamily, "", fontSize)
	} else {
		pdf.SetFont("Arial", "", fontSize)
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			pdf.Ln(lineHeight)
			continue
		}
		pdf.MultiCell(0, lineHeight, translate(line), "", "", false)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("RenderPDF(): %w", err)
	}
	return path, nil
}
