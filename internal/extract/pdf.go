package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// extractPDF joins the text of every readable page with newlines. Pages that fail to
// decode are skipped.
func (e *Extractor) extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Debug("skipping unreadable PDF page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}
