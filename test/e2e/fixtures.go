package e2e

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync/atomic"
)

// SupportedFileExtensions is the list of file extensions used in E2E file-based tests.
// PDF is not generated here (no minimal PDF with extractable text); PDF extraction is
// covered by internal/extract tests.
var SupportedFileExtensions = []string{".txt", ".md", ".docx"}

// WriteMinimalFile returns the bytes of a minimal file of the given extension holding text.
// Paragraphs are separated by blank lines.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md":
		return []byte(text), nil
	case ".docx":
		return minimalDocx(text)
	default:
		return nil, fmt.Errorf("no fixture writer for %s", ext)
	}
}

func minimalDocx(text string) ([]byte, error) {
	var body strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(html.EscapeString(para))
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		return nil, err
	}
	_, err = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	if err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FakeChat is an OpenAI-compatible /chat/completions handler that answers the summary,
// checklist, risk and question prompts deterministically from the request text.
type FakeChat struct {
	calls atomic.Int64
}

// Calls returns the number of completions served.
func (f *FakeChat) Calls() int64 {
	return f.calls.Load()
}

func (f *FakeChat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
		http.Error(w, `{"error":{"message":"unauthorized","type":"invalid_request_error"}}`, http.StatusUnauthorized)
		return
	}
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) < 2 {
		http.Error(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}
	f.calls.Add(1)
	system, user := req.Messages[0].Content, req.Messages[1].Content

	var reply string
	switch {
	case strings.Contains(system, "policy analyst"):
		reply = "- " + strings.Join(firstLines(policyText(user), 2), "\n- ")
	case strings.Contains(system, "compliance officer"):
		reply = "- Brief all staff on the policy — Owner: HR — Due: 31 March annually\n" +
			"- Review the policy — Owner: Policy team — Due: within 30 days"
	case strings.Contains(system, "risk assessor"):
		text := strings.ToLower(policyText(user))
		switch {
		case strings.Contains(text, "penalties"):
			reply = "High\nBreaches carry statutory penalties."
		case strings.Contains(text, "must"):
			reply = "Medium\nMandatory duties with moderate impact."
		default:
			reply = "Low\nMostly guidance."
		}
	default:
		reply = fmt.Sprintf("Answered from %d passages.", strings.Count(user, "\n["))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": reply}},
		},
	})
}

// policyText returns the policy part of a prompt, without the appended summary.
func policyText(user string) string {
	user = strings.TrimPrefix(user, "POLICY TEXT (truncated):\n")
	if i := strings.Index(user, "\n\nSUMMARY:"); i >= 0 {
		user = user[:i]
	}
	return user
}

func firstLines(text string, n int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
			if len(out) == n {
				break
			}
		}
	}
	return out
}
