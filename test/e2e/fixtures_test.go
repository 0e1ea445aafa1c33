package e2e

import (
	"strings"
	"testing"

	"github.com/hyperjump/policysimplify/internal/extract"
)

func TestWriteMinimalFile_AllExtensionsExtractable(t *testing.T) {
	e := extract.NewExtractor()
	sample := "Annual Leave Policy\n\nStaff accrue paid holiday & leave each month."
	for _, ext := range SupportedFileExtensions {
		t.Run(ext, func(t *testing.T) {
			content, err := WriteMinimalFile(ext, sample)
			if err != nil {
				t.Fatalf("WriteMinimalFile: %v", err)
			}
			if len(content) == 0 {
				t.Fatal("empty content")
			}
			got, err := e.ExtractBytes(content, ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			for _, want := range []string{"Annual Leave Policy", "holiday & leave"} {
				if !strings.Contains(got, want) {
					t.Errorf("extracted text %q does not contain %q", got, want)
				}
			}
		})
	}
}

func TestWriteMinimalFile_Unsupported(t *testing.T) {
	if _, err := WriteMinimalFile(".pdf", "x"); err == nil {
		t.Error("expected error for .pdf")
	}
}

func TestPolicyText(t *testing.T) {
	user := "POLICY TEXT (truncated):\nTitle\n\nBody\n\nSUMMARY:\n- point"
	if got := policyText(user); got != "Title\n\nBody" {
		t.Errorf("policyText() = %q", got)
	}
	if got := firstLines("\n a \n\n b \n c", 2); strings.Join(got, ",") != "a,b" {
		t.Errorf("firstLines() = %v", got)
	}
}
