package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilenameAccepted(t *testing.T) {
	for _, name := range []string{
		"report.pdf",
		"photo.JPG",
		"notes.txt",
		"archive.tar",
		"data.json",
		"deck.pptx",
	} {
		assert.NoError(t, ValidateFilename(name), "filename %q should be accepted", name)
	}
}

func TestValidateFilenameRejected(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"whitespace":     "   ",
		"too long":       strings.Repeat("a", 252) + ".txt",
		"traversal":      "../../etc/passwd.txt",
		"forward slash":  "dir/file.txt",
		"backslash":      `dir\file.txt`,
		"no extension":   "README",
		"bad extension":  "malware.exe",
		"reserved name":  "CON.txt",
		"reserved lower": "nul.pdf",
	}
	for label, name := range cases {
		err := ValidateFilename(name)
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "case %s (%q) should be rejected", label, name)
	}
}
