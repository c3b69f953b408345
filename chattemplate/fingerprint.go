package chattemplate

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// Fingerprint returns a stable hash of template text. Cache entries are
// keyed by it, and logs use it in place of the text.
func Fingerprint(text string) string {
	h := sha256.New()
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

var generationBlockRe = regexp.MustCompile(`\{%-?\s*generation\s*-?%\}`)

// HasGenerationBlock reports whether text contains a generation block
// opening tag.
func HasGenerationBlock(text string) bool {
	return generationBlockRe.MatchString(text)
}
