package catalog

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	embVariant   = regexp.MustCompile(`^(emb\d{5})[a-z]*$`)
	embStrip     = strings.NewReplacer(" ", "", "-", "", ".", "")
	tagSeparator = regexp.MustCompile(`[^\p{L}\p{N}:]+`)
)

// ImageID returns the uploaded image id referenced by a source image path
// such as "/301/762/042/2003/2.jpg". The id is the file stem and must be
// purely numeric.
func ImageID(sourceImage string) (string, bool) {
	if sourceImage == "" {
		return "", false
	}
	base := path.Base(sourceImage)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" {
		return "", false
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return stem, true
}

// NormalizeEmbCode reduces a packager code to a comparable form: lower case,
// accents folded, separators removed, a trailing "ce" read as "ec", and the
// letter suffix of a French "EMB 12345A" code dropped.
func NormalizeEmbCode(code string) string {
	s := strings.ToLower(fold(strings.TrimSpace(code)))
	s = embStrip.Replace(s)

	if strings.HasSuffix(s, "ce") {
		s = strings.TrimSuffix(s, "ce") + "ec"
	}

	if m := embVariant.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return s
}

// Tag converts a display value to the catalog's tag form: lower case,
// accents folded, runs of other characters collapsed to "-". A language
// prefix such as "en:" is kept.
func Tag(value string) string {
	s := strings.ToLower(fold(strings.TrimSpace(value)))
	s = tagSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
