package prompts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"text/template"

	"github.com/samber/lo"
)

// fieldRef matches a bare field action such as {{.Notes}} or
// {{ .Profile.RiskAppetite }}.
var fieldRef = regexp.MustCompile(`\{\{-?\s*\.([A-Za-z_][A-Za-z0-9_.]*)\s*-?\}\}`)

// ExtractVariables lists the fields a prompt prints, sorted and deduplicated.
// Fields only used inside range or if pipelines are not reported.
func ExtractVariables(text string) []string {
	refs := lo.Map(fieldRef.FindAllStringSubmatch(text, -1), func(m []string, _ int) string {
		return m[1]
	})
	refs = lo.Uniq(refs)
	slices.Sort(refs)
	return refs
}

// HashText fingerprints prompt text so exported overrides can be compared
// with the embedded default they started from.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// parsed caches templates by key and text hash. Chat sessions render the
// same prompt on every turn.
var parsed sync.Map

// Render executes text as a Go template against data. Unknown map keys are
// an error rather than "<no value>".
func Render(key, text string, data any) (string, error) {
	cacheKey := key + "@" + HashText(text)
	t, ok := parsed.Load(cacheKey)
	if !ok {
		tmpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return "", fmt.Errorf("parse prompt %s: %w", key, err)
		}
		t, _ = parsed.LoadOrStore(cacheKey, tmpl)
	}

	var out bytes.Buffer
	if err := t.(*template.Template).Execute(&out, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", key, err)
	}
	return out.String(), nil
}
