// File: internal/classroom/materials.go
// Attached-material collection. Document attachments expose a plain-text
// export endpoint; fetching it through the page's own network context keeps
// the authenticated session cookies in play.
package classroom

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// TextFetcher fetches a URL through the browser's network context.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (body string, status int, err error)
}

var docAttachmentRe = regexp.MustCompile(`docs\.google\.com/document/d/([^/?#]+)`)

const (
	maxMaterials       = 5
	maxMaterialChars   = 3500
	docTextExportTmpl  = "https://docs.google.com/document/d/%s/export?format=txt"
	docHTMLExportTmpl  = "https://docs.google.com/document/d/%s/export?format=html"
)

// DocExportURLs returns the text and HTML export endpoints for a document
// attachment URL, or ok=false when the URL is not a document link.
func DocExportURLs(attachmentURL string) (textURL, htmlURL string, ok bool) {
	m := docAttachmentRe.FindStringSubmatch(attachmentURL)
	if m == nil {
		return "", "", false
	}
	return fmt.Sprintf(docTextExportTmpl, m[1]), fmt.Sprintf(docHTMLExportTmpl, m[1]), true
}

// CollectMaterialTexts fetches the plain-text export of every document
// attachment, bounded in count and per-item length. Non-document links and
// fetch failures are skipped; material context is a best-effort enrichment,
// never a gate.
func CollectMaterialTexts(ctx context.Context, f TextFetcher, attachmentURLs []string, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	var texts []string
	for _, u := range attachmentURLs {
		if len(texts) >= maxMaterials {
			break
		}
		textURL, _, ok := DocExportURLs(u)
		if !ok {
			continue
		}
		body, status, err := f.FetchText(ctx, textURL)
		if err != nil || status != 200 {
			logger.Warn("Could not fetch material text",
				zap.String("url", u), zap.Int("status", status), zap.Error(err))
			continue
		}
		body = strings.TrimSpace(body)
		if body == "" || looksLikeURLList(body) {
			continue
		}
		runes := []rune(body)
		if len(runes) > maxMaterialChars {
			body = string(runes[:maxMaterialChars])
		}
		texts = append(texts, body)
		logger.Info("Material text collected",
			zap.String("url", u), zap.Int("chars", len(body)))
	}
	return texts
}

// looksLikeURLList reports whether text is nothing but links, which carries
// no useful drafting context.
func looksLikeURLList(text string) bool {
	var total, urls int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls++
		}
	}
	if total == 0 {
		return true
	}
	return float64(urls)/float64(total) >= 0.8
}
