// File: internal/style/loader.go
// Loads prior-writing samples that steer generation toward the student's own
// voice. Samples live as plain files in a directory; a random subset is
// picked per run so drafts do not all imitate the same handful of documents.
package style

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"baliance.com/gooxml/document"
	"go.uber.org/zap"

	"github.com/xkilldash9x/studyflow-cli/internal/config"
)

// minSampleChars filters out stub files that carry no stylistic signal.
const minSampleChars = 50

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".docx": true,
	".pdf":  true,
}

// Loader picks and reads style samples.
type Loader struct {
	cfg    config.StyleConfig
	rng    *rand.Rand
	logger *zap.Logger
}

// NewLoader builds a Loader. A nil rng gets a clock-seeded one.
func NewLoader(cfg config.StyleConfig, rng *rand.Rand, logger *zap.Logger) *Loader {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, rng: rng, logger: logger.Named("style")}
}

// LoadSamples returns up to MaxSamples randomly chosen sample texts, each
// capped at MaxSampleChars. A missing or empty directory yields an empty
// slice, never an error; generation simply runs without style steering.
func (l *Loader) LoadSamples() []string {
	entries, err := os.ReadDir(l.cfg.SamplesDir)
	if err != nil {
		l.logger.Warn("Style samples directory unavailable",
			zap.String("dir", l.cfg.SamplesDir), zap.Error(err))
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(l.cfg.SamplesDir, entry.Name()))
		}
	}
	if len(files) == 0 {
		l.logger.Warn("No style samples found", zap.String("dir", l.cfg.SamplesDir))
		return nil
	}

	count := l.cfg.MaxSamples
	if count <= 0 || count > len(files) {
		count = len(files)
	}

	samples := make([]string, 0, count)
	for _, idx := range l.rng.Perm(len(files))[:count] {
		path := files[idx]
		text := l.readSample(path)
		if len(text) < minSampleChars {
			continue
		}
		if l.cfg.MaxSampleChars > 0 {
			runes := []rune(text)
			if len(runes) > l.cfg.MaxSampleChars {
				text = string(runes[:l.cfg.MaxSampleChars])
			}
		}
		samples = append(samples, text)
		l.logger.Info("Loaded style sample",
			zap.String("file", filepath.Base(path)), zap.Int("chars", len(text)))
	}

	l.logger.Info("Style samples ready", zap.Int("count", len(samples)))
	return samples
}

func (l *Loader) readSample(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return l.readDocx(path)
	case ".pdf":
		return l.readPDF(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("Failed to read style sample", zap.String("file", path), zap.Error(err))
			return ""
		}
		return strings.TrimSpace(string(data))
	}
}

func (l *Loader) readDocx(path string) string {
	doc, err := document.Open(path)
	if err != nil {
		l.logger.Warn("Failed to open docx sample", zap.String("file", path), zap.Error(err))
		return ""
	}
	var sb strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// readPDF extracts whatever printable text sits uncompressed in the file.
// Crude, but enough to carry vocabulary and phrasing signal.
func (l *Loader) readPDF(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("Failed to read pdf sample", zap.String("file", path), zap.Error(err))
		return ""
	}
	var sb strings.Builder
	for _, r := range string(data) {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
		if sb.Len() >= 3000 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}
