package processor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/tokenizer"
)

// maxHeaderTokens is the token count below which a line without links is
// taken for a section header.
const maxHeaderTokens = 4

// SectionCount is a section header and how many pages carry it.
type SectionCount struct {
	Header string
	Count  int
}

// SectionProcessor counts section headers across a corpus and writes them,
// most common first, at Finish.
type SectionProcessor struct {
	lang      string
	tokenizer tokenizer.Tokenizer
	out       io.Writer

	mu     sync.Mutex
	counts map[string]int
	logger *slog.Logger
}

func NewSectionProcessor(lang string, tok tokenizer.Tokenizer, out io.Writer) *SectionProcessor {
	if tok == nil {
		tok = tokenizer.Whitespace{}
	}
	return &SectionProcessor{
		lang:      lang,
		tokenizer: tok,
		out:       out,
		counts:    make(map[string]int),
		logger:    slog.Default().With("component", "section-processor"),
	}
}

func (s *SectionProcessor) ProcessFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return SplitPages(f, func(p Page) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.addPage(p)
		return nil
	})
}

func (s *SectionProcessor) addPage(p Page) {
	var headers []string
	for _, line := range p.Lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.Contains(line, "a href") {
			continue
		}
		if len(s.tokenizer.Tokenize(trimmed, s.lang)) < maxHeaderTokens {
			headers = append(headers, trimmed)
		}
	}
	s.mu.Lock()
	for _, h := range headers {
		s.counts[h]++
	}
	s.mu.Unlock()
}

func (s *SectionProcessor) AfterFile(string) {}

func (s *SectionProcessor) AfterDirectory(dir string) {
	s.mu.Lock()
	n := len(s.counts)
	s.mu.Unlock()
	s.logger.Info("directory done", "dir", dir, "distinct_headers", n)
}

// MostCommon returns every header ordered by descending count, ties broken
// by header text.
func (s *SectionProcessor) MostCommon() []SectionCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SectionCount, 0, len(s.counts))
	for h, c := range s.counts {
		out = append(out, SectionCount{Header: h, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Header < out[j].Header
	})
	return out
}

func (s *SectionProcessor) Finish() error {
	if s.out == nil {
		return nil
	}
	w := bufio.NewWriter(s.out)
	for _, sc := range s.MostCommon() {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", sc.Header, sc.Count); err != nil {
			return err
		}
	}
	return w.Flush()
}
