package processor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"
)

const docPrefix = "<doc id="

// Page is one <doc> record of an extracted dump file. Lines excludes the
// header, the title line that follows it and the closing tag.
type Page struct {
	ID    string
	Title string
	Lines []string
}

// Content joins the page body back into text.
func (p Page) Content() string {
	return strings.Join(p.Lines, "\n")
}

// ParseDocHeader reads the id and title attributes of a "<doc ...>" line.
// Spaces in the title become underscores.
func ParseDocHeader(line string) (id, title string, err error) {
	z := html.NewTokenizer(strings.NewReader(line))
	if tt := z.Next(); tt != html.StartTagToken {
		return "", "", fmt.Errorf("not a doc header: %q", line)
	}
	name, hasAttr := z.TagName()
	if string(name) != "doc" || !hasAttr {
		return "", "", fmt.Errorf("not a doc header: %q", line)
	}
	found := false
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "id":
			id = string(val)
			found = true
		case "title":
			title = strings.ReplaceAll(string(val), " ", "_")
		}
		if !more {
			break
		}
	}
	if !found {
		return "", "", fmt.Errorf("doc header without id: %q", line)
	}
	return id, title, nil
}

// SplitPages reads r line by line and calls fn once per page.
func SplitPages(r io.Reader, fn func(Page) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	var (
		page     *Page
		skipNext bool
	)
	emit := func() error {
		if page == nil {
			return nil
		}
		p := *page
		page = nil
		return fn(p)
	}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, docPrefix):
			if err := emit(); err != nil {
				return err
			}
			id, title, err := ParseDocHeader(line)
			if err != nil {
				return err
			}
			page = &Page{ID: id, Title: title}
			skipNext = true
		case strings.HasPrefix(line, "</doc>"):
			if err := emit(); err != nil {
				return err
			}
		case page == nil:
		case skipNext:
			skipNext = false
		default:
			page.Lines = append(page.Lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading pages: %w", err)
	}
	return emit()
}

// BasicPageProcessor splits every file into pages and passes them to Handle.
type BasicPageProcessor struct {
	Handle func(Page) error

	pages  atomic.Int64
	files  atomic.Int64
	logger *slog.Logger
}

func NewBasicPageProcessor(handle func(Page) error) *BasicPageProcessor {
	return &BasicPageProcessor{
		Handle: handle,
		logger: slog.Default().With("component", "page-processor"),
	}
}

func (b *BasicPageProcessor) ProcessFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return SplitPages(f, func(p Page) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.pages.Add(1)
		if b.Handle == nil {
			return nil
		}
		return b.Handle(p)
	})
}

func (b *BasicPageProcessor) AfterFile(string) {
	b.files.Add(1)
}

func (b *BasicPageProcessor) AfterDirectory(dir string) {
	b.logger.Debug("directory done", "dir", dir, "pages", b.pages.Load())
}

func (b *BasicPageProcessor) Finish() error {
	b.logger.Info("pages processed", "files", b.files.Load(), "pages", b.pages.Load())
	return nil
}

// Pages returns the number of pages seen so far.
func (b *BasicPageProcessor) Pages() int64 {
	return b.pages.Load()
}
