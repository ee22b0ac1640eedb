package wikitable

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// WriteID2Title writes "page_id\ttitle\tis_redirect" lines in page order.
func WriteID2Title(path string, pt *PageTable) error {
	return writeLines(path, func(w *bufio.Writer) error {
		var werr error
		pt.Each(func(id, title string, isRedirect bool) bool {
			flag := "0"
			if isRedirect {
				flag = "1"
			}
			_, werr = fmt.Fprintf(w, "%s\t%s\t%s\n", id, title, flag)
			return werr == nil
		})
		return werr
	})
}

// WriteRedirects writes "redirect_title\ttarget_title" lines sorted by
// redirect title.
func WriteRedirects(path string, rt RedirectTable) error {
	return writeLines(path, func(w *bufio.Writer) error {
		for _, k := range sortedKeys(rt) {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", k, rt[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteLangLinks writes the target-language map to path and every article
// link to path + ".all_langs".
func WriteLangLinks(path string, ll *LangLinks) error {
	err := writeLines(path+".all_langs", func(w *bufio.Writer) error {
		for _, l := range ll.All {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", l.PageID, l.Lang, l.Title); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return writeLines(path, func(w *bufio.Writer) error {
		for _, k := range sortedKeys(ll.Target) {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", k, ll.Target[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadID2Title parses an id2title TSV. Lines without exactly three fields
// are logged and skipped.
func ReadID2Title(path string) (*PageTable, error) {
	pt := NewPageTable()
	bad, err := readLines(path, func(parts []string) bool {
		if len(parts) != 3 {
			return false
		}
		pt.Add(parts[0], parts[1], parts[2] == "1")
		return true
	})
	if err != nil {
		return nil, err
	}
	slog.Default().With("component", "wikitable").Info("id2title loaded",
		"path", path, "pages", pt.Len(), "bad_lines", bad)
	return pt, nil
}

// ReadRedirects parses a redirect2title TSV. Duplicate keys keep the last
// target.
func ReadRedirects(path string) (RedirectTable, error) {
	rt := make(RedirectTable)
	logger := slog.Default().With("component", "wikitable")
	bad, err := readLines(path, func(parts []string) bool {
		if len(parts) != 2 {
			return false
		}
		if _, dup := rt[parts[0]]; dup {
			logger.Debug("duplicate redirect key", "redirect", parts[0])
		}
		rt[parts[0]] = parts[1]
		return true
	})
	if err != nil {
		return nil, err
	}
	logger.Info("redirect2title loaded", "path", path, "redirects", len(rt), "bad_lines", bad)
	return rt, nil
}

func writeLines(path string, fn func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, 1<<20)
	if err := fn(w); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

func readLines(path string, fn func(parts []string) bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	bad := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		if !fn(strings.Split(line, "\t")) {
			bad++
		}
	}
	if err := scanner.Err(); err != nil {
		return bad, fmt.Errorf("reading %s: %w", path, err)
	}
	return bad, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
