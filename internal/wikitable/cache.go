package wikitable

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

// MagicBytes identifies a table cache file.
const (
	MagicBytes    uint32 = 0x57535443
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
	FooterSize    int    = 4
	CacheSuffix          = ".cache"
)

// Kinds of table stored in a cache file.
const (
	KindPages     uint32 = 1
	KindRedirects uint32 = 2
)

// CacheHeader is the 32-byte header at the start of every cache file.
type CacheHeader struct {
	Magic    uint32
	Version  uint32
	Kind     uint32
	Count    uint32
	SourceID uint64
	BodySize int64
}

type pagesBody struct {
	IDs       []string `json:"i"`
	Titles    []string `json:"t"`
	Redirects []bool   `json:"r"`
}

// SourceID identifies the current content of path by its absolute location,
// size and modification time. A changed source invalidates its cache.
func SourceID(path string) (uint64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", abs, err)
	}
	d := xxhash.New()
	d.WriteString(abs)
	d.WriteString("\x00")
	d.WriteString(strconv.FormatInt(info.Size(), 10))
	d.WriteString("\x00")
	d.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
	return d.Sum64(), nil
}

// writeCache atomically writes body to path. It writes to a .tmp file first
// and renames on success.
func writeCache(path string, kind uint32, count int, sourceID uint64, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling cache body: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer f.Close()

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], kind)
	binary.LittleEndian.PutUint32(header[12:16], uint32(count))
	binary.LittleEndian.PutUint64(header[16:24], sourceID)
	binary.LittleEndian.PutUint64(header[24:32], uint64(len(data)))
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer, crc32.ChecksumIEEE(data))
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing cache file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}
	slog.Default().With("component", "table-cache").Info("cache written",
		"path", path,
		"entries", count,
		"size", humanize.Bytes(uint64(HeaderSize+len(data)+FooterSize)),
	)
	return nil
}

// readCache loads a cache file into body. It returns ErrCacheStale when the
// file was built from a different source, and a plain error when the file is
// corrupt.
func readCache(path string, kind uint32, sourceID uint64, body any) (CacheHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CacheHeader{}, fmt.Errorf("reading cache file: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return CacheHeader{}, fmt.Errorf("invalid cache file: %d bytes", len(data))
	}
	header := CacheHeader{
		Magic:    binary.LittleEndian.Uint32(data[0:4]),
		Version:  binary.LittleEndian.Uint32(data[4:8]),
		Kind:     binary.LittleEndian.Uint32(data[8:12]),
		Count:    binary.LittleEndian.Uint32(data[12:16]),
		SourceID: binary.LittleEndian.Uint64(data[16:24]),
		BodySize: int64(binary.LittleEndian.Uint64(data[24:32])),
	}
	if header.Magic != MagicBytes {
		return header, fmt.Errorf("invalid cache file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion || header.Kind != kind || header.SourceID != sourceID {
		return header, apperrors.Newf(apperrors.ErrCacheStale, apperrors.ExitFailure,
			"%s (version %d kind %d)", path, header.Version, header.Kind)
	}
	if int64(len(data)) != int64(HeaderSize)+header.BodySize+int64(FooterSize) {
		return header, fmt.Errorf("invalid cache file: body size %d does not match file", header.BodySize)
	}
	bodyBytes := data[HeaderSize : HeaderSize+int(header.BodySize)]
	checksum := binary.LittleEndian.Uint32(data[HeaderSize+int(header.BodySize):])
	if crc32.ChecksumIEEE(bodyBytes) != checksum {
		return header, fmt.Errorf("invalid cache file: checksum mismatch")
	}
	if err := json.Unmarshal(bodyBytes, body); err != nil {
		return header, fmt.Errorf("parsing cache body: %w", err)
	}
	return header, nil
}

// LoadPageTable reads an id2title TSV, going through the binary cache next
// to it when useCache is set. A missing, stale or corrupt cache is rebuilt.
func LoadPageTable(path string, useCache bool) (*PageTable, error) {
	if !useCache {
		return ReadID2Title(path)
	}
	logger := slog.Default().With("component", "table-cache")
	sourceID, err := SourceID(path)
	if err != nil {
		return nil, err
	}
	cachePath := path + CacheSuffix
	var body pagesBody
	if _, err := readCache(cachePath, KindPages, sourceID, &body); err == nil {
		if len(body.IDs) == len(body.Titles) && len(body.IDs) == len(body.Redirects) {
			pt := NewPageTable()
			for i, id := range body.IDs {
				pt.Add(id, body.Titles[i], body.Redirects[i])
			}
			logger.Info("page table loaded from cache", "path", cachePath, "pages", pt.Len())
			return pt, nil
		}
		logger.Warn("cache body inconsistent, rebuilding", "path", cachePath)
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("cache unusable, rebuilding", "path", cachePath, "error", err)
	}

	pt, err := ReadID2Title(path)
	if err != nil {
		return nil, err
	}
	body = pagesBody{
		IDs:       make([]string, 0, pt.Len()),
		Titles:    make([]string, 0, pt.Len()),
		Redirects: make([]bool, 0, pt.Len()),
	}
	pt.Each(func(id, title string, isRedirect bool) bool {
		body.IDs = append(body.IDs, id)
		body.Titles = append(body.Titles, title)
		body.Redirects = append(body.Redirects, isRedirect)
		return true
	})
	if err := writeCache(cachePath, KindPages, pt.Len(), sourceID, body); err != nil {
		logger.Warn("failed to write cache", "path", cachePath, "error", err)
	}
	return pt, nil
}

// LoadRedirectTable reads a redirect2title TSV through its binary cache.
func LoadRedirectTable(path string, useCache bool) (RedirectTable, error) {
	if !useCache {
		return ReadRedirects(path)
	}
	logger := slog.Default().With("component", "table-cache")
	sourceID, err := SourceID(path)
	if err != nil {
		return nil, err
	}
	cachePath := path + CacheSuffix
	rt := make(RedirectTable)
	if _, err := readCache(cachePath, KindRedirects, sourceID, &rt); err == nil {
		logger.Info("redirect table loaded from cache", "path", cachePath, "redirects", len(rt))
		return rt, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("cache unusable, rebuilding", "path", cachePath, "error", err)
	}

	rt, err = ReadRedirects(path)
	if err != nil {
		return nil, err
	}
	if err := writeCache(cachePath, KindRedirects, len(rt), sourceID, rt); err != nil {
		logger.Warn("failed to write cache", "path", cachePath, "error", err)
	}
	return rt, nil
}
