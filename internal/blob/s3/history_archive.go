package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// multipartThreshold is the snapshot size above which Save switches to a
// multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// HistoryArchive implements domain.HistoryArchive as one JSON snapshot per
// symbol per day.
//
// Key schema:
//
//	{prefix}history/{SYMBOL}/{YYYY-MM-DD}.json
type HistoryArchive struct {
	writer  domain.BlobWriter
	reader  domain.BlobReader
	deleter domain.BlobDeleter
	prefix  string
	keep    int
}

// NewHistoryArchive creates a HistoryArchive. keep > 0 retains only the
// newest keep snapshots per symbol; deleter may be nil when keep is 0.
func NewHistoryArchive(writer domain.BlobWriter, reader domain.BlobReader, deleter domain.BlobDeleter, prefix string, keep int) *HistoryArchive {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &HistoryArchive{
		writer:  writer,
		reader:  reader,
		deleter: deleter,
		prefix:  prefix,
		keep:    keep,
	}
}

func (a *HistoryArchive) symbolPrefix(symbol string) string {
	return a.prefix + "history/" + symbol + "/"
}

func (a *HistoryArchive) snapshotPath(symbol string, day time.Time) string {
	return a.symbolPrefix(symbol) + day.UTC().Format("2006-01-02") + ".json"
}

// Save writes h as the snapshot for the day it was fetched, replacing any
// earlier snapshot of the same day, then prunes old snapshots.
func (a *HistoryArchive) Save(ctx context.Context, h domain.InstrumentHistory) error {
	if h.Symbol == "" {
		return errors.New("s3blob: save history: empty symbol")
	}
	fetched := h.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}

	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("s3blob: marshal history %s: %w", h.Symbol, err)
	}

	p := a.snapshotPath(h.Symbol, fetched)
	if len(data) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, p, bytes.NewReader(data), minPartSize)
	} else {
		err = a.writer.Put(ctx, p, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return fmt.Errorf("s3blob: save history %s: %w", h.Symbol, err)
	}

	if a.keep > 0 && a.deleter != nil {
		if err := a.prune(ctx, h.Symbol); err != nil {
			return err
		}
	}
	return nil
}

// Latest returns the newest snapshot of symbol, or domain.ErrNotFound.
func (a *HistoryArchive) Latest(ctx context.Context, symbol string) (domain.InstrumentHistory, error) {
	paths, err := a.snapshots(ctx, symbol)
	if err != nil {
		return domain.InstrumentHistory{}, err
	}
	if len(paths) == 0 {
		return domain.InstrumentHistory{}, fmt.Errorf("s3blob: latest history %s: %w", symbol, domain.ErrNotFound)
	}

	body, err := a.reader.Get(ctx, paths[len(paths)-1])
	if err != nil {
		return domain.InstrumentHistory{}, err
	}
	defer body.Close()

	var h domain.InstrumentHistory
	if err := json.NewDecoder(body).Decode(&h); err != nil {
		return domain.InstrumentHistory{}, fmt.Errorf("s3blob: decode history %s: %w", symbol, err)
	}
	return h, nil
}

// snapshots lists the snapshot keys of symbol, oldest first.
func (a *HistoryArchive) snapshots(ctx context.Context, symbol string) ([]string, error) {
	infos, err := a.reader.List(ctx, a.symbolPrefix(symbol))
	if err != nil {
		return nil, fmt.Errorf("s3blob: list history %s: %w", symbol, err)
	}
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		if path.Ext(info.Path) == ".json" {
			paths = append(paths, info.Path)
		}
	}
	// Day-named keys sort chronologically.
	sort.Strings(paths)
	return paths, nil
}

func (a *HistoryArchive) prune(ctx context.Context, symbol string) error {
	paths, err := a.snapshots(ctx, symbol)
	if err != nil {
		return err
	}
	for len(paths) > a.keep {
		if err := a.deleter.Delete(ctx, paths[0]); err != nil {
			return fmt.Errorf("s3blob: prune history %s: %w", symbol, err)
		}
		paths = paths[1:]
	}
	return nil
}

// Compile-time interface check.
var _ domain.HistoryArchive = (*HistoryArchive)(nil)
