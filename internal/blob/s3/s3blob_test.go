package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// memBucket is an in-memory object store.
type memBucket struct {
	mu         sync.Mutex
	objects    map[string][]byte
	multiparts int
}

func newMemBucket() *memBucket { return &memBucket{objects: map[string][]byte{}} }

func (b *memBucket) Put(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = buf
	return nil
}

func (b *memBucket) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	b.mu.Lock()
	b.multiparts++
	b.mu.Unlock()
	return b.Put(ctx, path, data, "")
}

func (b *memBucket) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBucket) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.BlobInfo
	for k, v := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, domain.BlobInfo{Path: k, Size: int64(len(v))})
		}
	}
	// S3 does not promise an order to callers of this interface.
	sort.Slice(out, func(i, j int) bool { return out[i].Path > out[j].Path })
	return out, nil
}

func (b *memBucket) has(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[path]
	return ok
}

func (b *memBucket) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
	return nil
}

func snapshot(symbol string, day int, closes ...float64) domain.InstrumentHistory {
	h := domain.InstrumentHistory{
		Symbol:    symbol,
		FetchedAt: time.Date(2024, 3, day, 15, 0, 0, 0, time.UTC),
	}
	for i, c := range closes {
		h.Bars = append(h.Bars, domain.PriceBar{Date: time.Date(2024, 2, 1+i, 0, 0, 0, 0, time.UTC), Close: c})
	}
	return h
}

func TestHistoryArchiveSaveAndLatest(t *testing.T) {
	b := newMemBucket()
	a := NewHistoryArchive(b, b, b, "hiram", 0)
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, snapshot("AAPL", 1, 10, 11)))
	require.NoError(t, a.Save(ctx, snapshot("AAPL", 3, 12, math.NaN(), 14)))
	require.NoError(t, a.Save(ctx, snapshot("MSFT", 9, 99)))

	assert.True(t, b.has("hiram/history/AAPL/2024-03-03.json"))

	h, err := a.Latest(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, h.Bars, 3)
	assert.Equal(t, 12.0, h.Bars[0].Close)
	assert.True(t, math.IsNaN(h.Bars[1].Close))
	assert.Zero(t, b.multiparts)
}

func TestHistoryArchiveLatestMissing(t *testing.T) {
	b := newMemBucket()
	_, err := NewHistoryArchive(b, b, nil, "", 0).Latest(context.Background(), "NONE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryArchivePrunes(t *testing.T) {
	b := newMemBucket()
	a := NewHistoryArchive(b, b, b, "p/", 2)
	ctx := context.Background()
	for day := 1; day <= 4; day++ {
		require.NoError(t, a.Save(ctx, snapshot("IBM", day, float64(day))))
	}

	infos, err := b.List(ctx, "p/history/IBM/")
	require.NoError(t, err)
	var paths []string
	for _, i := range infos {
		paths = append(paths, i.Path)
	}
	assert.ElementsMatch(t, []string{"p/history/IBM/2024-03-03.json", "p/history/IBM/2024-03-04.json"}, paths)

	h, err := a.Latest(ctx, "IBM")
	require.NoError(t, err)
	assert.Equal(t, 4.0, h.Bars[0].Close)
}

func TestHistoryArchiveRejectsEmptySymbol(t *testing.T) {
	b := newMemBucket()
	assert.Error(t, NewHistoryArchive(b, b, nil, "", 0).Save(context.Background(), domain.InstrumentHistory{}))
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("s3.example.com", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "http://already:9000", normaliseEndpoint("http://already:9000", true))
}
