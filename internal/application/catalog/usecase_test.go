package catalog_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Zhima-Mochi/foodorder/internal/application/catalog"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/cache"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/id"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/imagestore"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, withCache bool) (*catalog.Service, *memory.MenuRepository, string) {
	t.Helper()
	dir := t.TempDir()
	images, err := imagestore.NewDiskStore(dir)
	require.NoError(t, err)
	repo := memory.NewMenuRepository()

	var lc catalog.ListCache
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		lc = cache.NewMenuCache(client, 0)
	}
	return catalog.NewService(repo, images, lc, id.NewUUIDGenerator(), nil), repo, dir
}

func salad() catalog.AddItemInput {
	return catalog.AddItemInput{
		Name:        "Greek salad",
		Description: "Fresh",
		Price:       "12.50",
		Category:    "Salad",
		ImageName:   "salad.png",
		Image:       strings.NewReader("png"),
	}
}

func TestAddListDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, dir := newService(t, false)

	item, err := svc.AddItem(ctx, salad())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(item.Image, "salad.png"))
	_, err = os.Stat(filepath.Join(dir, item.Image))
	require.NoError(t, err)

	items, err := svc.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "12.5", items[0].Price.String())

	require.NoError(t, svc.DeleteItem(ctx, item.ID))
	_, err = os.Stat(filepath.Join(dir, item.Image))
	assert.True(t, os.IsNotExist(err))

	err = svc.DeleteItem(ctx, item.ID)
	assert.ErrorIs(t, err, failure.ErrNotFound)
	assert.Equal(t, "food not found", failure.Message(err))
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	svc, repo, dir := newService(t, false)

	tests := map[string]func(*catalog.AddItemInput){
		"bad price":     func(in *catalog.AddItemInput) { in.Price = "cheap" },
		"zero price":    func(in *catalog.AddItemInput) { in.Price = "0" },
		"no name":       func(in *catalog.AddItemInput) { in.Name = "" },
		"no category":   func(in *catalog.AddItemInput) { in.Category = "" },
		"no image":      func(in *catalog.AddItemInput) { in.Image = nil },
		"no image name": func(in *catalog.AddItemInput) { in.ImageName = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := salad()
			mutate(&in)
			_, err := svc.AddItem(ctx, in)
			assert.ErrorIs(t, err, failure.ErrValidation)
		})
	}

	items, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListUsesCacheAndInvalidates(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t, true)

	first, err := svc.AddItem(ctx, salad())
	require.NoError(t, err)

	items, err := svc.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Written behind the service's back: the warm cache hides it.
	require.NoError(t, repo.Delete(ctx, first.ID))
	items, err = svc.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.AddItem(ctx, salad())
	require.NoError(t, err)
	items, err = svc.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NotEqual(t, first.ID, items[0].ID)
}

type failingStore struct{}

func (failingStore) Save(string, io.Reader) (string, error) { return "", errors.New("read-only fs") }
func (failingStore) Remove(string) error                   { return nil }

func TestAddImageFailure(t *testing.T) {
	svc := catalog.NewService(memory.NewMenuRepository(), failingStore{}, nil, id.NewUUIDGenerator(), nil)
	_, err := svc.AddItem(context.Background(), salad())
	assert.ErrorIs(t, err, failure.ErrPersistence)
}
