// Package catalog manages the menu: admin add and delete plus the public listing.
package catalog

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/Zhima-Mochi/foodorder/internal/application"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	dommenu "github.com/Zhima-Mochi/foodorder/internal/domain/menu"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	catalogService = "catalog-service"
	useCaseAdd     = "catalog.add"
	useCaseList    = "catalog.list"
	useCaseDelete  = "catalog.delete"
)

type ImageStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Remove(name string) error
}

// ListCache holds the public listing between catalog changes.
type ListCache interface {
	Get(ctx context.Context) ([]*dommenu.Item, bool, error)
	Set(ctx context.Context, items []*dommenu.Item) error
	Invalidate(ctx context.Context) error
}

type AddItemInput struct {
	Name        string
	Description string
	Price       string
	Category    string
	ImageName   string
	Image       io.Reader
}

type Service struct {
	repo   dommenu.Repository
	images ImageStore
	cache  ListCache
	ids    application.IDGenerator
	in     application.Instrument
}

// NewService wires the catalog. cache may be nil.
func NewService(repo dommenu.Repository, images ImageStore, cache ListCache, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		repo:   repo,
		images: images,
		cache:  cache,
		ids:    ids,
		in:     application.NewInstrument(tel, catalogService),
	}
}

// AddItem stores the image then the item. The image is removed again if the
// item cannot be stored.
func (s *Service) AddItem(ctx context.Context, cmd AddItemInput) (_ *dommenu.Item, err error) {
	ctx, run := s.in.Start(ctx, useCaseAdd, "AddMenuItem", attribute.String("item.category", cmd.Category))
	defer func() { run.End(err) }()

	price, err := decimal.NewFromString(strings.TrimSpace(cmd.Price))
	if err != nil {
		return nil, failure.Validation("price must be a number")
	}
	if cmd.Image == nil || strings.TrimSpace(cmd.ImageName) == "" {
		return nil, failure.Validation("image is required")
	}
	// Validate before touching the disk.
	if _, err := dommenu.NewItem("pending", cmd.Name, cmd.Description, price, cmd.Category, cmd.ImageName); err != nil {
		return nil, err
	}

	stored, err := s.images.Save(cmd.ImageName, cmd.Image)
	if err != nil {
		return nil, run.Fail("IMAGE_SAVE_FAILED", failure.Wrap(failure.ErrPersistence, "image could not be stored", err))
	}

	item, err := dommenu.NewItem(s.ids.NewID(), cmd.Name, cmd.Description, price, cmd.Category, stored)
	if err != nil {
		_ = s.images.Remove(stored)
		return nil, err
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		_ = s.images.Remove(stored)
		return nil, run.Fail("REPO_INSERT_FAILED", failure.Persistence("menu.insert", err))
	}
	run.Span().SetAttributes(attribute.String("item.id", item.ID))
	run.Annotate(observability.F("item_id", item.ID), observability.F("image", stored))

	s.invalidate(ctx, run)
	return item, nil
}

// ListItems returns every menu item, served from the cache when it is warm.
func (s *Service) ListItems(ctx context.Context) (_ []*dommenu.Item, err error) {
	ctx, run := s.in.Start(ctx, useCaseList, "ListMenu")
	defer func() { run.End(err) }()

	if s.cache != nil {
		items, ok, cerr := s.cache.Get(ctx)
		if cerr != nil {
			run.Logger().Warn("menu_cache_get_failed", observability.F("error", cerr.Error()))
		} else if ok {
			run.SetStatus("CACHE_HIT")
			run.Annotate(observability.F("items", len(items)))
			return items, nil
		}
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, run.Fail("REPO_LIST_FAILED", failure.Persistence("menu.list", err))
	}
	if s.cache != nil {
		if cerr := s.cache.Set(ctx, items); cerr != nil {
			run.Logger().Warn("menu_cache_set_failed", observability.F("error", cerr.Error()))
		}
	}
	run.Annotate(observability.F("items", len(items)))
	return items, nil
}

// DeleteItem removes the item and, best effort, its image.
func (s *Service) DeleteItem(ctx context.Context, id string) (err error) {
	ctx, run := s.in.Start(ctx, useCaseDelete, "DeleteMenuItem", attribute.String("item.id", id))
	defer func() { run.End(err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return failure.Validation("id is required")
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, failure.ErrNotFound) {
			return run.Fail("ITEM_NOT_FOUND", failure.Wrap(failure.ErrNotFound, "food not found", err))
		}
		return run.Fail("REPO_GET_FAILED", failure.Persistence("menu.get", err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, failure.ErrNotFound) {
			return run.Fail("ITEM_NOT_FOUND", failure.Wrap(failure.ErrNotFound, "food not found", err))
		}
		return run.Fail("REPO_DELETE_FAILED", failure.Persistence("menu.delete", err))
	}
	if rerr := s.images.Remove(item.Image); rerr != nil {
		run.Logger().Warn("image_remove_failed",
			observability.F("image", item.Image),
			observability.F("error", rerr.Error()),
		)
	}

	s.invalidate(ctx, run)
	return nil
}

func (s *Service) invalidate(ctx context.Context, run *application.Run) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		run.Logger().Warn("menu_cache_invalidate_failed", observability.F("error", err.Error()))
	}
}
