package mongostore

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/menu"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type itemDocument struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	Image       string               `bson:"image"`
	CreatedAt   time.Time            `bson:"createdAt"`
}

func (d itemDocument) toDomain() (*domain.Item, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, failure.Persistence("menu.decode_price", err)
	}
	return &domain.Item{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Category:    d.Category,
		Image:       d.Image,
		CreatedAt:   d.CreatedAt,
	}, nil
}

type MenuStore struct {
	coll *mongo.Collection
}

func NewMenuStore(db *mongo.Database) *MenuStore {
	return &MenuStore{coll: db.Collection(foodCollection)}
}

var _ domain.Repository = (*MenuStore)(nil)

func (s *MenuStore) Insert(ctx context.Context, item *domain.Item) error {
	if item == nil || item.ID == "" {
		return failure.Validation("item id is required")
	}
	price, err := toDecimal128(item.Price)
	if err != nil {
		return failure.Persistence("menu.encode_price", err)
	}
	_, err = s.coll.InsertOne(ctx, itemDocument{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       price,
		Category:    item.Category,
		Image:       item.Image,
		CreatedAt:   item.CreatedAt,
	})
	return translate("menu.insert", err)
}

func (s *MenuStore) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	var doc itemDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate("menu.get", err)
	}
	return doc.toDomain()
}

func (s *MenuStore) List(ctx context.Context) ([]*domain.Item, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translate("menu.list", err)
	}
	var docs []itemDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("menu.list", err)
	}

	items := make([]*domain.Item, 0, len(docs))
	for _, d := range docs {
		item, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *MenuStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("menu.delete", err)
	}
	if res.DeletedCount == 0 {
		return failure.New(failure.ErrNotFound, "item not found")
	}
	return nil
}
