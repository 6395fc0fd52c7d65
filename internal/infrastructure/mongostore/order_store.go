package mongostore

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/order"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type lineItemDocument struct {
	ItemID   string               `bson:"itemId,omitempty"`
	Name     string               `bson:"name"`
	Price    primitive.Decimal128 `bson:"price"`
	Quantity int                  `bson:"quantity"`
}

type addressDocument struct {
	FirstName string `bson:"firstName"`
	LastName  string `bson:"lastName"`
	Email     string `bson:"email"`
	Street    string `bson:"street"`
	City      string `bson:"city"`
	State     string `bson:"state"`
	Zipcode   string `bson:"zipcode"`
	Country   string `bson:"country"`
	Phone     string `bson:"phone"`
}

type orderDocument struct {
	ID                string               `bson:"_id"`
	UserID            string               `bson:"userId"`
	Items             []lineItemDocument   `bson:"items"`
	Amount            primitive.Decimal128 `bson:"amount"`
	Address           addressDocument      `bson:"address"`
	Status            string               `bson:"status"`
	Payment           bool                 `bson:"payment"`
	FailureReason     string               `bson:"failureReason,omitempty"`
	CheckoutSessionID string               `bson:"checkoutSessionId,omitempty"`
	Date              time.Time            `bson:"date"`
	UpdatedAt         time.Time            `bson:"updatedAt"`
}

func newOrderDocument(o *domain.Order) (orderDocument, error) {
	amount, err := toDecimal128(o.Amount)
	if err != nil {
		return orderDocument{}, err
	}
	items := make([]lineItemDocument, 0, len(o.Items))
	for _, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return orderDocument{}, err
		}
		items = append(items, lineItemDocument{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    price,
			Quantity: it.Quantity,
		})
	}
	return orderDocument{
		ID:                o.ID,
		UserID:            o.UserID,
		Items:             items,
		Amount:            amount,
		Address:           addressDocument(o.Address),
		Status:            string(o.Status),
		Payment:           o.Payment,
		FailureReason:     o.FailureReason,
		CheckoutSessionID: o.CheckoutSessionID,
		Date:              o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}, nil
}

func (d orderDocument) toDomain() (*domain.Order, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, failure.Persistence("orders.decode_amount", err)
	}
	status, err := domain.ParseStatus(d.Status)
	if err != nil {
		return nil, failure.Persistence("orders.decode_status", err)
	}
	items := make([]domain.LineItem, 0, len(d.Items))
	for _, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, failure.Persistence("orders.decode_price", err)
		}
		items = append(items, domain.LineItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    price,
			Quantity: it.Quantity,
		})
	}
	return &domain.Order{
		ID:                d.ID,
		UserID:            d.UserID,
		Items:             items,
		Amount:            amount,
		Address:           domain.Address(d.Address),
		Status:            status,
		Payment:           d.Payment,
		FailureReason:     d.FailureReason,
		CheckoutSessionID: d.CheckoutSessionID,
		CreatedAt:         d.Date,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

type OrderStore struct {
	coll *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{coll: db.Collection(orderCollection)}
}

var _ domain.Repository = (*OrderStore)(nil)

func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return failure.Validation("order id is required")
	}
	doc, err := newOrderDocument(o)
	if err != nil {
		return failure.Persistence("orders.encode", err)
	}
	_, err = s.coll.InsertOne(ctx, doc)
	return translate("orders.insert", err)
}

func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	var doc orderDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate("orders.get", err)
	}
	return doc.toDomain()
}

func (s *OrderStore) Update(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return failure.Validation("order id is required")
	}
	doc, err := newOrderDocument(o)
	if err != nil {
		return failure.Persistence("orders.encode", err)
	}
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": o.ID}, doc)
	if err != nil {
		return translate("orders.update", err)
	}
	if res.MatchedCount == 0 {
		return failure.New(failure.ErrNotFound, "order not found")
	}
	return nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.find(ctx, "orders.list_by_user", bson.M{"userId": userID})
}

func (s *OrderStore) List(ctx context.Context) ([]*domain.Order, error) {
	return s.find(ctx, "orders.list", bson.M{})
}

func (s *OrderStore) find(ctx context.Context, op string, filter bson.M) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(op, err)
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(op, err)
	}

	out := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
