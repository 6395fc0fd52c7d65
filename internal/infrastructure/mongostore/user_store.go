package mongostore

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDocument struct {
	ID        string         `bson:"_id"`
	Name      string         `bson:"name"`
	Email     string         `bson:"email"`
	Password  string         `bson:"password"`
	CartData  map[string]int `bson:"cartData"`
	CreatedAt time.Time      `bson:"createdAt"`
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Cart:         domain.Cart(d.CartData).Normalize(),
		CreatedAt:    d.CreatedAt,
	}
}

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection)}
}

var _ domain.Repository = (*UserStore)(nil)

func (s *UserStore) Insert(ctx context.Context, u *domain.User) error {
	if u == nil || u.ID == "" {
		return failure.Validation("user id is required")
	}
	_, err := s.coll.InsertOne(ctx, userDocument{
		ID:        u.ID,
		Name:      u.Name,
		Email:     domain.NormalizeEmail(u.Email),
		Password:  u.PasswordHash,
		CartData:  u.Cart.Snapshot(),
		CreatedAt: u.CreatedAt,
	})
	return translate("users.insert", err)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findOne(ctx, "users.get", bson.M{"_id": id})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, "users.get_by_email", bson.M{"email": domain.NormalizeEmail(email)})
}

func (s *UserStore) findOne(ctx context.Context, op string, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(op, err)
	}
	return doc.toDomain(), nil
}

// UpdateCart sets only the cartData field.
func (s *UserStore) UpdateCart(ctx context.Context, id string, cart domain.Cart) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"cartData": cart.Normalize()}},
	)
	if err != nil {
		return translate("users.update_cart", err)
	}
	if res.MatchedCount == 0 {
		return failure.New(failure.ErrNotFound, "user not found")
	}
	return nil
}
