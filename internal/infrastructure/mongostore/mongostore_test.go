package mongostore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	"github.com/Zhima-Mochi/foodorder/internal/domain/menu"
	"github.com/Zhima-Mochi/foodorder/internal/domain/order"
	"github.com/Zhima-Mochi/foodorder/internal/domain/user"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/mongostore"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

func startMongo(ctx context.Context) (*mongodb.MongoDBContainer, string, error) {
	container, err := mongodb.Run(ctx, "mongo:7.0")
	if err != nil {
		return nil, "", fmt.Errorf("mongodb.Run: %w", err)
	}
	uri, err := container.ConnectionString(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("container.ConnectionString: %w", err)
	}
	return container, uri, nil
}

type storeSuite struct {
	suite.Suite

	container *mongodb.MongoDBContainer
	client    *mongo.Client
	db        *mongo.Database

	users  *mongostore.UserStore
	menu   *mongostore.MenuStore
	orders *mongostore.OrderStore
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("mongo container tests are skipped in -short mode")
	}
	suite.Run(t, new(storeSuite))
}

func (s *storeSuite) SetupSuite() {
	ctx := s.T().Context()

	var uri string
	var err error
	s.container, uri, err = startMongo(ctx)
	s.Require().NoError(err)

	s.client, err = mongostore.Connect(ctx, uri)
	s.Require().NoError(err)

	s.db = s.client.Database("food_test")
	s.Require().NoError(mongostore.EnsureIndexes(ctx, s.db))

	s.users = mongostore.NewUserStore(s.db)
	s.menu = mongostore.NewMenuStore(s.db)
	s.orders = mongostore.NewOrderStore(s.db)
}

func (s *storeSuite) TearDownSuite() {
	ctx := context.Background()
	if s.client != nil {
		_ = s.client.Disconnect(ctx)
	}
	if s.container != nil {
		_ = s.container.Terminate(ctx)
	}
}

func (s *storeSuite) TearDownTest() {
	s.Require().NoError(s.db.Drop(context.Background()))
	s.Require().NoError(mongostore.EnsureIndexes(context.Background(), s.db))
}

func (s *storeSuite) TestUserStore() {
	t := s.T()
	ctx := t.Context()

	u, err := user.New(gofakeit.UUID(), gofakeit.Name(), "Bob@Example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, s.users.Insert(ctx, u))

	dup, err := user.New(gofakeit.UUID(), gofakeit.Name(), "bob@example.com", "hash")
	require.NoError(t, err)
	assert.ErrorIs(t, s.users.Insert(ctx, dup), failure.ErrConflict)

	got, err := s.users.FindByEmail(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.Cart)

	require.NoError(t, s.users.UpdateCart(ctx, u.ID, user.Cart{"i1": 2, "i2": 1}))
	got, err = s.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(user.Cart{"i1": 2, "i2": 1}, got.Cart); diff != "" {
		t.Errorf("cart mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, u.PasswordHash, got.PasswordHash)

	_, err = s.users.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, failure.ErrNotFound)
	assert.ErrorIs(t, s.users.UpdateCart(ctx, "missing", user.Cart{}), failure.ErrNotFound)
}

func (s *storeSuite) TestMenuStore() {
	t := s.T()
	ctx := t.Context()

	item, err := menu.NewItem(gofakeit.UUID(), "Greek salad", "fresh", decimal.RequireFromString("12.50"), "Salad", "1.png")
	require.NoError(t, err)
	require.NoError(t, s.menu.Insert(ctx, item))

	items, err := s.menu.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Price.Equal(item.Price), "price %s", items[0].Price)
	assert.Equal(t, item.Name, items[0].Name)

	require.NoError(t, s.menu.Delete(ctx, item.ID))
	assert.ErrorIs(t, s.menu.Delete(ctx, item.ID), failure.ErrNotFound)
}

func (s *storeSuite) TestOrderStore() {
	t := s.T()
	ctx := t.Context()

	userID := gofakeit.UUID()
	older := s.newOrder(userID, time.Now().Add(-time.Hour))
	newer := s.newOrder(userID, time.Now())
	other := s.newOrder(gofakeit.UUID(), time.Now())
	for _, o := range []*order.Order{older, newer, other} {
		require.NoError(t, s.orders.Insert(ctx, o))
	}

	mine, err := s.orders.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)
	assert.True(t, mine[0].Amount.Equal(newer.Amount))
	assert.Equal(t, newer.Address, mine[0].Address)

	older.AttachCheckout("cs_" + older.ID)
	require.NoError(t, older.MarkPaid())
	require.NoError(t, s.orders.Update(ctx, older))
	got, err := s.orders.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.True(t, got.Payment)
	assert.Equal(t, "cs_"+older.ID, got.CheckoutSessionID)
	assert.Equal(t, order.StatusProcessing, got.Status)

	all, err := s.orders.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = s.orders.Get(ctx, "missing")
	assert.ErrorIs(t, err, failure.ErrNotFound)
}

func (s *storeSuite) newOrder(userID string, at time.Time) *order.Order {
	o, err := order.New(gofakeit.UUID(), userID,
		[]order.LineItem{{ItemID: gofakeit.UUID(), Name: gofakeit.Dinner(), Price: decimal.RequireFromString("99.99"), Quantity: 2}},
		decimal.RequireFromString("201.98"),
		order.Address{FirstName: gofakeit.FirstName(), City: gofakeit.City(), Phone: gofakeit.Phone()},
	)
	s.Require().NoError(err)
	o.CreatedAt = at.UTC().Truncate(time.Millisecond)
	return o
}
