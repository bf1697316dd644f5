package cart

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type stubCartRepo struct {
	carts map[uuid.UUID]*models.CartRecord // keyed by user id
	items map[uuid.UUID][]*models.CartItem // keyed by cart id

	createRaces bool // first Create fails with a unique violation
	createCalls int
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		carts: make(map[uuid.UUID]*models.CartRecord),
		items: make(map[uuid.UUID][]*models.CartItem),
	}
}

func (r *stubCartRepo) Create(_ context.Context, cart *models.CartRecord) (*models.CartRecord, error) {
	r.createCalls++
	if r.createRaces && r.createCalls == 1 {
		// A concurrent request won the insert.
		r.carts[cart.UserID] = &models.CartRecord{ID: uuid.New(), UserID: cart.UserID}
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "ux_carts_user"}
	}
	cart.ID = uuid.New()
	r.carts[cart.UserID] = cart
	return cart, nil
}

func (r *stubCartRepo) FindByUser(_ context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, ok := r.carts[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	loaded := *cart
	loaded.Items = nil
	for _, item := range r.items[cart.ID] {
		loaded.Items = append(loaded.Items, *item)
	}
	return &loaded, nil
}

func (r *stubCartRepo) FindItem(_ context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	for _, item := range r.items[cartID] {
		if item.ProductID == productID {
			found := *item
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCartRepo) CreateItem(_ context.Context, item *models.CartItem) error {
	item.ID = uuid.New()
	r.items[item.CartID] = append(r.items[item.CartID], item)
	return nil
}

func (r *stubCartRepo) UpdateItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	for _, items := range r.items {
		for _, item := range items {
			if item.ID == itemID {
				item.Quantity = quantity
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubCartRepo) DeleteItem(_ context.Context, cartID, productID uuid.UUID) error {
	items := r.items[cartID]
	for i, item := range items {
		if item.ProductID == productID {
			r.items[cartID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubCartRepo) ClearItems(_ context.Context, cartID uuid.UUID) error {
	r.items[cartID] = nil
	return nil
}

func newCartService(t *testing.T) (*Service, *stubCartRepo) {
	t.Helper()
	repo := newStubCartRepo()
	svc, err := NewService(repo, testLogger())
	require.NoError(t, err)
	return svc, repo
}

func TestGetCartCreatesOnFirstTouch(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, userID, cart.UserID)
	require.Empty(t, cart.Items)

	again, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, cart.ID, again.ID, "second touch must return the same cart")
}

func TestGetCartSurvivesCreateRace(t *testing.T) {
	svc, repo := newCartService(t)
	repo.createRaces = true
	userID := uuid.New()

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err, "loser of the insert race must refetch, not fail")
	require.Equal(t, userID, cart.UserID)
	require.Equal(t, 1, repo.createCalls)
}

func TestAddItemBumpsExistingQuantity(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()
	productID := uuid.NewString()

	cart, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: productID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.AddItem(context.Background(), userID, AddItemInput{ProductID: productID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "same product must not fork a second row")
	require.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemRejectsBadProductID(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddItem(context.Background(), uuid.New(), AddItemInput{ProductID: "p-1", Quantity: 1})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateItemNotInCart(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.UpdateItem(context.Background(), uuid.New(), uuid.New(), UpdateItemInput{Quantity: 4})
	appErr := pkgerrors.As(err)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
	require.Equal(t, "product not in cart", appErr.Message())
}

func TestUpdateAndRemoveItem(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()
	productID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: productID.String(), Quantity: 1})
	require.NoError(t, err)

	cart, err := svc.UpdateItem(context.Background(), userID, productID, UpdateItemInput{Quantity: 7})
	require.NoError(t, err)
	require.Equal(t, 7, cart.Items[0].Quantity)

	cart, err = svc.RemoveItem(context.Background(), userID, productID)
	require.NoError(t, err)
	require.Empty(t, cart.Items)

	_, err = svc.RemoveItem(context.Background(), userID, productID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestClearEmptiesCart(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: uuid.NewString(), Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, AddItemInput{ProductID: uuid.NewString(), Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), userID))

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
}
