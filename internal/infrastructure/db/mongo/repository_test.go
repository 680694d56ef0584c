package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

var created = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

func userBSON(uid string, meals int) bson.D {
	return bson.D{
		{Key: "_id", Value: uid},
		{Key: "email", Value: uid + "@example.com"},
		{Key: "display_name", Value: "Test User"},
		{Key: "meals", Value: meals},
		{Key: "created_at", Value: created},
		{Key: "updated_at", Value: created},
	}
}

func TestLedgerRepository_GetUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ravintola.users", mtest.FirstBatch, userBSON("u1", 3)))

		user, err := NewLedgerRepository(mt.DB).GetUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.UID)
		assert.Equal(t, 3, user.Meals)
		assert.Equal(t, "Test User", user.DisplayName)
		assert.True(t, user.CreatedAt.Equal(created))
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ravintola.users", mtest.FirstBatch))

		_, err := NewLedgerRepository(mt.DB).GetUser(context.Background(), "ghost")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11600, Name: "InterruptedAtShutdown", Message: "shutting down",
		}))

		_, err := NewLedgerRepository(mt.DB).GetUser(context.Background(), "u1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestLedgerRepository_IncrementMeals(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns new value", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: userBSON("u1", 4)},
		})

		meals, err := NewLedgerRepository(mt.DB).IncrementMeals(context.Background(), "u1", 1)
		require.NoError(t, err)
		assert.Equal(t, 4, meals)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: nil},
		})

		_, err := NewLedgerRepository(mt.DB).IncrementMeals(context.Background(), "ghost", 1)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func mealEntry(meals int) []domain.Transaction {
	return []domain.Transaction{{
		Type:           domain.TransactionMeal,
		Timestamp:      created,
		RestaurantName: "Restaurant Name",
	}}
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

func TestLedgerRepository_RecordMeal(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("increments and appends one meal", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: userBSON("u1", 4)},
			},
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
			mtest.CreateSuccessResponse(),
		)

		var builtWith []int
		meals, entries, err := NewLedgerRepository(mt.DB).RecordMeal(context.Background(), "u1", func(meals int) []domain.Transaction {
			builtWith = append(builtWith, meals)
			return mealEntry(meals)
		})
		require.NoError(t, err)
		assert.Equal(t, 4, meals)
		assert.Equal(t, []int{4}, builtWith)

		require.Len(t, entries, 1)
		assert.Equal(t, "u1", entries[0].UID)
		assert.Equal(t, domain.TransactionMeal, entries[0].Type)
		_, err = primitive.ObjectIDFromHex(entries[0].ID)
		assert.NoError(t, err)

		assert.Equal(t, []string{"findAndModify", "insert", "commitTransaction"}, commandNames(mt))

		insert := mt.GetAllStartedEvents()[1].Command
		docs, err := insert.LookupErr("documents")
		require.NoError(t, err)
		values, err := docs.Array().Values()
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Equal(t, "meal", values[0].Document().Lookup("type").StringValue())
		assert.Equal(t, entries[0].ID, values[0].Document().Lookup("_id").ObjectID().Hex())
	})

	mt.Run("missing user writes nothing", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: nil},
			},
			mtest.CreateSuccessResponse(),
		)

		built := false
		meals, entries, err := NewLedgerRepository(mt.DB).RecordMeal(context.Background(), "ghost", func(meals int) []domain.Transaction {
			built = true
			return mealEntry(meals)
		})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.Zero(t, meals)
		assert.Nil(t, entries)
		assert.False(t, built)

		names := commandNames(mt)
		assert.NotContains(t, names, "insert")
		assert.NotContains(t, names, "commitTransaction")
		assert.Equal(t, []string{"findAndModify", "abortTransaction"}, names)
	})

	mt.Run("insert failure aborts", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: userBSON("u1", 4)},
			},
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code: 11600, Name: "InterruptedAtShutdown", Message: "shutting down",
			}),
			mtest.CreateSuccessResponse(),
		)

		_, _, err := NewLedgerRepository(mt.DB).RecordMeal(context.Background(), "u1", mealEntry)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUserNotFound)
		assert.NotContains(t, commandNames(mt), "commitTransaction")
	})
}

func TestLedgerRepository_UpsertUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("keeps counter", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: userBSON("u1", 11)},
		})

		user, err := NewLedgerRepository(mt.DB).UpsertUser(context.Background(), domain.Identity{
			UID: "u1", Email: "u1@example.com", DisplayName: "Test User",
		})
		require.NoError(t, err)
		assert.Equal(t, 11, user.Meals)
	})
}

func TestLedgerRepository_AppendTransaction(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := NewLedgerRepository(mt.DB).AppendTransaction(context.Background(), "u1", domain.Transaction{
			Type: domain.TransactionMeal, Timestamp: created, RestaurantName: "Restaurant Name",
		})
		require.NoError(t, err)
		_, err = primitive.ObjectIDFromHex(id)
		assert.NoError(t, err)
	})
}

func TestLedgerRepository_ListRecentTransactions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes newest first", func(mt *mtest.T) {
		id1, id2 := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ravintola.transactions", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: id2},
				{Key: "uid", Value: "u1"},
				{Key: "type", Value: "free"},
				{Key: "timestamp", Value: created.Add(time.Hour)},
				{Key: "restaurant_name", Value: "Restaurant Name"},
			},
			bson.D{
				{Key: "_id", Value: id1},
				{Key: "uid", Value: "u1"},
				{Key: "type", Value: "meal"},
				{Key: "timestamp", Value: created},
				{Key: "restaurant_name", Value: "Restaurant Name"},
			},
		))

		txs, err := NewLedgerRepository(mt.DB).ListRecentTransactions(context.Background(), "u1", 10)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, id2.Hex(), txs[0].ID)
		assert.Equal(t, domain.TransactionFree, txs[0].Type)
		assert.Equal(t, domain.TransactionMeal, txs[1].Type)
	})

	mt.Run("empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ravintola.transactions", mtest.FirstBatch))

		txs, err := NewLedgerRepository(mt.DB).ListRecentTransactions(context.Background(), "u1", 0)
		require.NoError(t, err)
		assert.NotNil(t, txs)
		assert.Empty(t, txs)
	})
}

func TestAdminRepository_AdminGrantExists(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("grant present", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ravintola.admins", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "owner"}}))

		ok, err := NewAdminRepository(mt.DB).AdminGrantExists(context.Background(), "owner")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	mt.Run("no grant", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ravintola.admins", mtest.FirstBatch))

		ok, err := NewAdminRepository(mt.DB).AdminGrantExists(context.Background(), "customer")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	mt.Run("lookup error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))

		ok, err := NewAdminRepository(mt.DB).AdminGrantExists(context.Background(), "owner")
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
