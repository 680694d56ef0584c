package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

const (
	collectionUsers        = "users"
	collectionTransactions = "transactions"
)

// LedgerRepository stores users keyed by uid and their transactions in a
// separate collection indexed by (uid, timestamp desc).
//
// RecordMeal uses a multi-document transaction, which requires MongoDB to
// run as a replica set.
type LedgerRepository struct {
	client *mongo.Client
	users  *mongo.Collection
	txs    *mongo.Collection
	now    func() time.Time
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		client: db.Client(),
		users:  db.Collection(collectionUsers),
		txs:    db.Collection(collectionTransactions),
		now:    time.Now,
	}
}

type userDoc struct {
	UID         string    `bson:"_id"`
	Email       string    `bson:"email"`
	DisplayName string    `bson:"display_name"`
	Meals       int       `bson:"meals"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		UID:         d.UID,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		Meals:       d.Meals,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type transactionDoc struct {
	ID             primitive.ObjectID `bson:"_id"`
	UID            string             `bson:"uid"`
	Type           string             `bson:"type"`
	Timestamp      time.Time          `bson:"timestamp"`
	RestaurantName string             `bson:"restaurant_name"`
}

func (d transactionDoc) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:             d.ID.Hex(),
		UID:            d.UID,
		Type:           domain.TransactionType(d.Type),
		Timestamp:      d.Timestamp.UTC(),
		RestaurantName: d.RestaurantName,
	}
}

func newTransactionDoc(uid string, tx domain.Transaction) transactionDoc {
	return transactionDoc{
		ID:             primitive.NewObjectID(),
		UID:            uid,
		Type:           string(tx.Type),
		Timestamp:      tx.Timestamp.UTC(),
		RestaurantName: tx.RestaurantName,
	}
}

func (r *LedgerRepository) GetUser(ctx context.Context, uid string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// UpsertUser refreshes the profile fields and creates the record with a
// zero counter on first sign-in.
func (r *LedgerRepository) UpsertUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.now().UTC()
	update := bson.M{
		"$set": bson.M{
			"email":        identity.Email,
			"display_name": identity.DisplayName,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"meals":      0,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDoc
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": identity.UID}, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *LedgerRepository) IncrementMeals(ctx context.Context, uid string, by int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.incrementMeals(ctx, uid, by)
}

func (r *LedgerRepository) incrementMeals(ctx context.Context, uid string, by int) (int, error) {
	update := bson.M{
		"$inc": bson.M{"meals": by},
		"$set": bson.M{"updated_at": r.now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": uid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("increment meals: %w", err)
	}
	return doc.Meals, nil
}

func (r *LedgerRepository) AppendTransaction(ctx context.Context, uid string, tx domain.Transaction) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := newTransactionDoc(uid, tx)
	if _, err := r.txs.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return doc.ID.Hex(), nil
}

type mealRecord struct {
	meals   int
	entries []domain.Transaction
}

// RecordMeal increments the counter and appends the built entries inside
// one transaction. The driver may run the callback more than once.
func (r *LedgerRepository) RecordMeal(ctx context.Context, uid string, build ports.MealEntries) (int, []domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	sess, err := r.client.StartSession()
	if err != nil {
		return 0, nil, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		meals, err := r.incrementMeals(sc, uid, 1)
		if err != nil {
			return nil, err
		}

		entries := build(meals)
		docs := make([]interface{}, 0, len(entries))
		for i := range entries {
			doc := newTransactionDoc(uid, entries[i])
			entries[i].ID = doc.ID.Hex()
			entries[i].UID = uid
			docs = append(docs, doc)
		}
		if len(docs) > 0 {
			if _, err := r.txs.InsertMany(sc, docs); err != nil {
				return nil, fmt.Errorf("insert transactions: %w", err)
			}
		}
		return mealRecord{meals: meals, entries: entries}, nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("record meal: %w", err)
	}

	rec := out.(mealRecord)
	return rec.meals, rec.entries, nil
}

func (r *LedgerRepository) ListRecentTransactions(ctx context.Context, uid string, limit int) ([]domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if limit <= 0 {
		limit = ports.DefaultTransactionLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.txs.Find(ctx, bson.M{"uid": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]domain.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates the transaction feed index.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}, {Key: "timestamp", Value: -1}}},
	}

	_, err := r.txs.Indexes().CreateMany(ctx, indexes)
	return err
}
