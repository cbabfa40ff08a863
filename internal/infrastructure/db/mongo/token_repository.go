package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// TokenRepository stores personal access tokens. Expired documents are
// purged by a TTL index on expires_at.
type TokenRepository struct {
	col *mongo.Collection
	seq *sequence
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{col: db.Collection(collectionTokens), seq: newSequence(db)}
}

type tokenDoc struct {
	ID         int64      `bson:"_id"`
	UserID     int64      `bson:"tokenable_id"`
	Name       string     `bson:"name"`
	Token      string     `bson:"token"`
	Abilities  []string   `bson:"abilities"`
	LastUsedAt *time.Time `bson:"last_used_at,omitempty"`
	ExpiresAt  time.Time  `bson:"expires_at"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

func (d tokenDoc) toDomain() *domain.Token {
	t := &domain.Token{
		ID:        d.ID,
		UserID:    d.UserID,
		Name:      d.Name,
		Hash:      d.Token,
		Abilities: d.Abilities,
		ExpiresAt: d.ExpiresAt.UTC(),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if d.LastUsedAt != nil {
		at := d.LastUsedAt.UTC()
		t.LastUsedAt = &at
	}
	return t
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.Token) (*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx, collectionTokens)
	if err != nil {
		return nil, err
	}
	doc := tokenDoc{
		ID:        id,
		UserID:    t.UserID,
		Name:      t.Name,
		Token:     t.Hash,
		Abilities: t.Abilities,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TokenRepository) FindByID(ctx context.Context, id int64) (*domain.Token, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *TokenRepository) FindByHash(ctx context.Context, hash string) (*domain.Token, error) {
	return r.findOne(ctx, bson.M{"token": hash})
}

func (r *TokenRepository) findOne(ctx context.Context, filter bson.M) (*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc tokenDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TokenRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"tokenable_id": userID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	var docs []tokenDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	out := make([]*domain.Token, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *TokenRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_used_at": at, "updated_at": at}})
	if err != nil {
		return fmt.Errorf("touch token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	return r.deleteMany(ctx, bson.M{"tokenable_id": userID})
}

// DeleteByUserAndName removes the user's tokens whose name contains fragment.
func (r *TokenRepository) DeleteByUserAndName(ctx context.Context, userID int64, fragment string) (int64, error) {
	return r.deleteMany(ctx, bson.M{
		"tokenable_id": userID,
		"name":         primitive.Regex{Pattern: regexp.QuoteMeta(fragment)},
	})
}

func (r *TokenRepository) deleteMany(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete tokens: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates necessary indexes on the tokens collection.
func (r *TokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tokenable_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
