package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apistarter/auth-api/internal/core/domain"
)

type RoleRepository struct {
	col *mongo.Collection
	seq *sequence
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles), seq: newSequence(db)}
}

type roleDoc struct {
	ID            int64     `bson:"_id"`
	Name          string    `bson:"name"`
	GuardName     string    `bson:"guard_name"`
	PermissionIDs []int64   `bson:"permission_ids"`
	LockVersion   int64     `bson:"lock_version"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (d roleDoc) toDomain() *domain.Role {
	return &domain.Role{
		ID:            d.ID,
		Name:          d.Name,
		GuardName:     d.GuardName,
		PermissionIDs: d.PermissionIDs,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx, collectionRoles)
	if err != nil {
		return nil, err
	}
	doc := roleDoc{
		ID:            id,
		Name:          role.Name,
		GuardName:     role.GuardName,
		PermissionIDs: nonNilIDs(role.PermissionIDs),
		CreatedAt:     role.CreatedAt,
		UpdatedAt:     role.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, fmt.Errorf("insert role: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id int64) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"name": name, "guard_name": domain.DefaultGuard})
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) FindByNames(ctx context.Context, names []string) ([]*domain.Role, error) {
	if len(names) == 0 {
		return []*domain.Role{}, nil
	}
	return r.find(ctx, bson.M{"name": bson.M{"$in": names}, "guard_name": domain.DefaultGuard}, options.Find())
}

func (r *RoleRepository) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Role, error) {
	if len(ids) == 0 {
		return []*domain.Role{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// List returns roles ordered by id. perPage <= 0 returns every role.
func (r *RoleRepository) List(ctx context.Context, page, perPage int) ([]*domain.Role, int64, error) {
	total, err := r.count(ctx)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find()
	if perPage > 0 {
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * perPage)).SetLimit(int64(perPage))
	}
	roles, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *RoleRepository) count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count roles: %w", err)
	}
	return n, nil
}

func (r *RoleRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, opts.SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	var docs []roleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	out := make([]*domain.Role, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"name":           role.Name,
			"permission_ids": nonNilIDs(role.PermissionIDs),
			"updated_at":     role.UpdatedAt,
		},
		"$inc": bson.M{"lock_version": int64(1)},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": role.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update role: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoleNotFound
	}
	return nil
}

// Lock bumps the role's lock_version. Inside a transaction this takes a write
// lock on the document, so a second transaction doing the same aborts with a
// write conflict and is retried after the first commits.
func (r *RoleRepository) Lock(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"lock_version": int64(1)}})
	if err != nil {
		return fmt.Errorf("lock role: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoleNotFound
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the roles collection.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "guard_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type PermissionRepository struct {
	col *mongo.Collection
	seq *sequence
}

func NewPermissionRepository(db *mongo.Database) *PermissionRepository {
	return &PermissionRepository{col: db.Collection(collectionPermissions), seq: newSequence(db)}
}

type permissionDoc struct {
	ID        int64     `bson:"_id"`
	Name      string    `bson:"name"`
	GuardName string    `bson:"guard_name"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d permissionDoc) toDomain() *domain.Permission {
	return &domain.Permission{ID: d.ID, Name: d.Name, GuardName: d.GuardName, CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC()}
}

func (r *PermissionRepository) Create(ctx context.Context, p *domain.Permission) (*domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx, collectionPermissions)
	if err != nil {
		return nil, err
	}
	doc := permissionDoc{ID: id, Name: p.Name, GuardName: p.GuardName, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, fmt.Errorf("insert permission: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PermissionRepository) FindByNames(ctx context.Context, names []string) ([]*domain.Permission, error) {
	if len(names) == 0 {
		return []*domain.Permission{}, nil
	}
	return r.find(ctx, bson.M{"name": bson.M{"$in": names}, "guard_name": domain.DefaultGuard})
}

func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Permission, error) {
	if len(ids) == 0 {
		return []*domain.Permission{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *PermissionRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	return r.find(ctx, bson.M{})
}

func (r *PermissionRepository) find(ctx context.Context, filter bson.M) ([]*domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	var docs []permissionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	out := make([]*domain.Permission, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates necessary indexes on the permissions collection.
func (r *PermissionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "guard_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
