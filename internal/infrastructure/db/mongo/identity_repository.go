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

	"github.com/vivulocal/marketplace-api/internal/core/domain"
)

const collectionIdentities = "users"

type IdentityRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{
		col: db.Collection(collectionIdentities),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type identityDoc struct {
	ID           primitive.ObjectID    `bson:"_id,omitempty"`
	Email        string                `bson:"email"`
	DisplayName  string                `bson:"display_name"`
	PasswordHash string                `bson:"password_hash,omitempty"`
	Provider     string                `bson:"provider"`
	Role         string                `bson:"role"`
	IsVerified   bool                  `bson:"is_verified"`
	Status       string                `bson:"status"`
	Profile      domain.Profile        `bson:"profile"`
	Business     domain.BusinessFields `bson:"business"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
}

func (d identityDoc) toDomain() *domain.Identity {
	role, err := domain.ParseRole(d.Role)
	if err != nil {
		// Stored roles outside the known set grant nothing.
		role = domain.RoleUser
	}
	status := domain.IdentityStatus(d.Status)
	if status == "" {
		status = domain.StatusActive
	}
	return &domain.Identity{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		Provider:     d.Provider,
		Role:         role,
		IsVerified:   d.IsVerified,
		Status:       status,
		Profile:      d.Profile,
		Business:     d.Business.Normalized(),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := identityDoc{
		ID:           primitive.NewObjectID(),
		Email:        identity.Email,
		DisplayName:  identity.DisplayName,
		PasswordHash: identity.PasswordHash,
		Provider:     identity.Provider,
		Role:         string(identity.Role),
		IsVerified:   identity.IsVerified,
		Status:       string(identity.Status),
		Profile:      identity.Profile,
		Business:     identity.Business.Normalized(),
		CreatedAt:    identity.CreatedAt,
		UpdatedAt:    identity.UpdatedAt,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) UpdateProfile(ctx context.Context, id, displayName string, profile domain.Profile) (*domain.Identity, error) {
	return r.update(ctx, id, bson.M{
		"display_name": displayName,
		"profile":      profile,
	})
}

// Elevate writes role, verification, contact phone and business fields in a
// single document update, so readers never see a partly elevated identity.
func (r *IdentityRepository) Elevate(ctx context.Context, id string, role domain.Role, phone string, business domain.BusinessFields) (*domain.Identity, error) {
	return r.update(ctx, id, bson.M{
		"role":          string(role),
		"is_verified":   true,
		"profile.phone": phone,
		"business":      business.Normalized(),
	})
}

func (r *IdentityRepository) SetStatus(ctx context.Context, id string, status domain.IdentityStatus) (*domain.Identity, error) {
	return r.update(ctx, id, bson.M{"status": string(status)})
}

func (r *IdentityRepository) update(ctx context.Context, id string, set bson.M) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set["updated_at"] = r.now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc identityDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("update identity: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates necessary indexes on the identities collection.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
