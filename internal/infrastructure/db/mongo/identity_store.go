package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/investae/investments-api/internal/core/domain"
)

const collectionCredentials = "credentials"

// Unique index names. duplicateField maps them back to request fields.
const (
	indexUsername   = "uniq_username"
	indexEmail      = "uniq_email"
	indexNationalID = "uniq_national_id"
)

// IdentityStore persists credentials in the credentials collection.
type IdentityStore struct {
	col *mongo.Collection
}

func NewIdentityStore(db *mongo.Database) *IdentityStore {
	return &IdentityStore{col: db.Collection(collectionCredentials)}
}

type credentialDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	NationalID   string             `bson:"national_id"`
	DisplayName  string             `bson:"display_name,omitempty"`
	Email        string             `bson:"email,omitempty"`
	CreatedAt    int64              `bson:"created_at"`
}

func (d credentialDoc) toDomain() (*domain.Credential, error) {
	id, err := domain.ParseNationalID(d.NationalID)
	if err != nil {
		return nil, fmt.Errorf("stored credential %q: %w", d.Username, err)
	}
	return &domain.Credential{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		NationalID:   id,
		DisplayName:  d.DisplayName,
		Email:        d.Email,
		CreatedAt:    unixToTime(d.CreatedAt),
	}, nil
}

// Create inserts cred. A unique index violation surfaces as a conflict on the
// matching field.
func (s *IdentityStore) Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := credentialDoc{
		Username:     cred.Username,
		PasswordHash: cred.PasswordHash,
		Role:         cred.Role.String(),
		NationalID:   cred.NationalID.String(),
		DisplayName:  cred.DisplayName,
		Email:        cred.Email,
		CreatedAt:    cred.CreatedAt.Unix(),
	}

	res, err := s.col.InsertOne(ctx, doc)
	if err != nil {
		if field, ok := duplicateField(err); ok {
			return nil, domain.NewConflictError(field, field+" already registered")
		}
		return nil, fmt.Errorf("insert credential: %w", err)
	}

	created := *cred
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	created.CreatedAt = unixToTime(doc.CreatedAt)
	return &created, nil
}

func (s *IdentityStore) FindByUsername(ctx context.Context, username string) (*domain.Credential, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *IdentityStore) FindByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *IdentityStore) FindByNationalID(ctx context.Context, id domain.NationalID) (*domain.Credential, error) {
	return s.findOne(ctx, bson.M{"national_id": id.String()})
}

// List returns every credential ordered by username.
func (s *IdentityStore) List(ctx context.Context) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []credentialDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}

	out := make([]*domain.Credential, 0, len(docs))
	for _, d := range docs {
		cred, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	return out, nil
}

// EnsureIndexes creates the unique indexes backing registration. The email
// index only covers documents that carry an email.
func (s *IdentityStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(indexUsername).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "national_id", Value: 1}},
			Options: options.Index().SetName(indexNationalID).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName(indexEmail).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
	}

	_, err := s.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *IdentityStore) findOne(ctx context.Context, filter bson.M) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc credentialDoc
	if err := s.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return doc.toDomain()
}

// duplicateField reports which unique index a duplicate key error hit.
func duplicateField(err error) (string, bool) {
	if !mongo.IsDuplicateKeyError(err) {
		return "", false
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, indexNationalID):
		return "nationalId", true
	case strings.Contains(msg, indexEmail):
		return "email", true
	default:
		return "username", true
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
