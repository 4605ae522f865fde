package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// userDocument is the users collection shape. IDs are stored as uuid strings.
type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Image        string    `bson:"image"`
	Country      string    `bson:"country"`
	City         string    `bson:"city"`
	Grade        string    `bson:"grade"`
	Institution  string    `bson:"institution"`
	Labs         []string  `bson:"labs"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// MongoRepository stores users in a MongoDB collection with a unique email index.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

func (r *MongoRepository) FindAll(ctx context.Context, exclude ...Field) ([]User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if proj := projection(exclude); len(proj) > 0 {
		opts.SetProjection(proj)
	}

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]User, 0, len(docs))
	for i := range docs {
		u, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, Without(*u, exclude...))
	}

	return users, nil
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (r *MongoRepository) Insert(ctx context.Context, u *User) (*User, error) {
	doc := newUserDocument(u)
	if doc.ID == uuid.Nil.String() {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return doc.toModel()
}

func (r *MongoRepository) Save(ctx context.Context, u *User) error {
	doc := newUserDocument(u)
	doc.UpdatedAt = time.Now().UTC()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "email", Value: doc.Email},
		{Key: "password_hash", Value: doc.PasswordHash},
		{Key: "image", Value: doc.Image},
		{Key: "country", Value: doc.Country},
		{Key: "city", Value: doc.City},
		{Key: "grade", Value: doc.Grade},
		{Key: "institution", Value: doc.Institution},
		{Key: "labs", Value: doc.Labs},
		{Key: "updated_at", Value: doc.UpdatedAt},
	}}}

	res, err := r.coll.UpdateByID(ctx, doc.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	u.UpdatedAt = doc.UpdatedAt

	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.D) (*User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return doc.toModel()
}

func projection(exclude []Field) bson.D {
	proj := bson.D{}
	for _, f := range exclude {
		if f == FieldID {
			continue
		}
		proj = append(proj, bson.E{Key: string(f), Value: 0})
	}
	return proj
}

func newUserDocument(u *User) userDocument {
	return userDocument{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Image:        u.Image,
		Country:      u.Country,
		City:         u.City,
		Grade:        u.Grade,
		Institution:  u.Institution,
		Labs:         append([]string{}, u.Labs...),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDocument) toModel() (*User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}

	labs := d.Labs
	if labs == nil {
		labs = []string{}
	}

	return &User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Image:        d.Image,
		Country:      d.Country,
		City:         d.City,
		Grade:        d.Grade,
		Institution:  d.Institution,
		Labs:         labs,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}
