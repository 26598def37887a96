package registry

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/runwhen-contrib/codecollection-registry-sub002/models"
)

// ErrNotFound is returned for lookups by slug or URL that match nothing.
var ErrNotFound = errors.New("registry: not found")

const (
	collBundles     = "codebundles"
	collCollections = "codecollections"
	collLibraries   = "libraries"
	collDocPages    = "doc_pages"
	collMessages    = "messages"
)

// BundleFilter narrows ListCodeBundles. Zero values mean "any".
type BundleFilter struct {
	CodeCollectionSlug string
	Platform           string
	Type               string
	Limit              int64
}

// Repository is the Mongo access layer for registry records.
type Repository struct {
	db *mongo.Database
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListCodeCollections(ctx context.Context) ([]models.CodeCollection, error) {
	cursor, err := r.db.Collection(collCollections).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "slug", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.CodeCollection
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetCodeCollection(ctx context.Context, slug string) (*models.CodeCollection, error) {
	var collection models.CodeCollection
	err := r.db.Collection(collCollections).FindOne(ctx, bson.M{"slug": slug}).Decode(&collection)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

func (r *Repository) ListCodeBundles(ctx context.Context, filter BundleFilter) ([]models.CodeBundle, error) {
	query := bson.M{}
	if filter.CodeCollectionSlug != "" {
		query["codecollection_slug"] = filter.CodeCollectionSlug
	}
	if filter.Platform != "" {
		query["platform"] = filter.Platform
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}

	opts := options.Find().SetSort(bson.D{{Key: "slug", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := r.db.Collection(collBundles).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var out []models.CodeBundle
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetCodeBundle(ctx context.Context, slug string) (*models.CodeBundle, error) {
	var bundle models.CodeBundle
	err := r.db.Collection(collBundles).FindOne(ctx, bson.M{"slug": slug}).Decode(&bundle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (r *Repository) ListLibraries(ctx context.Context) ([]models.Library, error) {
	cursor, err := r.db.Collection(collLibraries).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "slug", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Library
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetLibrary(ctx context.Context, slug string) (*models.Library, error) {
	var library models.Library
	err := r.db.Collection(collLibraries).FindOne(ctx, bson.M{"slug": slug}).Decode(&library)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &library, nil
}

func (r *Repository) ListDocPages(ctx context.Context) ([]models.DocumentationPage, error) {
	cursor, err := r.db.Collection(collDocPages).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "url", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.DocumentationPage
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetDocPage(ctx context.Context, url string) (*models.DocumentationPage, error) {
	var page models.DocumentationPage
	err := r.db.Collection(collDocPages).FindOne(ctx, bson.M{"url": url}).Decode(&page)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *Repository) UpsertCodeCollection(ctx context.Context, collection *models.CodeCollection) error {
	collection.UpdatedAt = time.Now()
	_, err := r.db.Collection(collCollections).ReplaceOne(ctx,
		bson.M{"slug": collection.Slug}, collection, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) UpsertCodeBundle(ctx context.Context, bundle *models.CodeBundle) error {
	bundle.UpdatedAt = time.Now()
	_, err := r.db.Collection(collBundles).ReplaceOne(ctx,
		bson.M{"slug": bundle.Slug}, bundle, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) UpsertLibrary(ctx context.Context, library *models.Library) error {
	_, err := r.db.Collection(collLibraries).ReplaceOne(ctx,
		bson.M{"slug": library.Slug}, library, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) UpsertDocPage(ctx context.Context, page *models.DocumentationPage) error {
	page.FetchedAt = time.Now()
	_, err := r.db.Collection(collDocPages).ReplaceOne(ctx,
		bson.M{"url": page.URL}, page, options.Replace().SetUpsert(true))
	return err
}

// Counts reports how many records each registry collection holds.
func (r *Repository) Counts(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, name := range []string{collCollections, collBundles, collLibraries, collDocPages} {
		n, err := r.db.Collection(name).CountDocuments(ctx, bson.M{})
		if err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, nil
}

func (r *Repository) SaveMessage(ctx context.Context, message *models.Message) error {
	message.Timestamp = time.Now()
	_, err := r.db.Collection(collMessages).InsertOne(ctx, message)
	return err
}

// ConversationHistory returns the most recent exchanges of a conversation,
// oldest first, ready to replay as classifier history.
func (r *Repository) ConversationHistory(ctx context.Context, conversationID string, limit int64) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := r.db.Collection(collMessages).Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	var out []models.Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
