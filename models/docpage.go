package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentationPage is one crawled page from a configured docs site.
// Text is already truncated to the configured page cap at ingest time.
type DocumentationPage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	URL       string             `bson:"url" json:"url"`
	Site      string             `bson:"site" json:"site"`
	Title     string             `bson:"title" json:"title"`
	Text      string             `bson:"text" json:"text"`
	FetchedAt time.Time          `bson:"fetched_at" json:"fetched_at"`
}
