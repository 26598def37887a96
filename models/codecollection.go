package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CodeCollection is a git repository of curated automation bundles.
type CodeCollection struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug        string             `bson:"slug" json:"slug"`
	Name        string             `bson:"name" json:"name"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	GitURL      string             `bson:"git_url" json:"git_url"`
	Description string             `bson:"description" json:"description"`
	BundleCount int                `bson:"bundle_count" json:"bundle_count"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
