package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bundle types as found in each bundle's meta file.
const (
	BundleTypeTask    = "task"
	BundleTypeSLI     = "sli"
	BundleTypeTaskSet = "taskset"
)

// CodeBundle is one automation bundle inside a CodeCollection. Slug is the
// stable identifier used across the API, the vector store, and chat answers.
type CodeBundle struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug               string             `bson:"slug" json:"slug"`
	CodeCollectionSlug string             `bson:"codecollection_slug" json:"codecollection_slug"`
	Name               string             `bson:"name" json:"name"`
	DisplayName        string             `bson:"display_name" json:"display_name"`
	Type               string             `bson:"type" json:"type"`
	Platform           string             `bson:"platform,omitempty" json:"platform,omitempty"`
	SupportTags        []string           `bson:"support_tags,omitempty" json:"support_tags,omitempty"`
	Description        string             `bson:"description" json:"description"`
	Readme             string             `bson:"readme,omitempty" json:"readme,omitempty"`
	DocURL             string             `bson:"doc_url,omitempty" json:"doc_url,omitempty"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}
