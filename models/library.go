package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Library is a shared keyword/helper library that bundles import.
type Library struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug        string             `bson:"slug" json:"slug"`
	Name        string             `bson:"name" json:"name"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Description string             `bson:"description" json:"description"`
	Keywords    []string           `bson:"keywords,omitempty" json:"keywords,omitempty"`
	RepoURL     string             `bson:"repo_url,omitempty" json:"repo_url,omitempty"`
}
