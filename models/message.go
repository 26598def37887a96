package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one stored assistant exchange.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	Question       string             `bson:"question" json:"question"`
	Answer         string             `bson:"answer" json:"answer"`
	ResultSlugs    []string           `bson:"result_slugs,omitempty" json:"result_slugs,omitempty"`
	Degraded       bool               `bson:"degraded" json:"degraded"`
	NoMatch        bool               `bson:"no_match" json:"no_match"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}
