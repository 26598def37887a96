package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	if err := createIndexes(client, cfg.DBName); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	codeBundles := db.Collection("codebundles")
	bundleIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "codecollection_slug", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "platform", Value: 1}},
		},
	}
	if _, err := codeBundles.Indexes().CreateMany(context.Background(), bundleIndexes); err != nil {
		return err
	}

	codeCollections := db.Collection("codecollections")
	collectionIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := codeCollections.Indexes().CreateMany(context.Background(), collectionIndexes); err != nil {
		return err
	}

	libraries := db.Collection("libraries")
	libraryIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := libraries.Indexes().CreateMany(context.Background(), libraryIndexes); err != nil {
		return err
	}

	docPages := db.Collection("doc_pages")
	pageIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "fetched_at", Value: -1}},
		},
	}
	if _, err := docPages.Indexes().CreateMany(context.Background(), pageIndexes); err != nil {
		return err
	}

	messages := db.Collection("messages")
	messageIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
	}
	if _, err := messages.Indexes().CreateMany(context.Background(), messageIndexes); err != nil {
		return err
	}

	return nil
}
