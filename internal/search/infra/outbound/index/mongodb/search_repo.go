package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	searchDomain "github.com/davicafu/minicommerce/internal/search/domain"
)

// SearchRepoMongoDB implementa SearchRepository sobre MongoDB.
// El _id del documento es el orderId: reindexar es un replace-upsert y por
// tanto idempotente frente a reentregas.
type SearchRepoMongoDB struct {
	coll *mongo.Collection
}

// NewSearchRepoMongoDB es el constructor del repositorio.
func NewSearchRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*SearchRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	return &SearchRepoMongoDB{
		coll: client.Database(dbName).Collection("orders"),
	}, nil
}

var _ searchDomain.SearchRepository = (*SearchRepoMongoDB)(nil)

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoOrderDocument struct {
	OrderID       string    `bson:"_id"`
	SkuID         int64     `bson:"skuId"`
	Quantity      int       `bson:"quantity"`
	UserID        int64     `bson:"userId"`
	Status        string    `bson:"status"`
	CorrelationID string    `bson:"correlationId,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func toMongoDocument(d searchDomain.OrderDocument) mongoOrderDocument {
	return mongoOrderDocument{
		OrderID:       d.OrderID,
		SkuID:         d.SkuID,
		Quantity:      d.Quantity,
		UserID:        d.UserID,
		Status:        d.Status,
		CorrelationID: d.CorrelationID,
		CreatedAt:     d.CreatedAt,
	}
}

func fromMongoDocument(m mongoOrderDocument) searchDomain.OrderDocument {
	return searchDomain.OrderDocument{
		OrderID:       m.OrderID,
		SkuID:         m.SkuID,
		Quantity:      m.Quantity,
		UserID:        m.UserID,
		Status:        m.Status,
		CorrelationID: m.CorrelationID,
		CreatedAt:     m.CreatedAt,
	}
}

// BulkUpsert guarda el lote en una sola operación BulkWrite.
func (r *SearchRepoMongoDB) BulkUpsert(ctx context.Context, docs []searchDomain.OrderDocument) error {
	if len(docs) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(docs))
	for _, d := range docs {
		md := toMongoDocument(d)
		models = append(models,
			mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": md.OrderID}).
				SetReplacement(md).
				SetUpsert(true),
		)
	}

	// Unordered: un fallo individual no bloquea al resto del lote.
	_, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk upsert failed: %w", err)
	}
	return nil
}

// Find aplica el filtro como igualdades exactas.
func (r *SearchRepoMongoDB) Find(ctx context.Context, f searchDomain.Filter) ([]searchDomain.OrderDocument, error) {
	filter := bson.M{}
	if f.UserID != nil {
		filter["userId"] = *f.UserID
	}
	if f.SkuID != nil {
		filter["skuId"] = *f.SkuID
	}
	if f.CorrelationID != nil {
		filter["correlationId"] = *f.CorrelationID
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []mongoOrderDocument
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	docs := make([]searchDomain.OrderDocument, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, fromMongoDocument(m))
	}
	return docs, nil
}
