package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"PrepBot/backend/go/internal/database/milvus"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
	"PrepBot/backend/go/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// Schema fields for the Milvus collection.
	FieldID        = "id"
	FieldOrdinal   = "ordinal"
	FieldEmbedding = "embedding"

	idMaxLength = 64

	// Milvus orders equal scores arbitrarily. Fetching extra candidates lets
	// sortHits restore ordinal order for ties that straddle the k-th hit.
	searchMargin  = 16
	maxSearchTopK = 16384
)

// searchLimit is the topK sent to Milvus for a request of k hits.
func searchLimit(k int) int {
	limit := k + searchMargin
	if limit > maxSearchTopK {
		limit = maxSearchTopK
	}
	if limit < k {
		limit = k
	}
	return limit
}

// Schema returns the collection schema for segments of the given dimension.
func Schema(dim int) *entity.Schema {
	return entity.NewSchema().
		WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).WithMaxLength(idMaxLength)).
		WithField(entity.NewField().WithName(FieldOrdinal).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)))
}

// MilvusStore is an adapter for the existing Milvus client to implement the VectorStore interface.
// Only IDs and ordinals are stored next to the vectors; text lives in the DocStore.
type MilvusStore struct {
	log    *logger.Logger
	client client.Client
	mc     *milvus.MilvusClient
}

// NewMilvusStore creates a new MilvusStore and makes sure the collection
// exists, is indexed and is loaded.
func NewMilvusStore(ctx context.Context, milvusClient *milvus.MilvusClient, dim int, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("milvus store needs a positive dimension, got %d", dim)
	}
	if err := milvusClient.EnsureCollection(ctx, Schema(dim), FieldEmbedding); err != nil {
		return nil, err
	}
	return &MilvusStore{
		log:    log.WithField("collection", milvusClient.Config.CollectionName),
		client: milvusClient.Client,
		mc:     milvusClient,
	}, nil
}

func (s *MilvusStore) collection() string {
	return s.mc.Config.CollectionName
}

// Add inserts a list of documents into the Milvus collection and flushes it
// so the rows are searchable.
func (s *MilvusStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	ordinals := make([]int64, len(docs))
	embeddings := make([][]float32, len(docs))
	dim := len(docs[0].Embedding)
	for i, doc := range docs {
		if len(doc.Embedding) != dim {
			return fmt.Errorf("document %s has dimension %d, want %d", doc.ID, len(doc.Embedding), dim)
		}
		ids[i] = doc.ID
		ordinals[i] = int64(doc.Ordinal)
		embeddings[i] = doc.Embedding
	}

	idCol := entity.NewColumnVarChar(FieldID, ids)
	ordinalCol := entity.NewColumnInt64(FieldOrdinal, ordinals)
	embeddingCol := entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings)

	s.log.Info(fmt.Sprintf("Inserting %d documents into Milvus", len(docs)))
	if _, err := s.client.Insert(ctx, s.collection(), "", idCol, ordinalCol, embeddingCol); err != nil {
		return fmt.Errorf("failed to insert data into Milvus: %w", err)
	}
	return s.mc.FlushCollection(ctx)
}

// Search performs an L2 vector search. Milvus does not order equal distances,
// so hits are re-sorted by (distance, ordinal).
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, k int) ([]schema.ScoredDocument, error) {
	if k <= 0 {
		return []schema.ScoredDocument{}, nil
	}
	sp, err := s.mc.SearchParam()
	if err != nil {
		return nil, err
	}

	results, err := s.client.Search(
		ctx, s.collection(), []string{}, "", []string{FieldID, FieldOrdinal},
		[]entity.Vector{entity.FloatVector(embedding)},
		FieldEmbedding, entity.L2, searchLimit(k), sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var hits []schema.ScoredDocument
	for _, res := range results {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := findColumn(FieldID).(*entity.ColumnVarChar)
		if !ok {
			return nil, fmt.Errorf("search result is missing the %s field", FieldID)
		}
		ordinalCol, ok := findColumn(FieldOrdinal).(*entity.ColumnInt64)
		if !ok {
			return nil, fmt.Errorf("search result is missing the %s field", FieldOrdinal)
		}
		idData, ordinalData := idCol.Data(), ordinalCol.Data()

		for i := 0; i < res.ResultCount; i++ {
			hits = append(hits, schema.ScoredDocument{
				Document: &schema.Document{ID: idData[i], Ordinal: int(ordinalData[i])},
				Distance: res.Scores[i],
			})
		}
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the row count reported by the collection statistics.
func (s *MilvusStore) Count(ctx context.Context) (int, error) {
	stats, err := s.client.GetCollectionStatistics(ctx, s.collection())
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("unexpected row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
