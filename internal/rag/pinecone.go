package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ashureev/interprep/internal/domain"
)

// Options configures the Pinecone retriever.
type Options struct {
	APIKey     string
	IndexName  string
	Namespace  string
	EmbedModel string
	TopK       int
}

// Pinecone implements Retriever against a Pinecone index. Queries are
// embedded with an OpenAI embedding model and filtered by the
// per-agent document type stored in vector metadata.
type Pinecone struct {
	index     *pinecone.IndexConnection
	embedder  embeddings.Embedder
	indexName string
	topK      int
	logger    *slog.Logger
}

// NewPinecone connects to the index and prepares the query embedder.
func NewPinecone(ctx context.Context, opts Options, logger *slog.Logger) (*Pinecone, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	idxDesc, err := pc.DescribeIndex(ctx, opts.IndexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %q: %w", opts.IndexName, err)
	}

	idxConn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: opts.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("create index connection: %w", err)
	}

	llm, err := openai.New(openai.WithEmbeddingModel(opts.EmbedModel))
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 3
	}

	return &Pinecone{
		index:     idxConn,
		embedder:  embedder,
		indexName: opts.IndexName,
		topK:      topK,
		logger:    logger,
	}, nil
}

// Search embeds the query and returns the closest snippets of the
// agent's document type.
func (p *Pinecone) Search(ctx context.Context, query string, agent domain.AgentKind, k int) ([]Snippet, error) {
	if k <= 0 {
		k = p.topK
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          vectors[0],
		TopK:            uint32(k),
		IncludeValues:   false,
		IncludeMetadata: true,
	}

	if docType := DocTypeFor(agent); docType != "" {
		filter, err := structpb.NewStruct(map[string]any{
			"type": map[string]any{"$eq": docType},
		})
		if err != nil {
			return nil, fmt.Errorf("build metadata filter: %w", err)
		}
		req.MetadataFilter = filter
	}

	result, err := p.index.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	var snippets []Snippet
	for _, match := range result.Matches {
		if match.Vector == nil || match.Vector.Metadata == nil {
			continue
		}
		metadata := match.Vector.Metadata.AsMap()
		text, _ := metadata["text"].(string)
		if text == "" {
			continue
		}
		topic, _ := metadata["topic"].(string)
		docType, _ := metadata["type"].(string)
		snippets = append(snippets, Snippet{
			Text:    text,
			Topic:   topic,
			Score:   match.Score,
			DocType: docType,
		})
	}

	p.logger.Debug("knowledge base queried",
		"agent", string(agent),
		"snippets", len(snippets))

	return snippets, nil
}

// Status reports index statistics.
func (p *Pinecone) Status(ctx context.Context) (*Status, error) {
	stats, err := p.index.DescribeIndexStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe index stats: %w", err)
	}
	return &Status{
		Enabled:     true,
		Index:       p.indexName,
		VectorCount: stats.TotalVectorCount,
		AgentTypes:  AgentDocTypes(),
	}, nil
}

// Enabled reports true.
func (p *Pinecone) Enabled() bool { return true }
