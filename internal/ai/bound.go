package ai

import "context"

// BoundEmbedder is a Client pinned to one embedding model. The knowledge
// base records this identity in every index it builds, which is what lets it
// reject cross-model searches.
type BoundEmbedder struct {
	client *Client
	cfg    EmbeddingConfig
}

func NewBoundEmbedder(client *Client, cfg EmbeddingConfig) *BoundEmbedder {
	return &BoundEmbedder{client: client, cfg: cfg}
}

func (e *BoundEmbedder) Model() string { return e.cfg.Model }

func (e *BoundEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.cfg, text)
}

func (e *BoundEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.EmbedBatch(ctx, e.cfg, texts)
}

// BoundGenerator is a Client pinned to one chat model, exposed as the
// single-shot generative step the synthesizer needs.
type BoundGenerator struct {
	client *Client
	cfg    ChatConfig
}

func NewBoundGenerator(client *Client, cfg ChatConfig) *BoundGenerator {
	return &BoundGenerator{client: client, cfg: cfg}
}

func (g *BoundGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	messages := []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	return g.client.Complete(ctx, g.cfg, messages)
}
