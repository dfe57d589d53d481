//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/rssai/pkg/utils"
)

// ONNXEmbedder runs a local sentence-embedding model through ONNX Runtime. The model must
// take input_ids, attention_mask and token_type_ids and emit a pooled "sentence_embedding"
// of the configured dimension. Requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

var ortInit struct {
	once sync.Once
	err  error
}

// NewONNXEmbedder creates an ONNX embedder. The runtime environment is initialized once per process.
// Wrap the result in a CachedEmbedder for query caching.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	ortInit.once.Do(func() { ortInit.err = ort.InitializeEnvironment() })
	if err := ortInit.err; err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	tokenizer := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", maxTokens)
	inputShape := ort.NewShape(1, int64(maxTokens))

	var created []ort.ArbitraryTensor
	fail := func(what string, err error) (*ONNXEmbedder, error) {
		destroyTensors(created...)
		return nil, fmt.Errorf("failed to create %s: %w", what, err)
	}
	inputIDsTensor, err := ort.NewTensor(inputShape, inputIDs)
	if err != nil {
		return fail("input_ids tensor", err)
	}
	created = append(created, inputIDsTensor)
	attentionMaskTensor, err := ort.NewTensor(inputShape, attentionMask)
	if err != nil {
		return fail("attention_mask tensor", err)
	}
	created = append(created, attentionMaskTensor)
	tokenTypeIDsTensor, err := ort.NewTensor(inputShape, tokenTypeIDs)
	if err != nil {
		return fail("token_type_ids tensor", err)
	}
	created = append(created, tokenTypeIDsTensor)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		return fail("output tensor", err)
	}
	created = append(created, outputTensor)

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"sentence_embedding"},
		created[:3],
		created[3:],
		nil,
	)
	if err != nil {
		return fail("ONNX session", err)
	}

	return &ONNXEmbedder{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

func destroyTensors(ts ...ort.ArbitraryTensor) {
	for _, t := range ts {
		_ = t.Destroy()
	}
}

// Embed runs one inference for text. The session is shared, so calls are serialized.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)

	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := e.outputTensor.GetData()
	embedding := make([]float32, e.dimensions)
	copy(embedding, outputData[:e.dimensions])

	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	destroyTensors(e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor, e.outputTensor)
	return err
}
