package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/failover"
	"github.com/joseph-ayodele/contracts-analyzer/internal/llm"
)

// VisionTranscriber sends the page to an ordered list of vision credentials.
type VisionTranscriber struct {
	chain             *failover.Chain[llm.TranscribeRequest, llm.Transcription]
	defaultConfidence float64
	logger            *slog.Logger
}

// NewVisionTranscriber builds the vision failover chain. defaultConfidence is
// used when a model does not report one.
func NewVisionTranscriber(models []llm.VisionModel, opts failover.Options, defaultConfidence float64, logger *slog.Logger) *VisionTranscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Capability == "" {
		opts.Capability = "vision"
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	providers := make([]failover.Provider[llm.TranscribeRequest, llm.Transcription], 0, len(models))
	for _, m := range models {
		providers = append(providers, visionProvider{m})
	}
	return &VisionTranscriber{
		chain:             failover.New(providers, opts),
		defaultConfidence: clamp01(defaultConfidence),
		logger:            logger,
	}
}

// Transcribe returns the first successful transcription. Exhausting every
// credential yields an error matching common.ErrProviderExhausted.
func (v *VisionTranscriber) Transcribe(ctx context.Context, page PageInput) (Transcription, error) {
	res, provider, err := v.chain.Run(ctx, llm.TranscribeRequest{
		Image:    page.Raw,
		MIMEType: page.MIMEType,
		Prompt:   llm.VisionTranscriptionPrompt,
	})
	if err != nil {
		return Transcription{}, err
	}
	conf := v.defaultConfidence
	if res.Reported {
		conf = clamp01(res.Confidence)
	}
	return Transcription{
		Text:       res.Text,
		Confidence: conf,
		Source:     constants.SourceVision,
		Provider:   provider,
	}, nil
}

type visionProvider struct {
	model llm.VisionModel
}

func (p visionProvider) Name() string {
	return p.model.Name()
}

// Attempt treats an empty transcription as a transient failure so the chain
// retries or fails over.
func (p visionProvider) Attempt(ctx context.Context, req llm.TranscribeRequest) (llm.Transcription, error) {
	res, err := p.model.Transcribe(ctx, req)
	if err != nil {
		return llm.Transcription{}, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return llm.Transcription{}, llm.NewProviderError(p.model.Name(), llm.FailureTransient, 0, llm.ErrEmptyResponse)
	}
	return res, nil
}
