package llm

import "context"

// TranscribeRequest is one page image sent to a vision-capable model.
type TranscribeRequest struct {
	Image    []byte
	MIMEType string // image/png or image/jpeg
	Prompt   string // empty uses VisionTranscriptionPrompt
}

// Transcription is a vision model's reading of a page.
type Transcription struct {
	Text string
	// Confidence is the model's self-reported score in [0,1]; only meaningful when Reported is true.
	Confidence float64
	Reported   bool
}

// VisionModel is one credential on a vision-capable provider.
type VisionModel interface {
	Name() string
	Transcribe(ctx context.Context, req TranscribeRequest) (Transcription, error)
}

// CompletionRequest is a single text-model task.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	JSON        bool // ask for a JSON object response
}

// TextModel is one credential on a text provider. Complete returns the raw
// message content; callers parse and validate it.
type TextModel interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) ([]byte, error)
}
