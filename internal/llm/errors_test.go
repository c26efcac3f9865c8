package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   FailureKind
	}{
		{429, FailureRateLimited},
		{401, FailureRateLimited},
		{403, FailureRateLimited},
		{408, FailureTransient},
		{409, FailureTransient},
		{500, FailureTransient},
		{502, FailureTransient},
		{503, FailureTransient},
		{400, FailureFatal},
		{404, FailureFatal},
		{413, FailureFatal},
		{422, FailureFatal},
		{0, FailureTransient},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.status); got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureNone},
		{"provider error keeps kind", NewProviderError("openai", FailureFatal, 400, errors.New("rate limit")), FailureFatal},
		{"rate limited sentinel", fmt.Errorf("call: %w", common.ErrRateLimited), FailureRateLimited},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), FailureTransient},
		{"eof", io.EOF, FailureTransient},
		{"wrapped unexpected eof", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), FailureTransient},
		{"malformed output", Malformed("openai", errors.New("bad json")), FailureTransient},
		{"status text", errors.New("error, status code: 429"), FailureRateLimited},
		{"rate limit text", errors.New("Rate limit reached for gpt-4o"), FailureRateLimited},
		{"rate-limited text", errors.New("request was rate-limited"), FailureRateLimited},
		{"quota text", errors.New("You exceeded your current quota"), FailureRateLimited},
		{"timeout text", errors.New("net/http: request canceled (Client.Timeout exceeded)"), FailureTransient},
		{"reset text", errors.New("read tcp: connection reset by peer"), FailureTransient},
		{"unexpected eof text", errors.New("stream ended: unexpected EOF"), FailureTransient},
		{"word containing eof", errors.New("the clause thereof is invalid"), FailureFatal},
		{"number containing 429", errors.New("model supports 4290 tokens"), FailureFatal},
		{"plain bad request", errors.New("invalid model id"), FailureFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
