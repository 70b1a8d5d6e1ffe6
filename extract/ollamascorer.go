package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	types "github.com/agent-api/core"
	"github.com/agent-api/core/agent"
	"github.com/agent-api/core/agent/bootstrap"
	"github.com/agent-api/ollama"
	"github.com/go-logr/logr"
)

// OllamaScorer scores prompts with a local vision-language model served by
// Ollama. Slower than a dedicated CLIP sidecar but needs no extra service
// beyond Ollama itself.
type OllamaScorer struct {
	Model   string
	BaseURL string
	Port    int
	Logger  *slog.Logger

	agent *agent.Agent
}

// NewOllamaScorer creates a scorer for the given model ID, e.g.
// "llama3.2-vision:11b".
func NewOllamaScorer(model string, logger *slog.Logger) *OllamaScorer {
	return &OllamaScorer{
		Model:   model,
		BaseURL: "http://localhost",
		Port:    11434,
		Logger:  logger,
	}
}

// Load sets up the Ollama provider and agent.
func (o *OllamaScorer) Load(ctx context.Context) error {
	logger := logr.FromSlogHandler(o.Logger.Handler())
	provider := ollama.NewProvider(&ollama.ProviderOpts{
		Logger:  &logger,
		BaseURL: o.BaseURL,
		Port:    o.Port,
	})
	provider.UseModel(ctx, &types.Model{ID: o.Model})

	a, err := agent.NewAgent(
		bootstrap.WithProvider(provider),
		bootstrap.WithLogger(&logger),
		bootstrap.WithSystemPrompt("You rate how well an image matches short descriptions. "+
			"Respond only with a JSON array of numbers between 0 and 1, one per description, "+
			"summing to 1 across all descriptions."),
	)
	if err != nil {
		return err
	}
	o.agent = a
	return nil
}

// ScorePrompts asks the model for a probability per prompt and parses the
// JSON array out of the reply.
func (o *OllamaScorer) ScorePrompts(ctx context.Context, imagePath string, prompts []string) ([]float64, error) {
	if o.agent == nil {
		return nil, fmt.Errorf("scorer not loaded")
	}

	var b strings.Builder
	b.WriteString("Rate how well this image matches each description:\n")
	for i, p := range prompts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	b.WriteString("Reply with only the JSON array of probabilities.")

	response, err := o.agent.Run(ctx,
		agent.WithInput(b.String()),
		agent.WithImagePath(imagePath),
	)
	if err != nil {
		return nil, fmt.Errorf("vision model call failed: %w", err)
	}
	if len(response.Messages) == 0 {
		return nil, fmt.Errorf("no response from vision model")
	}

	content := response.Messages[len(response.Messages)-1].Content
	scores, err := parseScoreArray(content, len(prompts))
	if err != nil {
		return nil, fmt.Errorf("unparseable vision model reply: %w", err)
	}
	return scores, nil
}

// parseScoreArray extracts the first JSON number array from free-form model
// output, tolerating surrounding prose and code fences.
func parseScoreArray(content string, want int) ([]float64, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var scores []float64
	if err := json.Unmarshal([]byte(content[start:end+1]), &scores); err != nil {
		return nil, err
	}
	if len(scores) != want {
		return nil, fmt.Errorf("expected %d scores, got %d", want, len(scores))
	}
	for _, s := range scores {
		if s < 0 {
			return nil, fmt.Errorf("negative score %v", s)
		}
	}
	return scores, nil
}
