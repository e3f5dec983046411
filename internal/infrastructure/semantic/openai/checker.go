// Package openai provides a SemanticChecker implementation using OpenAI.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
)

const contradictionPrompt = `You are a canon consistency checker for a fictional world. Compare the
candidate entity's claims against the established claims below and report contradictions.

Candidate entity claims:
%s

Established claims:
%s

For each contradiction found, return:
- new_claim_index: Index of the conflicting candidate claim (0-based)
- existing_claim_index: Index of the contradicted established claim (0-based)
- contradiction: One sentence describing the conflict
- severity: "info", "warning", or "critical" (critical = the two claims cannot both be true)

Return ONLY a valid JSON array, no other text. Return empty array [] if no contradictions found.`

// Checker implements the SemanticChecker interface using OpenAI.
type Checker struct {
	client *openai.Client
	model  string
}

// NewChecker creates a new OpenAI semantic checker.
func NewChecker(cfg config.LLMConfig) (*Checker, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	client := openai.NewClient(cfg.APIKey)

	model := "gpt-4o-mini"
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Checker{
		client: client,
		model:  model,
	}, nil
}

// CheckClaims asks the model to compare candidate claims with the related
// established claims. Malformed model output is an error; the consistency
// engine downgrades it to advisory.
func (c *Checker) CheckClaims(ctx context.Context, candidate *entities.Entity, related []ports.StoredClaim) ([]entities.Contradiction, error) {
	if len(candidate.Claims) == 0 || len(related) == 0 {
		return nil, nil
	}

	candidateJSON, err := json.Marshal(claimTexts(candidate.Claims))
	if err != nil {
		return nil, fmt.Errorf("marshaling candidate claims: %w", err)
	}
	relatedJSON, err := json.Marshal(relatedTexts(related))
	if err != nil {
		return nil, fmt.Errorf("marshaling related claims: %w", err)
	}

	prompt := fmt.Sprintf(contradictionPrompt, string(candidateJSON), string(relatedJSON))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("calling OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	content := cleanJSONResponse(resp.Choices[0].Message.Content)

	var raw []rawContradiction
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parsing contradictions JSON: %w (response: %s)", err, content)
	}

	contradictions := make([]entities.Contradiction, 0, len(raw))
	for _, rc := range raw {
		if rc.NewClaimIndex < 0 || rc.NewClaimIndex >= len(candidate.Claims) {
			continue
		}
		if rc.ExistingClaimIndex < 0 || rc.ExistingClaimIndex >= len(related) {
			continue
		}
		severity := entities.Severity(rc.Severity)
		if !severity.IsValid() {
			severity = entities.SeverityWarning
		}

		contradictions = append(contradictions, entities.Contradiction{
			Description:    rc.Description,
			Severity:       severity,
			NewClaim:       candidate.Claims[rc.NewClaimIndex].Text,
			ExistingClaim:  related[rc.ExistingClaimIndex].Claim.Text,
			SourceEntityID: related[rc.ExistingClaimIndex].EntityID,
		})
	}

	return contradictions, nil
}

// rawContradiction is the JSON structure the model returns.
type rawContradiction struct {
	NewClaimIndex      int    `json:"new_claim_index"`
	ExistingClaimIndex int    `json:"existing_claim_index"`
	Description        string `json:"contradiction"`
	Severity           string `json:"severity"`
}

func claimTexts(claims []entities.Claim) []string {
	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}
	return texts
}

func relatedTexts(related []ports.StoredClaim) []string {
	texts := make([]string, len(related))
	for i, r := range related {
		texts[i] = fmt.Sprintf("[%s] %s", r.EntityName, r.Claim.Text)
	}
	return texts
}

// cleanJSONResponse removes markdown code blocks if present.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}
