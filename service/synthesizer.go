package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"contractrules-backend/llm"
	"contractrules-backend/models"
)

// InferredRulePenalty discounts the confidence of rules the model inferred
// from general context rather than from a concrete royalty entity. Inferred
// rules are never auto-activated.
const InferredRulePenalty = 0.8

// royaltyTypeHints mark an entity as royalty/payment-bearing when its open
// type string contains one of them.
var royaltyTypeHints = []string{"royalty", "payment", "fee", "rate", "compensation", "remuneration"}

const formulaVocabulary = `Formula node types (use ONLY these):
- {"type": "percentage", "rate": number, "base": "grossRevenue"|"netRevenue"|"units"}
- {"type": "fixed", "amount": number, "currency": string}
- {"type": "tier", "tiers": [{"min": number, "max": number|null, "rate": number}]}
- {"type": "conditional", "condition": {"field": string, "operator": "gt"|"gte"|"lt"|"lte"|"eq", "value": number}, "trueFormula": node, "falseFormula": node}
- {"type": "arithmetic", "operator": "add"|"subtract"|"multiply"|"divide", "operands": [node, node, ...]}
- {"type": "minimum", "amount": number}
- {"type": "maximum", "amount": number}`

const synthesisPrompt = `You are a royalty-rule synthesis engine. Convert the contract entity below into a calculation rule with a formula expression tree.

%s

Return STRICT JSON:
{"ruleType": string, "ruleName": string, "description": string, "formulaDefinition": node, "applicabilityFilters": object, "confidence": number}

"ruleType" is one of: percentage, tiered, minimum_guarantee, cap, deduction, fixed_fee.
"applicabilityFilters" restricts where the rule applies (e.g. {"territory": "EU", "productCategory": "Digital"}); use {} when it applies everywhere.
"confidence" is between 0 and 1.

ENTITY:
%s`

const inferencePrompt = `No explicit royalty or payment entities were found in this contract. Infer the plausible royalty-calculation rules from the general context below. Be conservative: only infer rules the text genuinely supports.

%s

Return STRICT JSON:
{"rules": [{"ruleType": string, "ruleName": string, "description": string, "formulaDefinition": node, "applicabilityFilters": object, "confidence": number}]}

CONTRACT CONTEXT:
%s`

// synthesisResponse matches the per-entity LLM output contract.
type synthesisResponse struct {
	RuleType             string             `json:"ruleType"`
	RuleName             string             `json:"ruleName"`
	Description          string             `json:"description"`
	FormulaDefinition    models.FormulaNode `json:"formulaDefinition"`
	ApplicabilityFilters models.Properties  `json:"applicabilityFilters"`
	Confidence           float64            `json:"confidence"`
}

// SynthesisResult carries the synthesized rules plus non-fatal warnings.
type SynthesisResult struct {
	Rules    []*models.SynthesizedRule
	Inferred bool
	Warnings []string
}

// Synthesizer converts royalty-bearing graph entities into FormulaNode rule
// trees via per-entity LLM calls.
type Synthesizer struct {
	client llm.Client
}

// NewSynthesizer creates a new rule synthesizer
func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize builds one rule per royalty-like entity. When no entity looks
// royalty-related, a fallback pass asks the model to infer plausible rules
// from general context; every inferred rule is confidence-discounted and
// flagged so it is queued for review instead of auto-activating.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	runID uuid.UUID,
	contractID uuid.UUID,
	extraction *models.ExtractionResult,
	nodesByLabel map[string]uuid.UUID,
	contractText string,
) (*SynthesisResult, error) {
	result := &SynthesisResult{}

	var candidates []models.ExtractedEntity
	for _, entity := range extraction.Entities {
		if isRoyaltyCandidate(entity) {
			candidates = append(candidates, entity)
		}
	}

	if len(candidates) == 0 {
		log.WithField("run_id", runID).Info("no royalty-like entities found, falling back to contextual inference")
		rules, warnings, err := s.inferRules(ctx, runID, contractID, extraction, contractText)
		if err != nil {
			return nil, err
		}
		result.Rules = rules
		result.Inferred = true
		result.Warnings = warnings
		return result, nil
	}

	for _, entity := range candidates {
		rule, err := s.synthesizeEntity(ctx, runID, contractID, entity, nodesByLabel)
		if err != nil {
			msg := fmt.Sprintf("rule synthesis failed for entity %q: %v", entity.Label, err)
			log.WithField("run_id", runID).Warn(msg)
			result.Warnings = append(result.Warnings, msg)
			continue
		}
		result.Rules = append(result.Rules, rule)
	}

	return result, nil
}

func (s *Synthesizer) synthesizeEntity(
	ctx context.Context,
	runID uuid.UUID,
	contractID uuid.UUID,
	entity models.ExtractedEntity,
	nodesByLabel map[string]uuid.UUID,
) (*models.SynthesizedRule, error) {
	entityJSON, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}

	prompt := fmt.Sprintf(synthesisPrompt, formulaVocabulary, string(entityJSON))

	raw, err := s.client.Complete(ctx, prompt, 0.1)
	if err != nil {
		return nil, fmt.Errorf("synthesis call failed: %w", err)
	}

	parsed, err := parseSynthesisResponse(raw)
	if err != nil {
		return nil, err
	}

	rule := responseToRule(parsed, runID, contractID, false)
	if nodeID, ok := nodesByLabel[strings.TrimSpace(entity.Label)]; ok {
		rule.GraphNodeID = &nodeID
	}
	return rule, nil
}

// inferRules is the zero-candidate fallback: one call over the whole
// contract context, with every returned rule discounted and flagged.
func (s *Synthesizer) inferRules(
	ctx context.Context,
	runID uuid.UUID,
	contractID uuid.UUID,
	extraction *models.ExtractionResult,
	contractText string,
) ([]*models.SynthesizedRule, []string, error) {
	extractionJSON, _ := json.Marshal(extraction)
	contextText := fmt.Sprintf("EXTRACTED CONTEXT:\n%s\n\nTEXT:\n%s",
		string(extractionJSON), truncate(contractText, MaxExtractionChars))

	prompt := fmt.Sprintf(inferencePrompt, formulaVocabulary, contextText)

	raw, err := s.client.Complete(ctx, prompt, 0.2)
	if err != nil {
		return nil, nil, fmt.Errorf("rule inference call failed: %w", err)
	}

	jsonStr, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("rule inference returned no JSON: %w", err)
	}

	var payload struct {
		Rules []synthesisResponse `json:"rules"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, nil, fmt.Errorf("unparsable rule inference JSON: %w", err)
	}

	var rules []*models.SynthesizedRule
	var warnings []string
	for i, parsed := range payload.Rules {
		if err := parsed.FormulaDefinition.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("inferred rule %d rejected: %v", i, err))
			continue
		}
		rule := responseToRule(&parsed, runID, contractID, true)
		rules = append(rules, rule)
	}
	return rules, warnings, nil
}

func parseSynthesisResponse(raw string) (*synthesisResponse, error) {
	jsonStr, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("synthesis returned no JSON: %w", err)
	}

	var parsed synthesisResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("unparsable synthesis JSON: %w", err)
	}
	if err := parsed.FormulaDefinition.Validate(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func responseToRule(parsed *synthesisResponse, runID, contractID uuid.UUID, inferred bool) *models.SynthesizedRule {
	confidence := clamp01(parsed.Confidence)
	if inferred {
		confidence = clamp01(confidence * InferredRulePenalty)
	}

	return &models.SynthesizedRule{
		ID:                   uuid.New(),
		RunID:                runID,
		ContractID:           contractID,
		RuleType:             parsed.RuleType,
		Name:                 parsed.RuleName,
		Description:          parsed.Description,
		Formula:              parsed.FormulaDefinition,
		ApplicabilityFilters: parsed.ApplicabilityFilters,
		Confidence:           confidence,
		ValidationStatus:     models.ValidationPending,
		IsInferred:           inferred,
		IsActive:             false,
	}
}

// isRoyaltyCandidate reports whether an entity looks royalty/payment
// related: a type-substring match or the presence of a rate/percentage
// property.
func isRoyaltyCandidate(entity models.ExtractedEntity) bool {
	entityType := strings.ToLower(entity.Type)
	for _, hint := range royaltyTypeHints {
		if strings.Contains(entityType, hint) {
			return true
		}
	}
	for key := range entity.Properties {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "rate") || strings.Contains(lower, "percentage") {
			return true
		}
	}
	return false
}
