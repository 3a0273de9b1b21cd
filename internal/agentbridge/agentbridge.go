// Package agentbridge implements AgentBridge: the single call surface
// for delegating a decision to an LLM, whether that LLM is acting as the
// buyer's inspection agent (Decide) or as a bot seller synthesizing
// an offer (GenerateBotOffer).
//
// Every call is a single tool-call-forced request against
// github.com/anthropics/anthropic-sdk-go: the expected response shape is
// expressed as a forced tool definition so the SDK's own JSON-schema
// validation rejects the obviously malformed replies before this package
// ever has to parse one. Validation failures this package itself catches
// (cross-field invariants the schema can't express) are re-prompted as a
// new user turn, bounded by agent_max_retries.
package agentbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/market/model"
)

// defaultMaxRetries is agent_max_retries' default.
const defaultMaxRetries = 4

// decideToolName is the forced tool the engine's agent call must invoke.
const decideToolName = "decide"

// botOfferToolName is the forced tool a bot-seller synthesis call must invoke.
const botOfferToolName = "submit_offer"

// Bridge is AgentBridge.
type Bridge struct {
	client       anthropic.Client
	defaultModel string
	maxRetries   int
	logger       *zap.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithMaxRetries overrides agent_max_retries.
func WithMaxRetries(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxRetries = n
		}
	}
}

// New constructs a Bridge. apiKey is the operator's own fallback credential,
// used when a caller supplies no per-call override.
func New(apiKey string, logger *zap.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		maxRetries: defaultMaxRetries,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DecideRequest is the rendered input to the inspection engine's agent
// call. ContextJSON/KnownInfoJSON/OffersJSON are pre-rendered
// by the inspection engine from the DecisionContext/InfoOffer trees — the
// bridge only formats them into the prompt, it never touches the Store.
type DecideRequest struct {
	Model           string
	APIKey          string // per-call override; empty uses the bridge's fallback key
	SystemPrompt    string
	ContextJSON     string
	KnownInfoJSON   string
	OffersJSON      string
	BudgetUsed      float64
	BudgetRemaining float64
	// OfferPrices maps each presented info_offer_id to its price. The keys
	// are the set chosen_offer_ids must be a subset of; the values back the
	// Σ price ≤ budget_remaining check.
	OfferPrices map[string]float64
}

// DecideReply is the parsed, schema-validated response to a DecideRequest.
// Exactly one of ChosenOfferIDs or FollowupQuery is populated — the
// decision is either a purchase or a follow-up, never both.
type DecideReply struct {
	ChosenOfferIDs         []string
	FollowupQuery          *string
	FollowupQueryBudget    float64
	FollowupHumanSellerIDs []string
	FollowupBotSellerIDs   []string
}

// BotOfferRequest is the rendered input to an LLM-backed bot seller's
// synthesis call.
type BotOfferRequest struct {
	Model        string
	APIKey       string // per-call override; empty uses the bridge's fallback key
	Prompt       string
	ContextQuery string
	ContextPages []string
	Priority     model.Priority
	MaxBudget    float64
}

// BotOfferReply is the parsed response to a BotOfferRequest.
type BotOfferReply struct {
	PrivateInfo string
	PublicInfo  string
	Price       float64
}

// decideSchema is the JSON schema backing the forced "decide" tool,
// expressing the purchase-or-followup decision shape.
var decideSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"chosen_offer_ids": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "offer ids to purchase; mutually exclusive with followup_query",
		},
		"followup_query": map[string]any{
			"type":        "string",
			"description": "a clarifying query to spawn as a child context; mutually exclusive with chosen_offer_ids",
		},
		"followup_query_budget": map[string]any{
			"type": "number",
		},
		"followup_query_human_seller_ids": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"followup_query_bot_seller_ids": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
}

var botOfferSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"private_info": map[string]any{"type": "string"},
		"public_info":  map[string]any{"type": "string"},
		"price":        map[string]any{"type": "number"},
	},
	"required": []string{"private_info", "price"},
}

// rawDecide is the wire shape the forced tool call is parsed into before
// cross-field validation.
type rawDecide struct {
	ChosenOfferIDs         []string `json:"chosen_offer_ids,omitempty"`
	FollowupQuery          *string  `json:"followup_query,omitempty"`
	FollowupQueryBudget    *float64 `json:"followup_query_budget,omitempty"`
	FollowupHumanSellerIDs []string `json:"followup_query_human_seller_ids,omitempty"`
	FollowupBotSellerIDs   []string `json:"followup_query_bot_seller_ids,omitempty"`
}

type rawBotOffer struct {
	PrivateInfo string  `json:"private_info"`
	PublicInfo  string  `json:"public_info"`
	Price       float64 `json:"price"`
}

// Decide issues the inspection engine's step-3 agent call, re-prompting on
// cross-field validation failure up to agent_max_retries times.
func (b *Bridge) Decide(ctx context.Context, req DecideRequest) (*DecideReply, error) {
	restore := b.scopeCredential(req.APIKey)
	defer restore()

	userPrompt := fmt.Sprintf(
		"DecisionContext:\n%s\n\nBudget already spent: %.2f\n\nPreviously purchased InfoOffers:\n%s\n\nInfoOffers:\n%s\n",
		req.ContextJSON, req.BudgetUsed, req.KnownInfoJSON, req.OffersJSON,
	)

	tool := anthropic.ToolParam{
		Name:        decideToolName,
		Description: anthropic.String("Record the decision: either purchase a subset of the offered info, or ask a narrower follow-up question."),
		InputSchema: toInputSchema(decideSchema),
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
	}

	for attempt := 0; attempt < b.maxRetries; attempt++ {
		raw, err := b.callTool(ctx, req.Model, req.SystemPrompt, messages, tool, decideToolName)
		if err != nil {
			return nil, &model.ErrAgent{Msg: fmt.Sprintf("agent call failed: %v", err)}
		}

		var rd rawDecide
		if err := json.Unmarshal(raw, &rd); err != nil {
			messages = appendCorrection(messages, raw, "the tool call arguments were not valid JSON for the decide schema")
			continue
		}

		reply, correction := validateDecide(rd, req.OfferPrices, req.BudgetRemaining)
		if correction != "" {
			messages = appendCorrection(messages, raw, correction)
			continue
		}
		return reply, nil
	}

	return nil, &model.ErrAgent{Msg: "agent did not produce a valid decision within agent_max_retries"}
}

// GenerateBotOffer issues an LLM-backed bot seller's synthesis call. Per
// the dispatcher's silent-failure policy, callers treat any returned error as
// "no offer" rather than surfacing it.
func (b *Bridge) GenerateBotOffer(ctx context.Context, req BotOfferRequest) (BotOfferReply, error) {
	restore := b.scopeCredential(req.APIKey)
	defer restore()

	userPrompt := fmt.Sprintf(
		"Buyer query: %s\nPages: %v\nPriority: %d\nMax budget: %.2f\n",
		req.ContextQuery, req.ContextPages, req.Priority, req.MaxBudget,
	)

	tool := anthropic.ToolParam{
		Name:        botOfferToolName,
		Description: anthropic.String("Submit the synthesized information offer."),
		InputSchema: toInputSchema(botOfferSchema),
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
	}

	for attempt := 0; attempt < b.maxRetries; attempt++ {
		raw, err := b.callTool(ctx, req.Model, req.Prompt, messages, tool, botOfferToolName)
		if err != nil {
			return BotOfferReply{}, &model.ErrAgent{Msg: fmt.Sprintf("agent call failed: %v", err)}
		}

		var rb rawBotOffer
		if err := json.Unmarshal(raw, &rb); err != nil {
			messages = appendCorrection(messages, raw, "the tool call arguments were not valid JSON for the offer schema")
			continue
		}
		if rb.PrivateInfo == "" {
			messages = appendCorrection(messages, raw, "private_info must not be empty")
			continue
		}
		if rb.Price < 0 {
			messages = appendCorrection(messages, raw, "price must not be negative")
			continue
		}
		return BotOfferReply{PrivateInfo: rb.PrivateInfo, PublicInfo: rb.PublicInfo, Price: rb.Price}, nil
	}

	return BotOfferReply{}, &model.ErrAgent{Msg: "bot seller agent did not produce a valid offer within agent_max_retries"}
}

// callTool issues one request with tool_choice forced to toolName and
// returns the raw JSON input the model supplied for that tool call.
func (b *Bridge) callTool(ctx context.Context, modelID, system string, messages []anthropic.MessageParam, tool anthropic.ToolParam, toolName string) (json.RawMessage, error) {
	if modelID == "" {
		modelID = b.defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		Messages:  messages,
		Tools:     []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolName},
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	for _, block := range msg.Content {
		if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok && tu.Name == toolName {
			return tu.Input, nil
		}
	}
	return nil, fmt.Errorf("model did not invoke the forced tool %q", toolName)
}

// scopeCredential sets the given API key on the bridge's client for the
// duration of one call, restoring the prior client afterward — the Go
// analogue of a scoped-credentials context manager
// that swaps the relevant environment variable in around
// a single LLM call rather than mutating global state permanently.
func (b *Bridge) scopeCredential(apiKey string) func() {
	if apiKey == "" {
		return func() {}
	}
	prev := b.client
	b.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	return func() { b.client = prev }
}

func appendCorrection(messages []anthropic.MessageParam, raw json.RawMessage, reason string) []anthropic.MessageParam {
	messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(string(raw))))
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(
		fmt.Sprintf("Invalid response: %s. Please call the tool again with a corrected argument set.", reason),
	)))
	return messages
}

func validateDecide(rd rawDecide, prices map[string]float64, budgetRemaining float64) (*DecideReply, string) {
	hasChosen := len(rd.ChosenOfferIDs) > 0
	hasFollowup := rd.FollowupQuery != nil

	if !hasChosen && !hasFollowup {
		return nil, "exactly one of chosen_offer_ids or followup_query must be provided, got neither"
	}
	if hasChosen && hasFollowup {
		return nil, "exactly one of chosen_offer_ids or followup_query must be provided, got both"
	}

	if hasChosen {
		var total float64
		for _, id := range rd.ChosenOfferIDs {
			price, ok := prices[id]
			if !ok {
				return nil, fmt.Sprintf("chosen_offer_ids must be a subset of the offered info_offer_ids, got unknown id %q", id)
			}
			total += price
		}
		if total > budgetRemaining {
			return nil, fmt.Sprintf("the chosen offers cost %.2f in total, which exceeds the remaining budget %.2f", total, budgetRemaining)
		}
		return &DecideReply{ChosenOfferIDs: rd.ChosenOfferIDs}, ""
	}

	if rd.FollowupQueryBudget == nil {
		return nil, "followup_query_budget must be provided when followup_query is provided"
	}
	if *rd.FollowupQueryBudget < 0 || *rd.FollowupQueryBudget > budgetRemaining {
		return nil, fmt.Sprintf("followup_query_budget must be between 0 and %.2f", budgetRemaining)
	}
	return &DecideReply{
		FollowupQuery:          rd.FollowupQuery,
		FollowupQueryBudget:    *rd.FollowupQueryBudget,
		FollowupHumanSellerIDs: rd.FollowupHumanSellerIDs,
		FollowupBotSellerIDs:   rd.FollowupBotSellerIDs,
	}, ""
}

func toInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	props, _ := schema["properties"].(map[string]any)
	return anthropic.ToolInputSchemaParam{
		Properties: props,
	}
}
