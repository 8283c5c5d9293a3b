package config

import "fmt"

// PipelineConfig tunes the question-answering pipeline.
type PipelineConfig struct {
	// RouterModel is the "provider:model" reference used for classification.
	RouterModel string `yaml:"router_model,omitempty" json:"router_model,omitempty"`

	// AnswerModel is the "provider:model" reference used for final prose.
	AnswerModel string `yaml:"answer_model,omitempty" json:"answer_model,omitempty"`

	// ResultLimitUI caps rows surfaced on the table channel.
	ResultLimitUI int `yaml:"result_limit_ui,omitempty" json:"result_limit_ui,omitempty"`

	// ResultLimitLLM caps rows rendered into the answerer prompt.
	ResultLimitLLM int `yaml:"result_limit_llm,omitempty" json:"result_limit_llm,omitempty"`

	// ContextTokenBudget caps tokens of retrieved/tabular context per prompt.
	ContextTokenBudget int `yaml:"context_token_budget,omitempty" json:"context_token_budget,omitempty"`

	// HybridEnabled wires the hybrid SQL+RAG path. When disabled the router
	// demotes hybrid decisions to sql.
	HybridEnabled bool `yaml:"hybrid_enabled,omitempty" json:"hybrid_enabled,omitempty"`
}

// SetDefaults applies default values.
func (c *PipelineConfig) SetDefaults() {
	if c.RouterModel == "" {
		c.RouterModel = "openai:gpt-4o-mini"
	}
	if c.AnswerModel == "" {
		c.AnswerModel = "openai:gpt-4o"
	}
	if c.ResultLimitUI == 0 {
		c.ResultLimitUI = 50
	}
	if c.ResultLimitLLM == 0 {
		c.ResultLimitLLM = 10
	}
	if c.ContextTokenBudget == 0 {
		c.ContextTokenBudget = 4000
	}
}

// Validate checks the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	if _, err := ParseModelRef(c.RouterModel); err != nil {
		return fmt.Errorf("router_model: %w", err)
	}
	if _, err := ParseModelRef(c.AnswerModel); err != nil {
		return fmt.Errorf("answer_model: %w", err)
	}
	if c.ResultLimitLLM > c.ResultLimitUI {
		return fmt.Errorf("result_limit_llm (%d) cannot exceed result_limit_ui (%d)", c.ResultLimitLLM, c.ResultLimitUI)
	}
	return nil
}
