// Package agents implements the model-backed analysis stages and their
// execution contract: a prompt goes out, a schema-validated result comes
// back. When the provider fails or its output does not satisfy the stage
// schema, a deterministic fallback is constructed instead; the returned
// error reports the fault kind but the returned value is always usable.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/utils"
)

// stage binds a schema type to its prompt, defaults, and generation budget.
type stage[T any] struct {
	name         string
	systemPrompt string
	provider     llm.Provider
	validate     *validator.Validate
	defaults     func() T
	temperature  float32
	maxTokens    int
	logger       *slog.Logger
}

func newStage[T any](name string, provider llm.Provider, logger *slog.Logger, systemPrompt string, defaults func() T, temperature float32, maxTokens int) *stage[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &stage[T]{
		name:         name,
		systemPrompt: systemPrompt,
		provider:     provider,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		defaults:     defaults,
		temperature:  llm.ClampTemperature(temperature),
		maxTokens:    maxTokens,
		logger:       logger,
	}
}

// execute runs the stage. The returned value is always structurally valid
// for the caller to use; a non-nil error carries the fault kind explaining
// why a fallback was substituted.
func (s *stage[T]) execute(ctx context.Context, instruction string, contextObj any) (T, error) {
	messages := []llm.Message{{Role: "user", Content: buildPrompt(instruction, contextObj)}}

	raw, err := s.provider.GenerateJSON(ctx, messages, s.systemPrompt, s.temperature, s.maxTokens)
	if err != nil {
		s.logger.Warn("stage generation failed, using fallback",
			slog.String("stage", s.name), slog.String("kind", string(utils.KindOf(err))), slog.Any("error", err))
		return s.defaults(), err
	}

	var direct T
	if unmarshalErr := json.Unmarshal(raw, &direct); unmarshalErr == nil {
		if s.validate.Struct(direct) == nil {
			return direct, nil
		}
	}

	// Merge the partially valid response over per-field empty defaults and
	// re-validate. The merge pass keeps the response when the only failures
	// are top-level scalars left at their empty default; nested content and
	// structural constraints must still hold.
	merged := s.defaults()
	_ = json.Unmarshal(raw, &merged)
	validationErr := utils.NewFault("agents."+s.name, utils.KindValidation,
		errors.New("stage output failed schema validation"))
	if mergeErr := s.validate.Struct(merged); mergeErr == nil || scalarsOnlyMissing(mergeErr) {
		s.logger.Warn("stage output repaired from defaults", slog.String("stage", s.name))
		return merged, validationErr
	}

	// Terminal fallback: defaults only, intentionally unvalidated. Always
	// succeeds because every required field has an enumerable empty value.
	s.logger.Warn("stage output unusable, returning defaults", slog.String("stage", s.name))
	return s.defaults(), validationErr
}

// scalarsOnlyMissing reports whether every validation failure is a required
// top-level string field. Those are the fields the defaults fill with an
// empty value; after unmarshalling there is no way to tell an absent key from
// an empty string, so emptiness alone must not discard the rest of the
// response. Nested fields and non-string constraints still disqualify.
func scalarsOnlyMissing(err error) bool {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return false
	}
	for _, fe := range fieldErrs {
		if fe.Tag() != "required" || fe.Kind() != reflect.String {
			return false
		}
		if strings.Count(fe.StructNamespace(), ".") != 1 {
			return false
		}
	}
	return true
}

func buildPrompt(instruction string, contextObj any) string {
	if contextObj == nil {
		return instruction
	}
	serialized, err := json.MarshalIndent(contextObj, "", "  ")
	if err != nil {
		return instruction
	}
	return "Context:\n" + string(serialized) + "\n\nTask:\n" + instruction
}
