// Package generate produces synthetic field data and human-readable labels
// for PDF form templates by prompting a model client.
package generate

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/daniel/formsynth/internal/match"
	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/prompts"
	"github.com/daniel/formsynth/internal/recovery"
	"github.com/daniel/formsynth/internal/types"
)

const (
	// chunkThreshold is the typed-field count above which generation is
	// split into multiple model calls.
	chunkThreshold = 200
	// chunkSize is the number of fields per chunked call.
	chunkSize = 150

	dataMaxTokens   = 16000
	labelMaxTokens  = 12000
	dataTemperature = 1.0
	labelTemp       = 0.1
)

// Request describes one synthetic data generation run.
type Request struct {
	Mapping types.FieldMapping
	Labels  types.Labels
	// Persona, when non-empty, is injected into the prompt so identity
	// fields stay consistent across samples of the same variant.
	Persona types.Persona
	// StrictFieldNames appends an instruction requiring field_name values
	// to match the mapping keys exactly. Used during regeneration after
	// label correction.
	StrictFieldNames bool
}

// Result is a generated record plus the response keys that could not be
// matched to any known field.
type Result struct {
	Record   types.Record
	Warnings []string
}

// Generator drives synthetic data and label generation against a model
// client for one document type.
type Generator struct {
	client       oracle.Client
	documentType string
}

// NewGenerator creates a Generator for the given document type.
func NewGenerator(client oracle.Client, documentType string) *Generator {
	return &Generator{client: client, documentType: documentType}
}

// Generate produces one synthetic record covering every typed field in the
// mapping. Forms with more typed fields than chunkThreshold are generated in
// chunks of chunkSize fields, one model call per chunk, and merged.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	if req.Mapping.TypedFieldCount() > chunkThreshold {
		return g.generateChunked(ctx, req)
	}

	prompt, err := g.buildDataPrompt(req)
	if err != nil {
		return Result{}, err
	}
	return g.generateSingle(ctx, prompt)
}

func (g *Generator) generateChunked(ctx context.Context, req Request) (Result, error) {
	fields := req.Mapping.TypedFields()
	var chunks [][]string
	for start := 0; start < len(fields); start += chunkSize {
		end := start + chunkSize
		if end > len(fields) {
			end = len(fields)
		}
		chunks = append(chunks, fields[start:end])
	}

	combined := Result{Record: make(types.Record, len(fields))}
	for i, chunkFields := range chunks {
		prompt, err := g.buildChunkPrompt(req, chunkFields, i+1, len(chunks))
		if err != nil {
			return Result{}, err
		}

		part, err := g.generateSingle(ctx, prompt)
		if err != nil {
			return Result{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		for label, value := range part.Record {
			combined.Record[label] = value
		}
		combined.Warnings = append(combined.Warnings, part.Warnings...)
	}
	return combined, nil
}

func (g *Generator) generateSingle(ctx context.Context, req dataPrompt) (Result, error) {
	resp, err := g.client.Complete(ctx, oracle.Request{
		System:      req.system,
		Prompt:      req.user,
		JSONMode:    true,
		Temperature: dataTemperature,
		MaxTokens:   dataMaxTokens,
		Tier:        oracle.TierLite,
	})
	if err != nil {
		return Result{}, &GenerationError{Stage: "model call", Cause: err}
	}

	parsed, err := recovery.Parse(resp.Text)
	if err != nil {
		return Result{}, &GenerationError{Stage: "response parsing", Cause: err}
	}

	matched := match.BuildRecord(parsed, req.mapping, req.labels)
	result := Result{Record: matched.Record, Warnings: matched.Warnings}
	if oracle.NearTokenBudget(oracle.Request{MaxTokens: dataMaxTokens}, resp) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("response used %d of %d tokens and may be truncated", resp.CompletionTokens, dataMaxTokens))
	}
	return result, nil
}

// dataPrompt is a fully rendered generation prompt plus the vocabulary the
// parsed response will be matched against.
type dataPrompt struct {
	system  string
	user    string
	mapping types.FieldMapping
	labels  types.Labels
}

func (g *Generator) buildDataPrompt(req Request) (dataPrompt, error) {
	mappingJSON, labelsJSON, err := marshalVocabulary(req.Mapping, req.Labels)
	if err != nil {
		return dataPrompt{}, err
	}

	seed := RandomSeed()
	user := prompts.Format(prompts.MustGet("generation.json", "synthetic-data"), map[string]string{
		"DocumentType":  g.documentType,
		"FieldMappings": mappingJSON,
		"Labels":        labelsJSON,
	})
	user += g.personaContext(req.Persona)
	if req.StrictFieldNames {
		user += prompts.MustGet("generation.json", "field-mapping-requirement")
	}
	user += prompts.Format(prompts.MustGet("generation.json", "variability-note"), map[string]string{
		"Seed": strconv.Itoa(seed),
	})

	system := prompts.Format(prompts.MustGet("generation.json", "synthetic-data-system"), map[string]string{
		"DocumentType": g.documentType,
		"Seed":         strconv.Itoa(seed),
	})

	return dataPrompt{system: system, user: user, mapping: req.Mapping, labels: req.Labels}, nil
}

func (g *Generator) buildChunkPrompt(req Request, fields []string, index, count int) (dataPrompt, error) {
	mapping := req.Mapping.Subset(fields)
	labels := req.Labels.Subset(fields)
	mappingJSON, labelsJSON, err := marshalVocabulary(mapping, labels)
	if err != nil {
		return dataPrompt{}, err
	}

	seed := RandomSeed()
	user := prompts.Format(prompts.MustGet("generation.json", "chunk"), map[string]string{
		"DocumentType":  g.documentType,
		"ChunkIndex":    strconv.Itoa(index),
		"ChunkCount":    strconv.Itoa(count),
		"FieldCount":    strconv.Itoa(len(fields)),
		"FieldMappings": mappingJSON,
		"Labels":        labelsJSON,
	})
	user += g.personaContext(req.Persona)
	user += prompts.Format(prompts.MustGet("generation.json", "variability-note"), map[string]string{
		"Seed": strconv.Itoa(seed),
	})

	system := prompts.Format(prompts.MustGet("generation.json", "synthetic-data-system"), map[string]string{
		"DocumentType": fmt.Sprintf("%s (chunk %d)", g.documentType, index),
		"Seed":         strconv.Itoa(seed),
	})

	return dataPrompt{system: system, user: user, mapping: mapping, labels: labels}, nil
}

func (g *Generator) personaContext(persona types.Persona) string {
	if len(persona) == 0 {
		return ""
	}
	personaJSON, err := json.MarshalIndent(persona, "", "  ")
	if err != nil {
		return ""
	}
	return prompts.Format(prompts.MustGet("generation.json", "persona-context"), map[string]string{
		"Persona": string(personaJSON),
	})
}

// GenerateLabels produces the human-readable label for every field in the
// mapping from overlay page images, then filters the response down to known
// field names.
func (g *Generator) GenerateLabels(ctx context.Context, mapping types.FieldMapping, images []oracle.Image) (types.Labels, error) {
	mappingJSON, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return nil, &GenerationError{Stage: "label prompt assembly", Cause: err}
	}

	user := prompts.Format(prompts.MustGet("generation.json", "human-readable-labels"), map[string]string{
		"DocumentType": g.documentType,
	})
	user += fmt.Sprintf("\n\n### AcroForm Field Mappings JSON:\n```json\n%s\n```", mappingJSON)

	system := prompts.Format(prompts.MustGet("generation.json", "human-readable-labels-system"), map[string]string{
		"DocumentType": g.documentType,
	})

	resp, err := g.client.Complete(ctx, oracle.Request{
		System:      system,
		Prompt:      user,
		Images:      images,
		JSONMode:    true,
		Temperature: labelTemp,
		MaxTokens:   labelMaxTokens,
		Tier:        oracle.TierStandard,
	})
	if err != nil {
		return nil, &GenerationError{Stage: "label model call", Cause: err}
	}

	parsed, err := recovery.Parse(resp.Text)
	if err != nil {
		return nil, &GenerationError{Stage: "label response parsing", Cause: err}
	}

	return match.RemapLabels(parsed, mapping), nil
}

func marshalVocabulary(mapping types.FieldMapping, labels types.Labels) (string, string, error) {
	mappingJSON, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return "", "", &GenerationError{Stage: "prompt assembly", Cause: err}
	}
	labelsJSON, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return "", "", &GenerationError{Stage: "prompt assembly", Cause: err}
	}
	return string(mappingJSON), string(labelsJSON), nil
}

// RandomSeed derives a small prompt seed from a fresh UUID.
func RandomSeed() int {
	u := uuid.New()
	return int(binary.BigEndian.Uint64(u[:8]) % 1_000_000)
}
