package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/types"
)

// fakeClient replays scripted responses and records every request.
type fakeClient struct {
	responses []string
	requests  []oracle.Request
	err       error
}

func (f *fakeClient) Complete(_ context.Context, req oracle.Request) (oracle.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return oracle.Response{}, f.err
	}
	if len(f.responses) == 0 {
		return oracle.Response{}, errors.New("no scripted response")
	}
	text := f.responses[0]
	f.responses = f.responses[1:]
	return oracle.Response{Text: text}, nil
}

func (f *fakeClient) Close() error { return nil }

func smallMapping() (types.FieldMapping, types.Labels) {
	mapping := types.FieldMapping{
		"topmostSubform[0].Page1[0].f1_01[0]": {FieldType: "/Tx"},
		"topmostSubform[0].Page1[0].c1_01[0]": {FieldType: "/Btn", PossibleValues: []string{"/On"}},
	}
	labels := types.Labels{
		"topmostSubform[0].Page1[0].f1_01[0]": "Employee's social security number",
		"topmostSubform[0].Page1[0].c1_01[0]": "Retirement plan",
	}
	return mapping, labels
}

func TestGenerate_SingleCall(t *testing.T) {
	mapping, labels := smallMapping()
	client := &fakeClient{responses: []string{
		`{"topmostSubform[0].Page1[0].f1_01[0]": "123-45-6789", "topmostSubform[0].Page1[0].c1_01[0]": "/On"}`,
	}}

	g := NewGenerator(client, "W-2")
	result, err := g.Generate(context.Background(), Request{Mapping: mapping, Labels: labels})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	assert.Len(t, result.Record, 2)
	assert.Empty(t, result.Warnings)

	ssn := result.Record["Employee's social security number"]
	assert.Equal(t, "topmostSubform[0].Page1[0].f1_01[0]", ssn.FieldName)
	assert.Equal(t, "/Tx", ssn.FieldType)
	assert.Equal(t, "123-45-6789", ssn.FieldValue)

	req := client.requests[0]
	assert.True(t, req.JSONMode)
	assert.Equal(t, oracle.TierLite, req.Tier)
	assert.Contains(t, req.Prompt, "W-2")
	assert.Contains(t, req.Prompt, "Randomization seed")
	assert.Contains(t, req.System, "synthetic data")
}

func TestGenerate_PersonaInjection(t *testing.T) {
	mapping, labels := smallMapping()
	client := &fakeClient{responses: []string{`{}`}}

	g := NewGenerator(client, "W-2")
	_, err := g.Generate(context.Background(), Request{
		Mapping: mapping,
		Labels:  labels,
		Persona: types.Persona{"Employee's social security number": "123-45-6789"},
	})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].Prompt, "CURRENT PERSONA CONTEXT")
	assert.Contains(t, client.requests[0].Prompt, "123-45-6789")
}

func TestGenerate_StrictFieldNames(t *testing.T) {
	mapping, labels := smallMapping()
	client := &fakeClient{responses: []string{`{}`}}

	g := NewGenerator(client, "W-2")
	_, err := g.Generate(context.Background(), Request{
		Mapping:          mapping,
		Labels:           labels,
		StrictFieldNames: true,
	})
	require.NoError(t, err)
	assert.Contains(t, client.requests[0].Prompt, "CRITICAL FIELD MAPPING REQUIREMENT")
}

func TestGenerate_ChunkedLargeForm(t *testing.T) {
	mapping := make(types.FieldMapping, 250)
	labels := make(types.Labels, 250)
	for i := 0; i < 250; i++ {
		key := fmt.Sprintf("form[0].f%03d[0]", i)
		mapping[key] = types.FieldSpec{FieldType: "/Tx"}
		labels[key] = fmt.Sprintf("Field %d", i)
	}

	// Script one flat response per chunk covering that chunk's fields.
	fields := mapping.TypedFields()
	buildResponse := func(keys []string) string {
		m := make(map[string]string, len(keys))
		for _, k := range keys {
			m[k] = "value"
		}
		data, err := json.Marshal(m)
		require.NoError(t, err)
		return string(data)
	}
	client := &fakeClient{responses: []string{
		buildResponse(fields[:150]),
		buildResponse(fields[150:]),
	}}

	g := NewGenerator(client, "URLA")
	result, err := g.Generate(context.Background(), Request{Mapping: mapping, Labels: labels})
	require.NoError(t, err)

	assert.Len(t, client.requests, 2)
	assert.Len(t, result.Record, 250)
	assert.Contains(t, client.requests[0].Prompt, "chunk 1/2")
	assert.Contains(t, client.requests[1].Prompt, "chunk 2/2")
}

func TestGenerate_UnmatchedKeysBecomeWarnings(t *testing.T) {
	mapping, labels := smallMapping()
	client := &fakeClient{responses: []string{
		`{"totally_unknown_field": "x", "topmostSubform[0].Page1[0].f1_01[0]": "123-45-6789"}`,
	}}

	g := NewGenerator(client, "W-2")
	result, err := g.Generate(context.Background(), Request{Mapping: mapping, Labels: labels})
	require.NoError(t, err)

	assert.Len(t, result.Record, 1)
	assert.Equal(t, []string{"totally_unknown_field"}, result.Warnings)
}

func TestGenerate_ModelError(t *testing.T) {
	mapping, labels := smallMapping()
	client := &fakeClient{err: errors.New("rate limited")}

	g := NewGenerator(client, "W-2")
	_, err := g.Generate(context.Background(), Request{Mapping: mapping, Labels: labels})
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "model call", genErr.Stage)
}

func TestGenerate_MalformedResponse(t *testing.T) {
	mapping, labels := smallMapping()
	client := &fakeClient{responses: []string{"not json at all"}}

	g := NewGenerator(client, "W-2")
	_, err := g.Generate(context.Background(), Request{Mapping: mapping, Labels: labels})
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "response parsing", genErr.Stage)
}

func TestGenerateLabels(t *testing.T) {
	mapping, _ := smallMapping()
	client := &fakeClient{responses: []string{
		`{"topmostSubform[0].Page1[0].f1_01[0]": "Employee's social security number", "bogus": "Dropped"}`,
	}}

	g := NewGenerator(client, "W-2")
	labels, err := g.GenerateLabels(context.Background(), mapping, []oracle.Image{
		{Name: "page_1.jpg", MIMEType: "image/jpeg", Data: []byte{0xFF}},
	})
	require.NoError(t, err)

	assert.Equal(t, types.Labels{
		"topmostSubform[0].Page1[0].f1_01[0]": "Employee's social security number",
	}, labels)

	req := client.requests[0]
	assert.Equal(t, oracle.TierStandard, req.Tier)
	require.Len(t, req.Images, 1)
	assert.Contains(t, req.Prompt, "AcroForm Field Mappings JSON")
}

func TestRandomSeedRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		seed := RandomSeed()
		assert.GreaterOrEqual(t, seed, 0)
		assert.Less(t, seed, 1_000_000)
	}
}
