package convert

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano2zit/internal/llm"
)

type fakeGenerator struct {
	text  string
	err   error
	calls []llm.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (llm.Completion, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{
		Text:     f.text,
		Provider: "fake",
		Model:    "fake-1",
		Usage:    json.RawMessage(`{"tokens":1}`),
	}, nil
}

func TestConvert(t *testing.T) {
	gen := &fakeGenerator{text: "<SFW>\nA woman on a terrace.\n</SFW>\n<NSFW>\nThe same woman, topless.\n</NSFW>"}
	svc := New(Options{Generator: gen})

	res, err := svc.Convert(context.Background(), Request{
		InputJSON: `{"subject":"woman","negative_prompt":"blurry, text, watermark"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, "A woman on a terrace.", res.SFW)
	assert.Equal(t, "The same woman, topless.", res.NSFW)
	assert.Equal(t, "fake", res.Provider)
	assert.Equal(t, "fake-1", res.Model)
	assert.Equal(t, "v3-balanced", res.Profile)
	assert.JSONEq(t, `{"tokens":1}`, string(res.Usage))

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.Contains(t, call.SystemPrompt, "Target length: SFW 220-340 words")
	assert.True(t, strings.HasPrefix(call.UserPrompt, "Convert this JSON into SFW and NSFW ZiT prompts.\n\nINPUT ANALYSIS DIRECTIVES:\nconstraint_hints_found: yes"))
	assert.Contains(t, call.UserPrompt, "- blurry, text, watermark")
	assert.True(t, strings.HasSuffix(call.UserPrompt, "INPUT JSON:\n"+`{"subject":"woman","negative_prompt":"blurry, text, watermark"}`))
}

func TestConvertProfileSelection(t *testing.T) {
	gen := &fakeGenerator{text: "<SFW>a</SFW><NSFW>b</NSFW>"}
	svc := New(Options{Generator: gen})

	res, err := svc.Convert(context.Background(), Request{InputJSON: `{}`, Profile: "v3-strict"})
	require.NoError(t, err)
	assert.Equal(t, "v3-strict", res.Profile)
	assert.Contains(t, gen.calls[0].SystemPrompt, "170-260")

	_, err = svc.Convert(context.Background(), Request{InputJSON: `{}`, Profile: "v9"})
	var unknown *UnknownProfileError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []string{"v3-strict", "v3-balanced", "v3-rich"}, unknown.Valid)
	assert.Len(t, gen.calls, 1)
}

func TestConvertValidation(t *testing.T) {
	gen := &fakeGenerator{}
	svc := New(Options{Generator: gen, MaxInputChars: 20})

	cases := map[string]string{
		"blank":    "   ",
		"too long": `{"subject":"a very long subject"}`,
		"not json": `{"a":`,
		"trailing": `{} {}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Convert(context.Background(), Request{InputJSON: input})
			var bad *BadRequestError
			assert.True(t, errors.As(err, &bad), "got %v", err)
		})
	}
	assert.Empty(t, gen.calls)
}

func TestConvertUnparseable(t *testing.T) {
	gen := &fakeGenerator{text: strings.Repeat("x", 800)}
	svc := New(Options{Generator: gen})

	_, err := svc.Convert(context.Background(), Request{InputJSON: `{"prompt":"cat"}`})
	var unparseable *UnparseableError
	require.True(t, errors.As(err, &unparseable))
	assert.Len(t, unparseable.Preview, 500)
	assert.Equal(t, "fake", unparseable.Provider)
}

func TestConvertEmptySectionIsUnparseable(t *testing.T) {
	gen := &fakeGenerator{text: "<SFW></SFW><NSFW>b</NSFW>"}
	svc := New(Options{Generator: gen})

	_, err := svc.Convert(context.Background(), Request{InputJSON: `{}`})
	var unparseable *UnparseableError
	assert.True(t, errors.As(err, &unparseable))
}

func TestConvertGeneratorError(t *testing.T) {
	boom := errors.New("upstream down")
	svc := New(Options{Generator: &fakeGenerator{err: boom}})

	_, err := svc.Convert(context.Background(), Request{InputJSON: `{}`})
	assert.ErrorIs(t, err, boom)

	var bad *BadRequestError
	assert.False(t, errors.As(err, &bad))
}

func TestGenerateKeepsUnparsedText(t *testing.T) {
	svc := New(Options{Generator: &fakeGenerator{text: "no sections here"}})

	gen, err := svc.Generate(context.Background(), "v3-rich", `{"a":1}`, llm.Runtime{})
	require.NoError(t, err)
	assert.False(t, gen.Parsed)
	assert.Equal(t, "v3-rich", gen.Profile)
	assert.Equal(t, "no sections here", gen.Completion.Text)
}

func TestInspect(t *testing.T) {
	svc := New(Options{})

	b, err := svc.Inspect(`{"negative":"no hats"}`)
	require.NoError(t, err)
	assert.True(t, b.HasConstraintHints)
	assert.Equal(t, []string{"no hats"}, b.Texts())

	_, err = svc.Inspect("")
	var bad *BadRequestError
	assert.True(t, errors.As(err, &bad))
}
