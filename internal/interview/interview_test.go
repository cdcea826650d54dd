package interview_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/MrWong99/prepwise/internal/interview"
	"github.com/MrWong99/prepwise/internal/observe"
	"github.com/MrWong99/prepwise/pkg/docstore"
	docmock "github.com/MrWong99/prepwise/pkg/docstore/mock"
	"github.com/MrWong99/prepwise/pkg/provider/llm"
	llmmock "github.com/MrWong99/prepwise/pkg/provider/llm/mock"
)

func validRequest() interview.Request {
	return interview.Request{
		Type:      "technical",
		Role:      "Backend Developer",
		Level:     "Junior",
		TechStack: []string{"Go", "PostgreSQL"},
		Amount:    3,
		OwnerID:   "user-1",
	}
}

func newPipeline(t *testing.T, gen interview.TextGenerator, store docstore.Store) *interview.Pipeline {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return interview.NewPipeline(gen, store,
		interview.WithMetrics(m),
		interview.WithClock(func() time.Time {
			return time.Date(2025, 4, 2, 9, 30, 15, 123_456_789, time.FixedZone("CEST", 2*3600))
		}),
		interview.WithCoverPicker(func(c []string) string { return c[0] }),
	)
}

func TestRawRequest_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		want        interview.Request
		wantMissing []string
	}{
		{
			name: "comma joined tech stack and numeric amount",
			body: `{"type":"technical","role":"Frontend Developer","level":"Senior","techstack":"React, TypeScript,,React ","amount":5,"ownerId":"u1"}`,
			want: interview.Request{Type: "technical", Role: "Frontend Developer", Level: "Senior", TechStack: []string{"React", "TypeScript"}, Amount: 5, OwnerID: "u1"},
		},
		{
			name: "array tech stack, string amount and userid alias",
			body: `{"type":"mixed","role":"DevOps Engineer","level":"Lead","techstack":[" docker","kubernetes","docker"],"amount":"4","userid":"u2"}`,
			want: interview.Request{Type: "mixed", Role: "DevOps Engineer", Level: "Lead", TechStack: []string{"docker", "kubernetes"}, Amount: 4, OwnerID: "u2"},
		},
		{
			name:        "missing tech stack",
			body:        `{"type":"technical","role":"r","level":"l","amount":3,"ownerId":"u"}`,
			wantMissing: []string{"techstack"},
		},
		{
			name:        "unusable values count as missing",
			body:        `{"type":" ","role":"r","level":"l","techstack":42,"amount":"many","ownerId":"u"}`,
			wantMissing: []string{"type", "techstack", "amount"},
		},
		{
			name:        "empty body",
			body:        `{}`,
			wantMissing: []string{"type", "role", "level", "techstack", "amount", "ownerId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var raw interview.RawRequest
			if err := json.Unmarshal([]byte(tt.body), &raw); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, err := raw.Normalize()
			if tt.wantMissing != nil {
				var verr *interview.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("err = %v, want *ValidationError", err)
				}
				if !errors.Is(err, interview.ErrValidation) {
					t.Error("ValidationError should match ErrValidation")
				}
				if !slices.Equal(verr.Missing, tt.wantMissing) {
					t.Errorf("Missing = %v, want %v", verr.Missing, tt.wantMissing)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Type != tt.want.Type || got.Role != tt.want.Role || got.Level != tt.want.Level ||
				got.Amount != tt.want.Amount || got.OwnerID != tt.want.OwnerID ||
				!slices.Equal(got.TechStack, tt.want.TechStack) {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRawRequest_OwnerIDWinsOverAlias(t *testing.T) {
	t.Parallel()

	raw := interview.RawRequest{OwnerID: "owner", UserID: "alias"}
	got, _ := raw.Normalize()
	if got.OwnerID != "owner" {
		t.Errorf("OwnerID = %q, want %q", got.OwnerID, "owner")
	}
}

func TestParseQuestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		want         []string
		wantDegraded bool
	}{
		{name: "json array", raw: `["Q1","Q2","Q3"]`, want: []string{"Q1", "Q2", "Q3"}},
		{name: "fenced", raw: "```json\n[\"Q1\", \"Q2\"]\n```", want: []string{"Q1", "Q2"}},
		{name: "bare fence", raw: "```\n[\"Q1\"]\n```", want: []string{"Q1"}},
		{name: "surrounding whitespace", raw: "\n  [\"Q1\"]  \n", want: []string{"Q1"}},
		{name: "not json", raw: "not a json array", want: []string{"not a json array"}, wantDegraded: true},
		{name: "mixed elements", raw: `["Q1", 2]`, want: []string{`["Q1", 2]`}, wantDegraded: true},
		{name: "object", raw: `{"q":"Q1"}`, want: []string{`{"q":"Q1"}`}, wantDegraded: true},
		{name: "null", raw: `null`, want: []string{`null`}, wantDegraded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, degraded := interview.ParseQuestions(tt.raw)
			if degraded != tt.wantDegraded {
				t.Errorf("degraded = %v, want %v", degraded, tt.wantDegraded)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("questions = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	t.Parallel()

	p := interview.Prompt(validRequest())
	for _, want := range []string{
		"The job role is Backend Developer.",
		"The job experience level is Junior.",
		"The tech stack used in the job is: Go, PostgreSQL.",
		"should lean towards: technical.",
		"The amount of questions required is: 3.",
		`do not use "/" or "*"`,
		`["Question 1", "Question 2", "Question 3"]`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 2, 5, 4, 3, 7_000_000, time.FixedZone("X", -3*3600))
	if got, want := interview.FormatTime(ts), "2025-01-02T08:04:03.007Z"; got != want {
		t.Errorf("FormatTime = %q, want %q", got, want)
	}
}

func TestRandomCover(t *testing.T) {
	t.Parallel()

	for range 50 {
		if c := interview.RandomCover(interview.DefaultCovers); !slices.Contains(interview.DefaultCovers, c) {
			t.Fatalf("RandomCover returned %q", c)
		}
	}
	if c := interview.RandomCover(nil); c != "" {
		t.Errorf("RandomCover(nil) = %q, want empty", c)
	}
}

func TestPipeline_Generate(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		ModelName:        "gemini-2.0-flash-001",
		CompleteResponse: &llm.CompletionResponse{Content: `["Q1","Q2","Q3"]`},
	}
	store := &docmock.Store{}
	p := newPipeline(t, interview.NewLLMGenerator(provider), store)

	id, err := p.Generate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	calls := provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(calls))
	}
	if msgs := calls[0].Req.Messages; len(msgs) != 1 || msgs[0].Role != llm.RoleUser ||
		!strings.Contains(msgs[0].Content, "Backend Developer") {
		t.Errorf("unexpected request messages: %+v", msgs)
	}

	rec, err := p.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := interview.Record{
		ID:         id,
		Role:       "Backend Developer",
		Type:       "technical",
		Level:      "Junior",
		TechStack:  []string{"Go", "PostgreSQL"},
		Amount:     3,
		Questions:  []string{"Q1", "Q2", "Q3"},
		UserID:     "user-1",
		Finalized:  true,
		CoverImage: "/covers/adobe.png",
		CreatedAt:  "2025-04-02T07:30:15.123Z",
	}
	if rec.ID != want.ID || rec.Role != want.Role || rec.Type != want.Type || rec.Level != want.Level ||
		rec.Amount != want.Amount || rec.UserID != want.UserID || !rec.Finalized ||
		rec.CoverImage != want.CoverImage || rec.CreatedAt != want.CreatedAt ||
		!slices.Equal(rec.TechStack, want.TechStack) || !slices.Equal(rec.Questions, want.Questions) {
		t.Errorf("record = %+v\nwant     %+v", rec, want)
	}
	if got := len(store.AddCallsTo(docstore.CollectionInterviews)); got != 1 {
		t.Errorf("adds to interviews = %d, want 1", got)
	}
}

func TestPipeline_GenerateSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	gen := interview.GeneratorFunc(func(context.Context, string) (string, error) {
		return `["Q1"]`, nil
	})
	p := newPipeline(t, gen, &docmock.Store{})
	ctx := observe.WithCall(context.Background(), observe.Call{SessionID: "view-1"})
	if _, err := p.Generate(ctx, validRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "interview.Generate" {
		t.Fatalf("spans = %+v, want one interview.Generate span", spans)
	}
	got := make(map[string]string)
	for _, kv := range spans[0].Attributes {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	want := map[string]string{
		observe.KeySessionID: "view-1",
		observe.KeyUserID:    "user-1",
		observe.KeyRole:      "Backend Developer",
		"interview.amount":   "3",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("span attribute %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestPipeline_GenerateDegradedOutputIsStored(t *testing.T) {
	t.Parallel()

	store := &docmock.Store{}
	gen := interview.GeneratorFunc(func(context.Context, string) (string, error) {
		return "not a json array", nil
	})
	p := newPipeline(t, gen, store)

	id, err := p.Generate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rec, err := p.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !slices.Equal(rec.Questions, []string{"not a json array"}) {
		t.Errorf("questions = %q", rec.Questions)
	}
}

func TestPipeline_GenerateErrors(t *testing.T) {
	t.Parallel()

	genErr := errors.New("quota exceeded")
	storeErr := errors.New("permission denied")

	tests := []struct {
		name      string
		req       interview.Request
		genErr    error
		storeErr  error
		wantErr   error
		wantGen   int
		wantAdded int
	}{
		{
			name:    "missing tech stack never reaches the generator",
			req:     func() interview.Request { r := validRequest(); r.TechStack = nil; return r }(),
			wantErr: interview.ErrValidation,
		},
		{
			name:    "generator failure",
			req:     validRequest(),
			genErr:  genErr,
			wantErr: interview.ErrGeneration,
			wantGen: 1,
		},
		{
			name:      "store failure",
			req:       validRequest(),
			storeErr:  storeErr,
			wantErr:   interview.ErrPersistence,
			wantGen:   1,
			wantAdded: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var genCalls int
			gen := interview.GeneratorFunc(func(context.Context, string) (string, error) {
				genCalls++
				return `["Q1"]`, tt.genErr
			})
			store := &docmock.Store{AddErr: tt.storeErr}
			p := newPipeline(t, gen, store)

			id, err := p.Generate(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if id != "" {
				t.Errorf("id = %q, want empty", id)
			}
			if genCalls != tt.wantGen {
				t.Errorf("generator calls = %d, want %d", genCalls, tt.wantGen)
			}
			if got := len(store.AddCalls()); got != tt.wantAdded {
				t.Errorf("store adds = %d, want %d", got, tt.wantAdded)
			}
			for _, cause := range []error{tt.genErr, tt.storeErr} {
				if cause != nil && !errors.Is(err, cause) {
					t.Errorf("err = %v, want it to wrap %v", err, cause)
				}
			}
		})
	}
}

func TestPipeline_PersistSkipsGenerator(t *testing.T) {
	t.Parallel()

	gen := interview.GeneratorFunc(func(context.Context, string) (string, error) {
		t.Error("Persist must not call the generator")
		return "", nil
	})
	store := &docmock.Store{}
	p := newPipeline(t, gen, store)

	id, err := p.Persist(context.Background(), validRequest(), []string{"Tell me about yourself."})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	rec, err := p.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !slices.Equal(rec.Questions, []string{"Tell me about yourself."}) || !rec.Finalized {
		t.Errorf("record = %+v", rec)
	}
}

func TestPipeline_CustomCollection(t *testing.T) {
	t.Parallel()

	store := &docmock.Store{}
	m, _ := observe.NewMetrics(noop.NewMeterProvider())
	p := interview.NewPipeline(interview.GeneratorFunc(func(context.Context, string) (string, error) {
		return `["Q1"]`, nil
	}), store, interview.WithCollection("mock-interviews"), interview.WithMetrics(m),
		interview.WithCovers([]string{"/covers/custom.png"}))

	id, err := p.Generate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := len(store.AddCallsTo("mock-interviews")); got != 1 {
		t.Errorf("adds to custom collection = %d, want 1", got)
	}
	rec, err := p.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.CoverImage != "/covers/custom.png" {
		t.Errorf("cover = %q", rec.CoverImage)
	}
}

func TestPipeline_GetNotFound(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, interview.GeneratorFunc(nil), &docmock.Store{})
	if _, err := p.Get(context.Background(), "missing"); !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLLMGenerator_Errors(t *testing.T) {
	t.Parallel()

	failing := interview.NewLLMGenerator(&llmmock.Provider{ModelName: "m", CompleteErr: errors.New("boom")})
	if _, err := failing.Generate(context.Background(), "p"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want wrapped provider error", err)
	}

	empty := interview.NewLLMGenerator(&llmmock.Provider{ModelName: "m"})
	if _, err := empty.Generate(context.Background(), "p"); err == nil {
		t.Error("nil response should be an error")
	}

	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "x"}}
	g := interview.NewLLMGenerator(p, interview.WithTemperature(0.7), interview.WithMaxTokens(512))
	if _, err := g.Generate(context.Background(), "p"); err != nil {
		t.Fatal(err)
	}
	req := p.Calls()[0].Req
	if req.Temperature != 0.7 || req.MaxTokens != 512 {
		t.Errorf("request options not applied: %+v", req)
	}
}
