package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/clinic-studio/internal/draft"
	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/publish"
	"github.com/jonathan/clinic-studio/internal/store"
	"github.com/jonathan/clinic-studio/internal/types"
)

type mockGenerator struct {
	GenerateFn func(ctx context.Context, req types.GenerationRequest) (types.Artifact, error)
	patches    []types.InfographicPatch
}

func (m *mockGenerator) Generate(ctx context.Context, req types.GenerationRequest) (types.Artifact, error) {
	return m.GenerateFn(ctx, req)
}

func (m *mockGenerator) FillInfographicImages(_ context.Context, _ *types.InfographicContent, apply func(types.InfographicPatch)) {
	for _, p := range m.patches {
		apply(p)
	}
}

type mockText struct{}

func (mockText) Post(_ context.Context, req *types.PostRequest) (*types.PostContent, error) {
	return &types.PostContent{
		Headline:    req.Topic,
		Caption:     "Cuide dos seus pés",
		Hashtags:    []string{"#podologia"},
		ImagePrompt: "feet",
	}, nil
}

type mockImage struct{}

func (mockImage) Image(_ context.Context, prompt string, _ types.Layout) (*types.Image, error) {
	return &types.Image{MIMEType: "image/png", Data: []byte(prompt)}, nil
}

type mockPublisher struct {
	creds publish.Credentials
	in    publish.Input
}

func (m *mockPublisher) Publish(_ context.Context, creds publish.Credentials, in publish.Input, observe publish.Observer) *publish.Attempt {
	m.creds, m.in = creds, in
	a := &publish.Attempt{Caption: in.FullCaption()}
	for _, s := range []publish.Status{publish.StatusUploading, publish.StatusContainerCreating, publish.StatusPublishing, publish.StatusPublished} {
		a.Status = s
		observe(*a)
	}
	a.PostID = "post-1"
	return a
}

type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) record(e ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Step)
	}
	return out
}

func newStudio(t *testing.T, gen ContentGenerator, opts ...Option) (*Studio, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	drafts := draft.NewManager(mockText{}, mockImage{}, draft.WithStore(st))
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	base := []Option{WithStore(st), WithClock(func() time.Time { return fixed })}
	return New(gen, drafts, append(base, opts...)...), st
}

func TestRun_PostGoesThroughDraft(t *testing.T) {
	gen := &mockGenerator{GenerateFn: func(context.Context, types.GenerationRequest) (types.Artifact, error) {
		t.Fatal("posts must not use the plain generator")
		return nil, nil
	}}
	s, st := newStudio(t, gen)
	rec := &recorder{}

	artifact, err := s.Run(context.Background(), RunOptions{
		Request:    &types.PostRequest{Topic: "Calos"},
		OnProgress: rec.record,
	})
	require.NoError(t, err)

	post, ok := artifact.(*types.PostArtifact)
	require.True(t, ok)
	assert.Equal(t, "Calos", post.Post.Headline)
	assert.Equal(t, []string{StepStarted, StepCompleted}, rec.steps())

	current, ok := s.Drafts().Current()
	require.True(t, ok)
	assert.Equal(t, uint64(1), current.Version)

	history, err := st.ListHistory(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1, "the draft manager writes post history exactly once")
	assert.Equal(t, types.KindPost, history[0].Kind)
}

func TestRun_ArticleAppendsHistory(t *testing.T) {
	gen := &mockGenerator{GenerateFn: func(_ context.Context, req types.GenerationRequest) (types.Artifact, error) {
		assert.Equal(t, types.KindArticle, req.Kind())
		return &types.ArticleContent{Title: "Unha encravada", Slug: "unha-encravada"}, nil
	}}
	s, st := newStudio(t, gen)
	rec := &recorder{}

	artifact, err := s.Run(context.Background(), RunOptions{Request: &types.ArticleRequest{Topic: "unha"}, OnProgress: rec.record})
	require.NoError(t, err)
	assert.Equal(t, "Unha encravada", artifact.(*types.ArticleContent).Title)

	history, err := st.ListHistory(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.KindArticle, history[0].Kind)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), history[0].CreatedAt)

	require.Len(t, rec.events, 2)
	assert.Equal(t, "article", rec.events[0].Category)
	assert.Equal(t, rec.events[0].RunID, rec.events[1].RunID)
	assert.NotEmpty(t, rec.events[0].RunID)
}

func TestRun_InfographicStreamsPatches(t *testing.T) {
	hero := &types.Image{MIMEType: "image/png", Data: []byte("hero")}
	anatomy := &types.Image{MIMEType: "image/png", Data: []byte("anatomy")}
	gen := &mockGenerator{
		GenerateFn: func(context.Context, types.GenerationRequest) (types.Artifact, error) {
			return &types.InfographicContent{Title: "Pé diabético", HeroImagePrompt: "h", AnatomyImagePrompt: "a"}, nil
		},
		patches: []types.InfographicPatch{
			{Field: types.FieldAnatomyImage, Image: anatomy},
			{Field: types.FieldHeroImage, Image: hero},
		},
	}
	s, st := newStudio(t, gen)
	rec := &recorder{}

	artifact, err := s.Run(context.Background(), RunOptions{Request: &types.InfographicRequest{Topic: "pé diabético"}, OnProgress: rec.record})
	require.NoError(t, err)

	assert.Equal(t, []string{StepStarted, StepGenerated, StepImagePatch, StepImagePatch, StepCompleted}, rec.steps())
	patch, ok := rec.events[2].Content.(types.InfographicPatch)
	require.True(t, ok)
	assert.Equal(t, types.FieldAnatomyImage, patch.Field)

	info := artifact.(*types.InfographicContent)
	assert.Equal(t, hero, info.HeroImage)
	assert.Equal(t, anatomy, info.AnatomyImage)

	history, err := st.ListHistory(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	stored := history[0].Artifact.(*types.InfographicContent)
	assert.Equal(t, []byte("hero"), stored.HeroImage.Data, "history is written after the images resolve")
}

func TestRun_FailureEmitsFailedAndSkipsHistory(t *testing.T) {
	gen := &mockGenerator{GenerateFn: func(context.Context, types.GenerationRequest) (types.Artifact, error) {
		return nil, errors.New("backend down")
	}}
	s, st := newStudio(t, gen)
	rec := &recorder{}

	_, err := s.Run(context.Background(), RunOptions{Request: &types.ArticleRequest{Topic: "x"}, OnProgress: rec.record})
	require.EqualError(t, err, "backend down")
	assert.Equal(t, []string{StepStarted, StepFailed}, rec.steps())
	assert.Equal(t, "backend down", rec.events[1].Message)

	history, err := st.ListHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRun_NilRequest(t *testing.T) {
	s, _ := newStudio(t, &mockGenerator{})
	_, err := s.Run(context.Background(), RunOptions{})
	assert.Error(t, err)
}

func TestPublish_NoDraft(t *testing.T) {
	s, _ := newStudio(t, &mockGenerator{})
	_, err := s.Publish(context.Background(), PublishOptions{})
	assert.ErrorIs(t, err, draft.ErrNoDraft)
}

func TestPublish_UsesSealedCredentials(t *testing.T) {
	sealer, err := store.NewSealer("test-key")
	require.NoError(t, err)
	pub := &mockPublisher{}
	s, st := newStudio(t, &mockGenerator{}, WithSealer(sealer), WithPublisher(pub))
	ctx := context.Background()

	creds := publish.Credentials{ImageHostKey: "k", AccessToken: "tok", AccountID: "1784"}
	require.NoError(t, s.SaveCredentials(ctx, creds))
	assert.NotContains(t, string(st.Raw(store.KeyPublishCredentials)), "tok")

	_, err = s.Run(ctx, RunOptions{Request: &types.PostRequest{Topic: "Calos"}})
	require.NoError(t, err)

	rec := &recorder{}
	attempt, err := s.Publish(ctx, PublishOptions{OnProgress: rec.record})
	require.NoError(t, err)

	assert.Equal(t, "post-1", attempt.PostID)
	assert.Equal(t, creds, pub.creds)
	assert.Equal(t, "Cuide dos seus pés", pub.in.Caption)
	assert.Equal(t, []string{"#podologia"}, pub.in.Hashtags)
	require.Len(t, rec.events, 4)
	assert.Equal(t, string(publish.StatusPublished), rec.events[3].Message)
	assert.Equal(t, CategoryPublish, rec.events[3].Category)
}

func TestPublish_WithoutCredentialsIsNotConfigured(t *testing.T) {
	s, _ := newStudio(t, &mockGenerator{})
	ctx := context.Background()
	_, err := s.Run(ctx, RunOptions{Request: &types.PostRequest{Topic: "Calos"}})
	require.NoError(t, err)

	attempt, err := s.Publish(ctx, PublishOptions{})
	require.NoError(t, err)
	assert.Equal(t, publish.StatusNotConfigured, attempt.Status)
	assert.False(t, attempt.Result().Success)
}

func TestSaveCredentials_WithoutSealer(t *testing.T) {
	s, _ := newStudio(t, &mockGenerator{})
	err := s.SaveCredentials(context.Background(), publish.Credentials{AccessToken: "t", AccountID: "a"})
	assert.ErrorIs(t, err, store.ErrNoSecret)
}

func TestPersona_PersistAndRestore(t *testing.T) {
	s, st := newStudio(t, &mockGenerator{})
	ctx := context.Background()
	p := persona.Persona{Name: "Dra. Ana Lima", Specialty: "Podologia", License: "CRP 1234"}
	require.NoError(t, s.SetPersona(ctx, p))
	assert.Equal(t, p, s.Persona())

	holder := persona.NewHolder(persona.Default())
	restored := New(&mockGenerator{}, draft.NewManager(mockText{}, mockImage{}, draft.WithStore(st)), WithStore(st), WithPersona(holder))
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, p, holder.Current())
}

func TestPersona_Invalid(t *testing.T) {
	s, st := newStudio(t, &mockGenerator{})
	err := s.SetPersona(context.Background(), persona.Persona{Name: "Sem registro"})
	assert.Error(t, err)
	assert.Nil(t, st.Raw(store.KeyPersona))
	assert.Equal(t, persona.Default(), s.Persona())
}

func TestRestore_ReloadsDraft(t *testing.T) {
	s, st := newStudio(t, &mockGenerator{})
	ctx := context.Background()
	_, err := s.Run(ctx, RunOptions{Request: &types.PostRequest{Topic: "Calos"}})
	require.NoError(t, err)

	restored := New(&mockGenerator{}, draft.NewManager(mockText{}, mockImage{}, draft.WithStore(st)), WithStore(st))
	require.NoError(t, restored.Restore(ctx))
	d, ok := restored.Drafts().Current()
	require.True(t, ok)
	assert.Equal(t, "Calos", d.Post.Headline)
}

func TestCalculations(t *testing.T) {
	s, _ := newStudio(t, &mockGenerator{})
	ctx := context.Background()

	saved, err := s.SaveCalculation(ctx, types.CalculatorRecord{Calculator: "imc", Inputs: map[string]float64{"peso": 70, "altura": 1.75}, Score: 22.9, Band: "normal"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	list, err := s.Calculations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "imc", list[0].Calculator)

	_, err = s.SaveCalculation(ctx, types.CalculatorRecord{})
	assert.Error(t, err)
}

func TestAuditState_WithoutAuditor(t *testing.T) {
	s, _ := newStudio(t, &mockGenerator{})
	assert.False(t, s.AuditState().Pending)
}
