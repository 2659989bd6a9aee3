package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/clinic-studio/internal/llm"
	"github.com/jonathan/clinic-studio/internal/llm/llmtest"
	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/resilience"
	"github.com/jonathan/clinic-studio/internal/types"
)

const fifteenTags = `["#artrose","#joelho","#dor","#ortopedia","#saude","#fisioterapia","#idosos",` +
	`"#articulacao","#qualidadedevida","#exercicio","#prevencao","#cartilagem","#inflamacao","#mobilidade","#bemestar"]`

const postReply = `{"headline":"Artrose tem tratamento","caption":"Dor nas articulações?","hashtags":` +
	fifteenTags + `,"image_prompt":"elderly woman walking in a park"}`

func testPersona() persona.Persona {
	return persona.Persona{Name: "Dra. Ana Souza", Specialty: "Ortopedia", License: "CRM-SP 123456"}
}

func newTestGenerator(client llm.Client) *Generator {
	return New(client, persona.NewHolder(testPersona()), WithPolicy(resilience.Policy{
		MaxRetries: 3,
		Sleep:      func(context.Context, time.Duration) error { return nil },
	}))
}

// scripted answers text requests with text and image requests with a PNG.
func scripted(text string) *llmtest.MockClient {
	return &llmtest.MockClient{
		GenerateFunc: func(_ context.Context, req *llm.Request) (*llm.Response, error) {
			if req.Image {
				return llmtest.PNG([]byte("png-bytes")), nil
			}
			return llmtest.Text(text), nil
		},
	}
}

func TestPost_PayloadCarriesPersonaAndEvidence(t *testing.T) {
	mock := scripted(postReply)
	g := newTestGenerator(mock)

	post, err := g.Post(context.Background(), &types.PostRequest{
		Topic:    "Tratamento para Artrose",
		Tone:     types.ToneProfessional,
		Evidence: &types.Citation{Title: "Exercise for knee osteoarthritis", Source: "Cochrane", Year: "2015", Abstract: "Exercise reduces pain."},
	})
	require.NoError(t, err)

	assert.Equal(t, "Artrose tem tratamento", post.Headline)
	assert.Len(t, post.Hashtags, 15)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.TierStandard, reqs[0].Tier)
	assert.NotNil(t, reqs[0].Schema)

	prompt := llmtest.PromptText(reqs[0])
	assert.Contains(t, prompt, "Tratamento para Artrose")
	assert.Contains(t, prompt, persona.Render(testPersona()))
	assert.Contains(t, prompt, "Exercise for knee osteoarthritis")
	assert.Contains(t, prompt, "Exercise reduces pain.")
	assert.Empty(t, llmtest.Blobs(reqs[0]))
}

func TestPost_ReferenceImageIsInline(t *testing.T) {
	mock := scripted(postReply)
	g := newTestGenerator(mock)

	_, err := g.Post(context.Background(), &types.PostRequest{
		Topic:          "Unha encravada",
		ReferenceImage: &types.Media{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}},
	})
	require.NoError(t, err)

	req := mock.Requests()[0]
	blobs := llmtest.Blobs(req)
	require.Len(t, blobs, 1)
	assert.Equal(t, "image/jpeg", blobs[0].MIMEType)
	assert.Contains(t, llmtest.PromptText(req), "Analyze it")
}

func TestPost_PersonaReadAtCallTime(t *testing.T) {
	mock := scripted(postReply)
	holder := persona.NewHolder(testPersona())
	g := New(mock, holder)

	holder.Set(persona.Persona{Name: "Dr. Bruno Lima", Specialty: "Dermatologia", License: "CRM-RJ 1"})
	_, err := g.Post(context.Background(), &types.PostRequest{Topic: "Micose"})
	require.NoError(t, err)

	assert.Contains(t, llmtest.PromptText(mock.Requests()[0]), "Dr. Bruno Lima")
}

func TestPost_PersonaReadOncePerRequest(t *testing.T) {
	holder := persona.NewHolder(persona.Persona{
		Name: "Dra. Ana Souza", Specialty: "Ortopedia", License: "CRM-SP 123456", DefaultTone: "acolhedor",
	})
	mock := scripted(postReply)
	g := New(mock, holder)

	_, err := g.Post(context.Background(), &types.PostRequest{Topic: "Micose"})
	require.NoError(t, err)
	prompt := llmtest.PromptText(mock.Requests()[0])
	assert.Contains(t, prompt, "Dra. Ana Souza")
	assert.Contains(t, prompt, "acolhedor")

	holder.Set(persona.Persona{Name: "Dr. Bruno Lima", Specialty: "Dermatologia", License: "CRM-RJ 1", DefaultTone: "técnico"})
	_, err = g.Post(context.Background(), &types.PostRequest{Topic: "Micose"})
	require.NoError(t, err)
	prompt = llmtest.PromptText(mock.Requests()[1])
	assert.Contains(t, prompt, "Dr. Bruno Lima")
	assert.Contains(t, prompt, "técnico")
	assert.NotContains(t, prompt, "Dra. Ana Souza")
}

func TestPost_ValidationBeforeBackend(t *testing.T) {
	mock := scripted(postReply)
	g := newTestGenerator(mock)

	_, err := g.Post(context.Background(), &types.PostRequest{})

	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, mock.Requests())
}

func TestPost_EmptyResponseIsTerminal(t *testing.T) {
	mock := scripted("   ")
	g := newTestGenerator(mock)

	_, err := g.Post(context.Background(), &types.PostRequest{Topic: "Calos"})

	var empty *EmptyResponseError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, types.KindPost, empty.Kind)
	assert.Len(t, mock.Requests(), 1, "empty replies are not retried")
}

func TestGenerator_NoContentIsEmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		run  func(g *Generator) error
		kind types.Kind
	}{
		{
			name: "post",
			err:  llm.ErrNoContent,
			run: func(g *Generator) error {
				_, err := g.Post(context.Background(), &types.PostRequest{Topic: "Calos"})
				return err
			},
			kind: types.KindPost,
		},
		{
			name: "wrapped article",
			err:  fmt.Errorf("gemini: %w", llm.ErrNoContent),
			run: func(g *Generator) error {
				_, err := g.Article(context.Background(), &types.ArticleRequest{Topic: "Joanete"})
				return err
			},
			kind: types.KindArticle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &llmtest.MockClient{
				GenerateFunc: func(context.Context, *llm.Request) (*llm.Response, error) { return nil, tt.err },
			}
			err := tt.run(newTestGenerator(mock))

			var empty *EmptyResponseError
			require.ErrorAs(t, err, &empty)
			assert.Equal(t, tt.kind, empty.Kind)
			assert.Len(t, mock.Requests(), 1)
		})
	}
}

func TestPost_SchemaMismatchIsParseError(t *testing.T) {
	mock := scripted(`{"headline":"only a headline"}`)
	g := newTestGenerator(mock)

	_, err := g.Post(context.Background(), &types.PostRequest{Topic: "Calos"})

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Len(t, mock.Requests(), 1)
}

func TestPost_FencedReplyIsCleaned(t *testing.T) {
	mock := scripted("Claro! Segue:\n```json\n" + postReply + "\n```")
	g := newTestGenerator(mock)

	post, err := g.Post(context.Background(), &types.PostRequest{Topic: "Artrose"})
	require.NoError(t, err)
	assert.Equal(t, "Dor nas articulações?", post.Caption)
}

func TestGenerator_RetriesTransientFailures(t *testing.T) {
	var calls int32
	mock := &llmtest.MockClient{
		GenerateFunc: func(context.Context, *llm.Request) (*llm.Response, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return nil, &llm.BackendError{Provider: llm.ProviderGemini, StatusCode: 503, Message: "overloaded"}
			}
			return llmtest.Text(postReply), nil
		},
	}
	g := newTestGenerator(mock)

	_, err := g.Post(context.Background(), &types.PostRequest{Topic: "Artrose"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestGenerator_ExhaustedRetriesReturnOriginalError(t *testing.T) {
	original := &llm.BackendError{Provider: llm.ProviderGemini, StatusCode: 429, Message: "quota"}
	mock := &llmtest.MockClient{
		GenerateFunc: func(context.Context, *llm.Request) (*llm.Response, error) { return nil, original },
	}
	g := newTestGenerator(mock)

	_, err := g.Post(context.Background(), &types.PostRequest{Topic: "Artrose"})
	assert.Same(t, original, err)
	assert.Len(t, mock.Requests(), 4)
}

func TestArticle_RendersMarkdown(t *testing.T) {
	mock := scripted(`{"title":"Fascite plantar: o que é?","markdown_body":"## Sintomas\n\nDor no **calcanhar** ao acordar.","seo_notes":["meta"]}`)
	g := newTestGenerator(mock)

	article, err := g.Article(context.Background(), &types.ArticleRequest{Topic: "Fascite plantar"})
	require.NoError(t, err)

	assert.Equal(t, "fascite-plantar-o-que-e", article.Slug)
	assert.Contains(t, article.HTMLBody, "<h2>Sintomas</h2>")
	assert.Contains(t, article.HTMLBody, "<strong>calcanhar</strong>")
	assert.Equal(t, 6, article.WordCount)
	assert.Equal(t, llm.TierAdvanced, mock.Requests()[0].Tier)
}

func TestArticleFromAudio_AttachesRecording(t *testing.T) {
	mock := scripted(`{"title":"Palestra","slug":"palestra-pe-diabetico","markdown_body":"Texto transcrito."}`)
	g := newTestGenerator(mock)

	article, err := g.ArticleFromAudio(context.Background(), &types.AudioArticleRequest{
		Audio: &types.Media{MIMEType: "audio/mpeg", Data: []byte("id3")},
	})
	require.NoError(t, err)
	assert.Equal(t, "palestra-pe-diabetico", article.Slug)
	assert.Equal(t, types.KindAudioArticle, article.ArtifactKind())

	blobs := llmtest.Blobs(mock.Requests()[0])
	require.Len(t, blobs, 1)
	assert.Equal(t, "audio/mpeg", blobs[0].MIMEType)
}

func TestVideoScript_OrdersLines(t *testing.T) {
	mock := scripted(`{"title":"3 mitos","thumbnail":{"headline":"Mito ou verdade?","visual":"pés"},"lines":[` +
		`{"order":2,"visual":"b","narration":"segundo","seconds":10},{"order":1,"visual":"a","narration":"primeiro","seconds":5}]}`)
	g := newTestGenerator(mock)

	script, err := g.VideoScript(context.Background(), &types.VideoScriptRequest{Topic: "Mitos"})
	require.NoError(t, err)
	require.Len(t, script.Lines, 2)
	assert.Equal(t, "primeiro", script.Lines[0].Narration)
	assert.Equal(t, 1, script.Lines[0].Order)
}

func TestClinicalTools(t *testing.T) {
	t.Run("wound analysis attaches photo", func(t *testing.T) {
		mock := scripted(`{"classification":"úlcera venosa","findings":["bordas irregulares"],"recommendations":["curativo"],"disclaimer":"não substitui consulta"}`)
		g := newTestGenerator(mock)

		got, err := g.AnalyzeWound(context.Background(), &types.WoundAnalysisRequest{
			Photo: &types.Media{MIMEType: "image/png", Data: []byte{1}},
		})
		require.NoError(t, err)
		assert.Equal(t, "úlcera venosa", got.Classification)
		assert.Len(t, llmtest.Blobs(mock.Requests()[0]), 1)
	})

	t.Run("drug interactions", func(t *testing.T) {
		mock := scripted(`{"summary":"risco de sangramento","interactions":[{"drugs":["varfarina","ibuprofeno"],"severity":"high","description":"d","recommendation":"r"}]}`)
		g := newTestGenerator(mock)

		got, err := g.CheckDrugInteractions(context.Background(), &types.DrugInteractionRequest{Drugs: []string{"varfarina", "ibuprofeno"}})
		require.NoError(t, err)
		require.Len(t, got.Interactions, 1)
		assert.Equal(t, "high", got.Interactions[0].Severity)
		assert.Contains(t, llmtest.PromptText(mock.Requests()[0]), "varfarina, ibuprofeno")
	})

	t.Run("supplement plan", func(t *testing.T) {
		mock := scripted(`{"items":[{"name":"Vitamina D","dosage":"2000 UI","timing":"manhã","rationale":"deficiência"}],"warnings":[]}`)
		g := newTestGenerator(mock)

		got, err := g.PlanSupplements(context.Background(), &types.SupplementPlanRequest{Goal: "saúde óssea", Age: 68})
		require.NoError(t, err)
		assert.Equal(t, "Vitamina D", got.Items[0].Name)
		assert.Contains(t, llmtest.PromptText(mock.Requests()[0]), "68")
	})

	t.Run("conversion asset keeps requested channel", func(t *testing.T) {
		mock := scripted(`{"headline":"h","body":"b","call_to_action":"Agende sua avaliação"}`)
		g := newTestGenerator(mock)

		got, err := g.ConversionAsset(context.Background(), &types.ConversionAssetRequest{Topic: "Palmilhas", Channel: types.ChannelWhatsApp})
		require.NoError(t, err)
		assert.Equal(t, types.ChannelWhatsApp, got.Channel)
	})
}

func TestAudit(t *testing.T) {
	mock := scripted(`{"riskLevel":"warning","issues":["promessa de cura"],"suggestions":["remova 'cura garantida'"]}`)
	g := newTestGenerator(mock)

	got, err := g.Audit(context.Background(), "Cura garantida em 7 dias!")
	require.NoError(t, err)
	assert.Equal(t, types.RiskWarning, got.RiskLevel)
	assert.Equal(t, []string{"promessa de cura"}, got.Issues)
	assert.Equal(t, llm.TierLite, mock.Requests()[0].Tier)
}

func TestAudit_BlankTextIsNoop(t *testing.T) {
	mock := scripted(`{}`)
	g := newTestGenerator(mock)

	got, err := g.Audit(context.Background(), " \n\t")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, mock.Requests())
}

func TestGenerate_PostWithoutUpload(t *testing.T) {
	mock := scripted(postReply)
	g := newTestGenerator(mock)

	artifact, err := g.Generate(context.Background(), &types.PostRequest{
		Topic: "Tratamento para Artrose", Tone: types.ToneProfessional, Layout: types.LayoutFeed,
	})
	require.NoError(t, err)

	post := artifact.(*types.PostArtifact)
	assert.NotEmpty(t, post.Post.Headline)
	assert.NotEmpty(t, post.Post.Caption)
	assert.Len(t, post.Post.Hashtags, 15)
	require.NotNil(t, post.Image)
	assert.False(t, post.ImageUserSupplied)

	require.Len(t, mock.TextRequests(), 1)
	images := mock.ImageRequests()
	require.Len(t, images, 1)
	assert.Equal(t, "1:1", images[0].AspectRatio)
	assert.Contains(t, llmtest.PromptText(images[0]), "elderly woman walking in a park")
}

func TestGenerate_PostWithUpload(t *testing.T) {
	mock := scripted(postReply)
	g := newTestGenerator(mock)
	upload := &types.Media{MIMEType: "image/jpeg", Data: []byte("user-photo")}

	artifact, err := g.Generate(context.Background(), &types.PostRequest{Topic: "Tratamento para Artrose", ReferenceImage: upload})
	require.NoError(t, err)

	post := artifact.(*types.PostArtifact)
	assert.True(t, post.ImageUserSupplied)
	assert.Equal(t, upload.Data, post.Image.Data)
	assert.Empty(t, mock.ImageRequests())
	assert.Len(t, llmtest.Blobs(mock.TextRequests()[0]), 1)
}

func TestGenerate_EveryKindDispatches(t *testing.T) {
	replies := map[types.Kind]string{
		types.KindArticle:         `{"title":"t","markdown_body":"corpo"}`,
		types.KindInfographic:     `{"title":"t","sections":[],"hero_image_prompt":"h","anatomy_image_prompt":"a"}`,
		types.KindConversionAsset: `{"headline":"h","body":"b","call_to_action":"c"}`,
		types.KindVideoScript:     `{"title":"t","thumbnail":{"headline":"h","visual":"v"},"lines":[]}`,
		types.KindAudioArticle:    `{"title":"t","markdown_body":"corpo"}`,
		types.KindWoundAnalysis:   `{"classification":"c","findings":[],"recommendations":[],"disclaimer":"d"}`,
		types.KindDrugInteraction: `{"summary":"s","interactions":[]}`,
		types.KindSupplementPlan:  `{"items":[],"warnings":[]}`,
	}
	media := &types.Media{MIMEType: "image/png", Data: []byte{1}}
	requests := []types.GenerationRequest{
		&types.ArticleRequest{Topic: "x"},
		&types.InfographicRequest{Topic: "x"},
		&types.ConversionAssetRequest{Topic: "x", Channel: types.ChannelEmail},
		&types.VideoScriptRequest{Topic: "x"},
		&types.AudioArticleRequest{Audio: &types.Media{MIMEType: "audio/wav", Data: []byte{1}}},
		&types.WoundAnalysisRequest{Photo: media},
		&types.DrugInteractionRequest{Drugs: []string{"a", "b"}},
		&types.SupplementPlanRequest{Goal: "x"},
	}

	for _, req := range requests {
		t.Run(string(req.Kind()), func(t *testing.T) {
			g := newTestGenerator(scripted(replies[req.Kind()]))
			artifact, err := g.Generate(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, req.Kind(), artifact.ArtifactKind())
		})
	}
}

func TestGenerate_FailureReturnsNilArtifact(t *testing.T) {
	g := newTestGenerator(scripted(""))

	artifact, err := g.Generate(context.Background(), &types.ArticleRequest{Topic: "x"})
	assert.Error(t, err)
	assert.Nil(t, artifact)

	_, err = g.Generate(context.Background(), nil)
	assert.Error(t, err)
}

func TestImage_AspectRatioByLayout(t *testing.T) {
	mock := scripted("")
	g := newTestGenerator(mock)

	_, err := g.Image(context.Background(), "foot x-ray", types.LayoutFeed)
	require.NoError(t, err)
	_, err = g.Image(context.Background(), "foot x-ray", types.LayoutStory)
	require.NoError(t, err)

	reqs := mock.ImageRequests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "1:1", reqs[0].AspectRatio)
	assert.Equal(t, "9:16", reqs[1].AspectRatio)
	assert.Equal(t, llm.TierImage, reqs[0].Tier)
	assert.Contains(t, llmtest.PromptText(reqs[0]), "photorealistic")
	assert.Contains(t, llmtest.PromptText(reqs[0]), "Do not render any text")
}

func TestImage_NoContentIsNoImage(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateFunc: func(context.Context, *llm.Request) (*llm.Response, error) {
			return nil, llm.ErrNoContent
		},
	}
	g := newTestGenerator(mock)

	img, err := g.Image(context.Background(), "prompt", types.LayoutStory)

	assert.Nil(t, img)
	var noImage *NoImageInResponseError
	require.ErrorAs(t, err, &noImage)
	assert.Empty(t, noImage.Text)
	assert.Len(t, mock.Requests(), 1)
}

func TestImage_NoImageInResponse(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateFunc: func(context.Context, *llm.Request) (*llm.Response, error) {
			return llmtest.Text("I cannot draw that."), nil
		},
	}
	g := newTestGenerator(mock)

	_, err := g.Image(context.Background(), "prompt", types.LayoutFeed)

	var noImage *NoImageInResponseError
	require.True(t, errors.As(err, &noImage))
	assert.Equal(t, "I cannot draw that.", noImage.Text)
	assert.Len(t, mock.Requests(), 1)
}

func TestImage_BlankPrompt(t *testing.T) {
	mock := scripted("")
	g := newTestGenerator(mock)

	_, err := g.Image(context.Background(), "  ", types.LayoutFeed)
	var verr *types.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Empty(t, mock.Requests())
}

func TestFillInfographicImages_PartialFailure(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateFunc: func(_ context.Context, req *llm.Request) (*llm.Response, error) {
			if strings.Contains(llmtest.PromptText(req), "hero") {
				return nil, fmt.Errorf("permission denied")
			}
			return llmtest.PNG([]byte("anatomy")), nil
		},
	}
	g := newTestGenerator(mock)
	content := &types.InfographicContent{Title: "Joanete", HeroImagePrompt: "hero shot", AnatomyImagePrompt: "foot bones"}

	var patches []types.InfographicPatch
	g.FillInfographicImages(context.Background(), content, func(p types.InfographicPatch) {
		patches = append(patches, p)
		content.Apply(p)
	})

	require.Len(t, patches, 1)
	assert.Equal(t, types.FieldAnatomyImage, patches[0].Field)
	assert.Nil(t, content.HeroImage)
	require.NotNil(t, content.AnatomyImage)
	assert.Equal(t, []byte("anatomy"), content.AnatomyImage.Data)
	assert.Equal(t, "Joanete", content.Title)
}

func TestFillInfographicImages_IndependentCompletion(t *testing.T) {
	release := make(chan struct{})
	mock := &llmtest.MockClient{
		GenerateFunc: func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
			if strings.Contains(llmtest.PromptText(req), "hero") {
				<-release
			}
			return llmtest.PNG([]byte(llmtest.PromptText(req)[:4])), nil
		},
	}
	g := newTestGenerator(mock)
	content := &types.InfographicContent{HeroImagePrompt: "hero", AnatomyImagePrompt: "anat"}

	order := make(chan types.InfographicField, 2)
	done := make(chan struct{})
	go func() {
		g.FillInfographicImages(context.Background(), content, func(p types.InfographicPatch) {
			order <- p.Field
			if p.Field == types.FieldAnatomyImage {
				close(release)
			}
		})
		close(done)
	}()

	assert.Equal(t, types.FieldAnatomyImage, <-order, "the slow hero image does not block the anatomy image")
	assert.Equal(t, types.FieldHeroImage, <-order)
	<-done
}
