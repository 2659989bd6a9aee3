package rendering

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is what every page template receives.
type pageData struct {
	Title     string
	Signature string

	Body     template.HTML
	Hero     template.URL
	Anatomy  template.URL
	Caption  string
	Hashtags []string
	Sections []types.InfographicSection
}

// Exportable reports whether RenderHTML supports the artifact kind.
func Exportable(kind types.Kind) bool {
	switch kind {
	case types.KindArticle, types.KindAudioArticle, types.KindInfographic, types.KindPost:
		return true
	}
	return false
}

// RenderHTML renders an article, infographic or post as a standalone page
// signed with the practitioner's persona. Images are inlined as data URLs.
func RenderHTML(artifact types.Artifact, who persona.Persona) (string, error) {
	data := pageData{Signature: signature(who)}
	var page string

	switch a := artifact.(type) {
	case *types.ArticleContent:
		page = "article.html"
		data.Title = a.Title
		// Bodies come from goldmark with raw HTML disabled.
		data.Body = template.HTML(a.HTMLBody)
	case *types.AudioArticle:
		page = "article.html"
		data.Title = a.Title
		data.Body = template.HTML(a.HTMLBody)
	case *types.InfographicContent:
		page = "infographic.html"
		data.Title = a.Title
		data.Sections = a.Sections
		data.Hero = dataURL(a.HeroImage)
		data.Anatomy = dataURL(a.AnatomyImage)
	case *types.PostArtifact:
		page = "post.html"
		data.Title = a.Post.Headline
		data.Caption = a.Post.Caption
		data.Hashtags = a.Post.Hashtags
		data.Hero = dataURL(a.Image)
	default:
		kind := types.Kind("unknown")
		if artifact != nil {
			kind = artifact.ArtifactKind()
		}
		return "", &RenderError{Message: fmt.Sprintf("%s artifacts cannot be exported", kind)}
	}

	tmpl, err := parseTemplate(page)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	if err := tmpl.ExecuteTemplate(&out, "layout", data); err != nil {
		return "", &TemplateError{Page: page, Message: "failed to execute template", Cause: err}
	}
	return out.String(), nil
}

// parseTemplate pairs the shared layout with one content template.
func parseTemplate(page string) (*template.Template, error) {
	tmpl, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
	if err != nil {
		return nil, &TemplateError{Page: page, Message: "failed to parse template", Cause: err}
	}
	return tmpl, nil
}

func dataURL(img *types.Image) template.URL {
	if img == nil {
		return ""
	}
	if img.URL != "" {
		return template.URL(img.URL)
	}
	if len(img.Data) == 0 {
		return ""
	}
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data))
}

func signature(p persona.Persona) string {
	var parts []string
	for _, s := range []string{p.Name, p.Specialty, p.License} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " · ")
}
