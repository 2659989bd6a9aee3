package generation

import "github.com/jonathan/clinic-studio/internal/llm"

var (
	str  = llm.String
	strs = func(desc string) *llm.Schema { return llm.ArrayOf(llm.String(desc)) }
)

var postSchema = llm.Object(map[string]*llm.Schema{
	"headline":     str("short attention-grabbing headline"),
	"caption":      str("post caption"),
	"hashtags":     strs("hashtag"),
	"image_prompt": str("English description of a realistic photo for the post"),
}, "headline", "caption", "hashtags", "image_prompt")

// The article body comes back as Markdown and is rendered to HTML locally.
var articleSchema = llm.Object(map[string]*llm.Schema{
	"title":         str("article title"),
	"slug":          str("URL slug"),
	"markdown_body": str("article body in Markdown"),
	"seo_notes":     strs("SEO note"),
}, "title", "markdown_body")

var infographicSchema = llm.Object(map[string]*llm.Schema{
	"title": str("infographic title"),
	"sections": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"heading":      str("section heading"),
		"points":       strs("short point"),
		"image_prompt": str("optional illustration prompt"),
	}, "heading", "points")),
	"hero_image_prompt":    str("English prompt for the hero illustration"),
	"anatomy_image_prompt": str("English prompt for the anatomy illustration"),
}, "title", "sections", "hero_image_prompt", "anatomy_image_prompt")

var conversionSchema = llm.Object(map[string]*llm.Schema{
	"headline":       str("headline"),
	"body":           str("body copy"),
	"call_to_action": str("single call to action"),
}, "headline", "body", "call_to_action")

var videoScriptSchema = llm.Object(map[string]*llm.Schema{
	"title": str("video title"),
	"thumbnail": llm.Object(map[string]*llm.Schema{
		"headline": str("thumbnail text"),
		"visual":   str("thumbnail visual description"),
	}, "headline", "visual"),
	"lines": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"order":     llm.Integer("1-based position"),
		"visual":    str("what is on screen"),
		"narration": str("spoken text"),
		"seconds":   llm.Integer("duration in seconds"),
	}, "order", "visual", "narration", "seconds")),
}, "title", "thumbnail", "lines")

var woundSchema = llm.Object(map[string]*llm.Schema{
	"classification":  str("wound type and apparent stage"),
	"findings":        strs("visible finding"),
	"recommendations": strs("care recommendation"),
	"disclaimer":      str("limitation notice"),
}, "classification", "findings", "recommendations", "disclaimer")

var drugInteractionSchema = llm.Object(map[string]*llm.Schema{
	"summary": str("overall summary"),
	"interactions": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"drugs":          strs("drug name"),
		"severity":       llm.Enum("low", "moderate", "high"),
		"description":    str("mechanism and effect"),
		"recommendation": str("what to do"),
	}, "drugs", "severity", "description", "recommendation")),
}, "summary", "interactions")

var supplementSchema = llm.Object(map[string]*llm.Schema{
	"items": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"name":      str("supplement"),
		"dosage":    str("dose"),
		"timing":    str("when to take"),
		"rationale": str("why"),
	}, "name", "dosage", "timing", "rationale")),
	"warnings": strs("warning"),
}, "items", "warnings")

var auditSchema = llm.Object(map[string]*llm.Schema{
	"riskLevel":   llm.Enum("safe", "warning", "danger"),
	"issues":      strs("rule violation found"),
	"suggestions": strs("concrete fix"),
}, "riskLevel", "issues", "suggestions")
