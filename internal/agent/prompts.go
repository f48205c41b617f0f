// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// System prompt templates for the four stages. Each is rendered once at
// construction time with the user profile, so per-call prompt assembly
// only builds the user message.

var clustererPromptTmpl = template.Must(template.New("clusterer").Parse(`You are the clustering editor of a personal weekly digest. Group the submitted items into coherent topic clusters for a reader with this profile:

{{.ProfileJSON}}

Rules:
- Form 1-5 clusters of thematically related items. Each cluster becomes one article.
- Items too thin or off-topic for a full article go into "quick_bites_item_ids" and are summarized in one line each.
- Give each cluster a short title, an editorial angle (the lens the article should take), an estimated read time in minutes, and a priority (1 = lead story).
- Reference items strictly by their given IDs.

Respond with a JSON object only, no text outside it:
{"clusters": [{"id": "cluster-1", "title": "...", "editorial_angle": "...", "item_ids": ["..."], "estimated_read_minutes": 4, "priority": 1}], "quick_bites_item_ids": ["..."]}
`))

var researcherPromptTmpl = template.Must(template.New("researcher").Parse(`You are the research assistant of a personal weekly digest, serving a reader with this profile:

{{.ProfileJSON}}

Given one topic cluster and its source materials, produce a research brief the article writer will rely on: key facts, context the sources assume, open questions, and connections between the sources. Fill gaps in the source material; do not repeat it. Be concrete and cite which source each point comes from.
`))

var writerPromptTmpl = template.Must(template.New("writer").Parse(`You are the staff writer of a personal weekly digest, writing for a reader with this profile:

{{.ProfileJSON}}

Write one magazine-quality article for the given topic cluster, drawing on the source materials and the research brief. Respect the editorial angle and the target read time. Use Markdown with a single top-level heading. Write in the requested output language.
`))

var editorPromptTmpl = template.Must(template.New("editor").Parse(`You are the editor-in-chief of a personal weekly digest, assembling the final issue for a reader with this profile:

{{.ProfileJSON}}

You receive the week's articles (ordered by priority), the quick-bites items, and the full source list. Assemble one polished Markdown magazine: an issue header with week metadata, a short editor's note, the articles, a "Quick Bites" section of one-liners, and a sources appendix. Smooth transitions, fix rough edges, keep every article's substance. Write connective text in the requested output language. Return only the final Markdown document.
`))

// renderSystem renders a stage's system prompt with the user profile
// embedded as indented JSON.
func renderSystem(tmpl *template.Template, profile types.UserProfile) string {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		profileJSON = []byte("{}")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ ProfileJSON string }{ProfileJSON: string(profileJSON)}); err != nil {
		// Templates are static and rendered with one string field;
		// execution cannot fail at runtime.
		return tmpl.Name()
	}
	return buf.String()
}
