// Package export turns an artifact into documents that can be saved or pasted
// elsewhere: Markdown, and HTML rendered from that Markdown.
package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"

	"recruit_sandbox/generator"
)

// Bullets used by the inline HTML rendering, one per kind of list in an artifact.
const (
	bulletDefault       = "•"
	bulletQualification = "✓"
	bulletBenefit       = "+"
	bulletIndicator     = "›"
)

// section is one Markdown block of the document. bullet replaces list
// markers when the block is flattened for rich-text editors.
type section struct {
	md     string
	bullet string
}

func sections(art generator.Artifact) []section {
	jd := art.JobDescription
	var out []section

	var head strings.Builder
	head.WriteString("# " + jd.Title + "\n\n")
	var meta []string
	if jd.CompanyName != "" {
		meta = append(meta, "**"+jd.CompanyName+"**")
	}
	if jd.Location != "" {
		meta = append(meta, jd.Location)
	}
	if len(meta) > 0 {
		head.WriteString(strings.Join(meta, " · ") + "\n\n")
	}
	head.WriteString(jd.Summary + "\n\n")
	out = append(out, section{md: head.String(), bullet: bulletDefault})

	out = appendList(out, "Responsibilities", jd.Responsibilities, bulletDefault)
	out = appendList(out, "Qualifications", jd.Qualifications, bulletQualification)
	out = appendList(out, "Benefits", jd.Benefits, bulletBenefit)
	if jd.CallToAction != "" {
		out = append(out, section{md: jd.CallToAction + "\n\n", bullet: bulletDefault})
	}

	if len(art.InterviewGuide) > 0 {
		out = append(out, section{md: "# Interview Guide\n\n", bullet: bulletDefault})
	}
	for i, q := range art.InterviewGuide {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, q.Question))
		b.WriteString("**Target skill:** " + q.TargetSkill + "\n\n")
		b.WriteString("**Rationale:** " + q.Rationale + "\n\n")
		if len(q.ExpectedIndicators) > 0 {
			b.WriteString("**Look for:**\n\n")
			for _, ind := range q.ExpectedIndicators {
				b.WriteString("- " + ind + "\n")
			}
			b.WriteString("\n")
		}
		out = append(out, section{md: b.String(), bullet: bulletIndicator})
	}
	return out
}

func appendList(out []section, heading string, items []string, bullet string) []section {
	if len(items) == 0 {
		return out
	}
	var b strings.Builder
	b.WriteString("## " + heading + "\n\n")
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
	b.WriteString("\n")
	return append(out, section{md: b.String(), bullet: bullet})
}

// Markdown renders the job description followed by the interview guide.
func Markdown(art generator.Artifact) string {
	var b strings.Builder
	for _, sec := range sections(art) {
		b.WriteString(sec.md)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// HTML converts the Markdown rendering. With inline set, each section is
// rendered on its own and its lists and headings are rewritten as paragraphs
// for rich-text editors that drop those tags: qualifications, benefits and
// answer indicators keep distinct markers and interview questions stand out.
func HTML(art generator.Artifact, inline bool) (string, error) {
	if !inline {
		return mdToHTML(Markdown(art))
	}
	var b strings.Builder
	for _, sec := range sections(art) {
		html, err := mdToHTML(sec.md)
		if err != nil {
			return "", err
		}
		b.WriteString(normalizeInline(html, sec.bullet))
	}
	return b.String(), nil
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	olRe = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	ulRe = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	liRe = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
	hRe  = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
)

// h1 is the job title or the guide title, h2 a job-description section,
// h3 one interview question.
var headingStyles = map[string]string{
	"1": "font-size:24px;font-weight:700;margin:1em 0 0.6em;",
	"2": "font-size:20px;font-weight:700;margin:1em 0 0.6em;",
	"3": "font-size:17px;font-weight:700;margin:1.2em 0 0.4em;padding-left:8px;border-left:3px solid #2563eb;",
}

const defaultHeadingStyle = "font-size:16px;font-weight:700;margin:1em 0 0.6em;"

// 很多富文本编辑器会吞掉列表和标题标签，这里展开成段落，排版更稳定。
func flattenLists(html, bullet string) string {
	html = olRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			b.WriteString(fmt.Sprintf("<p>%d. %s</p>", i+1, strings.TrimSpace(item[1])))
		}
		return b.String()
	})

	return ulRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			b.WriteString("<p>" + bullet + " " + strings.TrimSpace(item[1]) + "</p>")
		}
		return b.String()
	})
}

func convertHeadings(html string) string {
	return hRe.ReplaceAllStringFunc(html, func(block string) string {
		parts := hRe.FindStringSubmatch(block)
		if len(parts) != 3 {
			return block
		}
		style, ok := headingStyles[parts[1]]
		if !ok {
			style = defaultHeadingStyle
		}
		return fmt.Sprintf(`<p style="%s">%s</p>`, style, strings.TrimSpace(parts[2]))
	})
}

func normalizeInline(html, bullet string) string {
	html = convertHeadings(html)
	html = flattenLists(html, bullet)
	return html
}
