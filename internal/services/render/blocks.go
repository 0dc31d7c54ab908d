package render

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scrutor/internal/models"
)

// blockContentLimit is the hard per-block content cap. The external API
// rejects rich-text content of 2000 characters or more, so we stop short and
// split longer text across consecutive blocks instead of truncating.
const blockContentLimit = 1990

// maxParagraphsPerSection bounds how many paragraphs one markdown section
// contributes, mirroring the external API's children-per-request limits
const maxParagraphsPerSection = 20

// Block is one typed element of the external page document
type Block struct {
	Object   string     `json:"object"`
	Type     string     `json:"type"`
	Heading1 *RichBody  `json:"heading_1,omitempty"`
	Heading2 *RichBody  `json:"heading_2,omitempty"`
	Heading3 *RichBody  `json:"heading_3,omitempty"`
	Para     *RichBody  `json:"paragraph,omitempty"`
	Bullet   *RichBody  `json:"bulleted_list_item,omitempty"`
	Code     *CodeBody  `json:"code,omitempty"`
	Divider  *struct{}  `json:"divider,omitempty"`
}

// RichBody is the rich_text container shared by text-bearing block types
type RichBody struct {
	RichText []RichText `json:"rich_text"`
}

// CodeBody is the code block container
type CodeBody struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
}

// RichText is a single text run
type RichText struct {
	Type string   `json:"type"`
	Text TextBody `json:"text"`
}

// TextBody carries the actual content string
type TextBody struct {
	Content string `json:"content"`
}

// Content returns the text content of a block, empty for dividers
func (b Block) Content() string {
	for _, body := range []*RichBody{b.Heading1, b.Heading2, b.Heading3, b.Para, b.Bullet} {
		if body != nil && len(body.RichText) > 0 {
			return body.RichText[0].Text.Content
		}
	}
	if b.Code != nil && len(b.Code.RichText) > 0 {
		return b.Code.RichText[0].Text.Content
	}
	return ""
}

func textBlock(blockType, content string) Block {
	body := &RichBody{RichText: []RichText{{Type: "text", Text: TextBody{Content: content}}}}
	b := Block{Object: "block", Type: blockType}
	switch blockType {
	case "heading_1":
		b.Heading1 = body
	case "heading_2":
		b.Heading2 = body
	case "heading_3":
		b.Heading3 = body
	case "bulleted_list_item":
		b.Bullet = body
	default:
		b.Type = "paragraph"
		b.Para = body
	}
	return b
}

func dividerBlock() Block {
	return Block{Object: "block", Type: "divider", Divider: &struct{}{}}
}

func codeBlock(content, language string) Block {
	return Block{
		Object: "block",
		Type:   "code",
		Code: &CodeBody{
			RichText: []RichText{{Type: "text", Text: TextBody{Content: content}}},
			Language: language,
		},
	}
}

// codeBlocks appends one or more code blocks so that no block exceeds the
// content limit. Long snippets continue across consecutive code blocks,
// splitting on line boundaries where possible.
func codeBlocks(blocks []Block, content, language string) []Block {
	for len(content) > blockContentLimit {
		cut := blockContentLimit
		if idx := strings.LastIndex(content[:cut], "\n"); idx > blockContentLimit/2 {
			cut = idx + 1
		}
		blocks = append(blocks, codeBlock(content[:cut], language))
		content = content[cut:]
	}
	if content != "" {
		blocks = append(blocks, codeBlock(content, language))
	}
	return blocks
}

// splitText appends one or more blocks of blockType so that no block exceeds
// the content limit. Splits prefer line boundaries, then word boundaries.
func splitText(blocks []Block, blockType, content string) []Block {
	for len(content) > blockContentLimit {
		cut := blockContentLimit
		if idx := strings.LastIndex(content[:cut], "\n"); idx > blockContentLimit/2 {
			cut = idx + 1
		} else if idx := strings.LastIndex(content[:cut], " "); idx > blockContentLimit/2 {
			cut = idx + 1
		}
		blocks = append(blocks, textBlock(blockType, content[:cut]))
		content = content[cut:]
	}
	if content != "" {
		blocks = append(blocks, textBlock(blockType, content))
	}
	return blocks
}

// BuildBlockDocument converts a completed job into the typed block document
// pushed to the external page system
func BuildBlockDocument(job *models.AnalysisJob) []Block {
	var blocks []Block

	blocks = append(blocks, textBlock("heading_1", fmt.Sprintf("Code Analysis Report: %s", job.ID)))

	summary := job.Summary
	if summary == nil {
		summary = models.NewAnalysisSummary(0, job.Issues)
	}
	dist := summary.SeverityDistribution
	blocks = splitText(blocks, "paragraph", fmt.Sprintf(
		"Total files analyzed: %d. Total issues: %d (critical %d, high %d, medium %d, low %d).",
		summary.TotalFiles, summary.TotalIssues,
		dist.Critical.Count, dist.High.Count, dist.Medium.Count, dist.Low.Count))

	if job.AIReview != nil && job.AIReview.ExecutiveSummary != "" {
		blocks = append(blocks, textBlock("heading_2", "Executive Summary"))
		blocks = splitText(blocks, "paragraph", job.AIReview.ExecutiveSummary)
	}

	if len(job.Issues) > 0 {
		blocks = append(blocks, textBlock("heading_2", "Key Issues"))
		issues := append([]models.CodeIssue(nil), job.Issues...)
		models.SortIssues(issues)
		for _, issue := range issues {
			line := fmt.Sprintf("[%s] %s (%s:%d)",
				strings.ToUpper(string(issue.Severity)), issue.Title, issue.FilePath, issue.LineNumber)
			blocks = splitText(blocks, "bulleted_list_item", line)
			if issue.CodeSnippet != "" {
				blocks = codeBlocks(blocks, issue.CodeSnippet, "plain text")
			}
		}
	}

	if job.AIReview != nil && job.AIReview.Recommendations != nil {
		rec := job.AIReview.Recommendations
		blocks = append(blocks, textBlock("heading_2", "Recommended Actions"))
		sections := []struct {
			title string
			items []string
		}{
			{"Immediate", rec.ImmediateActions},
			{"Short Term", rec.ShortTerm},
			{"Long Term", rec.LongTerm},
		}
		for _, section := range sections {
			if len(section.items) == 0 {
				continue
			}
			blocks = append(blocks, textBlock("heading_3", section.title))
			for _, item := range section.items {
				blocks = splitText(blocks, "bulleted_list_item", item)
			}
		}
	}

	blocks = append(blocks, dividerBlock())
	return blocks
}

// BlocksFromMarkdown converts markdown-ish model output into blocks: ATX
// headings map to heading_N, "-"/"*" lists to bullets, everything else to
// paragraphs. At most maxParagraphsPerSection sections are taken.
func BlocksFromMarkdown(text string) []Block {
	var blocks []Block
	sections := strings.Split(text, "\n\n")
	taken := 0
	for _, section := range sections {
		if taken >= maxParagraphsPerSection {
			break
		}
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		taken++

		switch {
		case strings.HasPrefix(section, "#"):
			level := 0
			for level < len(section) && section[level] == '#' {
				level++
			}
			text := strings.TrimSpace(strings.TrimLeft(section, "#"))
			if level >= 1 && level <= 3 && text != "" {
				blocks = splitText(blocks, fmt.Sprintf("heading_%d", level), text)
			} else {
				blocks = splitText(blocks, "paragraph", text)
			}

		case strings.HasPrefix(section, "- ") || strings.HasPrefix(section, "* "):
			for _, bullet := range strings.Split(section, "\n") {
				bullet = strings.TrimSpace(strings.TrimLeft(bullet, "-* "))
				if bullet != "" {
					blocks = splitText(blocks, "bulleted_list_item", bullet)
				}
			}

		default:
			blocks = splitText(blocks, "paragraph", section)
		}
	}
	return blocks
}
