package services

import (
	"fmt"
	"html/template"
	"strings"

	"vvg-world-api/models"
)

type emailMetaItem struct {
	Label string
	Value string
}

func priorityBadge(priority string) string {
	switch priority {
	case models.PriorityCritical:
		return "🚨 CRITICAL"
	case models.PriorityHigh:
		return "⚠️ HIGH"
	case models.PriorityMedium:
		return "📋 MEDIUM"
	default:
		return "📝 LOW"
	}
}

// matchExplanation describes why the rule fired, for the notification body.
func matchExplanation(rule *models.RoutingRule, pp *models.PainPoint) string {
	category := fmt.Sprintf("category %q", pp.Category)
	if rule.Categories.ContainsFold(models.MatchAll) {
		category = "any category"
	}
	department := "any department"
	if !rule.Departments.ContainsFold(models.MatchAll) && pp.Department != nil && strings.TrimSpace(*pp.Department) != "" {
		department = fmt.Sprintf("department %q", *pp.Department)
	}
	return fmt.Sprintf("Routed by rule %q: matched %s and %s.", rule.Name, category, department)
}

// RenderRuleNotification builds the stakeholder email for one routed pain
// point: a priority-prefixed subject plus HTML and plain-text bodies.
func RenderRuleNotification(pp *models.PainPoint, rule *models.RoutingRule, priority string) (subject, html, text string) {
	subject = fmt.Sprintf("%s Pain Point Routed: %s", priorityBadge(priority), pp.Title)

	meta := []emailMetaItem{
		{Label: "ID", Value: fmt.Sprintf("#%d", pp.PainPointID)},
		{Label: "Title", Value: pp.Title},
		{Label: "Category", Value: pp.Category},
		{Label: "Submitted by", Value: pp.SubmittedBy},
		{Label: "Priority", Value: strings.ToUpper(priority)},
	}
	if pp.Department != nil && *pp.Department != "" {
		meta = append(meta, emailMetaItem{Label: "Department", Value: *pp.Department})
	}
	if pp.Location != nil && *pp.Location != "" {
		meta = append(meta, emailMetaItem{Label: "Location", Value: *pp.Location})
	}

	explanation := matchExplanation(rule, pp)
	paragraphs := []string{
		"A new pain point was submitted and matched one of your routing rules.",
		pp.Description,
		explanation,
	}

	html = buildEmailHTML(subject, paragraphs, meta)

	var b strings.Builder
	b.WriteString(subject + "\n\n")
	b.WriteString("A new pain point was submitted and matched one of your routing rules.\n\n")
	for _, item := range meta {
		fmt.Fprintf(&b, "%s: %s\n", item.Label, item.Value)
	}
	b.WriteString("\n" + pp.Description + "\n\n")
	b.WriteString(explanation + "\n")
	text = b.String()

	return subject, html, text
}

// RenderWeeklyDigest formats the routing summary for the trailing window.
// Pure formatting; the caller supplies the aggregated stats.
func RenderWeeklyDigest(stats *RoutingStats, days int) (subject, html, text string) {
	subject = fmt.Sprintf("📊 VVG World Routing Digest — last %d days", days)

	meta := []emailMetaItem{
		{Label: "Pain points routed", Value: fmt.Sprintf("%d", stats.TotalRulesTriggered)},
		{Label: "Successful actions", Value: fmt.Sprintf("%d", stats.SuccessfulActions)},
		{Label: "Failed actions", Value: fmt.Sprintf("%d", stats.FailedActions)},
		{Label: "Avg processing time", Value: fmt.Sprintf("%.1f ms", stats.AverageProcessingTime)},
	}

	var categories strings.Builder
	for i, c := range stats.TopCategories {
		if i > 0 {
			categories.WriteString(", ")
		}
		fmt.Fprintf(&categories, "%s (%d)", c.Category, c.Count)
	}
	topLine := "No routing activity in this window."
	if categories.Len() > 0 {
		topLine = "Top categories: " + categories.String()
	}

	paragraphs := []string{
		fmt.Sprintf("Routing activity for the last %d days.", days),
		topLine,
	}
	html = buildEmailHTML(subject, paragraphs, meta)

	var b strings.Builder
	b.WriteString(subject + "\n\n")
	for _, item := range meta {
		fmt.Fprintf(&b, "%s: %s\n", item.Label, item.Value)
	}
	b.WriteString("\n" + topLine + "\n")
	text = b.String()

	return subject, html, text
}

// buildEmailHTML assembles the shared inline-styled layout used by every
// outgoing notification: escaped paragraphs followed by a label/value table.
func buildEmailHTML(title string, paragraphs []string, meta []emailMetaItem) string {
	var contentBuilder strings.Builder
	for _, paragraph := range paragraphs {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}
		escaped := template.HTMLEscapeString(trimmed)
		escaped = strings.ReplaceAll(strings.ReplaceAll(escaped, "\r\n", "\n"), "\r", "\n")
		escaped = strings.ReplaceAll(escaped, "\n", "<br />")
		contentBuilder.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;word-break:break-word;">`)
		contentBuilder.WriteString(escaped)
		contentBuilder.WriteString(`</p>`)
	}

	metaSection := ""
	if len(meta) > 0 {
		var metaBuilder strings.Builder
		metaBuilder.WriteString(`<div style="margin:0 0 24px 0;">
<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;">
<tbody>`)
		for i, row := range meta {
			border := "border-bottom:1px solid #e5e7eb;"
			if i == len(meta)-1 {
				border = ""
			}
			metaBuilder.WriteString(fmt.Sprintf(`<tr>
<td style="padding:12px 16px;font-size:13px;color:#6b7280;width:38%%;%s;word-break:break-word;">%s</td>
<td style="padding:12px 16px;font-size:15px;color:#111827;font-weight:600;%s;word-break:break-word;white-space:pre-wrap;">%s</td>
</tr>
`, border, template.HTMLEscapeString(row.Label), border, template.HTMLEscapeString(row.Value)))
		}
		metaBuilder.WriteString(`</tbody>
</table>
</div>`)
		metaSection = metaBuilder.String()
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
<h1 style="margin:0 0 20px 0;font-size:22px;font-weight:700;color:#111827;line-height:1.35;word-break:break-word;">%s</h1>
%s
%s
<div style="color:#6b7280;font-size:13px;line-height:1.7;">This message was sent automatically by VVG World routing.</div>
</div>
</div>
</body>
</html>`,
		template.HTMLEscapeString(title),
		template.HTMLEscapeString(title),
		contentBuilder.String(),
		metaSection)
}
