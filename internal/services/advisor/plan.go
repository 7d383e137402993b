package advisor

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"menusim/internal/models"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Money formats an amount rounded to the unit with thousands separators
func Money(v float64) string {
	return humanize.Comma(int64(math.Round(v))) + " " + models.Currency
}

// ActionPlan builds the recommended actions and the implementation calendar
// for a projection, as Markdown and as rendered HTML
func ActionPlan(ps *models.ProductSet, rec models.Recommendations) (models.ActionPlan, error) {
	total := ps.SumIncrementalCost()
	plan := models.ActionPlan{
		Actions:  planActions(ps, rec, total),
		Calendar: Calendar(total),
	}

	var md strings.Builder
	md.WriteString("## Recommended action plan\n\n")
	for _, a := range plan.Actions {
		md.WriteString(a)
		md.WriteString("\n\n")
	}

	md.WriteString("## Implementation calendar\n\n")
	md.WriteString("| Week | Actions | Budget |\n")
	md.WriteString("|------|---------|--------|\n")
	for _, w := range plan.Calendar {
		budget := "Minimal"
		if !w.Minimal {
			budget = Money(w.Budget)
		}
		fmt.Fprintf(&md, "| Week %d | %s | %s |\n", w.Week, w.Actions, budget)
	}
	plan.Markdown = md.String()

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(plan.Markdown), &buf); err != nil {
		return plan, fmt.Errorf("rendering action plan: %w", err)
	}
	plan.HTML = buf.String()

	return plan, nil
}

func planActions(ps *models.ProductSet, rec models.Recommendations, total float64) []string {
	reprice := "Raise the prices of low or negative margin products."
	if len(rec.Review) > 0 {
		reprice = fmt.Sprintf("Raise the prices of low or negative margin products, starting with %s.",
			joinNames(reviewNames(rec.Review, 3)))
	}

	promote := "Feature the high margin products on the menu and in promotions."
	if len(rec.Prioritize) > 0 {
		promote = fmt.Sprintf("Feature the high margin products such as %s.",
			joinNames(priorityNames(rec.Prioritize, 3)))
	}

	return []string{
		"**1. Price review**: " + reprice,
		fmt.Sprintf("**2. Purchase planning**: Plan a procurement budget of %s to reach the sales objectives.", Money(total)),
		"**3. Targeted promotions**: " + promote,
		"**4. Portion standards**: Write precise recipe sheets to control material costs, especially for cooked dishes.",
		fmt.Sprintf("**5. Cross-selling**: Pair best sellers across the %d menu categories with high margin drinks.", len(ps.Categories())),
		"**6. Happy hours**: Run promotions on high margin products to raise sales volume.",
	}
}

func priorityNames(items []models.PriorityItem, n int) []string {
	var names []string
	for i := 0; i < len(items) && i < n; i++ {
		names = append(names, items[i].Product.Name)
	}
	return names
}

func reviewNames(items []models.ReviewItem, n int) []string {
	var names []string
	for i := 0; i < len(items) && i < n; i++ {
		names = append(names, items[i].Product.Name)
	}
	return names
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
