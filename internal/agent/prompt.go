package agent

import (
	"fmt"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

const promptTemplate = `You are an expert data analyst.
Data with column names: %s
User prompt: %s.
Question: What chart type (bar, line or pie) would you use for Data and what column names User prompt?
Answer: `

// BuildPrompt embeds a preview of the first previewRows rows and the user request.
// When tokenBudget is positive the preview is cut so the whole prompt stays
// roughly within that many tokens.
func BuildPrompt(ds *chart.Dataset, request string, previewRows, tokenBudget int) string {
	preview := dataset.Preview(ds, previewRows)
	if tokenBudget > 0 {
		overhead := utils.CountTokens(fmt.Sprintf(promptTemplate, "", request))
		preview = utils.TruncateToTokenLimit(preview, max(tokenBudget-overhead, 0))
	}
	return fmt.Sprintf(promptTemplate, preview, request)
}
