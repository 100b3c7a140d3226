package llm

import (
	"fmt"

	"keeper/internal/insight"
)

func businessData(s insight.BusinessSummary) string {
	return fmt.Sprintf(`- Customers: %d
- Transactions: %d
- Average Transaction: $%.2f
- Tip Rate: %.1f%%
- Monthly Revenue: $%.2f`,
		s.CustomerCount,
		s.TransactionCount,
		s.AvgTransaction,
		s.TipRate*100,
		s.MonthlyRevenue,
	)
}

// OpenAIPrompt asks for the {"insights":[{"title",...}]} shape. GigaChat
// uses it too.
func OpenAIPrompt(s insight.BusinessSummary) string {
	return fmt.Sprintf(`Analyze this spa/salon business data and find specific revenue opportunities with exact dollar values.

Business Data:
%s

CRITICAL REQUIREMENTS:
1. Each insight must have a specific dollar value (minimum $100)
2. Confidence must be 75%% or higher
3. NO obvious insights like "weekends are busier"
4. Provide specific, actionable steps
5. Focus on: churn prevention, tip optimization, upselling, staff efficiency

Return ONLY JSON in this format:
{
  "insights": [
    {
      "title": "specific insight title",
      "description": "detailed explanation",
      "confidence": 0.85,
      "dollar_value": 1500.0,
      "reasoning": "why this opportunity exists",
      "action_items": ["specific action 1", "specific action 2"]
    }
  ]
}`, businessData(s))
}

func AnthropicPrompt(s insight.BusinessSummary) string {
	return fmt.Sprintf(`You are an expert business analyst specializing in spa/salon revenue optimization.
Analyze this business data and identify high-value opportunities.

Business Data:
%s

Find opportunities worth $500+ each. Focus on:
1. Customer retention patterns
2. Service optimization
3. Staff performance improvements
4. Revenue per customer enhancement

Avoid obvious insights such as "holidays affect sales". Be specific about implementation and dollar impact.

Provide 2-3 high-confidence insights in JSON format:
{
  "insights": [
    {
      "opportunity": "specific opportunity title",
      "explanation": "detailed business reasoning",
      "confidence_level": 0.88,
      "annual_value": 3600.0,
      "implementation": ["step 1", "step 2", "step 3"]
    }
  ]
}`, businessData(s))
}

func GeminiPrompt(s insight.BusinessSummary) string {
	return fmt.Sprintf(`Business Analysis Task: Spa/Salon Revenue Optimization

Data Summary:
%s

Identify 1-2 unique revenue opportunities not typically discovered by standard analysis.
Each opportunity must be worth $1000+ annually.

Requirements:
- Specific dollar calculations
- Confidence score (75%%+ only)
- Avoid generic business advice such as "customers prefer discounts"
- Focus on data-driven insights

Format as JSON:
{
  "opportunities": [
    {
      "insight": "specific insight description",
      "value_calculation": "how you calculated the dollar amount",
      "confidence": 0.82,
      "estimated_value": 2400.0,
      "next_steps": ["action 1", "action 2"]
    }
  ]
}`, businessData(s))
}
