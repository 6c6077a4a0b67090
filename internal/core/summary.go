package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Money    `json:"amount"`
}

// SummaryStatistics is the dashboard overview of a collection.
type SummaryStatistics struct {
	TotalSpending     Money            `json:"totalSpending"`
	MonthlySpending   Money            `json:"monthlySpending"`
	CategoryBreakdown []CategoryAmount `json:"categoryBreakdown"`
	// TopCategory is nil when no category has a positive total.
	TopCategory *CategoryAmount `json:"topCategory"`
}

// AmountFor returns the breakdown entry for c, zero when absent.
func (s SummaryStatistics) AmountFor(c Category) Money {
	for _, ca := range s.CategoryBreakdown {
		if ca.Category == c {
			return ca.Amount
		}
	}
	return Money{}
}

// MonthAmount is a spending total for one calendar month.
type MonthAmount struct {
	Label  string `json:"month"`
	Year   int    `json:"year"`
	Month  int    `json:"monthNumber"`
	Amount Money  `json:"amount"`
}

// Insights summarizes the current month for the dashboard.
type Insights struct {
	MonthTotal    Money            `json:"monthTotal"`
	TopCategories []CategoryAmount `json:"topCategories"`
	// BudgetStreak counts days since the latest expense.
	BudgetStreak int `json:"budgetStreak"`
}
