package service

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mrbrocoli/grocer/backend/internal/types"
)

//go:embed fallback_catalog.yaml
var fallbackCatalogYAML []byte

type fallbackGoal struct {
	Name     string                         `yaml:"name"`
	Label    string                         `yaml:"label"`
	Keywords []string                       `yaml:"keywords"`
	Tiers    map[string][]types.Ingredient `yaml:"tiers"`
	Meals    []string                       `yaml:"meals"`
	Tips     []string                       `yaml:"tips"`
}

type fallbackCatalog struct {
	Goals []fallbackGoal `yaml:"goals"`
}

var (
	catalogOnce sync.Once
	catalog     *fallbackCatalog
	catalogErr  error
)

func loadFallbackCatalog() (*fallbackCatalog, error) {
	catalogOnce.Do(func() {
		var c fallbackCatalog
		if err := yaml.Unmarshal(fallbackCatalogYAML, &c); err != nil {
			catalogErr = fmt.Errorf("failed to parse fallback catalog: %w", err)
			return
		}
		if len(c.Goals) == 0 {
			catalogErr = fmt.Errorf("fallback catalog has no goals")
			return
		}
		catalog = &c
	})
	return catalog, catalogErr
}

// classifyGoal returns the first goal whose keyword appears in the prompt.
// The last goal is the catch-all.
func (c *fallbackCatalog) classifyGoal(prompt string) fallbackGoal {
	lower := strings.ToLower(prompt)
	for _, goal := range c.Goals {
		for _, kw := range goal.Keywords {
			if strings.Contains(lower, kw) {
				return goal
			}
		}
	}
	return c.Goals[len(c.Goals)-1]
}

// FallbackPlan synthesizes a plan from the prompt keywords and budget tier.
// The result depends only on its inputs.
func FallbackPlan(prompt string, budget float64) types.GroceryPlan {
	tier := types.TierForBudget(budget)
	totalCost := formatAmount(budget * 0.9)

	c, err := loadFallbackCatalog()
	if err != nil {
		return minimalPlan(tier, totalCost)
	}

	goal := c.classifyGoal(prompt)
	items := goal.Tiers[strings.ToLower(string(tier))]
	if len(items) == 0 {
		return minimalPlan(tier, totalCost)
	}

	ingredients := make([]types.Ingredient, len(items))
	copy(ingredients, items)

	tips := make([]string, 0, len(goal.Tips)+len(goal.Meals))
	tips = append(tips, goal.Tips...)
	for _, meal := range goal.Meals {
		tips = append(tips, "Meal idea: "+meal)
	}

	return types.GroceryPlan{
		Summary: fmt.Sprintf("A %s-budget %s grocery plan with %d staple items, kept under your $%s budget.",
			strings.ToLower(string(tier)), goal.Label, len(ingredients), formatAmount(budget)),
		Ingredients: ingredients,
		TotalCost:   totalCost,
		Tips:        tips,
	}
}

func minimalPlan(tier types.BudgetTier, totalCost string) types.GroceryPlan {
	return types.GroceryPlan{
		Summary: fmt.Sprintf("A %s-budget grocery plan built from pantry staples.", strings.ToLower(string(tier))),
		Ingredients: []types.Ingredient{
			{Name: "Eggs", Quantity: "1 dozen", Price: "3.49", Category: types.CategoryProtein},
			{Name: "Brown Rice", Quantity: "2 lb", Price: "2.99", Category: types.CategoryGrain},
			{Name: "Frozen Vegetables", Quantity: "2 lb", Price: "3.29", Category: types.CategoryVegetable},
		},
		TotalCost: totalCost,
		Tips:      []string{"Plan your meals before shopping and stick to the list."},
	}
}
