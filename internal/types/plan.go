package types

import "strings"

// Ingredient categories understood by the client. Anything else is mapped to
// one of these before a plan leaves the service.
const (
	CategoryProtein   = "Protein"
	CategoryVegetable = "Vegetable"
	CategoryGrain     = "Grain"
	CategoryDairy     = "Dairy"
	CategoryPantry    = "Pantry"
	CategoryHerbSpice = "Herb/Spice"
	CategoryFruit     = "Fruit"
)

// Categories lists the fixed category vocabulary in display order.
var Categories = []string{
	CategoryProtein,
	CategoryVegetable,
	CategoryGrain,
	CategoryDairy,
	CategoryPantry,
	CategoryHerbSpice,
	CategoryFruit,
}

// Ingredient is a single line of a grocery plan
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

// GroceryPlan is the payload returned by the plan endpoint
type GroceryPlan struct {
	Summary     string       `json:"summary"`
	Ingredients []Ingredient `json:"ingredients"`
	TotalCost   string       `json:"totalCost"`
	Tips        []string     `json:"tips"`
}

// PlanRequest is the body accepted by the plan endpoint
type PlanRequest struct {
	Prompt string  `json:"prompt"`
	Budget float64 `json:"budget"`
}

// Validate reports the first client-correctable problem with the request.
func (r *PlanRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrPromptRequired
	}
	if r.Budget <= 0 {
		return ErrBudgetInvalid
	}
	return nil
}

// BudgetTier is a coarse classification of a budget
type BudgetTier string

const (
	BudgetLow    BudgetTier = "Low"
	BudgetMedium BudgetTier = "Medium"
	BudgetHigh   BudgetTier = "High"
)

// TierForBudget maps a budget in dollars to its tier.
func TierForBudget(budget float64) BudgetTier {
	switch {
	case budget <= 30:
		return BudgetLow
	case budget <= 80:
		return BudgetMedium
	default:
		return BudgetHigh
	}
}

// CartItem is one grocery sent to the cart automation worker
type CartItem struct {
	Name string `json:"name"`
}

// CartRequest is the body accepted by the cart endpoint
type CartRequest struct {
	Groceries []CartItem `json:"groceries"`
}

// Names returns the non-blank item names in request order.
func (r *CartRequest) Names() []string {
	names := make([]string, 0, len(r.Groceries))
	for _, item := range r.Groceries {
		if name := strings.TrimSpace(item.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ProductImage pairs an ingredient name with an image URL
type ProductImage struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// ProductImagesRequest is the body accepted by the product image endpoint
type ProductImagesRequest struct {
	Names []string `json:"names"`
}

// SavePlanRequest is the body accepted when saving a plan to history
type SavePlanRequest struct {
	Prompt string      `json:"prompt"`
	Budget float64     `json:"budget"`
	Plan   GroceryPlan `json:"plan"`
	Source string      `json:"source,omitempty"`
}
