package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// PlanSource tells whether a plan came from the generator or was synthesized
type PlanSource string

const (
	SourceGenerated PlanSource = "generated"
	SourceFallback  PlanSource = "fallback"
)

// NormalizedPlan is the result of Normalize. Reason is set when Source is
// SourceFallback.
type NormalizedPlan struct {
	Plan   types.GroceryPlan
	Source PlanSource
	Reason error
}

var (
	errNoJSONObject   = errors.New("no JSON object found")
	errMissingSummary = errors.New("summary is missing")
	errNoIngredients  = errors.New("ingredients must be a non-empty array")
)

var (
	fencePattern  = regexp.MustCompile("(?m)^[ \\t]*```[a-zA-Z]*[ \\t]*$")
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

var categorySynonyms = map[string]string{
	"protein":    types.CategoryProtein,
	"proteins":   types.CategoryProtein,
	"meat":       types.CategoryProtein,
	"poultry":    types.CategoryProtein,
	"seafood":    types.CategoryProtein,
	"fish":       types.CategoryProtein,
	"legumes":    types.CategoryProtein,
	"vegetable":  types.CategoryVegetable,
	"vegetables": types.CategoryVegetable,
	"veggies":    types.CategoryVegetable,
	"produce":    types.CategoryVegetable,
	"greens":     types.CategoryVegetable,
	"grain":      types.CategoryGrain,
	"grains":     types.CategoryGrain,
	"bakery":     types.CategoryGrain,
	"bread":      types.CategoryGrain,
	"carbs":      types.CategoryGrain,
	"dairy":      types.CategoryDairy,
	"cheese":     types.CategoryDairy,
	"pantry":     types.CategoryPantry,
	"canned":     types.CategoryPantry,
	"snacks":     types.CategoryPantry,
	"oils":       types.CategoryPantry,
	"condiments": types.CategoryPantry,
	"herb/spice": types.CategoryHerbSpice,
	"herbs":      types.CategoryHerbSpice,
	"spices":     types.CategoryHerbSpice,
	"herb":       types.CategoryHerbSpice,
	"spice":      types.CategoryHerbSpice,
	"seasoning":  types.CategoryHerbSpice,
	"fruit":      types.CategoryFruit,
	"fruits":     types.CategoryFruit,
}

// flexString accepts a JSON string, number or null
type flexString struct {
	Value string
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Value = ""
		return nil
	}

	// Try to unmarshal as number first
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		f.Value = num.String()
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		f.Value = str
		return nil
	}

	return fmt.Errorf("invalid scalar value: %s", truncate(data, 40))
}

type rawIngredient struct {
	Name     flexString `json:"name"`
	Quantity flexString `json:"quantity"`
	Price    flexString `json:"price"`
	Category flexString `json:"category"`
}

type rawPlan struct {
	Summary     flexString      `json:"summary"`
	Ingredients json.RawMessage `json:"ingredients"`
	TotalCost   flexString      `json:"totalCost"`
	Tips        json.RawMessage `json:"tips"`
}

// Normalize turns raw generator output into a GroceryPlan. It never fails:
// anything that cannot be parsed and validated is replaced by FallbackPlan.
func Normalize(raw, prompt string, budget float64) NormalizedPlan {
	plan, err := parsePlan(raw, budget)
	if err != nil {
		return NormalizedPlan{
			Plan:   FallbackPlan(prompt, budget),
			Source: SourceFallback,
			Reason: err,
		}
	}
	return NormalizedPlan{Plan: plan, Source: SourceGenerated}
}

// extractJSONObject strips code fence lines and returns the text between the
// first '{' and the last '}'.
func extractJSONObject(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = fencePattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", errNoJSONObject
	}
	return text[start : end+1], nil
}

func parsePlan(raw string, budget float64) (types.GroceryPlan, error) {
	candidate, err := extractJSONObject(raw)
	if err != nil {
		return types.GroceryPlan{}, err
	}

	var parsed rawPlan
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return types.GroceryPlan{}, fmt.Errorf("failed to parse plan: %w", err)
	}

	summary := strings.TrimSpace(parsed.Summary.Value)
	if summary == "" {
		return types.GroceryPlan{}, errMissingSummary
	}

	trimmed := bytes.TrimSpace(parsed.Ingredients)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return types.GroceryPlan{}, errNoIngredients
	}
	var rawIngredients []rawIngredient
	if err := json.Unmarshal(trimmed, &rawIngredients); err != nil {
		return types.GroceryPlan{}, fmt.Errorf("failed to parse ingredients: %w", err)
	}

	ingredients := make([]types.Ingredient, 0, len(rawIngredients))
	var sum float64
	var priced bool
	for _, ri := range rawIngredients {
		ing, ok := cleanIngredient(ri)
		if !ok {
			continue
		}
		if v, ok := parseAmount(ri.Price.Value); ok {
			sum += v
			priced = true
		}
		ingredients = append(ingredients, ing)
	}
	if len(ingredients) == 0 {
		return types.GroceryPlan{}, errNoIngredients
	}

	totalCost, ok := parseAmount(parsed.TotalCost.Value)
	switch {
	case ok:
	case priced:
		totalCost = sum
	default:
		totalCost = budget * 0.9
	}

	return types.GroceryPlan{
		Summary:     summary,
		Ingredients: ingredients,
		TotalCost:   formatAmount(totalCost),
		Tips:        parseTips(parsed.Tips),
	}, nil
}

func cleanIngredient(ri rawIngredient) (types.Ingredient, bool) {
	name := strings.TrimSpace(ri.Name.Value)
	if name == "" {
		return types.Ingredient{}, false
	}
	if name == strings.ToLower(name) {
		name = cases.Title(language.English).String(name)
	}

	quantity := strings.TrimSpace(ri.Quantity.Value)
	if quantity == "" {
		quantity = "1"
	}

	price := "0.00"
	if v, ok := parseAmount(ri.Price.Value); ok {
		price = formatAmount(v)
	}

	return types.Ingredient{
		Name:     name,
		Quantity: quantity,
		Price:    price,
		Category: canonicalCategory(ri.Category.Value),
	}, true
}

// canonicalCategory maps a free-form category onto the fixed vocabulary.
// Unknown values land in Pantry.
func canonicalCategory(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	for _, c := range types.Categories {
		if strings.ToLower(c) == key {
			return c
		}
	}
	if c, ok := categorySynonyms[key]; ok {
		return c
	}
	return types.CategoryPantry
}

func parseTips(data json.RawMessage) []string {
	tips := []string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return tips
	}

	var values []flexString
	if err := json.Unmarshal(data, &values); err != nil {
		var single string
		if err := json.Unmarshal(data, &single); err == nil && strings.TrimSpace(single) != "" {
			tips = append(tips, strings.TrimSpace(single))
		}
		return tips
	}
	for _, v := range values {
		if tip := strings.TrimSpace(v.Value); tip != "" {
			tips = append(tips, tip)
		}
	}
	return tips
}

// parseAmount extracts the first decimal number from strings like "$5.99"
// or "1,250.00 USD". Negative amounts are not valid prices.
func parseAmount(s string) (float64, bool) {
	match := numberPattern.FindString(strings.ReplaceAll(s, ",", ""))
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
