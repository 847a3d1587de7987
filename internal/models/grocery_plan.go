package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// EmbeddingDimensions is the width of GroceryPlanRecord.Embedding
const EmbeddingDimensions = 64

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		*a = JSONBStringArray{}
		return err
	}
	return json.Unmarshal(b, a)
}

// IngredientList stores plan ingredients as a JSONB array
type IngredientList []types.Ingredient

func (l IngredientList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IngredientList) Scan(value interface{}) error {
	b, err := jsonBytes(value)
	if err != nil || b == nil {
		*l = IngredientList{}
		return err
	}
	return json.Unmarshal(b, l)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// GroceryPlanRecord is a plan a user saved to their history
type GroceryPlanRecord struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string           `gorm:"size:255;not null;index" json:"user_id"`
	Prompt      string           `gorm:"type:text;not null" json:"prompt"`
	Budget      float64          `gorm:"not null" json:"budget"`
	Summary     string           `gorm:"type:text" json:"summary"`
	Ingredients IngredientList   `gorm:"type:jsonb;not null" json:"ingredients"`
	TotalCost   string           `gorm:"size:32" json:"total_cost"`
	Tips        JSONBStringArray `gorm:"type:jsonb" json:"tips"`
	Source      string           `gorm:"size:16" json:"source"`
	Embedding   pgvector.Vector  `gorm:"type:vector(64)" json:"-"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// TableName matches the table used by the web client
func (GroceryPlanRecord) TableName() string {
	return "grocery_history"
}

// BeforeCreate assigns an ID when the caller did not
func (r *GroceryPlanRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Plan returns the stored plan in its API shape
func (r *GroceryPlanRecord) Plan() types.GroceryPlan {
	ingredients := []types.Ingredient(r.Ingredients)
	if ingredients == nil {
		ingredients = []types.Ingredient{}
	}
	tips := []string(r.Tips)
	if tips == nil {
		tips = []string{}
	}
	return types.GroceryPlan{
		Summary:     r.Summary,
		Ingredients: ingredients,
		TotalCost:   r.TotalCost,
		Tips:        tips,
	}
}
