package database

import (
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edskill-hub/internal/model"
	"edskill-hub/internal/prompt"
)

type categoryStyle struct {
	description string
	icon        string
	color       string
}

var categoryStyles = map[string]categoryStyle{
	prompt.CategoryCareerSkills:     {"Digital skills for remote work and freelancing", "briefcase", "#ff6b35"},
	prompt.CategoryEntrepreneurship: {"Launch digital products and online stores", "storefront", "#4ecdc4"},
	prompt.CategoryAIProjects:       {"Use AI tools to build and automate", "sparkles", "#95e1d3"},
	prompt.CategoryMentorship:       {"Motivation, confidence and time management", "heart", "#f38181"},
	prompt.CategoryLanguageLearning: {"Languages for global opportunities", "language", "#aa96da"},
	prompt.CategoryCustomAdvice:     {"Ask anything about skills and income", "chatbubbles", "#fcbad3"},
}

// defaultCategories seeds one row per prompt category, in prompt order.
func defaultCategories() []model.Category {
	return lo.Map(prompt.Categories(), func(name string, _ int) model.Category {
		style := categoryStyles[name]
		return model.Category{
			Name:        name,
			Description: style.description,
			Icon:        style.icon,
			Color:       style.color,
		}
	})
}

// Migrate creates the schema and seeds the advice categories. Seeding is
// idempotent: existing names are left untouched.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Category{}, &model.Conversation{}, &model.Message{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	for _, category := range defaultCategories() {
		category := category
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&category).Error; err != nil {
			return fmt.Errorf("seed category %q failed: %w", category.Name, err)
		}
	}
	return nil
}
