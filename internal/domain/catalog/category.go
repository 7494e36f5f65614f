package catalog

import (
	"regexp"
	"strings"

	"github.com/pharmapos/backend/internal/domain/shared"
)

var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)

// Category groups products for browsing and category performance reports
type Category struct {
	shared.SoftDeletableAggregateRoot
	Name        string `gorm:"type:varchar(100);not null"`
	Description string `gorm:"type:text"`
	Color       string `gorm:"type:varchar(7)"`
	IsActive    bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a new active category
func NewCategory(name, description, color string) (*Category, error) {
	c := &Category{
		SoftDeletableAggregateRoot: shared.NewSoftDeletableAggregateRoot(),
		IsActive:                   true,
	}
	if err := c.apply(name, description, color); err != nil {
		return nil, err
	}
	return c, nil
}

// Update changes the category's name, description and color
func (c *Category) Update(name, description, color string) error {
	if err := c.apply(name, description, color); err != nil {
		return err
	}
	c.Touch()
	return nil
}

func (c *Category) apply(name, description, color string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	if color != "" && !hexColorRegex.MatchString(color) {
		return shared.NewDomainError("INVALID_COLOR", "Color must be a hex value like #1a2b3c")
	}
	c.Name = name
	c.Description = description
	c.Color = strings.ToLower(color)
	return nil
}

// Activate makes the category selectable again
func (c *Category) Activate() error {
	if c.IsActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Category is already active")
	}
	c.IsActive = true
	c.Touch()
	return nil
}

// Deactivate hides the category from selection lists
func (c *Category) Deactivate() error {
	if !c.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Category is already inactive")
	}
	c.IsActive = false
	c.Touch()
	return nil
}

// ErrCategoryHasProducts is returned when deleting a category still referenced by products
var ErrCategoryHasProducts = shared.NewDomainError("CATEGORY_HAS_PRODUCTS", "Category still has products assigned")
