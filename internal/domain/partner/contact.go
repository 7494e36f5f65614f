package partner

import (
	"net/mail"
	"strings"

	"github.com/pharmapos/backend/internal/domain/shared"
)

// ContactType distinguishes the role a contact plays for the pharmacy
type ContactType string

const (
	ContactTypeCustomer   ContactType = "customer"
	ContactTypeSupplier   ContactType = "supplier"
	ContactTypePrescriber ContactType = "prescriber"
)

// IsValid checks if the contact type is known
func (t ContactType) IsValid() bool {
	switch t {
	case ContactTypeCustomer, ContactTypeSupplier, ContactTypePrescriber:
		return true
	}
	return false
}

// Contact is a customer, supplier or prescribing doctor
type Contact struct {
	shared.SoftDeletableAggregateRoot
	Type          ContactType `gorm:"type:varchar(20);not null;index"`
	Name          string      `gorm:"type:varchar(200);not null"`
	Phone         string      `gorm:"type:varchar(50);index"`
	Email         string      `gorm:"type:varchar(200)"`
	Address       string      `gorm:"type:text"`
	Company       string      `gorm:"type:varchar(200)"`
	LicenseNumber string      `gorm:"type:varchar(100)"`
	Notes         string      `gorm:"type:text"`
	IsActive      bool        `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Contact) TableName() string {
	return "contacts"
}

// ContactDetails are the editable fields of a contact
type ContactDetails struct {
	Name          string
	Phone         string
	Email         string
	Address       string
	Company       string
	LicenseNumber string
	Notes         string
}

// NewContact creates an active contact
func NewContact(contactType ContactType, details ContactDetails) (*Contact, error) {
	if !contactType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONTACT_TYPE", "Contact type must be customer, supplier or prescriber")
	}
	c := &Contact{
		SoftDeletableAggregateRoot: shared.NewSoftDeletableAggregateRoot(),
		Type:                       contactType,
		IsActive:                   true,
	}
	if err := c.apply(details); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the contact details
func (c *Contact) Update(details ContactDetails) error {
	if err := c.apply(details); err != nil {
		return err
	}
	c.Touch()
	return nil
}

func (c *Contact) apply(d ContactDetails) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Contact name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Contact name cannot exceed 200 characters")
	}
	email := strings.ToLower(strings.TrimSpace(d.Email))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
		}
	}
	if len(d.Phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	if c.Type == ContactTypePrescriber && strings.TrimSpace(d.LicenseNumber) == "" {
		return shared.NewDomainError("LICENSE_REQUIRED", "Prescribers need a license number")
	}

	c.Name = name
	c.Phone = strings.TrimSpace(d.Phone)
	c.Email = email
	c.Address = d.Address
	c.Company = strings.TrimSpace(d.Company)
	c.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
	c.Notes = d.Notes
	return nil
}

// Activate marks the contact as active
func (c *Contact) Activate() error {
	if c.IsActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Contact is already active")
	}
	c.IsActive = true
	c.Touch()
	return nil
}

// Deactivate marks the contact as inactive
func (c *Contact) Deactivate() error {
	if !c.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Contact is already inactive")
	}
	c.IsActive = false
	c.Touch()
	return nil
}

// IsCustomer reports whether purchases can be attributed to the contact
func (c *Contact) IsCustomer() bool {
	return c.Type == ContactTypeCustomer
}
