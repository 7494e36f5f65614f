package shared

import (
	"time"

	"gorm.io/gorm"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`

	// persistedVersion is the version last read from or written to storage.
	// Zero means the aggregate has never been stored.
	persistedVersion int `gorm:"-"`
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// Touch bumps UpdatedAt and the version after a state change
func (a *BaseAggregateRoot) Touch() {
	a.UpdatedAt = time.Now()
	a.Version++
}

// AfterFind records the stored version so updates can be guarded by it
func (a *BaseAggregateRoot) AfterFind(*gorm.DB) error {
	a.persistedVersion = a.Version
	return nil
}

// PersistedVersion returns the version the stored row is expected to have
func (a *BaseAggregateRoot) PersistedVersion() int {
	return a.persistedVersion
}

// MarkPersisted records that the current version has been written
func (a *BaseAggregateRoot) MarkPersisted() {
	a.persistedVersion = a.Version
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// SoftDeletableAggregateRoot is an aggregate root whose rows are hidden instead of removed.
// GORM adds "deleted_at IS NULL" to every query on models embedding it.
type SoftDeletableAggregateRoot struct {
	BaseAggregateRoot
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// NewSoftDeletableAggregateRoot creates a new soft-deletable aggregate root
func NewSoftDeletableAggregateRoot() SoftDeletableAggregateRoot {
	return SoftDeletableAggregateRoot{BaseAggregateRoot: NewBaseAggregateRoot()}
}

// IsDeleted reports whether the aggregate has been soft-deleted
func (a *SoftDeletableAggregateRoot) IsDeleted() bool {
	return a.DeletedAt.Valid
}

// DeletedTime returns the soft-delete timestamp, or nil when the row is live
func (a *SoftDeletableAggregateRoot) DeletedTime() *time.Time {
	if !a.DeletedAt.Valid {
		return nil
	}
	t := a.DeletedAt.Time
	return &t
}
