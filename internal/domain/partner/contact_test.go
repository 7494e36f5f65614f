package partner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContact(t *testing.T) {
	t.Run("creates customer", func(t *testing.T) {
		c, err := NewContact(ContactTypeCustomer, ContactDetails{Name: " Grace ", Email: "Grace@Example.com", Phone: "+254700000000"})
		require.NoError(t, err)
		assert.Equal(t, "Grace", c.Name)
		assert.Equal(t, "grace@example.com", c.Email)
		assert.True(t, c.IsActive)
		assert.True(t, c.IsCustomer())
	})

	t.Run("validates input", func(t *testing.T) {
		_, err := NewContact("vendor", ContactDetails{Name: "X"})
		assert.ErrorContains(t, err, "Contact type")
		_, err = NewContact(ContactTypeSupplier, ContactDetails{})
		assert.ErrorContains(t, err, "name cannot be empty")
		_, err = NewContact(ContactTypeSupplier, ContactDetails{Name: "Acme", Email: "not-an-email"})
		assert.ErrorContains(t, err, "email")
	})

	t.Run("prescribers need a license", func(t *testing.T) {
		_, err := NewContact(ContactTypePrescriber, ContactDetails{Name: "Dr. Who"})
		assert.ErrorContains(t, err, "license")
		c, err := NewContact(ContactTypePrescriber, ContactDetails{Name: "Dr. Who", LicenseNumber: "MD-1"})
		require.NoError(t, err)
		assert.Equal(t, "MD-1", c.LicenseNumber)
	})
}

func TestContact_Lifecycle(t *testing.T) {
	c, err := NewContact(ContactTypeSupplier, ContactDetails{Name: "Acme Pharma"})
	require.NoError(t, err)

	require.NoError(t, c.Update(ContactDetails{Name: "Acme Pharma Ltd", Company: "Acme"}))
	assert.Equal(t, "Acme Pharma Ltd", c.Name)
	assert.Equal(t, 2, c.GetVersion())

	require.NoError(t, c.Deactivate())
	assert.Error(t, c.Deactivate())
	require.NoError(t, c.Activate())
	assert.False(t, c.IsDeleted())
}
