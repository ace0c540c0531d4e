package order

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusNames(t *testing.T) {
	assert.Equal(t, "Pendiente", StatusPending.String())
	assert.Equal(t, "Pagado", StatusPaid.String())
	assert.Equal(t, "Enviado", StatusShipped.String())
	assert.Equal(t, "Entregado", StatusDelivered.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestStatusSettled(t *testing.T) {
	assert.False(t, StatusPending.Settled())
	for _, s := range SettledStatuses() {
		assert.True(t, s.Settled(), s.String())
	}
	assert.False(t, Status(7).Settled())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(3)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus(0)
	assert.Error(t, err)
	_, err = ParseStatus(5)
	assert.Error(t, err)
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(StatusPaid)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"name":"Pagado"}`, string(b))
}

func TestLinesTotal(t *testing.T) {
	lines := []Line{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("15.00")},
		{Quantity: 3, UnitPrice: decimal.RequireFromString("4.50")},
	}
	assert.True(t, decimal.RequireFromString("43.50").Equal(LinesTotal(lines)))
	assert.True(t, decimal.Zero.Equal(LinesTotal(nil)))
}
