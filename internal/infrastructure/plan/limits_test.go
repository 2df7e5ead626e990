package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturio/facturio/internal/application/service"
)

func TestLimits_HasReachedPlanLimit(t *testing.T) {
	tests := []struct {
		name     string
		quota    int
		resource string
		count    int
		reached  bool
	}{
		{"under quota", 5, service.PlanResourceTemplates, 4, false},
		{"at quota", 5, service.PlanResourceTemplates, 5, true},
		{"over quota", 5, service.PlanResourceTemplates, 6, true},
		{"zero quota is unlimited", 0, service.PlanResourceTemplates, 1000, false},
		{"unknown resource is unlimited", 5, "invoices", 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimits(tt.quota)
			reached, err := l.HasReachedPlanLimit(context.Background(), 1, tt.resource, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.reached, reached)
		})
	}
}
