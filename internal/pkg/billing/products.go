package billing

import (
	"strings"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/env"
)

// ProductMapping resolves Polar's opaque product identifiers to internal
// plan names. The mapping is static configuration, not a database table.
type ProductMapping map[string]entitlements.Plan

// ProductMappingFromEnv builds the mapping from POLAR_PRODUCT_ID_PRO and
// POLAR_PRODUCT_ID_STARTUP. Unset entries are simply absent from the map.
func ProductMappingFromEnv() ProductMapping {
	m := ProductMapping{}
	if id := strings.TrimSpace(env.GetEnv("POLAR_PRODUCT_ID_PRO", "")); id != "" {
		m[id] = entitlements.PlanPro
	}
	if id := strings.TrimSpace(env.GetEnv("POLAR_PRODUCT_ID_STARTUP", "")); id != "" {
		m[id] = entitlements.PlanStartup
	}
	return m
}

// PlanForProduct returns the plan sold under the given product id. Unknown
// products map to the free plan with ok=false so handlers can log the miss.
func (m ProductMapping) PlanForProduct(productID string) (entitlements.Plan, bool) {
	plan, ok := m[strings.TrimSpace(productID)]
	if !ok {
		return entitlements.PlanFree, false
	}
	return plan, true
}
