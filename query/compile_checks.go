package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/ratelimit"
)

var (
	_ gocmd.Querier[GetTenantMessage, core.Tenant]          = (*GetTenantQuery)(nil)
	_ gocmd.Querier[GetTenantByEmailMessage, core.Tenant]   = (*GetTenantByEmailQuery)(nil)
	_ gocmd.Querier[ListEntitiesMessage, []core.Entity]     = (*ListEntitiesQuery)(nil)
	_ gocmd.Querier[RateLimitUsageMessage, ratelimit.Entry] = (*RateLimitUsageQuery)(nil)
)
