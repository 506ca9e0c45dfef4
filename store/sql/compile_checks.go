package sqlstore

import (
	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/ratelimit"
)

var (
	_ core.TenantStore     = (*TenantStore)(nil)
	_ core.TenantStore     = (*CachedTenantStore)(nil)
	_ ratelimit.StateStore = (*RateLimitStateStore)(nil)
)
