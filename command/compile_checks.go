package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[GenerateAPIKeyMessage] = (*GenerateAPIKeyCommand)(nil)
	_ gocmd.Commander[RevokeAPIKeyMessage]   = (*RevokeAPIKeyCommand)(nil)
	_ gocmd.Commander[SelectEntityMessage]   = (*SelectEntityCommand)(nil)
	_ gocmd.Commander[UpdateTenantMessage]   = (*UpdateTenantCommand)(nil)
	_ gocmd.Commander[DeleteTenantMessage]   = (*DeleteTenantCommand)(nil)
	_ gocmd.Commander[SweepRateLimitMessage] = (*SweepRateLimitCommand)(nil)
)
