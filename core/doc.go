// Package core contains the canonical tenant-authorization and account-linking
// domain contracts and entities. Lower-level adapters must depend on this
// package; core must not depend on platform-specific or transport-specific
// adapters.
package core
