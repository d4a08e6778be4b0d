// Package directory implements the account and authentication backend for a
// university user directory.
//
// The package exposes three token flows: password login through
// Authenticator, federated provisioning through Provisioner and token
// rotation through Refresher. All three issue an access/refresh Pair signed
// with disjoint secrets by TokenService.
//
// HTTP handling is split between AuthController and UsersController, with
// request guarding in the middleware/guard subpackage. Storage is a bun
// backed Users repository keyed by snowflake ids.
package directory
