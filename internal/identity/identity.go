// Package identity implements user-session authentication for the market.
//
// It provides:
//   - UserTokenIssuer  — issues and verifies RS256 JWT user session tokens
//   - RequireUserToken — Gin middleware enforcing Bearer session-token authentication
//   - RequireAdmin     — Gin middleware enforcing the admin claim
package identity
