// Package auth authenticates dashboard operators.
//
// Operators log in with a username and password checked against the bcrypt
// hashes in the users collection. A successful login returns an HS256 JWT
// with these claims:
//
//   - sub: the user ID
//   - username
//   - role
//   - iat / exp: issue and expiry times (24h by default)
//
// API routes sit behind Middleware, which verifies the bearer token and
// stores the Operator in the request context:
//
//	r.Use(auth.Middleware(issuer))
//	...
//	op := auth.FromContext(r.Context())
//
// The operator's username is what configuration saves record as
// configured_by.
package auth
