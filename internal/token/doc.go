// Package token issues and verifies the signed identity tokens of the API
// and the short lived secrets of the password recovery flow.
//
// Access tokens are HS256 JWTs carrying the subject id, email and role.
// Refresh tokens are JWTs of type refresh that are only accepted while they
// are recorded in the refresh store, and are rotated on every use.
//
// Revocation state lives in a fiber.Storage so deployments can share it
// through redis, postgres or mysql:
//   - the denylist holds single revoked tokens until they would expire anyway
//   - the revocation watermark of a subject rejects every token issued up to it
//
// Verification codes are 6 numeric digits, reset tokens 32 alphanumeric
// characters. Both are returned in plain text exactly once; callers persist
// only HashSecret of them.
package token
