// Package errors provides structured error handling with error codes for the
// JWKS server.
//
// Every failure in the key lifecycle is tagged with a typed code that carries
// the underlying error as data. The HTTP boundary converts codes into status
// classes with MapErrorCodeToHTTPStatus; no handler inspects concrete error
// types.
//
// Creating errors with codes:
//
//	err := errors.New(errors.ErrCodeNoMatchingKey, "no key matches predicate")
//	err := errors.Wrap(rsaErr, errors.ErrCodeKeyPair, "failed to generate key pair")
//
// Inspecting:
//
//	if errors.IsCode(err, errors.ErrCodeNoMatchingKey) { ... }
//	code := errors.GetCode(err)
//
// The key lifecycle codes are:
//   - ErrCodeKeyPair: generation or decoding of key material failed
//   - ErrCodeTokenCreation: signing or encoding a token failed
//   - ErrCodeSystemTime: clock unavailable or inconsistent
//   - ErrCodeNoMatchingKey: selection predicate unsatisfiable against the pool
//   - ErrCodeStore: persistence read/write failure
package errors
