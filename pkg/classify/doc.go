// Package classify maps raw API call failures onto a small semantic
// taxonomy with retry metadata.
//
// Classification happens exactly once, at the boundary where a raw failure
// is first observed: [Check] for completed HTTP exchanges, [FromTransport]
// for errors that prevented an exchange. From that point on only [*Error]
// flows through the SDK; no caller re-inspects status codes.
//
// Each [Class] carries a stable string identifier for logs, a
// recoverability flag, a transience flag, and a default retry delay. The
// recovery package consumes these to drive automatic retries; callers can
// consume them directly to make their own decisions.
package classify
