// Package recovery turns single API calls into policy-governed attempts.
//
// The orchestrator wraps one "perform a call" operation. On failure it
// consults the classified error, decides per the active Policy whether a
// retry is worthwhile, optionally rewrites the outgoing request so it no
// longer pins an expired execution container, waits out the advised delay,
// and tries again up to the configured bound. Callers receive the final
// response or the final classified error together with an Outcome describing
// whether and how recovery happened.
package recovery
