// Package domain implements the Red/Blue guessing game engine.
//
// Each round a hidden outcome is drawn from a biased source, a human guess is
// compared against it, and a Bayesian opponent guesses from the history of
// past draws alone. The package holds the opponent's Beta-Bernoulli belief,
// the round evaluator, the append-only ledger with running net scores, the
// analytics derived from it, and Session, which ties them together behind a
// single PlayRound entry point.
//
// Nothing here is safe for concurrent use; callers that share a Session
// across goroutines must serialise access themselves.
package domain
