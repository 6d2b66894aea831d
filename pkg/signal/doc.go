/*
Package signal provides the one-shot notification primitive used by the
registry to tell consumers their cached view is stale.

A Signal models a single epoch: it fires at most once, firing is idempotent,
and anyone holding a fired signal knows to re-fetch and grab a fresh one.
Rotating sources create a new Signal per generation rather than reusing one.
*/
package signal
