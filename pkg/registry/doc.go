/*
Package registry implements the aggregation core of junction: a thread-safe,
lazily-initialized merge of N providers' items into one cached snapshot, with
a one-shot signal per epoch telling consumers when to re-fetch.

Two orderings carry the design:

 1. Recompute runs under a single mutex covering the provider reads, the
    snapshot swap and the new signal's publication.
 2. The superseded signal fires only after the new epoch is published, and
    outside the mutex. A subscriber that synchronously re-subscribes from its
    callback therefore lands on the new, still-armed signal — never on the one
    mid-fire — which is what keeps self-resubscribing consumers from
    recursing.

Membership is explicit: Add and Remove are change events on the registry
itself, reusing the same recompute path as a provider firing.
*/
package registry
