/*
Package domain holds the shared value types and sentinel errors of junction.

It is dependency-free on purpose: adapters, the registry and the CLI all
import it, and it imports none of them.
*/
package domain
