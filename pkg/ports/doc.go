/*
Package ports defines the interfaces between the registry core and the
outside world, plus reusable contract suites that adapter tests run to prove
they honor those interfaces.

Following the Dependency Inversion Principle, the core depends on these
abstractions, and the adapters (memory, file, redis) implement them.
*/
package ports
