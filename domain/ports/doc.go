// Package ports defines the interfaces between the domain and its adapters.
// Domain logic depends on these abstractions and infrastructure implements
// them.
package ports
