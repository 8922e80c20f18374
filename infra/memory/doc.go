// Package memory recycles order nodes once the book has unlinked them
// from every level and the registry.
package memory
