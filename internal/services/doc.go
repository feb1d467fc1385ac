// package services implements HTTP clients for the upstream APIs the tool
// talks to. The only service today is Spotify; the maker engine depends on
// the narrow [Catalog] interface rather than the concrete client so tests
// can substitute a fake catalog.
package services
