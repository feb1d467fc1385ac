// package models defines the data model for the sputifix client: catalog
// entities returned by the Spotify Web API (artists, releases, tracks,
// playlists), paginated wrappers, and the locally persisted sync state the
// maker engine reads and writes between runs.
package models
