// Package content manages portfolio posts and their media.
//
// Writes require an admin session. Creating or updating a post replaces its
// media and recomputes its embedding right after it is stored; deleting a
// post removes its media with it.
package content
