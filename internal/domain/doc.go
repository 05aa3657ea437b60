// Package domain holds the document generation contract shared by the client,
// the HTTP layer and the renderers. It has no transport or engine concerns.
package domain
