// Package domain holds the relay's core types: the PDF payload, the two
// external collaborators and the errors the HTTP layer maps to responses.
// Keep it free of Fiber and of concrete upstream clients.
package domain
