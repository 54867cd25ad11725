// Package admin implements the operator commands of folio-admin:
// hash-password prints a bcrypt hash for the admin password, export dumps
// every collection and singleton as JSON, import loads such a dump.
package admin
