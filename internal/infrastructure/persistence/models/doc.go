// Package models holds the GORM persistence models of the billing service.
// Each model converts to and from its domain aggregate with ToDomain and
// FromDomain; repositories never hand models to callers.
package models
