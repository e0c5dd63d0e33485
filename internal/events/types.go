// Package events carries push notifications about container changes from the
// operations that cause them to whoever relays them to clients.
package events

import (
	"github.com/google/uuid"

	"git.home.luguber.info/inful/shelfkeeper/internal/location"
)

// Kind names on the wire.
const (
	KindContainerAdded     = "container-added"
	KindContainerRemoved   = "container-removed"
	KindContainerUpdated   = "container-updated"
	KindOwnerBookUpdated   = "owner-book-updated"
	KindOwnerStatusUpdated = "owner-status-updated"
)

// Event is implemented by every push notification.
type Event interface {
	Kind() string
}

// ContainerRef is the wire form of a shelf location.
type ContainerRef struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

func refOf(loc location.Location) ContainerRef {
	return ContainerRef{World: loc.World, X: loc.X, Y: loc.Y, Z: loc.Z}
}

// ContainerAdded reports a newly tracked shelf.
type ContainerAdded struct {
	Location location.Location
}

func (ContainerAdded) Kind() string { return KindContainerAdded }

// Payload returns the wire form.
func (e ContainerAdded) Payload() any { return refOf(e.Location) }

// ContainerRemoved reports a shelf that is no longer tracked.
type ContainerRemoved struct {
	Location location.Location
}

func (ContainerRemoved) Kind() string { return KindContainerRemoved }

// Payload returns the wire form.
func (e ContainerRemoved) Payload() any { return refOf(e.Location) }

// ContainerUpdated reports that the books on a shelf changed.
type ContainerUpdated struct {
	Location location.Location
}

func (ContainerUpdated) Kind() string { return KindContainerUpdated }

// Payload returns the wire form.
func (e ContainerUpdated) Payload() any { return refOf(e.Location) }

// OwnerBookUpdated reports that the books of a connected owner changed.
type OwnerBookUpdated struct {
	OwnerID   uuid.UUID
	OwnerName string
}

func (OwnerBookUpdated) Kind() string { return KindOwnerBookUpdated }

// Payload returns the wire form.
func (e OwnerBookUpdated) Payload() any {
	return map[string]string{"uuid": e.OwnerID.String(), "name": e.OwnerName}
}

// OwnerStatusUpdated reports an owner connecting or disconnecting.
type OwnerStatusUpdated struct {
	OwnerID   uuid.UUID
	OwnerName string
	Online    bool
}

func (OwnerStatusUpdated) Kind() string { return KindOwnerStatusUpdated }

// Payload returns the wire form.
func (e OwnerStatusUpdated) Payload() any {
	return struct {
		UUID   string `json:"uuid"`
		Name   string `json:"name"`
		Online bool   `json:"online"`
	}{e.OwnerID.String(), e.OwnerName, e.Online}
}

// Wire is implemented by events that have a client-facing payload.
type Wire interface {
	Event
	Payload() any
}
