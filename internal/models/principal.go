package models

import "github.com/google/uuid"

// Principal is the authenticated caller. Every actor id recorded by the
// service comes from here, never from request input.
type Principal struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// Descriptor returns the actor profile attached to history reads.
func (p *Principal) Descriptor() ActorDescriptor {
	return ActorDescriptor{ID: p.ID, Name: p.Name, AvatarURL: p.AvatarURL}
}
