package domain

import (
	"errors"
	"fmt"
)

// BotID is the persisted attribution of automated transitions.
const BotID = "BOT"

var ErrReservedActorID = errors.New("actor id is reserved for the system")

type ActorKind uint8

const (
	ActorHuman ActorKind = iota + 1
	ActorSystem
)

// Actor attributes a lifecycle stamp. Humans are identified by phone or user
// id; the system actor always serialises as BotID.
type Actor struct {
	Kind ActorKind
	ID   string
}

var System = Actor{Kind: ActorSystem, ID: BotID}

func Human(id string) (Actor, error) {
	if id == "" {
		return Actor{}, errors.New("actor id is required")
	}
	if id == BotID {
		return Actor{}, ErrReservedActorID
	}
	return Actor{Kind: ActorHuman, ID: id}, nil
}

func (a Actor) IsSystem() bool {
	return a.Kind == ActorSystem
}

func (a Actor) String() string {
	return a.ID
}

func (a Actor) MarshalText() ([]byte, error) {
	if a.Kind == 0 {
		return nil, fmt.Errorf("marshal actor: unset kind")
	}
	return []byte(a.ID), nil
}

func (a *Actor) UnmarshalText(text []byte) error {
	parsed := ParseActor(string(text))
	if parsed.ID == "" {
		return errors.New("unmarshal actor: empty id")
	}
	*a = parsed
	return nil
}

// ParseActor restores an actor from its stored form.
func ParseActor(s string) Actor {
	if s == BotID {
		return System
	}
	return Actor{Kind: ActorHuman, ID: s}
}
