package memory

import (
	"context"
	"strings"
)

const PersonaOwner = "Reimu Hakurei"

const DefaultPersona = "I am Reimu Hakurei, the shrine maiden of the Hakurei Shrine, and the resolver of incidents in Gensokyo. " +
	"As the guardian of Gensokyo, I possess the ability to manipulate spiritual power and barriers, " +
	"defeating troublesome youkai with my spell cards. " +
	"I usually lead a relaxed life, enjoying tea and rice dumplings, " +
	"but the shrine's offerings are scarce, so I'm always worried about donation money. " +
	"Oh, if you visit the shrine, please donate some offering money; I'll be very happy~"

// Persona returns the persona background joined by newlines, seeding the
// default text first if nothing is stored yet.
func Persona(ctx context.Context, store Store) (string, error) {
	infos, err := store.BackgroundInfo(ctx, PersonaOwner)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		if err := store.AddBackgroundInfo(ctx, PersonaOwner, DefaultPersona); err != nil {
			return "", err
		}
		return DefaultPersona, nil
	}

	parts := make([]string, len(infos))
	for i, info := range infos {
		parts[i] = info.Info
	}
	return strings.Join(parts, "\n"), nil
}
